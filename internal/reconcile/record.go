// Package reconcile subtracts the ground already credited to previously
// processed neighbour tiles from a tile's candidate area of interest.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbancover/internal/geometry"
)

// ProcessedTileRecord is the persisted result of a neighbour tile, reduced to
// what reconciliation needs.
type ProcessedTileRecord struct {
	Name      string
	ItemID    string
	AOIExtent geometry.Envelope
}

// RecordSource looks up processed neighbour records. Lookup returns nil, nil
// when no record exists for itemID.
type RecordSource interface {
	Lookup(ctx context.Context, itemID string) (*ProcessedTileRecord, error)
}

// SiblingItemID derives the item id of the same acquisition on another grid
// tile: the five grid characters after the mission prefix are replaced.
func SiblingItemID(itemID, gridName string) (string, error) {
	if len(itemID) < 9 {
		return "", eris.Errorf("reconcile: item id %q too short", itemID)
	}
	return itemID[:4] + gridName + itemID[9:], nil
}

// NeighborFetchError reports a neighbour record that exists but cannot be
// read or decoded. Skipping it would double count ground, so it is fatal.
type NeighborFetchError struct {
	Name   string
	ItemID string
	Err    error
}

func (e *NeighborFetchError) Error() string {
	return fmt.Sprintf("reconcile: neighbour %s (%s): %v", e.Name, e.ItemID, e.Err)
}

func (e *NeighborFetchError) Unwrap() error {
	return e.Err
}
