package store

import (
	"context"

	"github.com/sells-group/urbancover/internal/reconcile"
	"github.com/sells-group/urbancover/internal/stac"
)

// RecordStore reads processed neighbour records from result documents
// stored under Folder.
type RecordStore struct {
	Store  ObjectStore
	Folder string
}

var _ reconcile.RecordSource = (*RecordStore)(nil)

// Lookup returns nil, nil when the neighbour has no document.
func (r *RecordStore) Lookup(ctx context.Context, itemID string) (*reconcile.ProcessedTileRecord, error) {
	key := DocumentKey(r.Folder, itemID)
	ok, err := r.Store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	body, err := r.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	lu, err := stac.ParseLandUse(body)
	if err != nil {
		return nil, err
	}
	return &reconcile.ProcessedTileRecord{ItemID: itemID, AOIExtent: lu.AOIExtent}, nil
}
