package reconcile

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/urbancover/internal/geometry"
)

// DefaultConcurrency bounds neighbour lookups when none is configured.
const DefaultConcurrency = 4

// Reconciler shrinks an AOI by the extents of processed neighbours.
type Reconciler struct {
	Engine      geometry.Engine
	Records     RecordSource
	Concurrency int
}

// Result is the residual AOI and the neighbours that were subtracted, in
// the order they were applied.
type Result struct {
	Residual geometry.Geometry
	Applied  []string
}

// Reconcile subtracts every processed neighbour extent that intersects the
// running AOI. gridNames is iterated in order; the tile's own name, and any
// name whose sibling id is itemID itself, is skipped and absent records are
// ignored. Lookups run concurrently but the
// differences are applied one at a time in gridNames order.
func (r *Reconciler) Reconcile(ctx context.Context, aoi geometry.Geometry, itemID, ownGrid string, gridNames []string) (Result, error) {
	log := zap.L().With(zap.String("item_id", itemID))

	records, err := r.fetch(ctx, itemID, ownGrid, gridNames)
	if err != nil {
		return Result{}, err
	}

	res := Result{Residual: aoi}
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if res.Residual.Empty() {
			log.Debug("reconcile: aoi exhausted", zap.Int("remaining", len(records)-i))
			break
		}

		bbox := geometry.FromEnvelope(rec.AOIExtent, aoi.SpatialRef())
		hit, err := r.Engine.Intersects(res.Residual, bbox)
		if err != nil {
			return Result{}, eris.Wrapf(err, "reconcile: intersects %s", rec.Name)
		}
		if !hit {
			continue
		}
		next, err := r.Engine.Difference(res.Residual, bbox)
		if err != nil {
			return Result{}, eris.Wrapf(err, "reconcile: difference %s", rec.Name)
		}
		res.Residual = next
		res.Applied = append(res.Applied, rec.Name)
		ext := rec.AOIExtent.Array()
		log.Debug("reconcile: subtracted neighbour",
			zap.String("grid", rec.Name),
			zap.Float64s("extent", ext[:]),
			zap.Float64("residual_area", next.Area()),
		)
	}
	return res, nil
}

// fetch looks up every neighbour record. The result is indexed like
// gridNames; skipped and absent neighbours are nil.
func (r *Reconciler) fetch(ctx context.Context, itemID, ownGrid string, gridNames []string) ([]*ProcessedTileRecord, error) {
	records := make([]*ProcessedTileRecord, len(gridNames))

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range gridNames {
		if name == ownGrid {
			continue
		}
		sibling, err := SiblingItemID(itemID, name)
		if err != nil {
			return nil, err
		}
		// The item's own record, whatever ownGrid says.
		if sibling == itemID {
			continue
		}
		g.Go(func() error {
			rec, err := r.Records.Lookup(gctx, sibling)
			if err != nil {
				var nf *NeighborFetchError
				if errors.As(err, &nf) {
					return err
				}
				return &NeighborFetchError{Name: name, ItemID: sibling, Err: err}
			}
			if rec == nil {
				return nil
			}
			out := *rec
			if out.Name == "" {
				out.Name = name
			}
			if out.ItemID == "" {
				out.ItemID = sibling
			}
			records[i] = &out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
