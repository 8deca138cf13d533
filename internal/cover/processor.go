// Package cover runs one tile invocation end to end: it reconciles the
// tile's area of interest against processed neighbours, reads the minimal
// raster windows, masks them with the tile footprint and persists the
// urban cover statistics.
package cover

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/classify"
	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/metrics"
	"github.com/sells-group/urbancover/internal/raster"
	"github.com/sells-group/urbancover/internal/rasterize"
	"github.com/sells-group/urbancover/internal/reconcile"
	"github.com/sells-group/urbancover/internal/stac"
	"github.com/sells-group/urbancover/internal/store"
	"github.com/sells-group/urbancover/internal/tilegrid"
)

// Options are the per-deployment settings of a Processor.
type Options struct {
	LandUsePath  string
	OutputFolder string
	GridRef      geometry.SpatialRef
	Codes        classify.Codes
	Concurrency  int
}

// Processor wires the capability interfaces together. It holds no
// per-invocation state and may serve concurrent invocations.
type Processor struct {
	Geometry   geometry.Engine
	Raster     raster.Reader
	Rasterizer rasterize.Rasterizer
	Tiles      tilegrid.Source
	Store      store.ObjectStore
	Options    Options
}

// openDataset is a dataset owned by one invocation.
type openDataset struct {
	ds   raster.Dataset
	path string
}

// Process runs one invocation for item.
func (p *Processor) Process(ctx context.Context, item *stac.Item) (*Outcome, error) {
	start := time.Now()
	out, err := p.process(ctx, item)
	metrics.InvocationDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	switch {
	case err != nil:
		metrics.InvocationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	case out.Status == StatusNoOverlap:
		metrics.InvocationsTotal.WithLabelValues(metrics.OutcomeNoOverlap).Inc()
	default:
		metrics.InvocationsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		metrics.UrbanCover.Observe(out.Stats.UrbanCover)
		metrics.NeighboursSubtractedTotal.Add(float64(len(out.Neighbours)))
	}
	return out, err
}

func (p *Processor) process(ctx context.Context, item *stac.Item) (*Outcome, error) {
	grid := p.Options.GridRef
	out := &Outcome{InvocationID: uuid.New().String(), ItemID: item.ID}
	log := zap.L().With(
		zap.String("invocation_id", out.InvocationID),
		zap.String("item_id", item.ID),
		zap.String("grid_name", item.GridName()),
	)
	log.Info("cover: processing item",
		zap.String("product_id", item.Properties.ProductID),
		zap.String("platform", item.Properties.Platform),
		zap.String("date", item.ProductDate()),
		zap.Float64("cloud_cover", item.Properties.CloudCover),
	)

	footprintGeo, err := geometry.FromGeoJSON(item.Geometry, geometry.WGS84)
	if err != nil {
		return nil, err
	}
	footprint, err := p.Geometry.Transform(footprintGeo, grid)
	if err != nil {
		return nil, eris.Wrap(err, "cover: project footprint")
	}

	cmPath, err := item.AssetHref(stac.CloudMaskAsset)
	if err != nil {
		return nil, err
	}

	var opened []openDataset
	release := func() {
		for _, o := range opened {
			raster.Release(o.ds, o.path)
		}
		opened = nil
	}
	defer release()

	open := func(path string) (raster.Dataset, raster.Info, error) {
		ds, err := p.Raster.Open(ctx, path)
		if err != nil {
			return nil, raster.Info{}, err
		}
		opened = append(opened, openDataset{ds: ds, path: path})
		info := ds.Info()
		if info.SpatialRef.Valid() && info.SpatialRef != grid {
			return nil, raster.Info{}, &geometry.CRSError{EPSG: info.SpatialRef.EPSG, Other: grid.EPSG}
		}
		log.Debug("cover: opened raster",
			zap.String("path", path),
			zap.Float64s("envelope", envelopeField(raster.EnvelopeOf(info))),
			zap.Int("width", info.Width),
			zap.Int("height", info.Height),
		)
		return ds, info, nil
	}

	cmDS, cmInfo, err := open(cmPath)
	if err != nil {
		return nil, err
	}
	luDS, luInfo, err := open(p.Options.LandUsePath)
	if err != nil {
		return nil, err
	}
	cmEnv := raster.EnvelopeOf(cmInfo)
	luEnv := raster.EnvelopeOf(luInfo)
	cmGeom := geometry.FromEnvelope(cmEnv, grid)
	luGeom := geometry.FromEnvelope(luEnv, grid)

	overlap, err := p.Geometry.Intersects(luGeom, cmGeom)
	if err != nil {
		return nil, eris.Wrap(err, "cover: intersect input extents")
	}
	if !overlap {
		log.Info("cover: input data do not intersect")
		out.Status = StatusNoOverlap
		out.Message = MessageNoOverlap
		return out, nil
	}

	aoi, err := p.Geometry.Intersection(cmGeom, luGeom)
	if err != nil {
		return nil, eris.Wrap(err, "cover: intersect input extents")
	}

	siblings, err := p.Tiles.Siblings(ctx, footprintGeo)
	if err != nil {
		return nil, eris.Wrap(err, "cover: list sibling tiles")
	}
	rec := &reconcile.Reconciler{
		Engine:      p.Geometry,
		Records:     &store.RecordStore{Store: p.Store, Folder: p.Options.OutputFolder},
		Concurrency: p.Options.Concurrency,
	}
	res, err := rec.Reconcile(ctx, aoi, item.ID, item.GridName(), siblings)
	if err != nil {
		return nil, err
	}
	out.Neighbours = res.Applied

	var stats classify.Statistics
	aoiEnv := res.Residual.Envelope().Clamp(luEnv)
	if res.Residual.Empty() || aoiEnv.Empty() {
		log.Info("cover: aoi fully credited to neighbours", zap.Strings("neighbours", res.Applied))
		metrics.EmptyResidualTotal.Inc()
		aoiEnv = geometry.Envelope{}
	} else {
		log.Info("cover: aoi envelope", zap.Float64s("extent", envelopeField(aoiEnv)))
		stats, err = p.measure(ctx, log, footprint, aoiEnv, cmDS, luDS, release)
		if err != nil {
			return nil, err
		}
	}
	release()
	out.AOIExtent = aoiEnv
	out.Stats = stats

	log.Info("cover: statistics",
		zap.Int("urban_pixels", stats.UrbanPixels),
		zap.Int("valid_urban_pixels", stats.ValidUrbanPixels),
		zap.Float64("urban_cover", stats.UrbanCover),
	)

	doc, err := stac.Document(item, stac.LandUse{
		UrbanPixels:      stats.UrbanPixels,
		ValidUrbanPixels: stats.ValidUrbanPixels,
		UrbanCover:       stats.UrbanCover,
		AOIExtent:        cmEnv,
	})
	if err != nil {
		return nil, err
	}
	out.DocumentKey = store.DocumentKey(p.Options.OutputFolder, item.ID)
	if err := store.PutDocument(ctx, p.Store, out.DocumentKey, doc); err != nil {
		return nil, eris.Wrapf(err, "cover: write document %s", out.DocumentKey)
	}

	out.Status = StatusOK
	out.Message = MessageOK
	return out, nil
}

// measure reads both windows over aoi, releases the datasets, burns the
// footprint on the cloud-mask grid and counts the classes.
func (p *Processor) measure(
	ctx context.Context,
	log *zap.Logger,
	footprint geometry.Geometry,
	aoi geometry.Envelope,
	cmDS, luDS raster.Dataset,
	release func(),
) (classify.Statistics, error) {
	grid := p.Options.GridRef
	cmInfo, luInfo := cmDS.Info(), luDS.Info()

	cmWin := raster.ReadingWindow(cmInfo, aoi)
	luWin := raster.ReadingWindow(luInfo, aoi)
	log.Debug("cover: reading windows",
		zap.Ints("cloud_mask", windowField(cmWin)),
		zap.Ints("land_use", windowField(luWin)),
	)

	cmGrid, err := cmDS.ReadWindow(cmWin)
	if err != nil {
		return classify.Statistics{}, eris.Wrap(err, "cover: read cloud mask window")
	}
	luGrid, err := luDS.ReadWindow(luWin)
	if err != nil {
		return classify.Statistics{}, eris.Wrap(err, "cover: read land use window")
	}

	resX, resY := raster.Resolution(cmInfo)
	resX = raster.RoundResolution(resX, grid)
	resY = raster.RoundResolution(resY, grid)
	release()

	cloud := classify.ValidCloudMask(cmGrid, p.Options.Codes.Cloud)
	urban := classify.ValidUrbanMask(luGrid, p.Options.Codes.Urban)

	spec := rasterize.SpecFor(aoi, resX, resY, cmWin.Width(), cmWin.Height(), grid)
	mask, err := p.Rasterizer.Burn(ctx, footprint, spec)
	if err != nil {
		return classify.Statistics{}, eris.Wrap(err, "cover: rasterize footprint")
	}

	combined, err := classify.Combine(cloud, urban, mask)
	if err != nil {
		return classify.Statistics{}, err
	}
	if ce := log.Check(zap.DebugLevel, "cover: class histogram"); ce != nil {
		ce.Write(zap.Any("bins", classify.Histogram(combined.Floats())))
	}
	return classify.Summarize(combined), nil
}

func envelopeField(e geometry.Envelope) []float64 {
	a := e.Array()
	return a[:]
}

func windowField(w raster.Window) []int {
	return []int{w.Left, w.Top, w.Right, w.Bottom}
}
