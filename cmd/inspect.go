package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/urbancover/internal/classify"
	"github.com/sells-group/urbancover/internal/gdal"
	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/raster"
)

var inspectBBox string

var inspectCmd = &cobra.Command{
	Use:         "inspect <raster>",
	Short:       "Print raster metadata and, with --bbox, the window histogram",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationGDAL: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var bbox *geometry.Envelope
		if inspectBBox != "" {
			env, err := parseBBox(inspectBBox)
			if err != nil {
				return err
			}
			bbox = &env
		}

		return inspectRaster(cmd.Context(), gdal.RasterReader{}, args[0], bbox, cmd.OutOrStdout())
	},
}

// parseBBox parses "xmin,ymin,xmax,ymax".
func parseBBox(s string) (geometry.Envelope, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Envelope{}, eris.Errorf("bbox %q: want xmin,ymin,xmax,ymax", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Envelope{}, eris.Wrapf(err, "bbox %q", s)
		}
		v[i] = f
	}
	return geometry.NewEnvelope(v[0], v[1], v[2], v[3]), nil
}

func inspectRaster(ctx context.Context, r raster.Reader, path string, bbox *geometry.Envelope, w io.Writer) error {
	ds, err := r.Open(ctx, path)
	if err != nil {
		return err
	}
	defer raster.Release(ds, path)

	info := ds.Info()
	env := raster.EnvelopeOf(info)
	resX, resY := raster.Resolution(info)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", path)
	fmt.Fprintf(tw, "size\t%d x %d\n", info.Width, info.Height)
	fmt.Fprintf(tw, "epsg\t%d\n", info.SpatialRef.EPSG)
	fmt.Fprintf(tw, "resolution\t%g x %g\n", resX, resY)
	fmt.Fprintf(tw, "envelope\t%g %g %g %g\n", env.MinX, env.MinY, env.MaxX, env.MaxY)
	if info.HasNoData {
		fmt.Fprintf(tw, "nodata\t%g\n", info.NoData)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "write info")
	}

	if bbox == nil {
		return nil
	}
	clamped := bbox.Clamp(env)
	if clamped.Empty() {
		_, err := fmt.Fprintln(w, "bbox does not intersect the raster")
		return err
	}
	win := raster.ReadingWindow(info, clamped)
	grid, err := ds.ReadWindow(win)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "window\ttop=%d left=%d bottom=%d right=%d\n", win.Top, win.Left, win.Bottom, win.Right)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "value\tcount\tpercent\t")
	for _, b := range classify.Histogram(grid.Data) {
		fmt.Fprintf(tw, "%g\t%d\t%.2f\t\n", b.Value, b.Count, b.Percent)
	}
	return eris.Wrap(tw.Flush(), "write histogram")
}

func init() {
	inspectCmd.Flags().StringVar(&inspectBBox, "bbox", "", "window to summarize, xmin,ymin,xmax,ymax in the raster CRS")
	rootCmd.AddCommand(inspectCmd)
}
