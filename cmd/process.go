package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/stac"
)

var processEvent string

var processCmd = &cobra.Command{
	Use:         "process",
	Short:       "Process one STAC notification",
	Long:        "Reads an SNS event (or a bare STAC item) from --event or stdin, computes the tile's urban cover and prints the invocation response.",
	Annotations: map[string]string{annotationGDAL: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := readEvent(cmd.InOrStdin(), processEvent)
		if err != nil {
			return err
		}
		item, err := stac.ParseNotification(data)
		if err != nil {
			return err
		}

		env, err := initProcessor(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Processor.Process(ctx, item)
		if err != nil {
			return err
		}

		zap.L().Info("invocation complete",
			zap.String("item_id", out.ItemID),
			zap.String("status", string(out.Status)),
			zap.String("document", out.DocumentKey),
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(out.Response())
	},
}

// readEvent reads the event file, or r when path is empty or "-".
func readEvent(r io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(r)
		return data, eris.Wrap(err, "read event from stdin")
	}
	data, err := os.ReadFile(path)
	return data, eris.Wrapf(err, "read event %s", path)
}

func init() {
	processCmd.Flags().StringVar(&processEvent, "event", "", "SNS event or STAC item JSON file (default stdin)")
	rootCmd.AddCommand(processCmd)
}
