package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/payload"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every goal to a payload document",
		Long: `Export every goal, with its schedule, questions and data points, as a
versioned JSON payload document. Trashed goals are not exported.

Without --output the document is written to stdout.

Example:
  keepsake export --db goals.db -o backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the payload to this file instead of stdout")

	return cmd
}

type exportResult struct {
	Path       string    `json:"path"`
	Goals      int       `json:"goals"`
	DataPoints int       `json:"dataPoints"`
	ExportedAt time.Time `json:"exportedAt"`
}

func (r exportResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "exported %d goals (%d data points) to %s\n", r.Goals, r.DataPoints, r.Path)
	return err
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.engine.Export(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	if opts.Output == "" || opts.Output == "-" {
		return payload.Encode(cmd.OutOrStdout(), p)
	}

	if err := writePayload(opts.Output, p); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	return newFormatter(cmd, opts.RootOptions).Success(exportResult{
		Path:       opts.Output,
		Goals:      len(p.Goals),
		DataPoints: p.DataPointCount(),
		ExportedAt: p.ExportedAt,
	})
}
