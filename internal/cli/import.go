package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/engine"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Replace bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a payload document into the store",
		Long: `Import a payload document as one atomic transaction.

By default the payload's goals are added next to the existing ones and an
identifier collision aborts the whole import. With --replace every live goal
is deleted first; trashed goals are kept. Use "-" to read from stdin.

Example:
  keepsake import --db goals.db backup.json
  keepsake import --db goals.db --replace backup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace all live goals with the payload's goals")

	return cmd
}

type importResult struct {
	engine.ImportSummary
	Replaced bool `json:"replaced"`
}

func (r importResult) WriteText(w io.Writer) error {
	verb := "imported"
	if r.Replaced {
		verb = "replaced store with"
	}
	if _, err := fmt.Fprintf(w, "%s %d goals (%d data points)\n", verb, r.GoalsImported, r.DataPointsImported); err != nil {
		return err
	}
	if r.NotificationFailures > 0 {
		_, err := fmt.Fprintf(w, "warning: %d reminder updates failed\n", r.NotificationFailures)
		return err
	}
	return nil
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	p, err := readPayload(cmd, path)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	newFormatter(cmd, opts.RootOptions).VerboseLog("importing %d goals from %s into %s",
		len(p.Goals), path, e.cfg.DatabasePath)
	summary, err := e.engine.Import(ctx, p, opts.Replace)
	if err != nil {
		return WrapExitError(ExitFailure, "import failed", err)
	}
	return newFormatter(cmd, opts.RootOptions).Success(importResult{ImportSummary: summary, Replaced: opts.Replace})
}
