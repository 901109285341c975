package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/engine"
	"github.com/roach88/keepsake/internal/merge"
	"github.com/roach88/keepsake/internal/payload"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Strategy string
	Output   string
	Commit   bool
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <primary> <secondary>",
		Short: "Merge two payload documents and report conflicts",
		Long: `Merge two independently evolved payload documents.

Goals on one side are kept as-is. Goals on both sides take the metadata of
the more recently updated side; questions and data points are unioned by id.
Every divergence is listed in the conflict report.

With --strategy stop-on-conflict (the default) nothing is produced when a
conflict is found and the command exits 1. With skip-conflicting, goals
with metadata conflicts are left out and everything else is merged.

--commit replaces the store's goals with the merged result; goals left out
by skip-conflicting are committed from <primary> unchanged. The commit is
refused when the store holds a goal that neither input carries.

Example:
  keepsake merge laptop.json phone.json -o merged.json
  keepsake merge --strategy skip-conflicting --commit --db goals.db laptop.json phone.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", "stop-on-conflict", "conflict strategy (stop-on-conflict|skip-conflicting)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the merged payload to this file")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "import the merged payload into the store, replacing it")

	return cmd
}

type mergeResult struct {
	Report      merge.Report          `json:"report"`
	Success     bool                  `json:"success"`
	MergedGoals []string              `json:"mergedGoals,omitempty"`
	Output      string                `json:"output,omitempty"`
	Committed   *engine.ImportSummary `json:"committed,omitempty"`
}

func (r mergeResult) WriteText(w io.Writer) error {
	if err := r.Report.WriteText(w); err != nil {
		return err
	}
	var b strings.Builder
	if r.Success {
		fmt.Fprintf(&b, "merged goals: %s\n", strings.Join(r.MergedGoals, ", "))
	}
	if r.Output != "" {
		fmt.Fprintf(&b, "wrote merged payload to %s\n", r.Output)
	}
	if r.Committed != nil {
		fmt.Fprintf(&b, "committed %d goals (%d data points)\n", r.Committed.GoalsImported, r.Committed.DataPointsImported)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func runMerge(opts *MergeOptions, primaryPath, secondaryPath string, cmd *cobra.Command) error {
	strategy, err := merge.ParseStrategy(opts.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --strategy", err)
	}

	primary, err := readPayload(cmd, primaryPath)
	if err != nil {
		return err
	}
	secondary, err := readPayload(cmd, secondaryPath)
	if err != nil {
		return err
	}

	var mergeOpts []merge.Option
	if opts.Clock != nil {
		mergeOpts = append(mergeOpts, merge.WithNow(opts.Clock.Now))
	}
	f := newFormatter(cmd, opts.RootOptions)
	f.VerboseLog("merging %s (%d goals) with %s (%d goals), strategy %s",
		primaryPath, len(primary.Goals), secondaryPath, len(secondary.Goals), strategy)

	res, err := merge.Merge(primary, secondary, strategy, mergeOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "merge failed", err)
	}

	out := mergeResult{Report: res.Report, Success: res.Success}
	if !res.Success {
		if err := f.Success(out); err != nil {
			return err
		}
		return WrapExitError(ExitFailure,
			fmt.Sprintf("%d conflicts", res.Report.Summary.TotalConflicts), errMergeConflicts)
	}
	out.MergedGoals = res.Merged.GoalIDs()

	if opts.Output != "" {
		if err := writePayload(opts.Output, res.Merged); err != nil {
			return WrapExitError(ExitCommandError, "failed to write merged payload", err)
		}
		out.Output = opts.Output
	}

	if opts.Commit {
		commit, err := res.ForCommit(primary)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot commit merge", err)
		}

		ctx := cmd.Context()
		e, err := openEnv(ctx, opts.RootOptions)
		if err != nil {
			return err
		}
		defer e.Close()

		live, err := e.engine.Export(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read store", err)
		}
		if dropped := missingGoals(live, commit); len(dropped) > 0 {
			return WrapExitError(ExitFailure,
				fmt.Sprintf("commit would delete goals %s", strings.Join(dropped, ", ")),
				errCommitDropsGoals)
		}

		summary, err := e.engine.Import(ctx, commit, true)
		if err != nil {
			return WrapExitError(ExitFailure, "commit failed", err)
		}
		out.Committed = &summary
	}

	return f.Success(out)
}

// missingGoals returns the ids of goals in live that commit does not carry.
func missingGoals(live, commit *payload.Payload) []string {
	keep := make(map[string]bool, len(commit.Goals))
	for _, g := range commit.Goals {
		keep[g.ID] = true
	}
	var missing []string
	for _, g := range live.Goals {
		if !keep[g.ID] {
			missing = append(missing, g.ID)
		}
	}
	return missing
}
