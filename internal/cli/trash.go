package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewTrashCommand creates the trash command group.
func NewTrashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Move goals to the trash, restore them, or purge old items",
		Long: `Deleted goals are kept as snapshots in the trash until they are restored,
permanently deleted, or purged after the retention window.`,
	}

	cmd.AddCommand(newTrashListCommand(rootOpts))
	cmd.AddCommand(newTrashMoveCommand(rootOpts))
	cmd.AddCommand(newTrashRestoreCommand(rootOpts))
	cmd.AddCommand(newTrashDeleteCommand(rootOpts))
	cmd.AddCommand(newTrashPurgeCommand(rootOpts))

	return cmd
}

type trashEntry struct {
	ID             string    `json:"id"`
	OriginalGoalID string    `json:"originalGoalID"`
	Title          string    `json:"title"`
	DeletedAt      time.Time `json:"deletedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Note           string    `json:"note,omitempty"`
}

type trashListResult struct {
	Items []trashEntry `json:"items"`
}

func (r trashListResult) WriteText(w io.Writer) error {
	if len(r.Items) == 0 {
		_, err := fmt.Fprintln(w, "trash is empty")
		return err
	}
	for _, it := range r.Items {
		line := fmt.Sprintf("%s  %s %q deleted %s expires %s",
			it.ID, it.OriginalGoalID, it.Title,
			it.DeletedAt.UTC().Format(time.RFC3339), it.ExpiresAt.UTC().Format(time.RFC3339))
		if it.Note != "" {
			line += fmt.Sprintf(" note=%q", it.Note)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newTrashListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trash items, most recently deleted first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			items, err := e.engine.ListTrash(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list trash", err)
			}

			retention := time.Duration(e.cfg.RetentionDays) * 24 * time.Hour
			res := trashListResult{Items: make([]trashEntry, 0, len(items))}
			for _, it := range items {
				res.Items = append(res.Items, trashEntry{
					ID:             it.ID,
					OriginalGoalID: it.OriginalGoalID,
					Title:          it.Title,
					DeletedAt:      it.DeletedAt,
					ExpiresAt:      it.DeletedAt.Add(retention),
					Note:           it.Note,
				})
			}
			return newFormatter(cmd, opts).Success(res)
		},
	}
}

type trashMoveResult struct {
	TrashID string `json:"trashID"`
	GoalID  string `json:"goalID"`
	Title   string `json:"title"`
}

func (r trashMoveResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "moved goal %s (%q) to trash as %s\n", r.GoalID, r.Title, r.TrashID)
	return err
}

func newTrashMoveCommand(opts *RootOptions) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:     "rm <goal-id>",
		Aliases: []string{"move"},
		Short:   "Move a goal to the trash",
		Long: `Snapshot a goal with its questions and data points into the trash,
cancel its reminders and remove it from the live store.

Example:
  keepsake trash rm g-walk --note "paused for winter"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			item, err := e.engine.MoveToTrash(ctx, args[0], note)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to move goal to trash", err)
			}
			return newFormatter(cmd, opts).Success(trashMoveResult{
				TrashID: item.ID,
				GoalID:  item.OriginalGoalID,
				Title:   item.Title,
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note stored with the trash item")
	return cmd
}

type trashRestoreResult struct {
	GoalID   string `json:"goalID"`
	Title    string `json:"title"`
	IsActive bool   `json:"isActive"`
}

func (r trashRestoreResult) WriteText(w io.Writer) error {
	state := "inactive"
	if r.IsActive {
		state = "active"
	}
	_, err := fmt.Fprintf(w, "restored goal %s (%q), %s\n", r.GoalID, r.Title, state)
	return err
}

func newTrashRestoreCommand(opts *RootOptions) *cobra.Command {
	var reactivate bool
	cmd := &cobra.Command{
		Use:   "restore <trash-id>",
		Short: "Restore a trashed goal",
		Long: `Rebuild a goal from its trash snapshot. The goal keeps its original id;
restoring fails if a live goal already uses it.

Example:
  keepsake trash restore trash-1 --reactivate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			g, err := e.engine.RestoreFromTrash(ctx, args[0], reactivate)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to restore goal", err)
			}
			return newFormatter(cmd, opts).Success(trashRestoreResult{
				GoalID:   g.ID,
				Title:    g.Title,
				IsActive: g.IsActive,
			})
		},
	}
	cmd.Flags().BoolVar(&reactivate, "reactivate", false, "mark the restored goal active and reschedule its reminders")
	return cmd
}

type trashDeleteResult struct {
	TrashID string `json:"trashID"`
}

func (r trashDeleteResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "permanently deleted %s\n", r.TrashID)
	return err
}

func newTrashDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trash-id>",
		Short: "Permanently delete a trash item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.engine.PermanentlyDelete(ctx, args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to delete trash item", err)
			}
			return newFormatter(cmd, opts).Success(trashDeleteResult{TrashID: args[0]})
		},
	}
}

type trashPurgeResult struct {
	Days   int `json:"days"`
	Purged int `json:"purged"`
}

func (r trashPurgeResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "purged %d trash items older than %d days\n", r.Purged, r.Days)
	return err
}

func newTrashPurgeCommand(opts *RootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete trash items older than the retention window",
		Long: `Delete every trash item deleted more than --days days ago. Without --days
the configured retention window is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("days") {
				days = e.cfg.RetentionDays
			}
			if days < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("--days must not be negative, got %d", days))
			}
			n, err := e.engine.PurgeOldTrashItems(ctx, days)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to purge trash", err)
			}
			return newFormatter(cmd, opts).Success(trashPurgeResult{Days: days, Purged: n})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "purge items older than this many days (default: retention_days from config)")
	return cmd
}
