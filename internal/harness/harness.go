package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/keepsake/internal/engine"
	"github.com/roach88/keepsake/internal/merge"
	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/store"
	"github.com/roach88/keepsake/internal/testutil"
)

// Error kinds a step may expect.
const (
	ErrGoalAlreadyExists  = "goal_already_exists"
	ErrNotFound           = "not_found"
	ErrStore              = "store"
	ErrMalformed          = "malformed"
	ErrUnsupportedVersion = "unsupported_version"
)

// StepResult is the transcript of one step.
type StepResult struct {
	Header  string
	Details []string
}

// Result is everything a scenario run observed.
type Result struct {
	Steps []StepResult

	// Final state.
	Goals []payload.Goal
	Trash []payload.TrashItem
	Calls []testutil.SchedulerCall

	// Conflicts is the total reported across every merge step.
	Conflicts int
}

// ErrorKind classifies err by the typed errors of the engine and payload
// packages. Unclassified errors return "error".
func ErrorKind(err error) string {
	switch {
	case engine.IsGoalAlreadyExists(err):
		return ErrGoalAlreadyExists
	case engine.IsNotFound(err):
		return ErrNotFound
	case engine.IsStoreFailure(err):
		return ErrStore
	case payload.IsUnsupportedVersion(err):
		return ErrUnsupportedVersion
	case payload.IsMalformed(err):
		return ErrMalformed
	}
	return "error"
}

type runner struct {
	eng       *engine.Engine
	clock     *testutil.FixedClock
	scheduler *testutil.RecordingScheduler
	conflicts int
}

// Run executes s against a fresh store in a temporary directory. The clock
// starts at s.Now and only moves on advance steps; trash ids are
// trash-1, trash-2, ... in creation order.
//
// A step that fails unexpectedly, or that was expected to fail and did not,
// aborts the run with an error.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	now, err := time.Parse(time.RFC3339, s.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid now: %w", err)
	}

	dir, err := os.MkdirTemp("", "keepsake-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "keepsake.db"))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	r := &runner{
		clock:     testutil.NewFixedClock(now.UTC()),
		scheduler: testutil.NewRecordingScheduler(),
	}
	r.eng = engine.New(st,
		engine.WithClock(r.clock),
		engine.WithScheduler(r.scheduler),
		engine.WithIDGenerator(testutil.NewSequentialIDs("trash")),
	)

	result := &Result{}
	for i, step := range s.Steps {
		sr, err := r.run(ctx, step)
		switch {
		case step.Error != "" && err == nil:
			return nil, fmt.Errorf("step %d (%s): want %s error, got success", i+1, step.Op, step.Error)
		case step.Error != "":
			if kind := ErrorKind(err); kind != step.Error {
				return nil, fmt.Errorf("step %d (%s): want %s error, got %s: %w", i+1, step.Op, step.Error, kind, err)
			}
			sr.Header += ": error " + step.Error
		case err != nil:
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		result.Steps = append(result.Steps, sr)
	}

	final, err := r.eng.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("final export: %w", err)
	}
	trash, err := r.eng.ListTrash(ctx)
	if err != nil {
		return nil, fmt.Errorf("final trash listing: %w", err)
	}
	result.Goals = final.Goals
	result.Trash = trash
	result.Calls = r.scheduler.Calls()
	result.Conflicts = r.conflicts
	return result, nil
}

// run executes one step. On failure the returned header carries the step
// label only.
func (r *runner) run(ctx context.Context, step Step) (StepResult, error) {
	switch step.Op {
	case OpImport:
		label := fmt.Sprintf("import %s replace=%t", filepath.Base(step.Payload), step.Replace)
		p, err := loadPayload(step.Payload)
		if err != nil {
			return StepResult{Header: label}, err
		}
		sum, err := r.eng.Import(ctx, p, step.Replace)
		if err != nil {
			return StepResult{Header: label}, err
		}
		return StepResult{Header: fmt.Sprintf("%s: goals=%d dataPoints=%d", label, sum.GoalsImported, sum.DataPointsImported)}, nil

	case OpExport:
		p, err := r.eng.Export(ctx)
		if err != nil {
			return StepResult{Header: "export"}, err
		}
		return StepResult{Header: fmt.Sprintf("export: goals=%s dataPoints=%d", joinIDs(p.GoalIDs()), p.DataPointCount())}, nil

	case OpMerge:
		return r.merge(ctx, step)

	case OpTrash:
		label := "trash " + step.Goal
		if step.Note != "" {
			label += fmt.Sprintf(" note=%q", step.Note)
		}
		item, err := r.eng.MoveToTrash(ctx, step.Goal, step.Note)
		if err != nil {
			return StepResult{Header: label}, err
		}
		return StepResult{Header: label + ": " + item.ID}, nil

	case OpRestore:
		label := fmt.Sprintf("restore %s reactivate=%t", step.Trash, step.Reactivate)
		g, err := r.eng.RestoreFromTrash(ctx, step.Trash, step.Reactivate)
		if err != nil {
			return StepResult{Header: label}, err
		}
		return StepResult{Header: fmt.Sprintf("%s: goal %s active=%t", label, g.ID, g.IsActive)}, nil

	case OpDelete:
		label := "delete " + step.Trash
		if err := r.eng.PermanentlyDelete(ctx, step.Trash); err != nil {
			return StepResult{Header: label}, err
		}
		return StepResult{Header: label + ": ok"}, nil

	case OpPurge:
		label := fmt.Sprintf("purge days=%d", step.Days)
		n, err := r.eng.PurgeOldTrashItems(ctx, step.Days)
		if err != nil {
			return StepResult{Header: label}, err
		}
		return StepResult{Header: fmt.Sprintf("%s: removed %d", label, n)}, nil

	case OpAdvance:
		r.clock.Advance(testutil.Days(step.Days))
		return StepResult{Header: fmt.Sprintf("advance days=%d: now %s", step.Days, formatTime(r.clock.Now()))}, nil
	}
	return StepResult{Header: step.Op}, fmt.Errorf("unknown op %q", step.Op)
}

func (r *runner) merge(ctx context.Context, step Step) (StepResult, error) {
	strategy, err := merge.ParseStrategy(step.Strategy)
	if err != nil {
		return StepResult{Header: "merge"}, err
	}

	primaryName := "store"
	if step.Primary != "" {
		primaryName = filepath.Base(step.Primary)
	}
	sr := StepResult{Header: fmt.Sprintf("merge %s + %s strategy=%s", primaryName, filepath.Base(step.Payload), strategy)}
	if step.Commit {
		sr.Header += " commit"
	}

	var primary *payload.Payload
	if step.Primary != "" {
		primary, err = loadPayload(step.Primary)
	} else {
		primary, err = r.eng.Export(ctx)
	}
	if err != nil {
		return sr, err
	}
	secondary, err := loadPayload(step.Payload)
	if err != nil {
		return sr, err
	}

	res, err := merge.Merge(primary, secondary, strategy, merge.WithNow(r.clock.Now))
	if err != nil {
		return sr, err
	}
	r.conflicts += res.Report.Summary.TotalConflicts

	var buf bytes.Buffer
	if err := res.Report.WriteText(&buf); err != nil {
		return sr, err
	}
	sr.Details = strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if res.Success {
		sr.Details = append(sr.Details, "merged goals: "+joinIDs(res.Merged.GoalIDs()))
	}

	if !step.Commit {
		return sr, nil
	}
	if !res.Success {
		sr.Details = append(sr.Details, "not committed")
		return sr, nil
	}
	out, err := res.ForCommit(primary)
	if err != nil {
		return sr, err
	}
	sum, err := r.eng.Import(ctx, out, true)
	if err != nil {
		return sr, err
	}
	sr.Details = append(sr.Details, fmt.Sprintf("committed: goals=%d dataPoints=%d", sum.GoalsImported, sum.DataPointsImported))
	return sr, nil
}

func loadPayload(path string) (*payload.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}
	defer f.Close()
	return payload.Decode(f)
}

// Render formats the transcript and final state as stable text.
func (r *Result) Render(name string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	b.WriteString("steps:\n")
	for i, st := range r.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, st.Header)
		for _, d := range st.Details {
			fmt.Fprintf(&b, "    %s\n", d)
		}
	}

	b.WriteString("goals:\n")
	if len(r.Goals) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, g := range r.Goals {
		fmt.Fprintf(&b, "  %s %q active=%t updated=%s questions=%d dataPoints=%d\n",
			g.ID, g.Title, g.IsActive, formatTime(g.UpdatedAt), len(g.Questions), len(g.DataPoints))
	}

	b.WriteString("trash:\n")
	if len(r.Trash) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, item := range r.Trash {
		fmt.Fprintf(&b, "  %s goal=%s %q deleted=%s", item.ID, item.OriginalGoalID, item.Title, formatTime(item.DeletedAt))
		if item.Note != "" {
			fmt.Fprintf(&b, " note=%q", item.Note)
		}
		b.WriteByte('\n')
	}

	b.WriteString("scheduler:\n")
	if len(r.Calls) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, c := range r.Calls {
		fmt.Fprintf(&b, "  %s %s\n", c.Op, c.GoalID)
	}
	return []byte(b.String())
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
