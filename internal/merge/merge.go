// Package merge reconciles two independently evolved payloads of the same
// dataset.
//
// Merge is pure: it reads two in-memory payloads and never touches a store.
// Committing a merged payload is the caller's job (engine.Import).
package merge

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/keepsake/internal/payload"
)

// Strategy controls what a merge returns when conflicts are detected.
type Strategy string

const (
	// StopOnConflict produces no merged payload if any conflict is found.
	StopOnConflict Strategy = "stopOnConflict"

	// SkipConflicting leaves goals with goal-metadata conflicts out of the
	// merged payload and merges everything else.
	SkipConflicting Strategy = "skipConflicting"
)

// ParseStrategy accepts the strategy names as written on the command line.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "stoponconflict", "stop":
		return StopOnConflict, nil
	case "skipconflicting", "skip":
		return SkipConflicting, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want stop-on-conflict or skip-conflicting)", s)
}

// Result is the outcome of a merge.
type Result struct {
	// Merged is nil when the strategy stopped on a conflict.
	Merged  *payload.Payload
	Report  Report
	Success bool
}

type options struct {
	now func() time.Time
}

// Option configures a merge.
type Option func(*options)

// WithNow sets the clock used for exportedAt and the report timestamp.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Merge reconciles primary and secondary.
//
// Goals present on one side are carried through unchanged. Goals present on
// both sides take every scalar field and the schedule from the side with the
// later updatedAt (ties favour primary), the earliest createdAt and the
// latest updatedAt. Questions and data points are unioned by id; see
// mergeQuestions and mergeDataPoints for the per-record rules.
//
// Both inputs are version-gated and validated first and the typed payload
// errors are returned unchanged. The merged payload is validated before it is
// returned, so it can be handed straight to an import.
func Merge(primary, secondary *payload.Payload, strategy Strategy, opts ...Option) (*Result, error) {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	if strategy != StopOnConflict && strategy != SkipConflicting {
		return nil, fmt.Errorf("unknown merge strategy %q", strategy)
	}
	for _, in := range []struct {
		side Side
		p    *payload.Payload
	}{{Primary, primary}, {Secondary, secondary}} {
		if in.p == nil {
			return nil, &payload.MalformedError{Reason: string(in.side) + " payload is nil"}
		}
		if err := payload.Validate(in.p); err != nil {
			return nil, err
		}
	}

	now := o.now()
	report := Report{Timestamp: now, Conflicts: []Conflict{}}

	secondaryByID := make(map[string]*payload.Goal, len(secondary.Goals))
	for i := range secondary.Goals {
		secondaryByID[secondary.Goals[i].ID] = &secondary.Goals[i]
	}

	var (
		goals   []payload.Goal
		skipped []string
		seen    = make(map[string]bool, len(primary.Goals))
	)
	for _, p := range primary.Goals {
		seen[p.ID] = true
		s, ok := secondaryByID[p.ID]
		if !ok {
			goals = append(goals, p.Clone())
			continue
		}

		merged, metadataConflicts := mergeGoal(p, *s, &report)
		if metadataConflicts > 0 && strategy == SkipConflicting {
			skipped = append(skipped, p.ID)
			continue
		}
		goals = append(goals, merged)
	}
	for _, s := range secondary.Goals {
		if !seen[s.ID] {
			goals = append(goals, s.Clone())
		}
	}

	report.SkippedGoals = skipped
	result := &Result{Report: report}

	if strategy == StopOnConflict && report.Summary.TotalConflicts > 0 {
		result.Report.Summary.CanProceed = false
		result.Report.SkippedGoals = nil
		return result, nil
	}

	slices.SortStableFunc(goals, func(a, b payload.Goal) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if goals == nil {
		goals = []payload.Goal{}
	}

	merged := &payload.Payload{
		Version:    max(primary.Version, secondary.Version),
		ExportedAt: now,
		Goals:      goals,
	}
	if err := payload.Validate(merged); err != nil {
		return nil, fmt.Errorf("merged payload is inconsistent: %w", err)
	}

	result.Merged = merged
	result.Success = true
	result.Report.Summary.CanProceed = true
	return result, nil
}

// ForCommit returns the payload to import when the merge result replaces
// primary's store: the merged goals plus primary's own version of every goal
// SkipConflicting left out, ordered by createdAt. Skipped goals therefore
// survive a commit unchanged.
func (r *Result) ForCommit(primary *payload.Payload) (*payload.Payload, error) {
	if !r.Success || r.Merged == nil {
		return nil, fmt.Errorf("merge did not succeed: %d conflicts", r.Report.Summary.TotalConflicts)
	}
	out := r.Merged.Clone()
	if len(r.Report.SkippedGoals) == 0 {
		return out, nil
	}

	skipped := make(map[string]bool, len(r.Report.SkippedGoals))
	for _, id := range r.Report.SkippedGoals {
		skipped[id] = true
	}
	for _, g := range primary.Goals {
		if skipped[g.ID] {
			out.Goals = append(out.Goals, g.Clone())
		}
	}
	slices.SortStableFunc(out.Goals, func(a, b payload.Goal) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if err := payload.Validate(out); err != nil {
		return nil, fmt.Errorf("commit payload is inconsistent: %w", err)
	}
	return out, nil
}

// mergeGoal reconciles one goal present on both sides. It returns the merged
// goal and the number of goal-metadata conflicts it recorded.
func mergeGoal(p, s payload.Goal, report *Report) (payload.Goal, int) {
	winner, side := p, Primary
	if s.UpdatedAt.After(p.UpdatedAt) {
		winner, side = s, Secondary
	}

	merged := winner.Clone()
	merged.CreatedAt = minTime(p.CreatedAt, s.CreatedAt)
	merged.UpdatedAt = maxTime(p.UpdatedAt, s.UpdatedAt)

	fields := []struct {
		name       string
		prim, seco string
	}{
		{"title", p.Title, s.Title},
		{"description", p.Description, s.Description},
		{"isActive", strconv.FormatBool(p.IsActive), strconv.FormatBool(s.IsActive)},
	}
	conflicts := 0
	for _, f := range fields {
		if f.prim == f.seco {
			continue
		}
		resolution := f.prim
		if side == Secondary {
			resolution = f.seco
		}
		report.add(Conflict{
			Type:           GoalMetadata,
			GoalID:         p.ID,
			Field:          f.name,
			PrimaryValue:   f.prim,
			SecondaryValue: f.seco,
			Resolution:     resolution,
			Winner:         side,
		})
		conflicts++
	}

	merged.Questions = mergeQuestions(p, s, report)
	merged.DataPoints = mergeDataPoints(p, s, report)
	return merged, conflicts
}

// mergeQuestions unions questions by id. A question on both sides keeps the
// primary record; each differing field is flagged for review.
func mergeQuestions(p, s payload.Goal, report *Report) []payload.Question {
	secondaryByID := make(map[string]payload.Question, len(s.Questions))
	for _, q := range s.Questions {
		secondaryByID[q.ID] = q
	}

	out := make([]payload.Question, 0, len(p.Questions)+len(s.Questions))
	seen := make(map[string]bool, len(p.Questions))
	for _, pq := range p.Questions {
		seen[pq.ID] = true
		out = append(out, pq.Clone())

		sq, ok := secondaryByID[pq.ID]
		if !ok {
			continue
		}
		fields := []struct {
			name       string
			prim, seco string
		}{
			{"text", pq.Text, sq.Text},
			{"responseType", string(pq.Type), string(sq.Type)},
			{"options", describeJSON(pq.Options), describeJSON(sq.Options)},
			{"validationRules", describeJSON(pq.Validation), describeJSON(sq.Validation)},
		}
		for _, f := range fields {
			if f.prim == f.seco {
				continue
			}
			report.add(Conflict{
				Type:           QuestionDivergence,
				GoalID:         p.ID,
				EntityID:       pq.ID,
				Field:          f.name,
				PrimaryValue:   f.prim,
				SecondaryValue: f.seco,
				Resolution:     f.prim,
				Winner:         Primary,
				NeedsReview:    true,
			})
		}
	}
	for _, sq := range s.Questions {
		if !seen[sq.ID] {
			out = append(out, sq.Clone())
		}
	}
	return out
}

// mergeDataPoints unions data points by id. Identical records are
// deduplicated; differing records keep the later timestamp (ties favour
// primary) and are reported as collisions. The result is ordered by
// timestamp.
func mergeDataPoints(p, s payload.Goal, report *Report) []payload.DataPoint {
	secondaryByID := make(map[string]payload.DataPoint, len(s.DataPoints))
	for _, dp := range s.DataPoints {
		secondaryByID[dp.ID] = dp
	}

	out := make([]payload.DataPoint, 0, len(p.DataPoints)+len(s.DataPoints))
	seen := make(map[string]bool, len(p.DataPoints))
	for _, pdp := range p.DataPoints {
		seen[pdp.ID] = true
		sdp, ok := secondaryByID[pdp.ID]
		if !ok || sameDataPoint(pdp, sdp) {
			out = append(out, pdp.Clone())
			continue
		}

		kept, side := pdp, Primary
		if sdp.Timestamp.After(pdp.Timestamp) {
			kept, side = sdp, Secondary
		}
		out = append(out, kept.Clone())
		report.add(Conflict{
			Type:           DataPointCollision,
			GoalID:         p.ID,
			EntityID:       pdp.ID,
			PrimaryValue:   describeDataPoint(pdp),
			SecondaryValue: describeDataPoint(sdp),
			Resolution:     describeDataPoint(kept),
			Winner:         side,
		})
	}
	for _, sdp := range s.DataPoints {
		if !seen[sdp.ID] {
			out = append(out, sdp.Clone())
		}
	}

	slices.SortStableFunc(out, func(a, b payload.DataPoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// sameDataPoint compares content fingerprints. A record that cannot be
// fingerprinted is treated as differing.
func sameDataPoint(a, b payload.DataPoint) bool {
	fa, errA := payload.Fingerprint(a)
	fb, errB := payload.Fingerprint(b)
	return errA == nil && errB == nil && fa == fb
}

func describeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// describeDataPoint renders a data point for a conflict report, e.g.
// "numeric 5 @ 2024-01-03T08:00:00Z".
func describeDataPoint(dp payload.DataPoint) string {
	var b strings.Builder
	b.WriteString(describeValue(dp.Value))
	b.WriteString(" @ ")
	b.WriteString(dp.Timestamp.UTC().Format(time.RFC3339Nano))
	if dp.QuestionID != "" {
		fmt.Fprintf(&b, " question=%s", dp.QuestionID)
	}
	if dp.Mood != nil {
		fmt.Fprintf(&b, " mood=%d", *dp.Mood)
	}
	if dp.Location != "" {
		fmt.Fprintf(&b, " location=%s", dp.Location)
	}
	return b.String()
}

func describeValue(v payload.Value) string {
	switch v := v.(type) {
	case nil:
		return "none"
	case payload.BoolValue:
		return "boolean " + strconv.FormatBool(v.Value)
	case payload.NumericValue:
		s := "numeric " + formatFloat(v.Value)
		if v.Delta != nil {
			s += " delta " + formatFloat(*v.Delta)
		}
		return s
	case payload.ScaleValue:
		return "scale " + formatFloat(v.Value)
	case payload.SliderValue:
		return "slider " + formatFloat(v.Value)
	case payload.ChoiceValue:
		return "multipleChoice [" + strings.Join(v.Selected, ", ") + "]"
	case payload.TextValue:
		return "text " + strconv.Quote(v.Text)
	case payload.TimeValue:
		return "time " + v.Time.String()
	}
	return string(v.Kind())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
