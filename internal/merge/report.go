package merge

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ConflictType classifies a detected divergence.
type ConflictType string

const (
	// GoalMetadata is a differing scalar goal field. Resolved in favour of
	// the side with the later updatedAt.
	GoalMetadata ConflictType = "goalMetadata"

	// QuestionDivergence is a differing question field. The primary record
	// is kept and the conflict is flagged for review.
	QuestionDivergence ConflictType = "questionDivergence"

	// DataPointCollision is a data point id carrying different content on
	// each side. The record with the later timestamp is kept.
	DataPointCollision ConflictType = "dataPointCollision"
)

// Side names a merge input.
type Side string

const (
	Primary   Side = "primary"
	Secondary Side = "secondary"
)

// Conflict is one entry in a conflict report.
type Conflict struct {
	Type   ConflictType `json:"type"`
	GoalID string       `json:"goalID"`

	// EntityID is the question or data point id; empty for goal metadata.
	EntityID string `json:"entityID,omitempty"`

	// Field names the differing field; empty for data point collisions,
	// which compare whole records.
	Field string `json:"field,omitempty"`

	PrimaryValue   string `json:"primaryValue"`
	SecondaryValue string `json:"secondaryValue"`

	// Resolution is the value the merged payload carries.
	Resolution string `json:"resolution"`
	Winner     Side   `json:"winner"`

	// NeedsReview marks conflicts kept as-is rather than resolved by rule.
	NeedsReview bool `json:"needsReview,omitempty"`
}

// Summary counts conflicts by type.
type Summary struct {
	TotalConflicts     int  `json:"totalConflicts"`
	GoalConflicts      int  `json:"goalConflicts"`
	QuestionConflicts  int  `json:"questionConflicts"`
	DataPointConflicts int  `json:"dataPointConflicts"`
	CanProceed         bool `json:"canProceed"`
}

// Report lists every conflict a merge detected, in detection order.
type Report struct {
	Timestamp time.Time  `json:"timestamp"`
	Conflicts []Conflict `json:"conflicts"`
	Summary   Summary    `json:"summary"`

	// SkippedGoals lists goals left out under SkipConflicting.
	SkippedGoals []string `json:"skippedGoals,omitempty"`
}

func (r *Report) add(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
	switch c.Type {
	case GoalMetadata:
		r.Summary.GoalConflicts++
	case QuestionDivergence:
		r.Summary.QuestionConflicts++
	case DataPointCollision:
		r.Summary.DataPointConflicts++
	}
	r.Summary.TotalConflicts++
}

// WriteText renders the report in a stable line-oriented form.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "conflicts: %d (goal %d, question %d, data point %d)\n",
		s.TotalConflicts, s.GoalConflicts, s.QuestionConflicts, s.DataPointConflicts)
	fmt.Fprintf(&b, "can proceed: %t\n", s.CanProceed)
	if len(r.SkippedGoals) > 0 {
		fmt.Fprintf(&b, "skipped goals: %s\n", strings.Join(r.SkippedGoals, ", "))
	}
	for _, c := range r.Conflicts {
		b.WriteString("- ")
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String renders one conflict on a single line.
func (c Conflict) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s goal=%s", c.Type, c.GoalID)
	switch c.Type {
	case QuestionDivergence:
		fmt.Fprintf(&b, " question=%s", c.EntityID)
	case DataPointCollision:
		fmt.Fprintf(&b, " dataPoint=%s", c.EntityID)
	}
	if c.Field != "" {
		fmt.Fprintf(&b, " field=%s", c.Field)
	}
	fmt.Fprintf(&b, " primary=%q secondary=%q resolution=%q winner=%s",
		c.PrimaryValue, c.SecondaryValue, c.Resolution, c.Winner)
	if c.NeedsReview {
		b.WriteString(" needs-review")
	}
	return b.String()
}
