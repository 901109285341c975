package payload

import (
	"slices"
	"time"
)

// Clone returns a deep copy of the goal and its subtree.
func (g Goal) Clone() Goal {
	out := g
	out.Schedule = g.Schedule.Clone()
	if g.Questions != nil {
		out.Questions = make([]Question, len(g.Questions))
		for i, q := range g.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	if g.DataPoints != nil {
		out.DataPoints = make([]DataPoint, len(g.DataPoints))
		for i, dp := range g.DataPoints {
			out.DataPoints[i] = dp.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := s
	out.Times = slices.Clone(s.Times)
	out.SelectedDays = slices.Clone(s.SelectedDays)
	if s.EndDate != nil {
		end := *s.EndDate
		out.EndDate = &end
	}
	if s.IntervalDays != nil {
		n := *s.IntervalDays
		out.IntervalDays = &n
	}
	return out
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	out.Options = slices.Clone(q.Options)
	if q.Validation != nil {
		rule := *q.Validation
		rule.Min = cloneFloat(q.Validation.Min)
		rule.Max = cloneFloat(q.Validation.Max)
		out.Validation = &rule
	}
	return out
}

// Clone returns a deep copy of the data point.
func (dp DataPoint) Clone() DataPoint {
	out := dp
	if dp.Mood != nil {
		m := *dp.Mood
		out.Mood = &m
	}
	switch v := dp.Value.(type) {
	case NumericValue:
		v.Delta = cloneFloat(v.Delta)
		out.Value = v
	case ChoiceValue:
		v.Selected = slices.Clone(v.Selected)
		out.Value = v
	}
	return out
}

// Clone returns a deep copy of the payload.
func (p *Payload) Clone() *Payload {
	out := *p
	if p.Goals != nil {
		out.Goals = make([]Goal, len(p.Goals))
		for i, g := range p.Goals {
			out.Goals[i] = g.Clone()
		}
	}
	return &out
}

// GoalIDs returns the goal identifiers in document order.
func (p *Payload) GoalIDs() []string {
	ids := make([]string, len(p.Goals))
	for i, g := range p.Goals {
		ids[i] = g.ID
	}
	return ids
}

// DataPointCount returns the number of data points across all goals.
func (p *Payload) DataPointCount() int {
	n := 0
	for _, g := range p.Goals {
		n += len(g.DataPoints)
	}
	return n
}

// New returns an empty payload at the current format version.
func New(exportedAt time.Time) *Payload {
	return &Payload{Version: FormatVersion, ExportedAt: exportedAt, Goals: []Goal{}}
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
