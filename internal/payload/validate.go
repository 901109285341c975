package payload

import (
	"errors"
	"fmt"
	"strings"
	_ "time/tzdata" // timezone validation must not depend on host zoneinfo

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance with the payload enum tags
// registered.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	enums := map[string]validator.Func{
		"category": func(fl validator.FieldLevel) bool {
			return ValidCategories[Category(fl.Field().String())]
		},
		"frequency": func(fl validator.FieldLevel) bool {
			return ValidFrequencies[Frequency(fl.Field().String())]
		},
		"response_type": func(fl validator.FieldLevel) bool {
			return ValidResponseTypes[ResponseType(fl.Field().String())]
		},
	}
	for tag, fn := range enums {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

// Validate checks every payload invariant that can be verified without a
// store: field constraints, createdAt <= updatedAt, identifier uniqueness
// across the whole document, and that every data point resolves its goal and
// (when set) a question owned by that same goal. Answer value types are not
// matched against the question's response type.
//
// Returns *MalformedError describing the first violation.
func Validate(p *Payload) error {
	if err := CheckVersion(p.Version); err != nil {
		return err
	}
	if err := validate.Struct(p); err != nil {
		return &MalformedError{Reason: describeValidation(err), Err: err}
	}

	seen := newIDSet()
	for i := range p.Goals {
		if err := checkGoal(&p.Goals[i], seen); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGoal checks a single goal subtree, as held by a trash snapshot.
func ValidateGoal(g *Goal) error {
	if err := validate.Struct(g); err != nil {
		return &MalformedError{Reason: describeValidation(err), Err: err}
	}
	return checkGoal(g, newIDSet())
}

// idSet tracks identifiers per entity kind. Goal, question and data point
// identifiers live in separate namespaces.
type idSet map[string]map[string]bool

func newIDSet() idSet {
	return idSet{"goal": {}, "question": {}, "dataPoint": {}}
}

func (s idSet) add(kind, id string) error {
	if s[kind][id] {
		return &MalformedError{Reason: fmt.Sprintf("duplicate %s id %q", kind, id)}
	}
	s[kind][id] = true
	return nil
}

func checkGoal(g *Goal, seen idSet) error {
	if err := seen.add("goal", g.ID); err != nil {
		return err
	}
	if g.CreatedAt.After(g.UpdatedAt) {
		return &MalformedError{Reason: fmt.Sprintf("goal %s: createdAt %s is after updatedAt %s",
			g.ID, g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), g.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))}
	}
	if g.Category != CategoryCustom && g.CustomCategory != "" {
		return &MalformedError{Reason: fmt.Sprintf("goal %s: customCategory set on category %q", g.ID, g.Category)}
	}

	s := g.Schedule
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return &MalformedError{Reason: fmt.Sprintf("goal %s: schedule ends before it starts", g.ID)}
	}
	if s.Frequency == FrequencyCustom && s.IntervalDays == nil {
		return &MalformedError{Reason: fmt.Sprintf("goal %s: custom frequency requires intervalDays", g.ID)}
	}

	questions := make(map[string]bool, len(g.Questions))
	for _, q := range g.Questions {
		if err := seen.add("question", q.ID); err != nil {
			return err
		}
		if r := q.Validation; r != nil && r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return &MalformedError{Reason: fmt.Sprintf("question %s: minValue exceeds maxValue", q.ID)}
		}
		questions[q.ID] = true
	}

	for _, dp := range g.DataPoints {
		if err := seen.add("dataPoint", dp.ID); err != nil {
			return err
		}
		if dp.GoalID != g.ID {
			return &MalformedError{Reason: fmt.Sprintf("data point %s: goalID %q does not match owning goal %q", dp.ID, dp.GoalID, g.ID)}
		}
		if dp.QuestionID == "" {
			continue
		}
		// The answer's value type is not checked against the question: a
		// question may be retyped after it was answered.
		if !questions[dp.QuestionID] {
			return &MalformedError{Reason: fmt.Sprintf("data point %s: question %q is not owned by goal %q", dp.ID, dp.QuestionID, g.ID)}
		}
	}
	return nil
}

// describeValidation renders validator field errors as "Field: tag" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
