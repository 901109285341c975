package testutil

import (
	"time"

	"github.com/roach88/keepsake/internal/payload"
)

// Time parses an RFC 3339 timestamp and panics on malformed input.
func Time(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Goal builds an active goal with a daily schedule, one numeric question
// ("<id>-q") and one answered data point ("<id>-dp") logged an hour after
// creation. createdAt and updatedAt are both at.
func Goal(id, title string, at time.Time) payload.Goal {
	qID := id + "-q"
	return payload.Goal{
		ID:          id,
		Title:       title,
		Description: title + " description",
		Category:    payload.CategoryHealth,
		IsActive:    true,
		CreatedAt:   at,
		UpdatedAt:   at,
		Schedule: payload.Schedule{
			StartDate: at,
			Frequency: payload.FrequencyDaily,
			Times:     []payload.TimeOfDay{{Hour: 8}},
			TimeZone:  "UTC",
		},
		Questions: []payload.Question{
			{ID: qID, Text: "How many?", Type: payload.ResponseNumeric, IsActive: true},
		},
		DataPoints: []payload.DataPoint{
			DataPoint(id, id+"-dp", qID, at.Add(time.Hour), payload.NumericValue{Value: 1}),
		},
	}
}

// DataPoint builds a data point answering questionID.
func DataPoint(goalID, id, questionID string, at time.Time, v payload.Value) payload.DataPoint {
	return payload.DataPoint{
		ID:         id,
		GoalID:     goalID,
		QuestionID: questionID,
		Timestamp:  at,
		Value:      v,
	}
}

// Payload wraps goals in a current-version payload.
func Payload(exportedAt time.Time, goals ...payload.Goal) *payload.Payload {
	p := payload.New(exportedAt)
	p.Goals = append(p.Goals, goals...)
	return p
}

// RichGoal builds a goal that exercises every optional field: custom
// category, weekly schedule with an end date, every response type, a
// validation rule, option lists, annotation-only entries and mood/location.
func RichGoal(id string, at time.Time) payload.Goal {
	end := at.Add(90 * 24 * time.Hour)
	interval := 3
	minV, maxV := 0.0, 10.0
	mood := 6

	g := payload.Goal{
		ID:             id,
		Title:          "Evening routine",
		Description:    "wind down <properly> & sleep",
		Category:       payload.CategoryCustom,
		CustomCategory: "sleep",
		IsActive:       true,
		CreatedAt:      at,
		UpdatedAt:      at.Add(time.Minute),
		Schedule: payload.Schedule{
			StartDate:    at,
			Frequency:    payload.FrequencyCustom,
			Times:        []payload.TimeOfDay{{Hour: 21, Minute: 30}, {Hour: 22}},
			EndDate:      &end,
			TimeZone:     "Europe/Berlin",
			SelectedDays: []time.Weekday{time.Monday, time.Wednesday},
			IntervalDays: &interval,
		},
		Questions: []payload.Question{
			{ID: id + "-bool", Text: "Screens off?", Type: payload.ResponseBoolean, IsActive: true},
			{ID: id + "-num", Text: "Pages read", Type: payload.ResponseNumeric, IsActive: true,
				Validation: &payload.ValidationRule{Min: &minV, Max: &maxV, AllowsEmpty: true}},
			{ID: id + "-scale", Text: "Calm", Type: payload.ResponseScale, IsActive: true},
			{ID: id + "-choice", Text: "Tea", Type: payload.ResponseMultipleChoice, IsActive: true,
				Options: []string{"chamomile", "mint"}},
			{ID: id + "-text", Text: "Journal", Type: payload.ResponseText, IsActive: false},
			{ID: id + "-time", Text: "Lights out", Type: payload.ResponseTime, IsActive: true},
			{ID: id + "-slider", Text: "Tiredness", Type: payload.ResponseSlider, IsActive: true},
		},
	}

	day := at.Add(24 * time.Hour)
	g.DataPoints = []payload.DataPoint{
		DataPoint(id, id+"-dp1", id+"-bool", day, payload.BoolValue{Value: true}),
		DataPoint(id, id+"-dp2", id+"-num", day.Add(time.Minute), payload.NumericValue{Value: 12, Delta: floatPtr(2)}),
		DataPoint(id, id+"-dp3", id+"-scale", day.Add(2*time.Minute), payload.ScaleValue{Value: 4}),
		DataPoint(id, id+"-dp4", id+"-choice", day.Add(3*time.Minute), payload.ChoiceValue{Selected: []string{"mint"}}),
		DataPoint(id, id+"-dp5", id+"-text", day.Add(4*time.Minute), payload.TextValue{Text: "quiet night"}),
		DataPoint(id, id+"-dp6", id+"-time", day.Add(5*time.Minute), payload.TimeValue{Time: payload.TimeOfDay{Hour: 22, Minute: 45}}),
		DataPoint(id, id+"-dp7", id+"-slider", day.Add(6*time.Minute), payload.SliderValue{Value: 0.8}),
		{ID: id + "-dp8", GoalID: id, Timestamp: day.Add(7 * time.Minute), Mood: &mood, Location: "bedroom"},
	}
	return g
}

func floatPtr(f float64) *float64 { return &f }
