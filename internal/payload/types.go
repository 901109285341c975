package payload

import (
	"fmt"
	"time"
)

// Payload is the interchange envelope.
//
// Goals are kept in creation order. Order carries no meaning for merge or
// import, but exporters keep it stable so two exports of the same store diff
// cleanly.
type Payload struct {
	Version    int       `json:"version" validate:"gte=1"`
	ExportedAt time.Time `json:"exportedAt"`
	Goals      []Goal    `json:"goals" validate:"dive"`
}

// Category tags a goal.
type Category string

const (
	CategoryHealth       Category = "health"
	CategoryFitness      Category = "fitness"
	CategoryProductivity Category = "productivity"
	CategoryLearning     Category = "learning"
	CategoryMindfulness  Category = "mindfulness"
	CategoryFinance      Category = "finance"
	CategorySocial       Category = "social"
	CategoryCustom       Category = "custom"
)

// ValidCategories lists the accepted category tags.
var ValidCategories = map[Category]bool{
	CategoryHealth:       true,
	CategoryFitness:      true,
	CategoryProductivity: true,
	CategoryLearning:     true,
	CategoryMindfulness:  true,
	CategoryFinance:      true,
	CategorySocial:       true,
	CategoryCustom:       true,
}

// Goal is a tracked objective with its full owned subtree.
type Goal struct {
	ID             string      `json:"id" validate:"required"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       Category    `json:"category" validate:"category"`
	CustomCategory string      `json:"customCategory,omitempty"`
	IsActive       bool        `json:"isActive"`
	CreatedAt      time.Time   `json:"createdAt" validate:"required"`
	UpdatedAt      time.Time   `json:"updatedAt" validate:"required"`
	Schedule       Schedule    `json:"schedule"`
	Questions      []Question  `json:"questions" validate:"dive"`
	DataPoints     []DataPoint `json:"dataPoints" validate:"dive"`
}

// Question returns the goal's question with the given ID.
func (g *Goal) Question(id string) (Question, bool) {
	for _, q := range g.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Frequency is a schedule cadence.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// ValidFrequencies lists the accepted cadences.
var ValidFrequencies = map[Frequency]bool{
	FrequencyOnce:    true,
	FrequencyDaily:   true,
	FrequencyWeekly:  true,
	FrequencyMonthly: true,
	FrequencyCustom:  true,
}

// Schedule is the cadence metadata owned by exactly one Goal.
// It is never referenced by identifier.
type Schedule struct {
	StartDate    time.Time      `json:"startDate"`
	Frequency    Frequency      `json:"frequency" validate:"frequency"`
	Times        []TimeOfDay    `json:"times"`
	EndDate      *time.Time     `json:"endDate,omitempty"`
	TimeZone     string         `json:"timezone" validate:"required,timezone"`
	SelectedDays []time.Weekday `json:"selectedDays,omitempty" validate:"dive,gte=0,lte=6"`
	IntervalDays *int           `json:"intervalDays,omitempty" validate:"omitempty,gte=1"`
}

// TimeOfDay is a wall-clock reminder slot. Its wire form is "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the slot as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return nil, fmt.Errorf("time of day out of range: %d:%d", t.Hour, t.Minute)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(data []byte) error {
	parsed, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// ResponseType tags how a Question is answered.
type ResponseType string

const (
	ResponseBoolean        ResponseType = "boolean"
	ResponseNumeric        ResponseType = "numeric"
	ResponseScale          ResponseType = "scale"
	ResponseMultipleChoice ResponseType = "multipleChoice"
	ResponseText           ResponseType = "text"
	ResponseTime           ResponseType = "time"
	ResponseSlider         ResponseType = "slider"
)

// ValidResponseTypes lists the accepted response types.
var ValidResponseTypes = map[ResponseType]bool{
	ResponseBoolean:        true,
	ResponseNumeric:        true,
	ResponseScale:          true,
	ResponseMultipleChoice: true,
	ResponseText:           true,
	ResponseTime:           true,
	ResponseSlider:         true,
}

// Question is a prompt owned by a Goal.
type Question struct {
	ID         string          `json:"id" validate:"required"`
	Text       string          `json:"text"`
	Type       ResponseType    `json:"responseType" validate:"response_type"`
	IsActive   bool            `json:"isActive"`
	Options    []string        `json:"options,omitempty"`
	Validation *ValidationRule `json:"validationRules,omitempty"`
}

// ValidationRule bounds a numeric answer.
type ValidationRule struct {
	Min         *float64 `json:"minValue,omitempty"`
	Max         *float64 `json:"maxValue,omitempty"`
	AllowsEmpty bool     `json:"allowsEmpty"`
}

// DataPoint is a single logged response.
//
// Value holds the answer as a tagged case (nil when the entry only carries
// annotations). Mood and Location annotate the entry regardless of the
// question's response type.
type DataPoint struct {
	ID         string    `validate:"required"`
	GoalID     string    `validate:"required"`
	QuestionID string    // empty when the entry is not tied to a question
	Timestamp  time.Time `validate:"required"`
	Value      Value
	Mood       *int `validate:"omitempty,gte=1,lte=10"`
	Location   string
}

// TrashItem is a soft-deletion record holding a single-goal snapshot.
type TrashItem struct {
	ID              string    `json:"id"`
	OriginalGoalID  string    `json:"originalGoalID"`
	Snapshot        []byte    `json:"snapshot"`
	SnapshotVersion int       `json:"snapshotVersion"`
	SnapshotHash    string    `json:"snapshotHash"`
	Title           string    `json:"title"`
	DeletedAt       time.Time `json:"deletedAt"`
	Note            string    `json:"note,omitempty"`
}
