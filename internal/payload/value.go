package payload

import (
	"encoding/json"
	"fmt"
	"time"
)

// Value is the answer recorded by a DataPoint.
//
// It is a closed sum: exactly one case per ResponseType, each carrying only
// the fields valid for that case. The set of implementations is sealed by the
// unexported isValue method.
type Value interface {
	// Kind reports the response type this case answers.
	Kind() ResponseType
	isValue()
}

// BoolValue answers a boolean question.
type BoolValue struct{ Value bool }

// NumericValue answers a numeric question. Delta optionally records the
// change against the previous entry.
type NumericValue struct {
	Value float64
	Delta *float64
}

// ScaleValue answers a scale question.
type ScaleValue struct{ Value float64 }

// ChoiceValue answers a multiple-choice question.
type ChoiceValue struct{ Selected []string }

// TextValue answers a free-text question.
type TextValue struct{ Text string }

// TimeValue answers a time question.
type TimeValue struct{ Time TimeOfDay }

// SliderValue answers a slider question.
type SliderValue struct{ Value float64 }

func (BoolValue) Kind() ResponseType    { return ResponseBoolean }
func (NumericValue) Kind() ResponseType { return ResponseNumeric }
func (ScaleValue) Kind() ResponseType   { return ResponseScale }
func (ChoiceValue) Kind() ResponseType  { return ResponseMultipleChoice }
func (TextValue) Kind() ResponseType    { return ResponseText }
func (TimeValue) Kind() ResponseType    { return ResponseTime }
func (SliderValue) Kind() ResponseType  { return ResponseSlider }

func (BoolValue) isValue()    {}
func (NumericValue) isValue() {}
func (ScaleValue) isValue()   {}
func (ChoiceValue) isValue()  {}
func (TextValue) isValue()    {}
func (TimeValue) isValue()    {}
func (SliderValue) isValue()  {}

// wireValue holds the sparse value fields of the wire form.
// ValueType is an additive discriminator; older documents omit it and the
// case is inferred from whichever value field is populated.
type wireValue struct {
	ValueType       string     `json:"valueType,omitempty"`
	NumericValue    *float64   `json:"numericValue,omitempty"`
	NumericDelta    *float64   `json:"numericDelta,omitempty"`
	BoolValue       *bool      `json:"boolValue,omitempty"`
	TextValue       *string    `json:"textValue,omitempty"`
	SelectedOptions []string   `json:"selectedOptions,omitempty"`
	TimeValue       *TimeOfDay `json:"timeValue,omitempty"`
}

// wireDataPoint is the flat, sparse wire form of a DataPoint.
type wireDataPoint struct {
	ID         string    `json:"id"`
	GoalID     string    `json:"goalID"`
	QuestionID string    `json:"questionID,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	wireValue
	Mood     *int   `json:"mood,omitempty"`
	Location string `json:"location,omitempty"`
}

// MarshalJSON writes the flat sparse wire form.
func (dp DataPoint) MarshalJSON() ([]byte, error) {
	w := wireDataPoint{
		ID:         dp.ID,
		GoalID:     dp.GoalID,
		QuestionID: dp.QuestionID,
		Timestamp:  dp.Timestamp,
		Mood:       dp.Mood,
		Location:   dp.Location,
	}
	if err := w.setValue(dp.Value); err != nil {
		return nil, fmt.Errorf("data point %s: %w", dp.ID, err)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat sparse wire form.
func (dp *DataPoint) UnmarshalJSON(data []byte) error {
	var w wireDataPoint
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := w.value()
	if err != nil {
		return fmt.Errorf("data point %s: %w", w.ID, err)
	}
	*dp = DataPoint{
		ID:         w.ID,
		GoalID:     w.GoalID,
		QuestionID: w.QuestionID,
		Timestamp:  w.Timestamp,
		Value:      v,
		Mood:       w.Mood,
		Location:   w.Location,
	}
	return nil
}

func (w *wireValue) setValue(v Value) error {
	if v == nil {
		return nil
	}
	w.ValueType = string(v.Kind())
	switch val := v.(type) {
	case BoolValue:
		w.BoolValue = &val.Value
	case NumericValue:
		w.NumericValue = &val.Value
		w.NumericDelta = val.Delta
	case ScaleValue:
		w.NumericValue = &val.Value
	case SliderValue:
		w.NumericValue = &val.Value
	case ChoiceValue:
		w.SelectedOptions = val.Selected
	case TextValue:
		w.TextValue = &val.Text
	case TimeValue:
		t := val.Time
		w.TimeValue = &t
	default:
		return fmt.Errorf("unknown value case %T", v)
	}
	return nil
}

func (w *wireValue) value() (Value, error) {
	kind := ResponseType(w.ValueType)
	if kind == "" {
		kind = w.inferKind()
		if kind == "" {
			return nil, nil
		}
	}

	switch kind {
	case ResponseBoolean:
		if w.BoolValue == nil {
			return nil, fmt.Errorf("valueType %s without boolValue", kind)
		}
		return BoolValue{Value: *w.BoolValue}, nil
	case ResponseNumeric:
		if w.NumericValue == nil {
			return nil, fmt.Errorf("valueType %s without numericValue", kind)
		}
		return NumericValue{Value: *w.NumericValue, Delta: w.NumericDelta}, nil
	case ResponseScale:
		if w.NumericValue == nil {
			return nil, fmt.Errorf("valueType %s without numericValue", kind)
		}
		return ScaleValue{Value: *w.NumericValue}, nil
	case ResponseSlider:
		if w.NumericValue == nil {
			return nil, fmt.Errorf("valueType %s without numericValue", kind)
		}
		return SliderValue{Value: *w.NumericValue}, nil
	case ResponseMultipleChoice:
		var selected []string
		if len(w.SelectedOptions) > 0 {
			selected = append(selected, w.SelectedOptions...)
		}
		return ChoiceValue{Selected: selected}, nil
	case ResponseText:
		if w.TextValue == nil {
			return nil, fmt.Errorf("valueType %s without textValue", kind)
		}
		return TextValue{Text: *w.TextValue}, nil
	case ResponseTime:
		if w.TimeValue == nil {
			return nil, fmt.Errorf("valueType %s without timeValue", kind)
		}
		return TimeValue{Time: *w.TimeValue}, nil
	default:
		return nil, fmt.Errorf("unknown valueType %q", w.ValueType)
	}
}

// inferKind picks the case for documents written without a discriminator.
// Numeric fields without a delta are read as plain numeric answers.
func (w *wireValue) inferKind() ResponseType {
	switch {
	case w.BoolValue != nil:
		return ResponseBoolean
	case w.NumericValue != nil:
		return ResponseNumeric
	case w.TextValue != nil:
		return ResponseText
	case len(w.SelectedOptions) > 0:
		return ResponseMultipleChoice
	case w.TimeValue != nil:
		return ResponseTime
	}
	return ""
}

// EncodeValue renders a value case as its discriminator plus the JSON of the
// populated wire fields. A nil value encodes as ("", nil).
func EncodeValue(v Value) (string, []byte, error) {
	if v == nil {
		return "", nil, nil
	}
	var w wireValue
	if err := w.setValue(v); err != nil {
		return "", nil, err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", nil, fmt.Errorf("encode value: %w", err)
	}
	return w.ValueType, data, nil
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(kind string, data []byte) (Value, error) {
	if kind == "" {
		return nil, nil
	}
	var w wireValue
	if len(data) > 0 {
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
	}
	w.ValueType = kind
	return w.value()
}
