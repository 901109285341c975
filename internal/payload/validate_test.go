package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Sample(t *testing.T) {
	require.NoError(t, Validate(samplePayload()))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Payload)
		reason string
	}{
		{
			name:   "created after updated",
			mutate: func(p *Payload) { p.Goals[0].CreatedAt = ts("2024-02-01T00:00:00Z") },
			reason: "createdAt",
		},
		{
			name:   "duplicate goal id",
			mutate: func(p *Payload) { p.Goals = append(p.Goals, p.Goals[0].Clone()) },
			reason: "duplicate goal id",
		},
		{
			name: "duplicate question id across goals",
			mutate: func(p *Payload) {
				other := p.Goals[0].Clone()
				other.ID = "goal-2"
				other.DataPoints = nil
				p.Goals = append(p.Goals, other)
			},
			reason: "duplicate question id",
		},
		{
			name:   "dangling goal reference",
			mutate: func(p *Payload) { p.Goals[0].DataPoints[0].GoalID = "goal-x" },
			reason: "does not match owning goal",
		},
		{
			name:   "question owned by another goal",
			mutate: func(p *Payload) { p.Goals[0].DataPoints[0].QuestionID = "q-missing" },
			reason: "is not owned by goal",
		},
		{
			name:   "unknown category",
			mutate: func(p *Payload) { p.Goals[0].Category = "sleep" },
			reason: "category",
		},
		{
			name:   "custom label on builtin category",
			mutate: func(p *Payload) { p.Goals[0].CustomCategory = "garden" },
			reason: "customCategory",
		},
		{
			name:   "unknown timezone",
			mutate: func(p *Payload) { p.Goals[0].Schedule.TimeZone = "Mars/Olympus" },
			reason: "timezone",
		},
		{
			name: "custom frequency without interval",
			mutate: func(p *Payload) {
				p.Goals[0].Schedule.Frequency = FrequencyCustom
			},
			reason: "intervalDays",
		},
		{
			name:   "inverted bounds",
			mutate: func(p *Payload) { p.Goals[0].Questions[1].Validation.Min = floatPtr(50) },
			reason: "minValue exceeds maxValue",
		},
		{
			name:   "missing goal id",
			mutate: func(p *Payload) { p.Goals[0].ID = "" },
			reason: "ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePayload()
			tt.mutate(p)

			err := Validate(p)
			require.Error(t, err)
			assert.True(t, IsMalformed(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestValidate_AnswerTypeNeedNotMatchQuestion(t *testing.T) {
	p := samplePayload()
	// dp-1 answers the boolean question; a retyped question keeps old answers.
	p.Goals[0].DataPoints[0].Value = TextValue{Text: "yes"}
	p.Goals[0].DataPoints[1].Value = SliderValue{Value: 3}
	assert.NoError(t, Validate(p))
}

func TestValidate_EmptyTitleAndQuestionText(t *testing.T) {
	p := samplePayload()
	p.Goals[0].Title = ""
	p.Goals[0].Questions[0].Text = ""
	assert.NoError(t, Validate(p))
}

func TestValidate_Version(t *testing.T) {
	p := samplePayload()
	p.Version = FormatVersion + 1
	assert.True(t, IsUnsupportedVersion(Validate(p)))
}

func TestFingerprint_Stable(t *testing.T) {
	g := sampleGoal()
	a, err := Fingerprint(g.DataPoints[1])
	require.NoError(t, err)

	clone := g.DataPoints[1].Clone()
	b, err := Fingerprint(clone)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	clone.Timestamp = clone.Timestamp.In(mustLocation(t, "Asia/Tokyo"))
	c, err := Fingerprint(clone)
	require.NoError(t, err)
	assert.Equal(t, a, c, "same instant in another zone is the same record")

	clone.Value = NumericValue{Value: 6}
	d, err := Fingerprint(clone)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
	assert.Len(t, d, 64)
}

func TestMarshalCanonical_SortsKeysAndSkipsEscaping(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"b": 1, "a": "<x>", "c": []any{true, nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1,"c":[true,null]}`, string(out))
}

func TestSnapshotHash_IgnoresFormatting(t *testing.T) {
	a, err := SnapshotHash([]byte(`{"id":"g","title":"t"}`))
	require.NoError(t, err)
	b, err := SnapshotHash([]byte("{\n  \"title\": \"t\",\n  \"id\": \"g\"\n}"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = SnapshotHash([]byte(`{not json`))
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	g := sampleGoal()
	c := g.Clone()

	c.Schedule.Times[0].Hour = 9
	c.Questions[2].Options[0] = "juice"
	c.DataPoints[2].Value.(ChoiceValue).Selected[0] = "coffee"

	assert.Equal(t, 8, g.Schedule.Times[0].Hour)
	assert.Equal(t, "water", g.Questions[2].Options[0])
	assert.Equal(t, "tea", g.DataPoints[2].Value.(ChoiceValue).Selected[0])
}
