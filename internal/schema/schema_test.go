package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "version": 1,
  "exportedAt": "2024-01-05T10:00:00Z",
  "goals": [
    {
      "id": "goal-1",
      "title": "Hydration",
      "description": "",
      "category": "health",
      "isActive": true,
      "createdAt": "2024-01-01T10:00:00Z",
      "updatedAt": "2024-01-02T10:00:00Z",
      "schedule": {
        "startDate": "2024-01-01T00:00:00Z",
        "frequency": "daily",
        "times": ["08:00", "20:30"],
        "timezone": "Europe/Berlin"
      },
      "questions": [
        {"id": "q-1", "text": "Glasses?", "responseType": "numeric", "isActive": true}
      ],
      "dataPoints": [
        {"id": "dp-1", "goalID": "goal-1", "questionID": "q-1",
         "timestamp": "2024-01-03T08:00:00Z", "valueType": "numeric", "numericValue": 5}
      ]
    }
  ]
}`

func TestValidatePayload_Valid(t *testing.T) {
	require.NoError(t, ValidatePayload([]byte(validPayload)))
}

func TestValidatePayload_EmptyGoals(t *testing.T) {
	doc := `{"version": 1, "exportedAt": "2024-01-05T10:00:00Z", "goals": []}`
	require.NoError(t, ValidatePayload([]byte(doc)))
}

func TestValidatePayload_UnknownFieldsAllowed(t *testing.T) {
	doc := `{"version": 1, "exportedAt": "2024-01-05T10:00:00Z", "goals": [], "producer": "phone"}`
	require.NoError(t, ValidatePayload([]byte(doc)))
}

func TestValidatePayload_Violations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{
			name: "missing version",
			doc:  `{"exportedAt": "2024-01-05T10:00:00Z", "goals": []}`,
			path: "version",
		},
		{
			name: "bad timestamp",
			doc:  `{"version": 1, "exportedAt": "yesterday", "goals": []}`,
			path: "exportedAt",
		},
		{
			name: "unknown category",
			doc: `{"version": 1, "exportedAt": "2024-01-05T10:00:00Z", "goals": [{
				"id": "g", "title": "t", "category": "sleep", "isActive": true,
				"createdAt": "2024-01-01T10:00:00Z", "updatedAt": "2024-01-01T10:00:00Z",
				"schedule": {"startDate": "2024-01-01T00:00:00Z", "frequency": "daily", "timezone": "UTC"}}]}`,
			path: "goals.0.category",
		},
		{
			name: "bad reminder slot",
			doc: `{"version": 1, "exportedAt": "2024-01-05T10:00:00Z", "goals": [{
				"id": "g", "title": "t", "category": "health", "isActive": true,
				"createdAt": "2024-01-01T10:00:00Z", "updatedAt": "2024-01-01T10:00:00Z",
				"schedule": {"startDate": "2024-01-01T00:00:00Z", "frequency": "daily",
				"times": ["25:00"], "timezone": "UTC"}}]}`,
			path: "goals.0.schedule.times.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload([]byte(tt.doc))
			require.Error(t, err)

			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Path, tt.path)
		})
	}
}

func TestValidatePayload_InvalidJSON(t *testing.T) {
	err := ValidatePayload([]byte(`{"version": `))
	require.Error(t, err)

	var se *Error
	assert.ErrorAs(t, err, &se)
}

func TestValidateGoal(t *testing.T) {
	goal := `{
		"id": "g", "title": "t", "category": "custom", "customCategory": "garden",
		"isActive": false,
		"createdAt": "2024-01-01T10:00:00Z", "updatedAt": "2024-01-01T10:00:00Z",
		"schedule": {"startDate": "2024-01-01T00:00:00Z", "frequency": "weekly",
			"selectedDays": [1, 3], "timezone": "UTC"}
	}`
	require.NoError(t, ValidateGoal([]byte(goal)))

	err := ValidateGoal([]byte(`{"id": ""}`))
	assert.Error(t, err)
}

func TestNew_UnknownDefinition(t *testing.T) {
	_, err := New("#Nope")
	assert.Error(t, err)
}
