package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/keepsake/internal/schema"
)

// Encode writes p as indented JSON. Nil collections are written as empty
// arrays so the document always satisfies the wire schema.
func Encode(w io.Writer, p *Payload) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Marshal renders p as indented JSON with a trailing newline.
func Marshal(p *Payload) ([]byte, error) {
	out := *p
	out.Goals = make([]Goal, len(p.Goals))
	for i, g := range p.Goals {
		out.Goals[i] = normalizeGoal(g)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads and fully checks a payload document.
//
// The pipeline is: empty check, JSON syntax, version gate, wire schema,
// typed decode, invariant validation. A newer version is reported as
// *UnsupportedVersionError even when the rest of the document would not
// parse; every other failure is *MalformedError.
func Decode(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedError{Reason: "read document", Err: err}
	}
	return Unmarshal(data)
}

// Unmarshal is Decode over an in-memory document.
func Unmarshal(data []byte) (*Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedError{Reason: "empty document"}
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &MalformedError{Reason: "invalid JSON", Err: err}
	}
	if probe.Version == nil {
		return nil, &MalformedError{Reason: "missing version"}
	}
	if err := CheckVersion(*probe.Version); err != nil {
		return nil, err
	}

	if err := schema.ValidatePayload(data); err != nil {
		return nil, &MalformedError{Reason: "schema violation", Err: err}
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &MalformedError{Reason: "decode", Err: err}
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MarshalGoal renders a single-goal snapshot.
func MarshalGoal(g Goal) ([]byte, error) {
	data, err := json.Marshal(normalizeGoal(g))
	if err != nil {
		return nil, fmt.Errorf("encode goal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalGoal reads a single-goal snapshot written by MarshalGoal,
// checking it against the wire schema and the goal invariants.
func UnmarshalGoal(data []byte) (Goal, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Goal{}, &MalformedError{Reason: "empty snapshot"}
	}
	if err := schema.ValidateGoal(data); err != nil {
		return Goal{}, &MalformedError{Reason: "snapshot schema violation", Err: err}
	}

	var g Goal
	if err := json.Unmarshal(data, &g); err != nil {
		return Goal{}, &MalformedError{Reason: "decode snapshot", Err: err}
	}
	if err := ValidateGoal(&g); err != nil {
		return Goal{}, err
	}
	return g, nil
}

func normalizeGoal(g Goal) Goal {
	if g.Questions == nil {
		g.Questions = []Question{}
	}
	if g.DataPoints == nil {
		g.DataPoints = []DataPoint{}
	}
	if g.Schedule.Times == nil {
		g.Schedule.Times = []TimeOfDay{}
	}
	return g
}
