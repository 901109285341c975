package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one end-to-end run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Now is the scenario clock's starting instant (RFC 3339).
	Now string `yaml:"now"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final state.
	Expect Expectation `yaml:"expect"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Payload is the payload file for import and merge.
	Payload string `yaml:"payload,omitempty"`
	// Primary replaces the store export as the merge primary.
	Primary string `yaml:"primary,omitempty"`

	Replace    bool   `yaml:"replace,omitempty"`
	Strategy   string `yaml:"strategy,omitempty"`
	Commit     bool   `yaml:"commit,omitempty"`
	Goal       string `yaml:"goal,omitempty"`
	Trash      string `yaml:"trash,omitempty"`
	Note       string `yaml:"note,omitempty"`
	Reactivate bool   `yaml:"reactivate,omitempty"`
	Days       int    `yaml:"days,omitempty"`

	// Error is the error kind the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Expectation lists final-state checks. Nil fields are not checked.
type Expectation struct {
	Goals     []string `yaml:"goals,omitempty"`
	Trash     []string `yaml:"trash,omitempty"`
	Conflicts *int     `yaml:"conflicts,omitempty"`
	Scheduled []string `yaml:"scheduled,omitempty"`
	Cancelled []string `yaml:"cancelled,omitempty"`
}

// Operation names.
const (
	OpImport  = "import"
	OpExport  = "export"
	OpMerge   = "merge"
	OpTrash   = "trash"
	OpRestore = "restore"
	OpDelete  = "delete"
	OpPurge   = "purge"
	OpAdvance = "advance"
)

var validOps = []string{OpImport, OpExport, OpMerge, OpTrash, OpRestore, OpDelete, OpPurge, OpAdvance}

// Error kinds a step may expect.
var validErrorKinds = []string{
	ErrGoalAlreadyExists, ErrNotFound, ErrStore, ErrMalformed, ErrUnsupportedVersion,
}

// LoadScenario reads and parses a scenario YAML file. Payload paths are
// resolved relative to the file's directory. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i := range scenario.Steps {
		st := &scenario.Steps[i]
		st.Payload = resolve(base, st.Payload)
		st.Primary = resolve(base, st.Primary)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
		return fmt.Errorf("now must be an RFC 3339 timestamp: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, st := range s.Steps {
		if err := validateStep(st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func validateStep(st Step) error {
	if !slices.Contains(validOps, st.Op) {
		return fmt.Errorf("unknown op %q", st.Op)
	}
	if st.Error != "" && !slices.Contains(validErrorKinds, st.Error) {
		return fmt.Errorf("unknown error kind %q", st.Error)
	}

	switch st.Op {
	case OpImport, OpMerge:
		if st.Payload == "" {
			return fmt.Errorf("%s requires payload", st.Op)
		}
	case OpTrash:
		if st.Goal == "" {
			return fmt.Errorf("trash requires goal")
		}
	case OpRestore, OpDelete:
		if st.Trash == "" {
			return fmt.Errorf("%s requires trash", st.Op)
		}
	case OpAdvance:
		if st.Days <= 0 {
			return fmt.Errorf("advance requires positive days")
		}
	}
	if st.Op == OpMerge && st.Strategy == "" {
		return fmt.Errorf("merge requires strategy")
	}
	return nil
}
