// Package schema checks raw payload documents against the embedded CUE wire
// schema before they are decoded into Go types.
//
// The typed decoder in package payload is permissive about shape (missing
// fields decode as zero values); this package is what turns a structurally
// wrong document into a precise, path-qualified error.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed payload.cue
var payloadSchema string

// Definition names exported by payload.cue.
const (
	DefPayload = "#Payload"
	DefGoal    = "#Goal"
)

// Validator checks JSON documents against one definition of the wire schema.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so Validate
// serializes callers with an internal mutex.
type Validator struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// Error describes the first schema violation found in a document.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// New compiles the embedded schema and selects the named definition.
func New(definition string) (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(payloadSchema, cue.Filename("payload.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", formatCUEError(err))
	}

	def := v.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return nil, fmt.Errorf("schema definition %s not found", definition)
	}

	return &Validator{ctx: ctx, def: def}, nil
}

// Validate checks a JSON document against the definition.
// Returns *Error for schema violations and syntax errors alike.
func (v *Validator) Validate(data []byte) error {
	expr, err := cuejson.Extract("payload.json", data)
	if err != nil {
		return &Error{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	doc := v.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := v.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaults    map[string]*Validator
	defaultErr  error
)

// ValidatePayload checks a full payload document.
func ValidatePayload(data []byte) error {
	v, err := defaultValidator(DefPayload)
	if err != nil {
		return err
	}
	return v.Validate(data)
}

// ValidateGoal checks a single-goal snapshot document.
func ValidateGoal(data []byte) error {
	v, err := defaultValidator(DefGoal)
	if err != nil {
		return err
	}
	return v.Validate(data)
}

func defaultValidator(definition string) (*Validator, error) {
	defaultOnce.Do(func() {
		defaults = make(map[string]*Validator)
		for _, name := range []string{DefPayload, DefGoal} {
			v, err := New(name)
			if err != nil {
				defaultErr = err
				return
			}
			defaults[name] = v
		}
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return defaults[definition], nil
}

// formatCUEError reduces a CUE error list to its first entry with a path.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	return &Error{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}
