package preview

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

var (
	// ErrFieldOutOfRange reports a field index outside the schema.
	ErrFieldOutOfRange = errors.New("preview: field index out of range")
	// ErrFieldReadOnly reports an attempt to write into a derived field.
	ErrFieldReadOnly = errors.New("preview: derived fields are read only")
)

// Option configures a Session before its first recompute.
type Option func(*Session)

// WithEngine swaps the derivation engine, typically to pin the clock in
// tests.
func WithEngine(engine *derive.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// Session holds the runtime state of one rendered form.
type Session struct {
	schema     model.FormSchema
	values     []any
	validators []validation.FieldValidator
	engine     *derive.Engine
	issues     []derive.Issue
	fieldErrs  map[int][]string
	submitted  bool
}

// NewSession compiles the schema's validators, seeds values from field
// defaults, and runs an initial derivation pass.
func NewSession(schema model.FormSchema, options ...Option) *Session {
	s := &Session{
		schema: schema.Clone(),
		engine: derive.New(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	s.validators = validation.Compile(s.schema.Fields)
	s.values = make([]any, len(s.schema.Fields))
	for i, field := range s.schema.Fields {
		s.values[i] = derive.Normalize(field.DefaultValue)
	}
	s.recompute()
	return s
}

// Schema returns a deep copy of the schema backing the session.
func (s *Session) Schema() model.FormSchema {
	return s.schema.Clone()
}

// FieldCount reports how many fields the session manages.
func (s *Session) FieldCount() int {
	return len(s.schema.Fields)
}

// SetValue stores a user-entered value and recomputes every derived
// field downstream. Writes into derived fields are rejected.
func (s *Session) SetValue(index int, value any) error {
	if index < 0 || index >= len(s.values) {
		return fmt.Errorf("%w: %d", ErrFieldOutOfRange, index)
	}
	if derive.Active(s.schema.Fields[index]) {
		return fmt.Errorf("%w: field %d", ErrFieldReadOnly, index)
	}
	s.values[index] = derive.Normalize(value)
	s.recompute()
	if s.submitted {
		s.fieldErrs = validation.ValidateAll(s.validators, s.values)
	}
	return nil
}

// Value returns the current value at index, or nil when out of range.
func (s *Session) Value(index int) any {
	if index < 0 || index >= len(s.values) {
		return nil
	}
	return s.values[index]
}

// Values returns a copy of the current value slice.
func (s *Session) Values() []any {
	out := make([]any, len(s.values))
	copy(out, s.values)
	return out
}

// Issues lists formula failures from the most recent derivation pass.
func (s *Session) Issues() []derive.Issue {
	out := make([]derive.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Submit validates every field and reports whether the form passed.
// After the first submit, validation errors refresh on every SetValue.
func (s *Session) Submit() (map[int][]string, bool) {
	s.submitted = true
	s.fieldErrs = validation.ValidateAll(s.validators, s.values)
	return s.FieldErrors(), len(s.fieldErrs) == 0
}

// FieldErrors returns the validation messages from the last Submit,
// keyed by field index. Empty until Submit has been called.
func (s *Session) FieldErrors() map[int][]string {
	out := make(map[int][]string, len(s.fieldErrs))
	for index, msgs := range s.fieldErrs {
		copied := make([]string, len(msgs))
		copy(copied, msgs)
		out[index] = copied
	}
	return out
}

func (s *Session) recompute() {
	s.issues = s.engine.Recompute(s.schema.Fields, s.values)
}
