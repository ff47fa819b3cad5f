// Package derive keeps derived fields in sync with their parents. The engine
// re-evaluates every active derived field in a single pass whenever any live
// value changes; evaluation failures degrade the derived value to empty and
// are reported as diagnostics, never as failures of the surrounding form.
package derive

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formbuilder/pkg/formula"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// Issue records one failed formula evaluation for diagnostics.
type Issue struct {
	FieldIndex int
	FieldID    string
	Err        error
}

func (i Issue) String() string {
	return fmt.Sprintf("field %d (%s): %v", i.FieldIndex, i.FieldID, i.Err)
}

// Engine evaluates derived-field formulas against live values.
type Engine struct {
	eval   *formula.Evaluator
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvaluator swaps the formula evaluator (tests pin its clock).
func WithEvaluator(eval *formula.Evaluator) Option {
	return func(e *Engine) {
		if eval != nil {
			e.eval = eval
		}
	}
}

// WithLogger routes evaluation diagnostics to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New constructs an Engine. Diagnostics are discarded unless WithLogger is
// supplied.
func New(options ...Option) *Engine {
	e := &Engine{
		eval:   formula.New(),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Recompute runs one evaluation pass over fields, writing computed values into
// the values slice at each derived field's position. Each derived field is
// evaluated exactly once per pass regardless of graph shape, so no dependency
// layout can loop. The returned issues describe evaluations that failed; those
// fields' values are reset to empty.
//
// Fields that are not derived, or whose parent list or formula is not yet
// configured, are left untouched.
func (e *Engine) Recompute(fields []model.Field, values []any) []Issue {
	var issues []Issue
	for index, field := range fields {
		if !Active(field) {
			continue
		}

		parents := make([]any, len(field.ParentFields))
		ok := true
		for i, parentIndex := range field.ParentFields {
			if parentIndex < 0 || parentIndex >= len(values) {
				issues = append(issues, e.fail(index, field, fmt.Errorf("derive: parent index %d out of range", parentIndex)))
				values[index] = ""
				ok = false
				break
			}
			parents[i] = Normalize(values[parentIndex])
		}
		if !ok {
			continue
		}

		computed, err := e.eval.Evaluate(field.Formula, parents)
		if err != nil {
			issues = append(issues, e.fail(index, field, err))
			values[index] = ""
			continue
		}
		values[index] = computed
	}
	return issues
}

// Active reports whether a field participates in derivation: it must be
// flagged derived with a non-empty parent list and a non-blank formula.
func Active(field model.Field) bool {
	return field.Derived &&
		len(field.ParentFields) > 0 &&
		strings.TrimSpace(field.Formula) != ""
}

// CheckParents verifies a derived field's declared parents against the field
// sequence: every parent must exist, sit before the derived field, and not
// itself be derived. This is the registration-time guard that makes dependency
// cycles unrepresentable.
func CheckParents(fields []model.Field, index int, parents []int) error {
	if index < 0 || index >= len(fields) {
		return fmt.Errorf("derive: field index %d out of range", index)
	}
	if len(parents) == 0 {
		return fmt.Errorf("derive: derived field needs at least one parent")
	}
	for _, parent := range parents {
		if parent < 0 || parent >= len(fields) {
			return fmt.Errorf("derive: parent index %d out of range", parent)
		}
		if parent == index {
			return fmt.Errorf("derive: field cannot derive from itself")
		}
		if parent > index {
			return fmt.Errorf("derive: parent at position %d comes after the derived field", parent)
		}
		if fields[parent].Derived {
			return fmt.Errorf("derive: parent at position %d is itself derived", parent)
		}
	}
	return nil
}

// Normalize prepares a live value for substitution: absent values become the
// empty string and strings are trimmed; everything else passes through.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return value
	}
}

func (e *Engine) fail(index int, field model.Field, err error) Issue {
	e.logger.Debug().
		Int("field", index).
		Str("id", field.ID).
		Str("formula", field.Formula).
		Err(err).
		Msg("formula evaluation failed")
	return Issue{FieldIndex: index, FieldID: field.ID, Err: err}
}
