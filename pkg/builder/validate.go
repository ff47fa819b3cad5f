package builder

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/formula"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// CommitField validates the patched field configuration and applies it only
// when it is fully valid. The returned messages are the user-facing schema
// validation errors; a non-empty list means nothing was committed.
func (b *Builder) CommitField(index int, patch FieldPatch) ([]string, error) {
	if index < 0 || index >= len(b.current.Fields) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	candidate := patch.apply(b.current.Fields[index])
	if messages := ValidateFieldConfig(b.current.Fields, index, candidate); len(messages) > 0 {
		return messages, nil
	}

	b.current.Fields[index] = candidate
	return nil, nil
}

// ValidateFieldConfig checks one field's configuration against the schema it
// will live in: non-blank label, options where the type demands them, unique
// rule kinds, and for derived fields a parseable formula over valid parents.
// It returns human-readable messages, one per violation.
func ValidateFieldConfig(fields []model.Field, index int, candidate model.Field) []string {
	var messages []string

	label := strings.TrimSpace(candidate.Label)
	if label == "" {
		messages = append(messages, "Field label cannot be empty")
		label = fmt.Sprintf("field %d", index+1)
	}

	if candidate.Type.RequiresOptions() && len(nonBlank(candidate.Options)) == 0 {
		messages = append(messages, fmt.Sprintf("%s needs at least one option", label))
	}

	seen := make(map[string]bool, len(candidate.Validations))
	for _, rule := range candidate.Validations {
		if seen[rule.Type] {
			messages = append(messages, fmt.Sprintf("%s has more than one %s rule", label, rule.Type))
		}
		seen[rule.Type] = true
	}

	if candidate.Derived {
		if len(candidate.ParentFields) == 0 {
			messages = append(messages, fmt.Sprintf("%s is derived but has no parent fields", label))
		} else {
			// validate parents against the sequence with the candidate in place
			staged := make([]model.Field, len(fields))
			copy(staged, fields)
			if index < len(staged) {
				staged[index] = candidate
			}
			if err := derive.CheckParents(staged, index, candidate.ParentFields); err != nil {
				messages = append(messages, fmt.Sprintf("%s has an invalid parent selection: %v", label, trimPackagePrefix(err.Error())))
			}
		}

		if strings.TrimSpace(candidate.Formula) == "" {
			messages = append(messages, fmt.Sprintf("%s is derived but has no formula", label))
		} else if _, err := formula.Parse(candidate.Formula); err != nil {
			messages = append(messages, fmt.Sprintf("%s has an invalid formula: %v", label, trimPackagePrefix(err.Error())))
		}
	}

	return messages
}

func nonBlank(options []string) []string {
	out := options[:0:0]
	for _, option := range options {
		if strings.TrimSpace(option) != "" {
			out = append(out, option)
		}
	}
	return out
}

func trimPackagePrefix(message string) string {
	for _, prefix := range []string{"derive: ", "formula: "} {
		message = strings.TrimPrefix(message, prefix)
	}
	return message
}

// ParseOptions splits the editing surface's comma-separated options input
// into a clean options list.
func ParseOptions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
