// Package validation compiles a schema's field list into per-field validator
// functions. Compilation is pure: the same field list always produces an
// equivalent validator set, so callers re-run Compile whenever the list
// changes and nothing else.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// check is one predicate+message pair in a validator chain.
type check struct {
	ok      func(value any, present bool) bool
	message string
}

// FieldValidator validates one field's live value. Validators are keyed by
// field position; Index reports which position this validator covers.
type FieldValidator struct {
	Index  int
	Field  model.Field
	checks []check
}

// Validate runs the chain against a live value and returns every failed
// check's message, in rule order. A nil or blank value is acceptable unless a
// presence check says otherwise.
func (v FieldValidator) Validate(value any) []string {
	present := isPresent(value)
	var messages []string
	for _, c := range v.checks {
		if !c.ok(value, present) {
			messages = append(messages, c.message)
		}
	}
	return messages
}

// Compile builds one validator per field, in field order.
func Compile(fields []model.Field) []FieldValidator {
	validators := make([]FieldValidator, len(fields))
	for i, field := range fields {
		validators[i] = compileField(i, field)
	}
	return validators
}

// ValidateAll runs every validator against the value at its field position and
// returns failed messages keyed by position. Positions past the end of the
// values slice validate an absent value. An empty map means the submission
// passes.
func ValidateAll(validators []FieldValidator, values []any) map[int][]string {
	failures := make(map[int][]string)
	for _, validator := range validators {
		var value any
		if validator.Index < len(values) {
			value = values[validator.Index]
		}
		if messages := validator.Validate(value); len(messages) > 0 {
			failures[validator.Index] = messages
		}
	}
	return failures
}

func compileField(index int, field model.Field) FieldValidator {
	validator := FieldValidator{Index: index, Field: field}
	stringBase := field.Type != model.FieldTypeNumber

	// Base coercion: numeric fields must hold a number when a value is
	// present; every other type coerces to string, which cannot fail.
	if !stringBase {
		validator.checks = append(validator.checks, check{
			ok: func(value any, present bool) bool {
				if !present {
					return true
				}
				_, ok := toNumber(value)
				return ok
			},
			message: fmt.Sprintf("%s must be a number", labelOrFallback(field)),
		})
	}

	if field.Required {
		message := "This field is required"
		if rule, ok := field.Rule(model.ValidationRequired); ok && strings.TrimSpace(rule.Message) != "" {
			message = rule.Message
		}
		validator.checks = append(validator.checks, check{
			ok:      func(_ any, present bool) bool { return present },
			message: message,
		})
	}

	for _, rule := range field.Validations {
		switch rule.Type {
		case model.ValidationMinLength:
			// Length bounds only make sense on string bases; numeric
			// fields ignore them rather than failing compilation.
			if !stringBase {
				continue
			}
			limit := rule.Value
			validator.checks = append(validator.checks, check{
				ok: func(value any, present bool) bool {
					return !present || len([]rune(toString(value))) >= limit
				},
				message: rule.Message,
			})
		case model.ValidationMaxLength:
			if !stringBase {
				continue
			}
			limit := rule.Value
			validator.checks = append(validator.checks, check{
				ok: func(value any, present bool) bool {
					return !present || len([]rune(toString(value))) <= limit
				},
				message: rule.Message,
			})
		case model.ValidationEmail:
			if !stringBase {
				continue
			}
			validator.checks = append(validator.checks, check{
				ok: func(value any, present bool) bool {
					return !present || emailPattern.MatchString(strings.TrimSpace(toString(value)))
				},
				message: rule.Message,
			})
		case model.ValidationPassword:
			if !stringBase {
				continue
			}
			validator.checks = append(validator.checks, check{
				ok: func(value any, present bool) bool {
					return !present || passwordOK(toString(value))
				},
				message: rule.Message,
			})
		}
	}

	return validator
}

// passwordOK enforces "at least 8 characters, containing at least one digit".
// Go regexp has no lookahead, so the two conditions are checked directly.
func passwordOK(value string) bool {
	if len([]rune(value)) < 8 {
		return false
	}
	for _, r := range value {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isPresent(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(value)
	}
}

func labelOrFallback(field model.Field) string {
	if trimmed := strings.TrimSpace(field.Label); trimmed != "" {
		return trimmed
	}
	return "value"
}
