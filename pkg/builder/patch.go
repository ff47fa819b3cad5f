package builder

import "github.com/goliatone/go-formbuilder/pkg/model"

// FieldPatch names the attributes an edit wants to overwrite; nil members are
// left untouched on the target field.
type FieldPatch struct {
	Label        *string
	Required     *bool
	DefaultValue *any
	Options      *[]string
	Validations  *[]model.ValidationRule
	Derived      *bool
	ParentFields *[]int
	Formula      *string
}

func (p FieldPatch) apply(field model.Field) model.Field {
	out := field.Clone()
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.Required != nil {
		out.Required = *p.Required
	}
	if p.DefaultValue != nil {
		out.DefaultValue = *p.DefaultValue
	}
	if p.Options != nil {
		out.Options = append([]string(nil), (*p.Options)...)
	}
	if p.Validations != nil {
		out.Validations = append([]model.ValidationRule(nil), (*p.Validations)...)
	}
	if p.Derived != nil {
		out.Derived = *p.Derived
	}
	if p.ParentFields != nil {
		out.ParentFields = append([]int(nil), (*p.ParentFields)...)
	}
	if p.Formula != nil {
		out.Formula = *p.Formula
	}
	return out
}

// Named pointer helpers keep call sites terse.

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

func Value(v any) *any { return &v }

func Strings(v ...string) *[]string { return &v }

func Ints(v ...int) *[]int { return &v }

func Rules(v ...model.ValidationRule) *[]model.ValidationRule { return &v }
