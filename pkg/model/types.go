package model

import "time"

// FieldType enumerates the palette of input kinds a form can be assembled
// from. The set is closed; editing surfaces must not invent new kinds.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeDate     FieldType = "date"
)

// Palette lists every field type in the order editing surfaces present them.
func Palette() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeNumber,
		FieldTypeTextarea,
		FieldTypeSelect,
		FieldTypeRadio,
		FieldTypeCheckbox,
		FieldTypeDate,
	}
}

// Valid reports whether t belongs to the palette.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeTextarea,
		FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox, FieldTypeDate:
		return true
	}
	return false
}

// RequiresOptions reports whether fields of this type must carry a non-empty
// options list.
func (t FieldType) RequiresOptions() bool {
	switch t {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	}
	return false
}

const (
	ValidationRequired  = "required"
	ValidationMinLength = "minLength"
	ValidationMaxLength = "maxLength"
	ValidationEmail     = "email"
	ValidationPassword  = "password"
)

// ValidationRule is a single named constraint attached to a field. Length
// rules carry their threshold in Value; the other kinds ignore it. A field
// holds at most one rule per kind.
type ValidationRule struct {
	Type    string `json:"type" yaml:"type"`
	Value   int    `json:"value,omitempty" yaml:"value,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Field is one configurable input unit inside a form schema.
//
// ParentFields holds zero-based positions into the owning schema's field
// sequence and is meaningful only when Derived is set; every referenced field
// must sit before this one and must not itself be derived. Formula references
// the listed parents positionally as parent0, parent1, and so on.
type Field struct {
	ID           string           `json:"id" yaml:"id"`
	Type         FieldType        `json:"type" yaml:"type"`
	Label        string           `json:"label" yaml:"label"`
	Required     bool             `json:"required" yaml:"required"`
	DefaultValue any              `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Options      []string         `json:"options,omitempty" yaml:"options,omitempty"`
	Validations  []ValidationRule `json:"validations" yaml:"validations"`
	Derived      bool             `json:"derived,omitempty" yaml:"derived,omitempty"`
	ParentFields []int            `json:"parentFields,omitempty" yaml:"parentFields,omitempty"`
	Formula      string           `json:"formula,omitempty" yaml:"formula,omitempty"`
}

// Rule returns the validation rule of the given kind, if the field carries one.
func (f Field) Rule(kind string) (ValidationRule, bool) {
	for _, rule := range f.Validations {
		if rule.Type == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// FormSchema is the ordered field list plus metadata defining one form. Field
// order is semantically significant: derived-field parent references and the
// position-based dependency checks rely on it.
type FormSchema struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// SavedForm is an immutable, named, timestamped snapshot of a schema. Once
// created it is read-only; loading it back for preview copies the schema by
// value so later edits never reach the stored record.
type SavedForm struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	Schema    FormSchema `json:"schema" yaml:"schema"`
}
