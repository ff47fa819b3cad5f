package model

// Clone returns a deep copy of the field. The default value is copied
// structurally for the list shapes the palette can produce; scalar defaults
// are value types already.
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Validations != nil {
		out.Validations = append([]ValidationRule(nil), f.Validations...)
	}
	if f.ParentFields != nil {
		out.ParentFields = append([]int(nil), f.ParentFields...)
	}
	out.DefaultValue = cloneValue(f.DefaultValue)
	return out
}

// Clone returns a deep copy of the schema.
func (s FormSchema) Clone() FormSchema {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, field := range s.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the saved form.
func (s SavedForm) Clone() SavedForm {
	out := s
	out.Schema = s.Schema.Clone()
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
