package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

var (
	// ErrOperationNotFound reports an operationId absent from the document.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestSchema reports an operation without a usable request body.
	ErrNoRequestSchema = errors.New("openapi: operation has no request body schema")
	// ErrSchemaNotFound reports a missing component schema.
	ErrSchemaNotFound = errors.New("openapi: component schema not found")
)

// ImporterOption configures the Importer.
type ImporterOption func(*Importer)

// WithExternalRefs allows the loader to follow external $ref targets.
func WithExternalRefs(allowed bool) ImporterOption {
	return func(imp *Importer) {
		imp.externalRefs = allowed
	}
}

// Importer maps OpenAPI 3 schemas onto form fields.
type Importer struct {
	externalRefs bool
}

// NewImporter constructs an Importer.
func NewImporter(options ...ImporterOption) *Importer {
	imp := &Importer{}
	for _, opt := range options {
		if opt != nil {
			opt(imp)
		}
	}
	return imp
}

// ImportOperation finds the operation by operationId and converts its
// request-body object schema into form fields. JSON bodies win over
// form-encoded ones when an operation declares both.
func (imp *Importer) ImportOperation(ctx context.Context, data []byte, operationID string) ([]model.Field, error) {
	spec, err := imp.load(ctx, data)
	if err != nil {
		return nil, err
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	schema := requestSchema(operation.RequestBody)
	if schema == nil || schema.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoRequestSchema, operationID)
	}
	return fieldsFromObject(schema.Value)
}

// ImportComponent converts a named components/schemas entry into form
// fields.
func (imp *Importer) ImportComponent(ctx context.Context, data []byte, name string) ([]model.Field, error) {
	spec, err := imp.load(ctx, data)
	if err != nil {
		return nil, err
	}
	if spec.Components == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	ref, ok := spec.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return fieldsFromObject(ref.Value)
}

func (imp *Importer) load(ctx context.Context, data []byte) (*openapi3.T, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: imp.externalRefs,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return spec, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok {
			return mt.Schema
		}
	}
	for _, mt := range content {
		return mt.Schema
	}
	return nil
}

func fieldsFromObject(schema *openapi3.Schema) ([]model.Field, error) {
	if !schemaHasType(schema, openapi3.TypeObject) || len(schema.Properties) == 0 {
		return nil, errors.New("openapi: request schema is not an object with properties")
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	// map iteration order is not stable; sort so imports are repeatable
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]model.Field, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, ok := fieldFromProperty(name, ref.Value, required[name])
		if !ok {
			continue
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return nil, errors.New("openapi: no convertible properties found")
	}
	return fields, nil
}

func fieldFromProperty(name string, prop *openapi3.Schema, required bool) (model.Field, bool) {
	field := model.Field{
		ID:          name,
		Label:       labelFor(name, prop.Title),
		Required:    required,
		Validations: []model.ValidationRule{},
	}
	if prop.Default != nil {
		field.DefaultValue = prop.Default
	}
	if required {
		field.Validations = append(field.Validations, model.RequiredRule())
	}

	switch {
	case len(prop.Enum) > 0:
		field.Type = model.FieldTypeSelect
		field.Options = enumOptions(prop.Enum)
	case schemaHasType(prop, openapi3.TypeBoolean):
		field.Type = model.FieldTypeRadio
		field.Options = []string{"Yes", "No"}
	case schemaHasType(prop, openapi3.TypeInteger), schemaHasType(prop, openapi3.TypeNumber):
		field.Type = model.FieldTypeNumber
	case schemaHasType(prop, openapi3.TypeString):
		field.Type = stringFieldType(prop)
		applyStringRules(&field, prop)
	default:
		// arrays and nested objects have no palette equivalent
		return model.Field{}, false
	}
	return field, true
}

func stringFieldType(prop *openapi3.Schema) model.FieldType {
	switch prop.Format {
	case "date", "date-time":
		return model.FieldTypeDate
	}
	if prop.MaxLength != nil && *prop.MaxLength >= 256 {
		return model.FieldTypeTextarea
	}
	return model.FieldTypeText
}

func applyStringRules(field *model.Field, prop *openapi3.Schema) {
	switch prop.Format {
	case "email":
		field.Validations = append(field.Validations, model.EmailRule())
	case "password":
		field.Validations = append(field.Validations, model.PasswordRule())
	}
	if prop.MinLength > 0 {
		field.Validations = append(field.Validations, model.MinLengthRule(int(prop.MinLength)))
	}
	if prop.MaxLength != nil && field.Type != model.FieldTypeTextarea {
		field.Validations = append(field.Validations, model.MaxLengthRule(int(*prop.MaxLength)))
	}
}

func enumOptions(enum []any) []string {
	options := make([]string, 0, len(enum))
	for _, value := range enum {
		options = append(options, fmt.Sprintf("%v", value))
	}
	return options
}

func schemaHasType(schema *openapi3.Schema, want string) bool {
	return schema != nil && schema.Type != nil && schema.Type.Is(want)
}

func labelFor(name, title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}

	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			prevLower = false
		case unicode.IsUpper(r) && prevLower:
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}

	label := strings.TrimSpace(b.String())
	if label == "" {
		return name
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
