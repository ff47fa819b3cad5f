package formbuilder

import (
	"context"

	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/preview"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// Field is a single form field definition.
type Field = model.Field

// FieldType enumerates the field palette.
type FieldType = model.FieldType

// ValidationRule is a named constraint attached to a field.
type ValidationRule = model.ValidationRule

// FormSchema is an ordered collection of fields under a name.
type FormSchema = model.FormSchema

// SavedForm is a persisted schema snapshot.
type SavedForm = model.SavedForm

// FieldPatch describes a partial field update.
type FieldPatch = builder.FieldPatch

// NewBuilder constructs a form builder on top of the given store. It is
// the main entry point for embedding the editing workflow.
func NewBuilder(st store.Store, options ...builder.Option) (*builder.Builder, error) {
	return builder.New(st, options...)
}

// OpenBoltStore opens (or creates) the bbolt-backed form collection at
// path.
func OpenBoltStore(path string, options ...store.BoltOption) (*store.BoltStore, error) {
	return store.OpenBolt(path, options...)
}

// NewPreview starts a runtime session for a schema: values seeded from
// defaults, validators compiled, derived fields computed.
func NewPreview(schema FormSchema, options ...preview.Option) *preview.Session {
	return preview.NewSession(schema, options...)
}

// RenderPreviewHTML renders a session into a standalone HTML page using
// the built-in templates.
func RenderPreviewHTML(session *preview.Session, options ...preview.RendererOption) ([]byte, error) {
	renderer, err := preview.NewRenderer(options...)
	if err != nil {
		return nil, err
	}
	return renderer.RenderHTML(session)
}

// ImportOperationFields converts an OpenAPI operation's request body
// into palette fields ready for Builder.ImportFields.
func ImportOperationFields(ctx context.Context, document []byte, operationID string) ([]Field, error) {
	return openapi.NewImporter().ImportOperation(ctx, document, operationID)
}
