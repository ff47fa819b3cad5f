// Package builder implements the schema editing operations: assembling a form
// field by field, committing per-field configuration, and the saved-form
// lifecycle (save, list, load-for-preview). A Builder exclusively owns the
// live schema for its session; the persisted collection behind it is the
// durable store.
package builder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

var (
	ErrIndexOutOfRange           = errors.New("builder: field index out of range")
	ErrUnknownFieldType          = errors.New("builder: unknown field type")
	ErrFormNameRequired          = errors.New("builder: form name is required")
	ErrFormNotFound              = errors.New("builder: form not found")
	ErrReorderBreaksDependencies = errors.New("builder: reorder would place a derived field before one of its parents")
)

// Builder owns the live schema being edited and fronts the persisted
// saved-form collection.
type Builder struct {
	current model.FormSchema
	saved   []model.SavedForm

	store  store.Store
	newID  func() string
	now    func() time.Time
	logger zerolog.Logger

	lastFormID int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for saved-form ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator overrides field-id generation (defaults to random UUIDs).
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// WithLogger routes builder diagnostics to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New constructs a Builder backed by st, reading the persisted collection
// once up front.
func New(st store.Store, options ...Option) (*Builder, error) {
	if st == nil {
		return nil, errors.New("builder: store is required")
	}

	b := &Builder{
		store:  st,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}

	saved, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("builder: load saved forms: %w", err)
	}
	b.saved = saved
	return b, nil
}

// AddField appends a fresh field of the given palette type to the live
// schema: new unique id, placeholder label, not required, no rules. No
// validation happens here; configuration is checked at commit time.
func (b *Builder) AddField(fieldType model.FieldType) (model.Field, error) {
	if !fieldType.Valid() {
		return model.Field{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, fieldType)
	}

	field := model.Field{
		ID:          b.newID(),
		Type:        fieldType,
		Label:       defaultLabel(fieldType),
		Validations: []model.ValidationRule{},
	}
	b.current.Fields = append(b.current.Fields, field)
	return field.Clone(), nil
}

// UpdateField merges the patch into the field at index. Only the attributes
// the patch names change; no cross-field consistency is enforced here (use
// CommitField for the validated path).
func (b *Builder) UpdateField(index int, patch FieldPatch) error {
	if index < 0 || index >= len(b.current.Fields) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	b.current.Fields[index] = patch.apply(b.current.Fields[index])
	return nil
}

// DeleteField removes the field at index and repairs every remaining field's
// parent references: references to the removed position are dropped, and
// references past it shift down by one so they keep pointing at the same
// logical field.
func (b *Builder) DeleteField(index int) error {
	if index < 0 || index >= len(b.current.Fields) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	b.current.Fields = append(b.current.Fields[:index], b.current.Fields[index+1:]...)

	for i := range b.current.Fields {
		field := &b.current.Fields[i]
		if len(field.ParentFields) == 0 {
			continue
		}
		repaired := field.ParentFields[:0]
		for _, parent := range field.ParentFields {
			switch {
			case parent == index:
				// parent deleted; drop the reference
			case parent > index:
				repaired = append(repaired, parent-1)
			default:
				repaired = append(repaired, parent)
			}
		}
		if len(repaired) == 0 {
			field.ParentFields = nil
		} else {
			field.ParentFields = repaired
		}
	}
	return nil
}

// ReorderFields moves the field at oldIndex to newIndex, shifting the fields
// between them, and remaps every parent reference through the same
// permutation so dependencies keep following the moved fields. A reorder that
// would leave a derived field ahead of one of its parents is rejected and the
// schema is left untouched.
func (b *Builder) ReorderFields(oldIndex, newIndex int) error {
	count := len(b.current.Fields)
	if oldIndex < 0 || oldIndex >= count {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, oldIndex)
	}
	if newIndex < 0 || newIndex >= count {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, newIndex)
	}
	if oldIndex == newIndex {
		return nil
	}

	remap := movePermutation(count, oldIndex, newIndex)

	// work on clones so a rejected reorder leaves the schema untouched
	next := make([]model.Field, 0, count)
	for i, field := range b.current.Fields {
		if i == oldIndex {
			continue
		}
		next = append(next, field.Clone())
	}
	moved := b.current.Fields[oldIndex].Clone()
	next = append(next[:newIndex], append([]model.Field{moved}, next[newIndex:]...)...)

	for i := range next {
		for j, parent := range next[i].ParentFields {
			next[i].ParentFields[j] = remap[parent]
		}
	}

	for i, field := range next {
		for _, parent := range field.ParentFields {
			if field.Derived && parent >= i {
				return ErrReorderBreaksDependencies
			}
		}
	}

	b.current.Fields = next
	return nil
}

// SaveForm snapshots the live schema under the given name: a deep copy with a
// fresh time-derived id is appended to the persisted collection, the
// collection is written through, and the live schema resets to empty. When
// persistence fails nothing changes, in memory or on disk. A blank name is
// rejected before any state moves.
func (b *Builder) SaveForm(name string) (model.SavedForm, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.SavedForm{}, ErrFormNameRequired
	}

	id := b.nextFormID()
	snapshot := b.current.Clone()
	snapshot.ID = id
	snapshot.Name = trimmed

	saved := model.SavedForm{
		ID:        id,
		Name:      trimmed,
		CreatedAt: b.now(),
		Schema:    snapshot,
	}

	next := make([]model.SavedForm, 0, len(b.saved)+1)
	next = append(next, b.saved...)
	next = append(next, saved)

	if err := b.store.Save(next); err != nil {
		return model.SavedForm{}, fmt.Errorf("builder: persist saved forms: %w", err)
	}

	b.saved = next
	b.current = model.FormSchema{}
	b.logger.Info().Str("id", id).Str("name", trimmed).Msg("form saved")
	return saved.Clone(), nil
}

// LoadFormForPreview replaces the live schema with a deep copy of the saved
// form's schema. The stored record is never handed out by reference, so
// preview-time writes cannot reach it. An unknown id leaves the live schema
// unchanged.
func (b *Builder) LoadFormForPreview(id string) (model.FormSchema, error) {
	for _, form := range b.saved {
		if form.ID == id {
			b.current = form.Schema.Clone()
			return b.current.Clone(), nil
		}
	}
	return model.FormSchema{}, fmt.Errorf("%w: %q", ErrFormNotFound, id)
}

// SavedForm returns a copy of the saved form with the given id. Unlike
// LoadFormForPreview it never touches the live schema, so read-only
// consumers such as the preview server can call it from concurrent
// goroutines without stepping on the editing session.
func (b *Builder) SavedForm(id string) (model.SavedForm, error) {
	for _, form := range b.saved {
		if form.ID == id {
			return form.Clone(), nil
		}
	}
	return model.SavedForm{}, fmt.Errorf("%w: %q", ErrFormNotFound, id)
}

// ResetCurrentForm discards the live schema.
func (b *Builder) ResetCurrentForm() {
	b.current = model.FormSchema{}
}

// CurrentForm returns a copy of the live schema.
func (b *Builder) CurrentForm() model.FormSchema {
	return b.current.Clone()
}

// FieldCount reports how many fields the live schema holds.
func (b *Builder) FieldCount() int {
	return len(b.current.Fields)
}

// Field returns a copy of the field at index.
func (b *Builder) Field(index int) (model.Field, error) {
	if index < 0 || index >= len(b.current.Fields) {
		return model.Field{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return b.current.Fields[index].Clone(), nil
}

// SavedForms returns copies of the persisted collection, in save order.
func (b *Builder) SavedForms() []model.SavedForm {
	out := make([]model.SavedForm, len(b.saved))
	for i, form := range b.saved {
		out[i] = form.Clone()
	}
	return out
}

// ImportFields appends externally produced fields (snapshot files, OpenAPI
// import) to the live schema, assigning fresh ids where missing.
func (b *Builder) ImportFields(fields []model.Field) error {
	for _, field := range fields {
		if !field.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownFieldType, field.Type)
		}
	}
	for _, field := range fields {
		imported := field.Clone()
		if strings.TrimSpace(imported.ID) == "" {
			imported.ID = b.newID()
		}
		if imported.Validations == nil {
			imported.Validations = []model.ValidationRule{}
		}
		b.current.Fields = append(b.current.Fields, imported)
	}
	return nil
}

// nextFormID derives a time-based id, nudged forward when two saves land in
// the same millisecond so ids stay unique and ordered.
func (b *Builder) nextFormID() string {
	id := b.now().UnixMilli()
	if id <= b.lastFormID {
		id = b.lastFormID + 1
	}
	b.lastFormID = id
	return strconv.FormatInt(id, 10)
}

// movePermutation returns the old-position -> new-position mapping produced
// by moving one element from oldIndex to newIndex.
func movePermutation(count, oldIndex, newIndex int) []int {
	remap := make([]int, count)
	for p := range remap {
		switch {
		case p == oldIndex:
			remap[p] = newIndex
		case oldIndex < newIndex && p > oldIndex && p <= newIndex:
			remap[p] = p - 1
		case newIndex < oldIndex && p >= newIndex && p < oldIndex:
			remap[p] = p + 1
		default:
			remap[p] = p
		}
	}
	return remap
}

func defaultLabel(fieldType model.FieldType) string {
	name := string(fieldType)
	if name == "" {
		return "New Field"
	}
	return "New " + strings.ToUpper(name[:1]) + name[1:] + " Field"
}
