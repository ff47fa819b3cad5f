package builder

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func newTestBuilder(t *testing.T) (*Builder, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemory()
	seq := 0
	b, err := New(st,
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		WithClock(func() time.Time {
			return time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, st
}

func TestAddFieldCountsAndUniqueIDs(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	seen := make(map[string]bool)
	palette := model.Palette()
	for i := 0; i < 20; i++ {
		field, err := b.AddField(palette[i%len(palette)])
		if err != nil {
			t.Fatalf("AddField: %v", err)
		}
		if field.ID == "" || seen[field.ID] {
			t.Fatalf("field id %q not unique", field.ID)
		}
		seen[field.ID] = true
		if b.FieldCount() != i+1 {
			t.Fatalf("after %d adds expected count %d, got %d", i+1, i+1, b.FieldCount())
		}
	}
}

func TestAddFieldDefaults(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	field, err := b.AddField(model.FieldTypeTextarea)
	if err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if field.Label != "New Textarea Field" {
		t.Fatalf("unexpected default label %q", field.Label)
	}
	if field.Required || field.Derived || len(field.Validations) != 0 {
		t.Fatalf("new field should be blank, got %+v", field)
	}

	if _, err := b.AddField(model.FieldType("slider")); !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("expected ErrUnknownFieldType, got %v", err)
	}
}

func TestUpdateFieldMergesPatch(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	if _, err := b.AddField(model.FieldTypeText); err != nil {
		t.Fatalf("AddField: %v", err)
	}

	err := b.UpdateField(0, FieldPatch{
		Label:    String("Full name"),
		Required: Bool(true),
	})
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	field, err := b.Field(0)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if field.Label != "Full name" || !field.Required {
		t.Fatalf("patch not applied: %+v", field)
	}
	if field.Type != model.FieldTypeText {
		t.Fatalf("unnamed attribute changed: %+v", field)
	}

	if err := b.UpdateField(5, FieldPatch{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func derivedFixture(t *testing.T, b *Builder) {
	t.Helper()
	// 0:text 1:number 2:number 3:derived(1,2) 4:text 5:derived(0)
	for _, ft := range []model.FieldType{
		model.FieldTypeText, model.FieldTypeNumber, model.FieldTypeNumber,
		model.FieldTypeNumber, model.FieldTypeText, model.FieldTypeText,
	} {
		if _, err := b.AddField(ft); err != nil {
			t.Fatalf("AddField: %v", err)
		}
	}
	patches := map[int]FieldPatch{
		3: {
			Derived:      Bool(true),
			ParentFields: Ints(1, 2),
			Formula:      String("parent0 + parent1"),
		},
		5: {
			Derived:      Bool(true),
			ParentFields: Ints(0),
			Formula:      String("upper(parent0)"),
		},
	}
	for index, patch := range patches {
		if err := b.UpdateField(index, patch); err != nil {
			t.Fatalf("UpdateField(%d): %v", index, err)
		}
	}
}

func TestDeleteFieldRepairsParentIndices(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	derivedFixture(t, b)

	// delete field 1: parent list (1,2) loses 1, and 2 renumbers to 1
	if err := b.DeleteField(1); err != nil {
		t.Fatalf("DeleteField: %v", err)
	}

	sum, err := b.Field(2)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if diff := cmp.Diff([]int{1}, sum.ParentFields); diff != "" {
		t.Fatalf("parent repair mismatch (-want +got):\n%s", diff)
	}

	greeting, err := b.Field(4)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if diff := cmp.Diff([]int{0}, greeting.ParentFields); diff != "" {
		t.Fatalf("unaffected parent changed (-want +got):\n%s", diff)
	}

	// no remaining field may reference the removed position stale-ly
	for i := 0; i < b.FieldCount(); i++ {
		field, _ := b.Field(i)
		for _, parent := range field.ParentFields {
			if parent >= b.FieldCount() {
				t.Fatalf("field %d holds dangling parent %d", i, parent)
			}
		}
	}
}

func TestDeleteAllParentsLeavesEmptyList(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	derivedFixture(t, b)

	if err := b.DeleteField(0); err != nil {
		t.Fatalf("DeleteField: %v", err)
	}

	// former field 5 (now 4) lost its only parent
	field, err := b.Field(4)
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if len(field.ParentFields) != 0 {
		t.Fatalf("expected empty parent list, got %v", field.ParentFields)
	}
}

func TestReorderRemapsParentReferences(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	derivedFixture(t, b)

	movedID := mustField(t, b, 2).ID

	// move field 2 (a parent of the derived field at 3) to the front
	if err := b.ReorderFields(2, 0); err != nil {
		t.Fatalf("ReorderFields: %v", err)
	}

	if got := mustField(t, b, 0).ID; got != movedID {
		t.Fatalf("moved field not at new position, got %q", got)
	}

	// the derived field shifted to 3; its parents must follow the move:
	// old parent 1 -> 2, old parent 2 -> 0
	sum := mustField(t, b, 3)
	if diff := cmp.Diff([]int{2, 0}, sum.ParentFields); diff != "" {
		t.Fatalf("parent remap mismatch (-want +got):\n%s", diff)
	}

	// the other derived field's parent (0) shifted to 1
	greeting := mustField(t, b, 5)
	if diff := cmp.Diff([]int{1}, greeting.ParentFields); diff != "" {
		t.Fatalf("parent remap mismatch (-want +got):\n%s", diff)
	}
}

func TestReorderRejectsDerivedBeforeParent(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	derivedFixture(t, b)

	before := b.CurrentForm()

	// moving the derived field at 3 to position 0 would put it ahead of
	// both of its parents
	if err := b.ReorderFields(3, 0); !errors.Is(err, ErrReorderBreaksDependencies) {
		t.Fatalf("expected ErrReorderBreaksDependencies, got %v", err)
	}

	if diff := cmp.Diff(before, b.CurrentForm()); diff != "" {
		t.Fatalf("rejected reorder must not change the schema:\n%s", diff)
	}
}

func TestSaveLoadRoundTripIsolation(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	derivedFixture(t, b)
	atSave := b.CurrentForm()

	saved, err := b.SaveForm("  My Form  ")
	if err != nil {
		t.Fatalf("SaveForm: %v", err)
	}
	if saved.Name != "My Form" {
		t.Fatalf("name not trimmed: %q", saved.Name)
	}
	if b.FieldCount() != 0 {
		t.Fatalf("live schema should reset after save")
	}

	loaded, err := b.LoadFormForPreview(saved.ID)
	if err != nil {
		t.Fatalf("LoadFormForPreview: %v", err)
	}
	if diff := cmp.Diff(atSave.Fields, loaded.Fields); diff != "" {
		t.Fatalf("loaded schema differs from snapshot (-want +got):\n%s", diff)
	}

	// editing the live schema must not reach the stored copy
	if err := b.UpdateField(0, FieldPatch{Label: String("tampered")}); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	stored := b.SavedForms()[0]
	if stored.Schema.Fields[0].Label == "tampered" {
		t.Fatalf("live edit leaked into the saved form")
	}
}

func TestSaveFormBlankNameIsNoOp(t *testing.T) {
	t.Parallel()

	b, st := newTestBuilder(t)
	if _, err := b.AddField(model.FieldTypeText); err != nil {
		t.Fatalf("AddField: %v", err)
	}

	if _, err := b.SaveForm("   "); !errors.Is(err, ErrFormNameRequired) {
		t.Fatalf("expected ErrFormNameRequired, got %v", err)
	}
	if b.FieldCount() != 1 {
		t.Fatalf("live schema must survive a rejected save")
	}
	persisted, _ := st.Load()
	if len(persisted) != 0 {
		t.Fatalf("nothing should persist for a blank name")
	}
}

func TestSaveFormStoreFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	b, st := newTestBuilder(t)
	if _, err := b.AddField(model.FieldTypeText); err != nil {
		t.Fatalf("AddField: %v", err)
	}

	st.FailSavesWith(errors.New("disk full"))
	if _, err := b.SaveForm("Doomed"); err == nil {
		t.Fatalf("expected save failure")
	}

	if b.FieldCount() != 1 {
		t.Fatalf("live schema must survive a failed save")
	}
	if len(b.SavedForms()) != 0 {
		t.Fatalf("failed save must not append to the collection")
	}
}

func TestSavedFormIDsAreDistinct(t *testing.T) {
	t.Parallel()

	// the pinned clock makes every save land on the same millisecond
	b, _ := newTestBuilder(t)

	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		if _, err := b.AddField(model.FieldTypeText); err != nil {
			t.Fatalf("AddField: %v", err)
		}
		saved, err := b.SaveForm(fmt.Sprintf("Form %d", i))
		if err != nil {
			t.Fatalf("SaveForm: %v", err)
		}
		if ids[saved.ID] {
			t.Fatalf("duplicate saved-form id %q", saved.ID)
		}
		ids[saved.ID] = true
	}
}

func TestSavedFormLeavesLiveSchemaAlone(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	if _, err := b.AddField(model.FieldTypeText); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	saved, err := b.SaveForm("Stored")
	if err != nil {
		t.Fatalf("SaveForm: %v", err)
	}

	if _, err := b.AddField(model.FieldTypeNumber); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	before := b.CurrentForm()

	form, err := b.SavedForm(saved.ID)
	if err != nil {
		t.Fatalf("SavedForm: %v", err)
	}
	if form.Name != "Stored" {
		t.Fatalf("unexpected form %q", form.Name)
	}
	if diff := cmp.Diff(before, b.CurrentForm()); diff != "" {
		t.Fatalf("read-only lookup changed the live schema:\n%s", diff)
	}

	if _, err := b.SavedForm("nope"); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestSavedFormConcurrentReads(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)

	ids := make([]string, 2)
	for i := range ids {
		if _, err := b.AddField(model.FieldTypeText); err != nil {
			t.Fatalf("AddField: %v", err)
		}
		if err := b.UpdateField(0, FieldPatch{Label: String(fmt.Sprintf("Label %d", i))}); err != nil {
			t.Fatalf("UpdateField: %v", err)
		}
		saved, err := b.SaveForm(fmt.Sprintf("Form %d", i))
		if err != nil {
			t.Fatalf("SaveForm: %v", err)
		}
		ids[i] = saved.ID
	}

	// interleaved readers must each see their own form, never a schema
	// clobbered by another goroutine's lookup
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			wantName := fmt.Sprintf("Form %d", g%2)
			wantLabel := fmt.Sprintf("Label %d", g%2)
			for i := 0; i < 100; i++ {
				form, err := b.SavedForm(ids[g%2])
				if err != nil {
					t.Errorf("SavedForm: %v", err)
					return
				}
				if form.Name != wantName || form.Schema.Fields[0].Label != wantLabel {
					t.Errorf("got %q/%q, want %q/%q",
						form.Name, form.Schema.Fields[0].Label, wantName, wantLabel)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLoadFormForPreviewUnknownID(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	if _, err := b.AddField(model.FieldTypeText); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	before := b.CurrentForm()

	if _, err := b.LoadFormForPreview("nope"); !errors.Is(err, ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
	if diff := cmp.Diff(before, b.CurrentForm()); diff != "" {
		t.Fatalf("unknown id must leave the live schema unchanged:\n%s", diff)
	}
}

func mustField(t *testing.T, b *Builder, index int) model.Field {
	t.Helper()
	field, err := b.Field(index)
	if err != nil {
		t.Fatalf("Field(%d): %v", index, err)
	}
	return field
}
