package derive

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formbuilder/pkg/formula"
	"github.com/goliatone/go-formbuilder/pkg/model"
)

func schemaWithSum(t *testing.T) []model.Field {
	t.Helper()
	return []model.Field{
		{ID: "a", Type: model.FieldTypeNumber, Label: "A"},
		{ID: "b", Type: model.FieldTypeNumber, Label: "B"},
		{
			ID:           "sum",
			Type:         model.FieldTypeNumber,
			Label:        "Sum",
			Derived:      true,
			ParentFields: []int{0, 1},
			Formula:      "parent0 + parent1",
		},
	}
}

func TestRecomputeSum(t *testing.T) {
	t.Parallel()

	engine := New()
	fields := schemaWithSum(t)
	values := []any{"3", "4", nil}

	issues := engine.Recompute(fields, values)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if values[2] != 7.0 {
		t.Fatalf("expected derived value 7, got %v", values[2])
	}

	// change a parent, recompute again
	values[0] = "10"
	engine.Recompute(fields, values)
	if values[2] != 14.0 {
		t.Fatalf("expected derived value 14 after parent change, got %v", values[2])
	}
}

func TestRecomputeNormalizesParents(t *testing.T) {
	t.Parallel()

	engine := New()
	fields := []model.Field{
		{ID: "name", Type: model.FieldTypeText},
		{
			ID:           "greeting",
			Type:         model.FieldTypeText,
			Derived:      true,
			ParentFields: []int{0},
			Formula:      `concat("hi ", parent0)`,
		},
	}
	values := []any{"  Ada  ", nil}

	engine.Recompute(fields, values)
	if values[1] != "hi Ada" {
		t.Fatalf("expected trimmed parent, got %v", values[1])
	}

	// absent parents substitute as empty strings
	values = []any{nil, nil}
	engine.Recompute(fields, values)
	if values[1] != "hi " {
		t.Fatalf("expected empty substitution, got %v", values[1])
	}
}

func TestRecomputeFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	engine := New()
	fields := []model.Field{
		{ID: "a", Type: model.FieldTypeText},
		{
			ID:           "bad",
			Type:         model.FieldTypeText,
			Derived:      true,
			ParentFields: []int{0},
			Formula:      "undefinedHelper(parent0)",
		},
		{
			ID:           "good",
			Type:         model.FieldTypeText,
			Derived:      true,
			ParentFields: []int{0},
			Formula:      "upper(parent0)",
		},
	}
	values := []any{"ok", "stale", nil}

	issues := engine.Recompute(fields, values)
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", issues)
	}
	if issues[0].FieldIndex != 1 || issues[0].FieldID != "bad" {
		t.Fatalf("unexpected issue target: %+v", issues[0])
	}
	if !strings.Contains(issues[0].Err.Error(), "unknown helper") {
		t.Fatalf("unexpected issue error: %v", issues[0].Err)
	}
	if values[1] != "" {
		t.Fatalf("failed field should reset to empty, got %v", values[1])
	}
	// the rest of the form keeps working
	if values[2] != "OK" {
		t.Fatalf("sibling derived field should still evaluate, got %v", values[2])
	}
}

func TestRecomputeSkipsInactiveFields(t *testing.T) {
	t.Parallel()

	engine := New()
	fields := []model.Field{
		{ID: "a", Type: model.FieldTypeText},
		{ID: "half", Type: model.FieldTypeText, Derived: true}, // no parents/formula yet
	}
	values := []any{"x", "untouched"}

	if issues := engine.Recompute(fields, values); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if values[1] != "untouched" {
		t.Fatalf("inactive derived field must not change, got %v", values[1])
	}
}

func TestRecomputeEvaluatesEachFieldOnce(t *testing.T) {
	t.Parallel()

	// A derived field whose parent list somehow points at another derived
	// field (bypassing CheckParents) must still terminate in one pass.
	engine := New()
	fields := []model.Field{
		{ID: "a", Type: model.FieldTypeNumber},
		{ID: "d1", Type: model.FieldTypeNumber, Derived: true, ParentFields: []int{0}, Formula: "parent0 + 1"},
		{ID: "d2", Type: model.FieldTypeNumber, Derived: true, ParentFields: []int{1}, Formula: "parent0 + 1"},
	}
	values := []any{"1", nil, nil}

	done := make(chan struct{})
	go func() {
		engine.Recompute(fields, values)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("recompute did not terminate")
	}

	if values[1] != 2.0 {
		t.Fatalf("expected d1=2, got %v", values[1])
	}
	// d2 saw d1's value from this pass (field order); either way it ran once
	if values[2] != 3.0 {
		t.Fatalf("expected d2=3, got %v", values[2])
	}
}

func TestRecomputeWithFixedClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	eval := formula.New(formula.WithClock(func() time.Time { return now }))
	engine := New(WithEvaluator(eval))

	fields := []model.Field{
		{ID: "dob", Type: model.FieldTypeDate, Label: "Birthdate"},
		{
			ID:           "age",
			Type:         model.FieldTypeNumber,
			Label:        "Age",
			Derived:      true,
			ParentFields: []int{0},
			Formula:      "floor(yearsBetween(date(parent0), today()))",
		},
	}
	values := []any{"2000-01-01", nil}

	if issues := engine.Recompute(fields, values); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if values[1] != 24.0 {
		t.Fatalf("expected age 24, got %v", values[1])
	}
}

func TestCheckParents(t *testing.T) {
	t.Parallel()

	fields := []model.Field{
		{ID: "a"},
		{ID: "b", Derived: true, ParentFields: []int{0}, Formula: "parent0"},
		{ID: "c"},
		{ID: "d", Derived: true},
	}

	cases := []struct {
		name    string
		index   int
		parents []int
		wantErr string
	}{
		{"valid", 3, []int{0, 2}, ""},
		{"empty parents", 3, nil, "at least one parent"},
		{"self reference", 3, []int{3}, "itself"},
		{"forward reference", 1, []int{2}, "after the derived field"},
		{"derived parent", 3, []int{1}, "itself derived"},
		{"out of range", 3, []int{9}, "out of range"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := CheckParents(fields, tc.index, tc.parents)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
