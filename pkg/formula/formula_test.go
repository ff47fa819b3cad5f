package formula

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(t *testing.T) Option {
	t.Helper()
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	return WithClock(func() time.Time { return now })
}

func TestEvaluateNumericAddition(t *testing.T) {
	t.Parallel()

	eval := New()
	out, err := eval.Evaluate("parent0 + parent1", []any{"3", "4"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != 7.0 {
		t.Fatalf("expected 7, got %v", out)
	}
}

func TestEvaluateStringConcatenation(t *testing.T) {
	t.Parallel()

	eval := New()
	out, err := eval.Evaluate("parent0 + parent1", []any{"foo", "bar"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != "foobar" {
		t.Fatalf("expected foobar, got %v", out)
	}

	// mixed operands fall back to concatenation as well
	out, err = eval.Evaluate(`parent0 + " items"`, []any{"3"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != "3 items" {
		t.Fatalf("expected %q, got %v", "3 items", out)
	}
}

func TestEvaluatePrecedenceAndParens(t *testing.T) {
	t.Parallel()

	eval := New()

	out, err := eval.Evaluate("2 + 3 * 4", nil)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != 14.0 {
		t.Fatalf("expected 14, got %v", out)
	}

	out, err = eval.Evaluate("(2 + 3) * 4", nil)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != 20.0 {
		t.Fatalf("expected 20, got %v", out)
	}

	out, err = eval.Evaluate("-parent0 * 2", []any{"5"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != -10.0 {
		t.Fatalf("expected -10, got %v", out)
	}
}

func TestEvaluateHelpers(t *testing.T) {
	t.Parallel()

	eval := New(fixedClock(t))

	cases := []struct {
		name    string
		source  string
		parents []any
		want    any
	}{
		{"floor", "floor(3.9)", nil, 3.0},
		{"ceil", "ceil(3.1)", nil, 4.0},
		{"round", "round(2.5)", nil, 3.0},
		{"abs", "abs(0 - 4)", nil, 4.0},
		{"min", "min(3, 1, 2)", nil, 1.0},
		{"max", "max(parent0, 10)", []any{"25"}, 25.0},
		{"len", `len(parent0)`, []any{"hello"}, 5.0},
		{"concat", `concat(upper(parent0), "-", lower("WORLD"))`, []any{"go"}, "GO-world"},
		{"trim", `trim("  x  ")`, nil, "x"},
		{"year", `year(date("2001-07-04"))`, nil, 2001.0},
		{"number", `number("12.5") * 2`, nil, 25.0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := eval.Evaluate(tc.source, tc.parents)
			if err != nil {
				t.Fatalf("Evaluate(%q) returned error: %v", tc.source, err)
			}
			if out != tc.want {
				t.Fatalf("Evaluate(%q) = %v, want %v", tc.source, out, tc.want)
			}
		})
	}
}

func TestEvaluateAgeFromBirthdate(t *testing.T) {
	t.Parallel()

	eval := New(fixedClock(t))
	out, err := eval.Evaluate("floor(yearsBetween(date(parent0), today()))", []any{"1990-03-20"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if out != 33.0 {
		t.Fatalf("expected age 33, got %v", out)
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	eval := New()

	cases := []struct {
		name    string
		source  string
		parents []any
		wantMsg string
	}{
		{"empty", "   ", nil, "empty"},
		{"unknown helper", "bogus(1)", nil, `unknown helper "bogus"`},
		{"unknown identifier", "parent", nil, `unknown identifier "parent"`},
		{"unbound parent", "parent2 + 1", []any{"1"}, "parent2 is not bound"},
		{"division by zero", "1 / 0", nil, "division by zero"},
		{"unterminated string", `concat("abc`, nil, "unterminated string"},
		{"missing paren", "(1 + 2", nil, "missing closing"},
		{"non numeric operand", `"a" * 2`, nil, "numeric operands"},
		{"bad date", `date("not a date")`, nil, "cannot parse"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := eval.Evaluate(tc.source, tc.parents)
			if err == nil {
				t.Fatalf("Evaluate(%q) expected error", tc.source)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("Evaluate(%q) error %q does not mention %q", tc.source, err, tc.wantMsg)
			}
		})
	}
}

func TestParseRejectsDeepNesting(t *testing.T) {
	t.Parallel()

	source := strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100)
	if _, err := Parse(source); err == nil {
		t.Fatalf("expected depth error")
	}
}

func TestParseThenRunReusesProgram(t *testing.T) {
	t.Parallel()

	program, err := Parse("parent0 * parent1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if program.Source() != "parent0 * parent1" {
		t.Fatalf("unexpected source %q", program.Source())
	}

	eval := New()
	for _, pair := range [][2]string{{"2", "3"}, {"4", "5"}} {
		out, err := eval.Run(program, []any{pair[0], pair[1]})
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		want, _ := coerceNumber(pair[0])
		other, _ := coerceNumber(pair[1])
		if out != want*other {
			t.Fatalf("Run(%v) = %v", pair, out)
		}
	}
}
