package formula

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// helperFunc describes one whitelisted helper. maxArgs of -1 means variadic.
type helperFunc struct {
	minArgs int
	maxArgs int
	call    func(env *env, args []any) (any, error)
}

// helperTable is the complete capability surface of the language. Formulas
// cannot reach anything outside this table and their parent values.
var helperTable = map[string]helperFunc{
	"now": {0, 0, func(env *env, _ []any) (any, error) {
		return env.now(), nil
	}},
	"today": {0, 0, func(env *env, _ []any) (any, error) {
		now := env.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}},
	"date": {1, 1, func(_ *env, args []any) (any, error) {
		parsed, ok := coerceTime(args[0])
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as a date", coerceString(args[0]))
		}
		return parsed, nil
	}},
	"year":  {1, 1, datePart(func(t time.Time) float64 { return float64(t.Year()) })},
	"month": {1, 1, datePart(func(t time.Time) float64 { return float64(t.Month()) })},
	"day":   {1, 1, datePart(func(t time.Time) float64 { return float64(t.Day()) })},
	"daysBetween": {2, 2, func(_ *env, args []any) (any, error) {
		from, to, err := timePair(args)
		if err != nil {
			return nil, err
		}
		return to.Sub(from).Hours() / 24, nil
	}},
	"yearsBetween": {2, 2, func(_ *env, args []any) (any, error) {
		from, to, err := timePair(args)
		if err != nil {
			return nil, err
		}
		return to.Sub(from).Hours() / 24 / 365.25, nil
	}},
	"floor": {1, 1, numeric1(math.Floor)},
	"ceil":  {1, 1, numeric1(math.Ceil)},
	"round": {1, 1, numeric1(math.Round)},
	"abs":   {1, 1, numeric1(math.Abs)},
	"sqrt":  {1, 1, numeric1(math.Sqrt)},
	"min":   {1, -1, numericFold(math.Min)},
	"max":   {1, -1, numericFold(math.Max)},
	"number": {1, 1, func(_ *env, args []any) (any, error) {
		num, ok := coerceNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to a number", coerceString(args[0]))
		}
		return num, nil
	}},
	"len": {1, 1, func(_ *env, args []any) (any, error) {
		return float64(len([]rune(coerceString(args[0])))), nil
	}},
	"trim":  {1, 1, text1(strings.TrimSpace)},
	"upper": {1, 1, text1(strings.ToUpper)},
	"lower": {1, 1, text1(strings.ToLower)},
	"concat": {0, -1, func(_ *env, args []any) (any, error) {
		out := ""
		for _, arg := range args {
			out += coerceString(arg)
		}
		return out, nil
	}},
}

func datePart(part func(time.Time) float64) func(*env, []any) (any, error) {
	return func(_ *env, args []any) (any, error) {
		parsed, ok := coerceTime(args[0])
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as a date", coerceString(args[0]))
		}
		return part(parsed), nil
	}
}

func timePair(args []any) (time.Time, time.Time, error) {
	from, ok := coerceTime(args[0])
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("cannot parse %q as a date", coerceString(args[0]))
	}
	to, ok := coerceTime(args[1])
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("cannot parse %q as a date", coerceString(args[1]))
	}
	return from, to, nil
}

func numeric1(fn func(float64) float64) func(*env, []any) (any, error) {
	return func(_ *env, args []any) (any, error) {
		num, ok := coerceNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("needs a numeric argument, got %q", coerceString(args[0]))
		}
		return fn(num), nil
	}
}

func numericFold(fn func(float64, float64) float64) func(*env, []any) (any, error) {
	return func(_ *env, args []any) (any, error) {
		if len(args) == 0 {
			return nil, errors.New("needs at least one argument")
		}
		acc, ok := coerceNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("needs numeric arguments, got %q", coerceString(args[0]))
		}
		for _, arg := range args[1:] {
			num, ok := coerceNumber(arg)
			if !ok {
				return nil, fmt.Errorf("needs numeric arguments, got %q", coerceString(arg))
			}
			acc = fn(acc, num)
		}
		return acc, nil
	}
}

func text1(fn func(string) string) func(*env, []any) (any, error) {
	return func(_ *env, args []any) (any, error) {
		return fn(coerceString(args[0])), nil
	}
}
