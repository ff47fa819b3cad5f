package formula

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Evaluator runs parsed formulas against parent values. The zero options use
// the wall clock; tests pin time via WithClock.
type Evaluator struct {
	now func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source used by now() and today().
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Evaluator.
func New(options ...Option) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Evaluate parses and runs a formula in one step.
func (e *Evaluator) Evaluate(source string, parents []any) (any, error) {
	program, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return e.Run(program, parents)
}

// Run evaluates a parsed program. The parents slice is the only state the
// expression can observe.
func (e *Evaluator) Run(program *Program, parents []any) (any, error) {
	if program == nil || program.root == nil {
		return nil, fmt.Errorf("formula: program is nil")
	}
	env := &env{parents: parents, now: e.now}
	return program.root.eval(env)
}

type env struct {
	parents []any
	now     func() time.Time
}

type exprLiteral struct {
	value any
}

func (n exprLiteral) eval(*env) (any, error) {
	return n.value, nil
}

type exprParent struct {
	index int
}

func (n exprParent) eval(env *env) (any, error) {
	if n.index >= len(env.parents) {
		return nil, fmt.Errorf("formula: parent%d is not bound (%d parent value(s) supplied)", n.index, len(env.parents))
	}
	return env.parents[n.index], nil
}

// exprAdd implements the dual-mode + operator: numeric addition when both
// sides coerce to numbers, string concatenation otherwise.
type exprAdd struct {
	left  exprNode
	right exprNode
}

func (n exprAdd) eval(env *env) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}

	leftNum, leftOK := coerceNumber(left)
	rightNum, rightOK := coerceNumber(right)
	if leftOK && rightOK {
		return leftNum + rightNum, nil
	}
	return coerceString(left) + coerceString(right), nil
}

type exprArith struct {
	op    string
	left  exprNode
	right exprNode
}

func (n exprArith) eval(env *env) (any, error) {
	left, err := evalNumber(n.left, env, n.op)
	if err != nil {
		return nil, err
	}
	right, err := evalNumber(n.right, env, n.op)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return nil, fmt.Errorf("formula: division by zero")
		}
		return left / right, nil
	default:
		return nil, fmt.Errorf("formula: unsupported operator %q", n.op)
	}
}

type exprNegate struct {
	inner exprNode
}

func (n exprNegate) eval(env *env) (any, error) {
	value, err := evalNumber(n.inner, env, "-")
	if err != nil {
		return nil, err
	}
	return -value, nil
}

type exprCall struct {
	name   string
	helper helperFunc
	args   []exprNode
}

func (n exprCall) eval(env *env) (any, error) {
	args := make([]any, len(n.args))
	for i, arg := range n.args {
		value, err := arg.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}
	out, err := n.helper.call(env, args)
	if err != nil {
		return nil, fmt.Errorf("formula: %s: %w", n.name, err)
	}
	return out, nil
}

func evalNumber(node exprNode, env *env, op string) (float64, error) {
	value, err := node.eval(env)
	if err != nil {
		return 0, err
	}
	num, ok := coerceNumber(value)
	if !ok {
		return 0, fmt.Errorf("formula: operator %q needs numeric operands, got %q", op, coerceString(value))
	}
	return num, nil
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(value)
	}
}

func coerceTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"} {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
