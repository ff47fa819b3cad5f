package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxDepth caps expression nesting so user-authored formulas stay bounded.
const maxDepth = 64

type exprNode interface {
	eval(env *env) (any, error)
}

type tokenStream struct {
	tokens []token
	pos    int
	depth  int
}

// Program is a parsed formula ready for repeated evaluation.
type Program struct {
	source string
	root   exprNode
}

// Source returns the formula text the program was parsed from.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Parse compiles a formula into a Program. It is the syntax check editing
// surfaces run before committing a derived field configuration.
func Parse(source string) (*Program, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, errors.New("formula: expression is empty")
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.New("formula: expression is empty")
	}

	stream := &tokenStream{tokens: tokens}
	root, err := parseSum(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("formula: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return &Program{source: trimmed, root: root}, nil
}

func parseSum(stream *tokenStream) (exprNode, error) {
	if err := stream.enter(); err != nil {
		return nil, err
	}
	defer stream.leave()

	left, err := parseTerm(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.match(tokenPlus):
			right, err := parseTerm(stream)
			if err != nil {
				return nil, err
			}
			left = exprAdd{left: left, right: right}
		case stream.match(tokenMinus):
			right, err := parseTerm(stream)
			if err != nil {
				return nil, err
			}
			left = exprArith{op: "-", left: left, right: right}
		default:
			return left, nil
		}
	}
}

func parseTerm(stream *tokenStream) (exprNode, error) {
	if err := stream.enter(); err != nil {
		return nil, err
	}
	defer stream.leave()

	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case stream.match(tokenStar):
			right, err := parseUnary(stream)
			if err != nil {
				return nil, err
			}
			left = exprArith{op: "*", left: left, right: right}
		case stream.match(tokenSlash):
			right, err := parseUnary(stream)
			if err != nil {
				return nil, err
			}
			left = exprArith{op: "/", left: left, right: right}
		default:
			return left, nil
		}
	}
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if err := stream.enter(); err != nil {
		return nil, err
	}
	defer stream.leave()

	if stream.match(tokenMinus) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNegate{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if err := stream.enter(); err != nil {
		return nil, err
	}
	defer stream.leave()

	if stream.match(tokenLParen) {
		inner, err := parseSum(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("formula: missing closing ')'")
		}
		return inner, nil
	}

	if tok, ok := stream.consume(tokenNumber); ok {
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("formula: invalid number literal %q", tok.raw)
		}
		return exprLiteral{value: value}, nil
	}
	if tok, ok := stream.consume(tokenString); ok {
		return exprLiteral{value: tok.raw}, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("formula: unexpected end of expression")
		}
		return nil, fmt.Errorf("formula: unexpected token %q", stream.tokens[stream.pos].raw)
	}

	if stream.match(tokenLParen) {
		return parseCall(stream, ident.raw)
	}

	if index, ok := parentIndex(ident.raw); ok {
		return exprParent{index: index}, nil
	}
	return nil, fmt.Errorf("formula: unknown identifier %q", ident.raw)
}

func parseCall(stream *tokenStream, name string) (exprNode, error) {
	helper, ok := helperTable[name]
	if !ok {
		return nil, fmt.Errorf("formula: unknown helper %q", name)
	}

	var args []exprNode
	if stream.match(tokenRParen) {
		return newCall(name, helper, args)
	}
	for {
		arg, err := parseSum(stream)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if stream.match(tokenComma) {
			continue
		}
		if stream.match(tokenRParen) {
			return newCall(name, helper, args)
		}
		if stream.pos >= len(stream.tokens) {
			return nil, fmt.Errorf("formula: missing closing ')' in call to %q", name)
		}
		return nil, fmt.Errorf("formula: unexpected token %q in call to %q", stream.tokens[stream.pos].raw, name)
	}
}

func newCall(name string, helper helperFunc, args []exprNode) (exprNode, error) {
	if len(args) < helper.minArgs {
		return nil, fmt.Errorf("formula: helper %q needs at least %d argument(s)", name, helper.minArgs)
	}
	if helper.maxArgs >= 0 && len(args) > helper.maxArgs {
		return nil, fmt.Errorf("formula: helper %q accepts at most %d argument(s)", name, helper.maxArgs)
	}
	return exprCall{name: name, helper: helper, args: args}, nil
}

// parentIndex recognizes the parentN placeholders.
func parentIndex(ident string) (int, bool) {
	const prefix = "parent"
	if !strings.HasPrefix(ident, prefix) || len(ident) == len(prefix) {
		return 0, false
	}
	index, err := strconv.Atoi(ident[len(prefix):])
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	if s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) enter() error {
	s.depth++
	if s.depth > maxDepth {
		return errors.New("formula: expression nests too deeply")
	}
	return nil
}

func (s *tokenStream) leave() {
	s.depth--
}
