package formula

import (
	"errors"
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenNumber
	tokenString
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenComma
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	consume := func() byte {
		if i >= len(input) {
			return 0
		}
		ch := input[i]
		i++
		return ch
	}

	for i < len(input) {
		ch := next()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			consume()
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			continue
		case ')':
			consume()
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			continue
		case ',':
			consume()
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
			continue
		case '+':
			consume()
			tokens = append(tokens, token{kind: tokenPlus, raw: "+"})
			continue
		case '-':
			consume()
			tokens = append(tokens, token{kind: tokenMinus, raw: "-"})
			continue
		case '*':
			consume()
			tokens = append(tokens, token{kind: tokenStar, raw: "*"})
			continue
		case '/':
			consume()
			tokens = append(tokens, token{kind: tokenSlash, raw: "/"})
			continue
		case '"', '\'':
			quote := consume()
			start := i
			escaped := false
			for i < len(input) {
				c := consume()
				if escaped {
					escaped = false
					continue
				}
				if c == '\\' {
					escaped = true
					continue
				}
				if c == quote {
					// quotes re-attached for strconv.Unquote
					raw := `"` + input[start:i-1] + `"`
					value, err := strconv.Unquote(raw)
					if err != nil {
						return nil, fmt.Errorf("formula: invalid string literal: %w", err)
					}
					tokens = append(tokens, token{kind: tokenString, raw: value})
					goto nextToken
				}
			}
			return nil, errors.New("formula: unterminated string literal")
		default:
			if isDigit(ch) || ch == '.' {
				start := i
				for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
					i++
				}
				raw := input[start:i]
				if _, err := strconv.ParseFloat(raw, 64); err != nil {
					return nil, fmt.Errorf("formula: invalid number literal %q", raw)
				}
				tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				continue
			}
			if isIdentStart(ch) {
				start := i
				for i < len(input) && isIdentPart(input[i]) {
					i++
				}
				tokens = append(tokens, token{kind: tokenIdentifier, raw: input[start:i]})
				continue
			}
			return nil, fmt.Errorf("formula: unexpected character %q", string(ch))
		}

	nextToken:
		continue
	}

	return tokens, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
