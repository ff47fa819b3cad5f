package prompt

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Script replays a fixed sequence of answers. Command flows run against
// it in tests instead of a terminal.
type Script struct {
	mu      sync.Mutex
	answers []any
	infos   []string
}

// NewScript queues answers in the order prompts will consume them.
// Input and TextArea pop a string, Confirm a bool, Select an int, and
// MultiSelect an []int.
func NewScript(answers ...any) *Script {
	return &Script{answers: answers}
}

// Infos returns every message printed through Info.
func (s *Script) Infos() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.infos))
	copy(out, s.infos)
	return out
}

// Remaining reports how many queued answers were never consumed.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Script) Input(ctx context.Context, cfg InputConfig) (string, error) {
	answer, err := next[string](s, "input")
	if err != nil {
		return "", err
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (s *Script) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	return next[bool](s, "confirm")
}

func (s *Script) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	index, err := next[int](s, "select")
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(cfg.Options) {
		return 0, fmt.Errorf("prompt: scripted select index %d out of range for %d options", index, len(cfg.Options))
	}
	return index, nil
}

func (s *Script) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	return next[[]int](s, "multiselect")
}

func (s *Script) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	return next[string](s, "textarea")
}

func (s *Script) Info(ctx context.Context, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, strings.TrimRight(msg, "\n"))
	return nil
}

func next[T any](s *Script, kind string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if len(s.answers) == 0 {
		return zero, fmt.Errorf("prompt: script exhausted answering %s", kind)
	}
	head := s.answers[0]
	s.answers = s.answers[1:]

	answer, ok := head.(T)
	if !ok {
		return zero, fmt.Errorf("prompt: scripted %s answer has type %T", kind, head)
	}
	return answer, nil
}
