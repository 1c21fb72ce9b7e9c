package tui

import (
	"context"
	"log/slog"
	"strings"
)

// Action is an extra menu entry offered by a Session.
type Action struct {
	Label string
	Run   func(ctx context.Context) error
}

// SubmitFunc performs the Submit menu action.
type SubmitFunc func(ctx context.Context) error

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt implementation (useful for tests).
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithSubmit replaces the default submit action, which runs HandleSubmit and
// prints the values or the errors.
func WithSubmit(fn SubmitFunc) Option {
	return func(s *Session) {
		s.submit = fn
	}
}

// WithAction appends a menu entry shown before "Quit".
func WithAction(label string, run func(ctx context.Context) error) Option {
	return func(s *Session) {
		label = strings.TrimSpace(label)
		if label == "" || run == nil {
			return
		}
		s.actions = append(s.actions, Action{Label: label, Run: run})
	}
}

// WithWatch names the value shown in the heading.
func WithWatch(path string) Option {
	return func(s *Session) {
		s.watch = path
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
