package devtool

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Logger writes the form flags on every state transition and the values on
// every change.
type Logger struct {
	logger *slog.Logger
	once   sync.Once
	subs   []*form.Subscription
}

// AttachLogger subscribes a Logger to ctrl. Call Close to detach.
func AttachLogger(ctrl *form.Controller, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{logger: logger.With("component", "devtool")}
	l.subs = append(l.subs,
		ctrl.Subscribe(l.logState),
		ctrl.Watch(l.logValues),
	)
	return l
}

func (l *Logger) logState(state form.FormState) {
	l.logger.Info("form state",
		"isDirty", state.IsDirty,
		"isValid", state.IsValid,
		"isValidating", state.IsValidating,
		"isSubmitting", state.IsSubmitting,
		"isSubmitted", state.IsSubmitted,
		"isSubmitSuccessful", state.IsSubmitSuccessful,
		"submitCount", state.SubmitCount,
		"touched", flagged(state.TouchedFields),
		"dirty", flagged(state.DirtyFields),
	)
	if len(state.Errors) > 0 {
		l.logger.Warn("form errors", "errors", state.Errors.Messages())
	}
}

func (l *Logger) logValues(values map[string]any, changed string) {
	l.logger.Debug("form values", "changed", changed, "values", values)
}

// Close detaches the logger. It is safe to call more than once.
func (l *Logger) Close() {
	l.once.Do(func() {
		for _, sub := range l.subs {
			sub.Unsubscribe()
		}
	})
}

func flagged(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for path, set := range flags {
		if set {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
