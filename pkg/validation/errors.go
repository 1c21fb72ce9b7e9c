package validation

import (
	"sort"
	"strings"
)

// Kind classifies a field error.
type Kind string

const (
	// KindRequired marks a required field left empty.
	KindRequired Kind = "required"
	// KindPattern marks a value that does not match the field pattern.
	KindPattern Kind = "pattern"
	// KindMin and KindMax mark numeric bound violations.
	KindMin Kind = "min"
	KindMax Kind = "max"
	// KindMinLength and KindMaxLength mark text length violations.
	KindMinLength Kind = "minLength"
	KindMaxLength Kind = "maxLength"
	// KindValidate marks a failing named synchronous rule.
	KindValidate Kind = "validate"
	// KindAsync marks a failing named asynchronous rule.
	KindAsync Kind = "async"
)

// FieldError describes why a single field is invalid. Rule holds the rule
// name ("required", "pattern", or the custom name such as "notAdmin"). When
// the rule set records every failure, Types maps each failing rule name to
// its message; the first failure stays in Kind/Rule/Message.
type FieldError struct {
	Kind    Kind              `json:"kind"`
	Rule    string            `json:"rule"`
	Message string            `json:"message"`
	Types   map[string]string `json:"types,omitempty"`
}

// Error implements error so field errors can travel through error returns.
func (e FieldError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Has reports whether rule failed, either as the primary failure or as one of
// the recorded Types.
func (e FieldError) Has(rule string) bool {
	if e.Rule == rule {
		return true
	}
	_, ok := e.Types[rule]
	return ok
}

// Errors maps dotted field paths to their error.
type Errors map[string]FieldError

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	if len(e) == 0 {
		return Errors{}
	}
	out := make(Errors, len(e))
	for path, fieldErr := range e {
		copied := fieldErr
		if len(fieldErr.Types) > 0 {
			copied.Types = make(map[string]string, len(fieldErr.Types))
			for name, msg := range fieldErr.Types {
				copied.Types[name] = msg
			}
		}
		out[path] = copied
	}
	return out
}

// Message returns the primary message for path, or an empty string.
func (e Errors) Message(path string) string {
	if fieldErr, ok := e[path]; ok {
		return fieldErr.Message
	}
	return ""
}

// Paths lists the failing paths in lexical order.
func (e Errors) Paths() []string {
	out := make([]string, 0, len(e))
	for path := range e {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Messages flattens errors into path -> messages, primary message first and
// the remaining recorded failures in rule-name order.
func (e Errors) Messages() map[string][]string {
	if len(e) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e))
	for path, fieldErr := range e {
		messages := []string{fieldErr.Message}
		names := make([]string, 0, len(fieldErr.Types))
		for name := range fieldErr.Types {
			if name != fieldErr.Rule {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			messages = append(messages, fieldErr.Types[name])
		}
		out[path] = normalizeMessages(messages)
	}
	return out
}

func normalizeMessages(messages []string) []string {
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
