package render

import (
	"strings"

	"github.com/goliatone/go-formstate/internal/paths"
)

// ErrorMapping splits an error payload into field-level messages keyed by
// dotted value paths and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates message slices, trimming whitespace and
// dropping duplicates while keeping order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload assigns each payload entry to the deepest value path it
// names. Keys may be dotted paths, JSON pointers ("/social/twitter") or
// bracketed paths ("phNumbers[1].number"), optionally wrapped in "body" or
// "data" segments. Keys that match no value become form-level messages.
func MapErrorPayload(values map[string]any, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := knownPaths(values)
	for _, key := range paths.SortedKeys(payload) {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		target := mapErrorPath(key, known)
		if target == "" {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[target] = normalizeMessages(append(mapping.Fields[target], messages...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// knownPaths lists every leaf path and each of its parents.
func knownPaths(values map[string]any) map[string]struct{} {
	known := make(map[string]struct{})
	for leaf := range paths.Leaves(values) {
		segments := paths.Split(leaf)
		for end := 1; end <= len(segments); end++ {
			known[strings.Join(segments[:end], ".")] = struct{}{}
		}
	}
	return known
}

func mapErrorPath(raw string, known map[string]struct{}) string {
	if isFormLevelKey(raw) {
		return ""
	}
	segments := parsePathSegments(raw)
	if len(segments) == 0 {
		return ""
	}
	best := longestMatchingPath(segments, known)
	if unwrapped := dropWrapperSegments(segments); len(unwrapped) != len(segments) {
		if candidate := longestMatchingPath(unwrapped, known); len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
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

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#")
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "values":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func longestMatchingPath(segments []string, known map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "root", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
