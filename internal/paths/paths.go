// Package paths reads and writes dotted field paths ("social.twitter",
// "phNumbers.1.number") inside nested map[string]any / []any value trees.
package paths

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPath is returned for empty paths or segments that cannot address
// the container they land on.
var ErrInvalidPath = errors.New("paths: invalid path")

// Split breaks a dotted path into trimmed segments. Bracket indices
// ("phNumbers[1].number") are accepted and normalised.
func Split(path string) []string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return nil
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.Split(clean, ".")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Normalize returns the canonical dotted form of path.
func Normalize(path string) string {
	return strings.Join(Split(path), ".")
}

// Get resolves a dotted path inside root.
func Get(root map[string]any, path string) (any, bool) {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return nil, false
	}
	var current any = root
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path, creating intermediate maps and growing slices as
// needed. Slices are re-attached to their parent after growth so callers see
// the new length.
func Set(root map[string]any, path string, value any) error {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	updated, err := setIn(root, segments, value)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPath, path, err)
	}
	if _, ok := updated.(map[string]any); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

func setIn(node any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment := segments[0]
	rest := segments[1:]

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("negative index %d", idx)
		}
		list, _ := node.([]any)
		if node != nil && list == nil {
			if _, isMap := node.(map[string]any); isMap {
				return nil, fmt.Errorf("index %d on object", idx)
			}
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		child, err := setIn(list[idx], rest, value)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	obj, ok := node.(map[string]any)
	if !ok {
		if node != nil {
			if _, isList := node.([]any); isList {
				return nil, fmt.Errorf("key %q on list", segment)
			}
		}
		obj = make(map[string]any)
	}
	child, err := setIn(obj[segment], rest, value)
	if err != nil {
		return nil, err
	}
	obj[segment] = child
	return obj, nil
}

// Delete removes the element at path. Removing a list index shifts the
// following elements down.
func Delete(root map[string]any, path string) error {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	parentPath := strings.Join(segments[:len(segments)-1], ".")
	last := segments[len(segments)-1]

	var parent any = root
	if parentPath != "" {
		found, ok := Get(root, parentPath)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		parent = found
	}

	switch node := parent.(type) {
	case map[string]any:
		delete(node, last)
		return nil
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(node) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		shrunk := append(node[:idx:idx], node[idx+1:]...)
		return Set(root, parentPath, shrunk)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
}

// Clone deep copies maps and slices; other values are copied by assignment.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, child := range typed {
			out[idx] = Clone(child)
		}
		return out
	default:
		return typed
	}
}

// CloneMap deep copies a value tree, returning an empty map for nil input.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return make(map[string]any)
	}
	return Clone(src).(map[string]any)
}

// Equal compares two value trees. Dates compare by instant and NaN numbers
// compare equal to each other.
func Equal(a, b any) bool {
	switch left := a.(type) {
	case time.Time:
		right, ok := b.(time.Time)
		return ok && left.Equal(right)
	case float64:
		right, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(left) && math.IsNaN(right) {
			return true
		}
		return left == right
	case map[string]any:
		right, ok := b.(map[string]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for key, value := range left {
			other, exists := right[key]
			if !exists || !Equal(value, other) {
				return false
			}
		}
		return true
	case []any:
		right, ok := b.([]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for idx := range left {
			if !Equal(left[idx], right[idx]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Leaves flattens a value tree into dotted paths pointing at scalar values.
// Empty containers are reported at their own path so they are not lost.
func Leaves(root map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", root, out)
	return out
}

// LeavesAt flattens the subtree found at prefix, keeping full paths. A missing
// prefix yields an empty map.
func LeavesAt(root map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	clean := Normalize(prefix)
	if clean == "" {
		flatten("", root, out)
		return out
	}
	value, ok := Get(root, clean)
	if !ok {
		return out
	}
	flatten(clean, value, out)
	return out
}

func flatten(prefix string, value any, out map[string]any) {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 && prefix != "" {
			out[prefix] = typed
			return
		}
		for key, child := range typed {
			flatten(join(prefix, key), child, out)
		}
	case []any:
		if len(typed) == 0 && prefix != "" {
			out[prefix] = typed
			return
		}
		for idx, child := range typed {
			flatten(join(prefix, strconv.Itoa(idx)), child, out)
		}
	default:
		if prefix != "" {
			out[prefix] = typed
		}
	}
}

// Match reports whether a concrete path matches a pattern that may use "*"
// for any single segment.
func Match(pattern, path string) bool {
	want := Split(pattern)
	got := Split(path)
	if len(want) != len(got) {
		return false
	}
	for idx := range want {
		if want[idx] == "*" {
			continue
		}
		if want[idx] != got[idx] {
			return false
		}
	}
	return true
}

// Within reports whether path equals prefix or lives underneath it.
func Within(path, prefix string) bool {
	p := Normalize(path)
	pre := Normalize(prefix)
	if pre == "" {
		return true
	}
	return p == pre || strings.HasPrefix(p, pre+".")
}

// SortedKeys returns the keys of a path-keyed map in lexical order.
func SortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func join(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
