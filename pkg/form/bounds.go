package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/internal/paths"
)

// checkArrayWriteLocked rejects a write at path that would break a list
// bound: fixed lists keep exactly their slot count, dynamic lists only grow
// at their end and never drop below their minimum rows.
func (c *Controller) checkArrayWriteLocked(path string, value any) error {
	target := paths.Split(path)
	for arrayPath, slots := range c.fixedRows {
		if err := c.checkListLocked(target, value, arrayPath, slots, true); err != nil {
			return err
		}
	}
	for arrayPath, minRows := range c.minRows {
		if err := c.checkListLocked(target, value, arrayPath, minRows, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) checkListLocked(target []string, value any, arrayPath string, bound int, fixed bool) error {
	list := paths.Split(arrayPath)
	switch {
	case len(target) > len(list) && hasPrefix(target, list):
		segment := target[len(list)]
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 {
			return fmt.Errorf("%w: %s: %q is not a row index", ErrInvalidPath, arrayPath, segment)
		}
		if fixed {
			if idx >= bound {
				return fmt.Errorf("%w: %s has %d slots", ErrInvalidPath, arrayPath, bound)
			}
			return nil
		}
		current, _ := paths.Get(c.values, arrayPath)
		rows, _ := current.([]any)
		if idx > len(rows) {
			return fmt.Errorf("%w: %s.%d skips rows after index %d", ErrInvalidPath, arrayPath, idx, len(rows)-1)
		}
		return nil

	case hasPrefix(list, target):
		replacement := value
		if rest := list[len(target):]; len(rest) > 0 {
			replacement = nil
			if nested, ok := value.(map[string]any); ok {
				replacement, _ = paths.Get(nested, strings.Join(rest, "."))
			}
		}
		n, isList := listLen(replacement)
		if replacement != nil && !isList {
			return fmt.Errorf("%w: %s must be a list", ErrInvalidPath, arrayPath)
		}
		if fixed && n != bound {
			return fmt.Errorf("%w: %s needs exactly %d slots, got %d", ErrInvalidPath, arrayPath, bound, n)
		}
		if !fixed && n < bound {
			return fmt.Errorf("%w: %s keeps at least %d, got %d", ErrMinRows, arrayPath, bound, n)
		}
	}
	return nil
}

func hasPrefix(segments, prefix []string) bool {
	if len(prefix) > len(segments) {
		return false
	}
	for idx, part := range prefix {
		if segments[idx] != part {
			return false
		}
	}
	return true
}

// listLen reports the length of any slice or array value.
func listLen(value any) (int, bool) {
	if value == nil {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}
