package form

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Mode selects which user events trigger field validation.
type Mode string

const (
	ModeOnBlur    Mode = "onBlur"
	ModeOnChange  Mode = "onChange"
	ModeOnSubmit  Mode = "onSubmit"
	ModeOnTouched Mode = "onTouched"
	ModeAll       Mode = "all"
)

func (m Mode) valid() bool {
	switch m {
	case ModeOnBlur, ModeOnChange, ModeOnSubmit, ModeOnTouched, ModeAll:
		return true
	}
	return false
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(value string) (Mode, bool) {
	mode := Mode(strings.TrimSpace(value))
	return mode, mode.valid()
}

type field struct {
	path         string
	rules        validation.RuleSet
	coercion     Coercion
	disabled     condition.Func
	disabledExpr string
}

// FieldOption customises a registered field.
type FieldOption func(*field)

// WithCoercion converts raw input before it is stored.
func WithCoercion(coercion Coercion) FieldOption {
	return func(f *field) {
		f.coercion = coercion
	}
}

// DisabledWhen disables the field while fn reports true. Disabled fields keep
// their value but skip validation.
func DisabledWhen(fn condition.Func) FieldOption {
	return func(f *field) {
		f.disabled = fn
	}
}

// DisabledWhenExpr is DisabledWhen with an expression compiled by the
// controller's condition compiler (`channel == ""`).
func DisabledWhenExpr(expression string) FieldOption {
	return func(f *field) {
		f.disabledExpr = expression
	}
}

// shouldSkipValidation decides whether a change or blur event validates the
// field under the active mode.
func shouldSkipValidation(isBlurEvent, isTouched, isSubmitted bool, mode, reValidateMode Mode) bool {
	if mode == ModeAll {
		return false
	}
	if !isSubmitted && mode == ModeOnTouched {
		return !(isTouched || isBlurEvent)
	}
	active := mode
	if isSubmitted {
		active = reValidateMode
	}
	switch active {
	case ModeOnBlur:
		return !isBlurEvent
	case ModeOnChange:
		return isBlurEvent
	}
	return true
}

func (c *Controller) fieldForLocked(path string) *field {
	if f, ok := c.fields[path]; ok {
		return f
	}
	for _, pattern := range c.order {
		if paths.Match(pattern, path) {
			return c.fields[pattern]
		}
	}
	return nil
}

func (c *Controller) disabledLocked(f *field) bool {
	return f.disabled != nil && f.disabled(c.values)
}

// targetsLocked expands every registered pattern into concrete paths using
// the current rows of each field array.
func (c *Controller) targetsLocked() []string {
	var out []string
	for _, pattern := range c.order {
		out = append(out, expand(c.values, paths.Split(pattern), "")...)
	}
	return out
}

// selectLocked resolves caller supplied paths (exact, prefix or wildcard) to
// concrete registered paths.
func (c *Controller) selectLocked(filters []string) ([]string, error) {
	all := c.targetsLocked()
	if len(filters) == 0 {
		return all, nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, raw := range filters {
		filter := paths.Normalize(raw)
		if filter == "" {
			return nil, ErrInvalidPath
		}
		matched := false
		for _, target := range all {
			if paths.Within(target, filter) || paths.Match(filter, target) {
				matched = true
				if !seen[target] {
					seen[target] = true
					out = append(out, target)
				}
			}
		}
		if !matched && c.fieldForLocked(filter) == nil {
			return nil, ErrNotRegistered
		}
	}
	return out, nil
}

func expand(root map[string]any, segments []string, prefix string) []string {
	for idx, segment := range segments {
		if segment != model.Wildcard {
			continue
		}
		base := model.JoinPath(prefix, strings.Join(segments[:idx], "."))
		value, _ := paths.Get(root, base)
		rows, _ := value.([]any)
		var out []string
		for row := range rows {
			out = append(out, expand(root, segments[idx+1:], model.JoinPath(base, strconv.Itoa(row)))...)
		}
		return out
	}
	return []string{model.JoinPath(prefix, strings.Join(segments, "."))}
}
