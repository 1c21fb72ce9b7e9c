package form

import (
	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// FormState is a read-only snapshot of the derived form status.
type FormState struct {
	IsLoading          bool              `json:"isLoading"`
	IsDirty            bool              `json:"isDirty"`
	DirtyFields        map[string]bool   `json:"dirtyFields"`
	TouchedFields      map[string]bool   `json:"touchedFields"`
	IsValid            bool              `json:"isValid"`
	IsValidating       bool              `json:"isValidating"`
	IsSubmitting       bool              `json:"isSubmitting"`
	IsSubmitted        bool              `json:"isSubmitted"`
	IsSubmitSuccessful bool              `json:"isSubmitSuccessful"`
	SubmitCount        int               `json:"submitCount"`
	Errors             validation.Errors `json:"errors"`
}

// Error returns the primary message for path, or an empty string.
func (s FormState) Error(path string) string {
	return s.Errors.Message(path)
}

// State returns a snapshot of the current form status.
func (c *Controller) State() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() FormState {
	return FormState{
		IsLoading:          c.loading,
		IsDirty:            len(c.dirty) > 0,
		DirtyFields:        copyFlags(c.dirty),
		TouchedFields:      copyFlags(c.touched),
		IsValid:            c.validLocked(),
		IsValidating:       len(c.pending) > 0,
		IsSubmitting:       c.isSubmitting,
		IsSubmitted:        c.isSubmitted,
		IsSubmitSuccessful: c.isSubmitSuccessful,
		SubmitCount:        c.submitCount,
		Errors:             c.errors.Clone(),
	}
}

// validLocked runs every synchronous rule silently over the enabled fields and
// folds in surfaced asynchronous failures, so the flag tracks the latest edit
// whatever the validation mode.
func (c *Controller) validLocked() bool {
	if c.loading {
		return false
	}
	for _, target := range c.targetsLocked() {
		f := c.fieldForLocked(target)
		if f == nil || c.disabledLocked(f) {
			continue
		}
		value, _ := paths.Get(c.values, target)
		if f.rules.ValidateSync(value, validation.CriteriaFirstError) != nil {
			return false
		}
		if fieldErr, ok := c.errors[target]; ok && fieldErr.Kind == validation.KindAsync {
			return false
		}
	}
	return true
}

// refreshDirtyLocked recomputes dirty flags for every leaf under prefix by
// comparing current values against the defaults.
func (c *Controller) refreshDirtyLocked(prefix string) {
	for path := range c.dirty {
		if paths.Within(path, prefix) {
			delete(c.dirty, path)
		}
	}
	current := paths.LeavesAt(c.values, prefix)
	initial := paths.LeavesAt(c.defaults, prefix)
	for path, value := range current {
		if base, ok := initial[path]; !ok || !paths.Equal(base, value) {
			c.dirty[path] = true
		}
	}
	for path := range initial {
		if _, ok := current[path]; !ok {
			c.dirty[path] = true
		}
	}
}

func copyFlags(src map[string]bool) map[string]bool {
	out := make(map[string]bool, len(src))
	for key, value := range src {
		if value {
			out[key] = true
		}
	}
	return out
}
