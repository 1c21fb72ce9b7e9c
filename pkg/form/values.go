package form

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// SetValueOptions controls the side effects of SetValue. Each flag is
// independent.
type SetValueOptions struct {
	ShouldValidate bool
	ShouldDirty    bool
	ShouldTouch    bool
}

// GetValues returns a deep copy of every value.
func (c *Controller) GetValues() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return paths.CloneMap(c.values)
}

// GetValue returns a deep copy of the value at path.
func (c *Controller) GetValue(path string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := paths.Get(c.values, path)
	if !ok {
		return nil, false
	}
	return paths.Clone(value), true
}

// GetValuesOf returns deep copies of the values at the given paths, keyed by
// path. Missing paths map to nil.
func (c *Controller) GetValuesOf(selected ...string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(selected))
	for _, path := range selected {
		value, _ := paths.Get(c.values, path)
		out[paths.Normalize(path)] = paths.Clone(value)
	}
	return out
}

// Defaults returns a deep copy of the values Reset restores.
func (c *Controller) Defaults() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return paths.CloneMap(c.defaults)
}

// SetValue overwrites the value at path. Path may address a scalar, a nested
// group or a field-array row; the value is stored as given. Writes must keep
// fixed lists at their length and dynamic lists gap-free and at or above
// their minimum rows; violations return ErrInvalidPath or ErrMinRows.
func (c *Controller) SetValue(ctx context.Context, path string, value any, opts SetValueOptions) error {
	clean := paths.Normalize(path)
	if clean == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if err := c.checkArrayWriteLocked(clean, value); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := paths.Set(c.values, clean, paths.Clone(value)); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	c.version++
	c.reconcileRowsLocked(clean)
	if opts.ShouldDirty {
		c.refreshDirtyLocked(clean)
	}
	if opts.ShouldTouch {
		for leaf := range paths.LeavesAt(c.values, clean) {
			c.touched[leaf] = true
		}
	}
	var jobs []*asyncJob
	if opts.ShouldValidate {
		selected, _ := c.selectLocked([]string{clean})
		for _, target := range selected {
			if job := c.validateLocked(ctx, target, true); job != nil {
				jobs = append(jobs, job)
			}
		}
	}
	ev := c.eventLocked(true, clean)
	c.mu.Unlock()

	c.logger.Debug("form value set", "path", clean, "validate", opts.ShouldValidate, "dirty", opts.ShouldDirty, "touch", opts.ShouldTouch)
	c.dispatch(ev)
	c.runBackground(jobs)
	return nil
}

// Change records user input for a registered field. The raw value is coerced
// according to the field registration, the field is marked dirty, and it is
// validated when the active mode asks for validation on change.
func (c *Controller) Change(ctx context.Context, path string, raw any) error {
	clean := paths.Normalize(path)

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	f := c.fieldForLocked(clean)
	if f == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotRegistered, path)
	}
	coerced := f.coercion.Apply(raw)
	if err := c.checkArrayWriteLocked(clean, coerced); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := paths.Set(c.values, clean, coerced); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	c.version++
	c.reconcileRowsLocked(clean)
	c.refreshDirtyLocked(clean)
	jobs := c.revalidateLocked(ctx, clean, false)
	ev := c.eventLocked(true, clean)
	c.mu.Unlock()

	c.dispatch(ev)
	c.runBackground(jobs)
	return nil
}

// Blur marks a registered field as touched and validates it when the active
// mode asks for validation on blur.
func (c *Controller) Blur(ctx context.Context, path string) error {
	clean := paths.Normalize(path)

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.fieldForLocked(clean) == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotRegistered, path)
	}
	c.touched[clean] = true
	jobs := c.revalidateLocked(ctx, clean, true)
	ev := c.eventLocked(false, "")
	c.mu.Unlock()

	c.dispatch(ev)
	c.runBackground(jobs)
	return nil
}

// revalidateLocked validates path after a change or blur event when the mode
// says so. Fields whose disablement depends on the edited value are refreshed
// too so a newly disabled field drops its error.
func (c *Controller) revalidateLocked(ctx context.Context, path string, isBlur bool) []*asyncJob {
	for target := range c.errors {
		if f := c.fieldForLocked(target); f != nil && c.disabledLocked(f) {
			delete(c.errors, target)
		}
	}
	if shouldSkipValidation(isBlur, c.touched[path], c.isSubmitted, c.mode, c.reValidateMode) {
		return nil
	}
	if job := c.validateLocked(ctx, path, true); job != nil {
		return []*asyncJob{job}
	}
	return nil
}

// Reset restores the last resolved defaults and clears every status flag
// except SubmitCount. In-flight asynchronous checks are discarded and
// field-array rows receive fresh identities.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.resetLocked()
	ev := c.eventLocked(true, "")
	c.mu.Unlock()

	c.logger.Debug("form reset")
	c.dispatch(ev)
}

// ResetWith installs values as the new defaults, then resets.
func (c *Controller) ResetWith(values map[string]any) {
	c.mu.Lock()
	c.defaults = merge(c.shape, values)
	c.resetLocked()
	ev := c.eventLocked(true, "")
	c.mu.Unlock()

	c.logger.Debug("form reset with new defaults")
	c.dispatch(ev)
}

func (c *Controller) resetLocked() {
	c.cancelAllPendingLocked()
	if c.defaults == nil {
		c.defaults = paths.CloneMap(c.shape)
	}
	c.values = paths.CloneMap(c.defaults)
	c.version++
	c.dirty = make(map[string]bool)
	c.touched = make(map[string]bool)
	c.errors = validation.Errors{}
	c.isSubmitting = false
	c.isSubmitted = false
	c.isSubmitSuccessful = false
	for path := range c.rowIDs {
		c.rowIDs[path] = nil
	}
	for path := range c.minRows {
		c.rowIDs[path] = nil
	}
	c.reconcileRowsLocked("")
}
