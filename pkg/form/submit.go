package form

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// ValidFunc receives the submitted values when every enabled field is valid.
type ValidFunc func(ctx context.Context, values map[string]any) error

// InvalidFunc receives the errors when at least one enabled field is invalid.
type InvalidFunc func(ctx context.Context, errs validation.Errors)

// SuccessFunc runs after a successful submission has been delivered to every
// watcher and observer.
type SuccessFunc func(values map[string]any)

// maxSubmitPasses bounds how often HandleSubmit re-validates when values keep
// changing while asynchronous rules run.
const maxSubmitPasses = 3

type successHook struct {
	id uint64
	fn SuccessFunc
}

// HandleSubmit validates the whole form, synchronous and asynchronous rules
// included, then calls exactly one of onValid or onInvalid. An error returned
// by onValid marks the submission unsuccessful and is returned to the caller.
//
// onValid receives exactly the values that were validated. When a value
// changes while asynchronous rules run, the form is validated again; after
// maxSubmitPasses changed passes the submission fails with ErrValuesChanged.
func (c *Controller) HandleSubmit(ctx context.Context, onValid ValidFunc, onInvalid InvalidFunc) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.isSubmitting {
		c.mu.Unlock()
		return fmt.Errorf("form: submit already in progress")
	}
	c.isSubmitting = true
	c.isSubmitSuccessful = false
	version, jobs := c.submitPassLocked(ctx)
	ev := c.eventLocked(false, "")
	c.mu.Unlock()
	c.dispatch(ev)

	errs, values, err := c.settleSubmit(ctx, version, jobs)
	if err != nil {
		c.finishSubmit(false, nil)
		return err
	}

	var submitErr error
	if len(errs) == 0 {
		c.logger.Debug("form submit valid")
		if onValid != nil {
			submitErr = onValid(ctx, paths.CloneMap(values))
		}
	} else {
		c.logger.Debug("form submit invalid", "errors", len(errs))
		if onInvalid != nil {
			onInvalid(ctx, errs)
		}
	}

	successful := len(errs) == 0 && submitErr == nil
	if successful {
		c.finishSubmit(true, values)
	} else {
		c.finishSubmit(false, nil)
	}
	if submitErr != nil {
		return fmt.Errorf("form: submit handler: %w", submitErr)
	}
	return nil
}

// OnSubmitSuccess calls fn after each successful submission, once the
// success state has reached every watcher and observer. Transitions fn causes
// are therefore delivered after the success state.
func (c *Controller) OnSubmitSuccess(fn SuccessFunc) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	c.mu.Lock()
	c.nextSubID++
	hook := &successHook{id: c.nextSubID, fn: fn}
	c.onSuccess = append(c.onSuccess, hook)
	c.mu.Unlock()

	return &Subscription{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for idx, existing := range c.onSuccess {
			if existing.id == hook.id {
				c.onSuccess = append(c.onSuccess[:idx:idx], c.onSuccess[idx+1:]...)
				return
			}
		}
	}}
}

// submitPassLocked starts validation of every target and records the values
// version it ran against.
func (c *Controller) submitPassLocked(ctx context.Context) (uint64, []*asyncJob) {
	var jobs []*asyncJob
	for _, path := range c.targetsLocked() {
		if job := c.validateLocked(ctx, path, false); job != nil {
			jobs = append(jobs, job)
		}
	}
	return c.version, jobs
}

// settleSubmit waits for the asynchronous rules of a pass and returns the
// errors together with the values they describe. A pass whose values changed
// in the meantime is repeated.
func (c *Controller) settleSubmit(ctx context.Context, version uint64, jobs []*asyncJob) (validation.Errors, map[string]any, error) {
	for pass := 1; ; pass++ {
		c.runAndWait(jobs)
		if err := c.WaitIdle(ctx); err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		c.mu.Lock()
		if c.version == version {
			errs := c.errors.Clone()
			values := paths.CloneMap(c.values)
			c.mu.Unlock()
			return errs, values, nil
		}
		if pass >= maxSubmitPasses {
			c.mu.Unlock()
			return nil, nil, ErrValuesChanged
		}
		version, jobs = c.submitPassLocked(ctx)
		ev := c.eventLocked(false, "")
		c.mu.Unlock()

		c.logger.Debug("form values changed during submit", "pass", pass)
		c.dispatch(ev)
	}
}

func (c *Controller) finishSubmit(successful bool, values map[string]any) {
	c.mu.Lock()
	c.isSubmitting = false
	c.isSubmitted = true
	c.isSubmitSuccessful = successful
	c.submitCount++
	ev := c.eventLocked(false, "")
	var hooks []*successHook
	if successful {
		hooks = append(hooks, c.onSuccess...)
	}
	c.mu.Unlock()

	c.dispatch(ev)
	for _, hook := range hooks {
		hook.fn(paths.CloneMap(values))
	}
}
