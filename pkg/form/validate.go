package form

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type pendingCheck struct {
	generation uint64
	cancel     context.CancelFunc
}

// asyncJob is an asynchronous rule evaluation captured under the lock and run
// outside of it.
type asyncJob struct {
	path       string
	generation uint64
	value      any
	rules      validation.RuleSet
	ctx        context.Context
}

// validateLocked runs the synchronous rules for path and records the outcome.
// When the synchronous rules pass and the field has asynchronous rules, the
// returned job must be run by the caller. Any older check for the same path
// is cancelled and its result will be discarded.
func (c *Controller) validateLocked(ctx context.Context, path string, detach bool) *asyncJob {
	c.generations[path]++
	generation := c.generations[path]
	c.cancelPendingLocked(path)

	f := c.fieldForLocked(path)
	if f == nil || c.disabledLocked(f) {
		delete(c.errors, path)
		return nil
	}

	value, _ := paths.Get(c.values, path)
	if fieldErr := f.rules.ValidateSync(value, c.criteria); fieldErr != nil {
		c.errors[path] = *fieldErr
		return nil
	}
	delete(c.errors, path)
	if !f.rules.HasAsync() {
		return nil
	}

	parent := ctx
	if detach {
		parent = context.WithoutCancel(ctx)
	}
	jobCtx, cancel := context.WithCancel(parent)
	c.pending[path] = &pendingCheck{generation: generation, cancel: cancel}
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	return &asyncJob{
		path:       path,
		generation: generation,
		value:      paths.Clone(value),
		rules:      f.rules,
		ctx:        jobCtx,
	}
}

func (c *Controller) cancelPendingLocked(path string) {
	if check, ok := c.pending[path]; ok {
		check.cancel()
		delete(c.pending, path)
	}
}

func (c *Controller) cancelAllPendingLocked() {
	for path := range c.pending {
		c.generations[path]++
		c.cancelPendingLocked(path)
	}
}

// runJob evaluates the asynchronous rules and applies the result only while
// the job's generation is still current.
func (c *Controller) runJob(job *asyncJob) {
	fieldErr, err := job.rules.ValidateAsync(job.ctx, job.value)

	c.mu.Lock()
	c.inflight--
	if c.inflight == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
	current := c.generations[job.path] == job.generation
	if !current {
		c.mu.Unlock()
		c.logger.Debug("form async result discarded", "path", job.path, "generation", job.generation)
		return
	}
	if check, ok := c.pending[job.path]; ok && check.generation == job.generation {
		check.cancel()
		delete(c.pending, job.path)
	}
	if err == nil {
		if fieldErr != nil {
			c.errors[job.path] = *fieldErr
		} else {
			delete(c.errors, job.path)
		}
	}
	ev := c.eventLocked(false, "")
	c.mu.Unlock()

	c.logger.Debug("form async result applied", "path", job.path, "valid", fieldErr == nil && err == nil)
	c.dispatch(ev)
}

func (c *Controller) runBackground(jobs []*asyncJob) {
	for _, job := range jobs {
		go c.runJob(job)
	}
}

func (c *Controller) runAndWait(jobs []*asyncJob) {
	if len(jobs) == 0 {
		return
	}
	var group errgroup.Group
	for _, job := range jobs {
		group.Go(func() error {
			c.runJob(job)
			return nil
		})
	}
	_ = group.Wait()
}

// Trigger validates the given paths, or the whole form when none are given,
// waiting for asynchronous rules to settle. It reports whether every
// validated field is valid. Paths may name a field, a parent group or a
// wildcard pattern.
func (c *Controller) Trigger(ctx context.Context, targets ...string) (bool, error) {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return false, ErrNotInitialized
	}
	selected, err := c.selectLocked(targets)
	if err != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("form: trigger %v: %w", targets, err)
	}
	var jobs []*asyncJob
	for _, path := range selected {
		if job := c.validateLocked(ctx, path, false); job != nil {
			jobs = append(jobs, job)
		}
	}
	ev := c.eventLocked(false, "")
	c.mu.Unlock()
	c.dispatch(ev)

	c.runAndWait(jobs)
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	valid := true
	for _, path := range selected {
		if _, failed := c.errors[path]; failed {
			valid = false
			break
		}
	}
	c.mu.Unlock()
	return valid, nil
}

// WaitIdle blocks until no asynchronous validation is in flight or ctx ends.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
