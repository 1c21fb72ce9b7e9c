package form

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/model"
)

// Row is one entry of a field array. ID stays stable while the row exists.
type Row struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Value any    `json:"value"`
}

// FieldArray manages a variable-length list of rows at a fixed path.
type FieldArray struct {
	ctrl *Controller
	path string
}

// ArrayOption customises a FieldArray.
type ArrayOption func(*arrayConfig)

type arrayConfig struct {
	minRows int
	set     bool
}

// WithMinRows sets the lower bound enforced by Remove.
func WithMinRows(n int) ArrayOption {
	return func(cfg *arrayConfig) {
		if n < 0 {
			n = 0
		}
		cfg.minRows = n
		cfg.set = true
	}
}

// FieldArray returns the list binding for path. Bound forms pick up the
// minimum row count from the array definition unless WithMinRows overrides it.
func (c *Controller) FieldArray(path string, options ...ArrayOption) *FieldArray {
	clean := paths.Normalize(path)
	cfg := arrayConfig{}
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.set {
		c.minRows[clean] = cfg.minRows
	} else if _, ok := c.minRows[clean]; !ok {
		c.minRows[clean] = 0
	}
	if _, ok := c.rowIDs[clean]; !ok {
		c.rowIDs[clean] = nil
	}
	c.reconcileRowsLocked(clean)
	return &FieldArray{ctrl: c, path: clean}
}

// Path returns the array path.
func (a *FieldArray) Path() string { return a.path }

// MinRows returns the lower bound enforced by Remove.
func (a *FieldArray) MinRows() int {
	a.ctrl.mu.Lock()
	defer a.ctrl.mu.Unlock()
	return a.ctrl.minRows[a.path]
}

// Len returns the number of rows.
func (a *FieldArray) Len() int {
	a.ctrl.mu.Lock()
	defer a.ctrl.mu.Unlock()
	return len(a.rowsLocked())
}

// Fields returns the rows with their identities, in order.
func (a *FieldArray) Fields() []Row {
	c := a.ctrl
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := a.rowsLocked()
	ids := c.rowIDs[a.path]
	out := make([]Row, len(rows))
	for idx, value := range rows {
		out[idx] = Row{ID: ids[idx], Index: idx, Value: paths.Clone(value)}
	}
	return out
}

// Append adds a row at the end and assigns it a fresh identity.
func (a *FieldArray) Append(ctx context.Context, row any) error {
	c := a.ctrl
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	rows := append(a.rowsLocked(), paths.Clone(row))
	if err := paths.Set(c.values, a.path, rows); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	c.version++
	c.rowIDs[a.path] = append(c.rowIDs[a.path], c.newID())
	c.refreshDirtyLocked(a.path)
	jobs := a.revalidateLocked(ctx)
	ev := c.eventLocked(true, a.path)
	c.mu.Unlock()

	c.logger.Debug("form row appended", "path", a.path, "rows", len(rows))
	c.dispatch(ev)
	c.runBackground(jobs)
	return nil
}

// Remove deletes the row at index. Later rows shift down and keep their
// identities, errors and touched flags.
func (a *FieldArray) Remove(ctx context.Context, index int) error {
	c := a.ctrl
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	rows := a.rowsLocked()
	if index < 0 || index >= len(rows) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s.%d", ErrInvalidPath, a.path, index)
	}
	if len(rows) <= c.minRows[a.path] {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s keeps at least %d", ErrMinRows, a.path, c.minRows[a.path])
	}
	if err := paths.Delete(c.values, model.JoinPath(a.path, strconv.Itoa(index))); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	c.version++
	ids := c.rowIDs[a.path]
	c.rowIDs[a.path] = append(ids[:index:index], ids[index+1:]...)
	a.shiftLocked(index)
	c.refreshDirtyLocked(a.path)
	jobs := a.revalidateLocked(ctx)
	ev := c.eventLocked(true, a.path)
	c.mu.Unlock()

	c.logger.Debug("form row removed", "path", a.path, "index", index)
	c.dispatch(ev)
	c.runBackground(jobs)
	return nil
}

func (a *FieldArray) rowsLocked() []any {
	value, _ := paths.Get(a.ctrl.values, a.path)
	rows, _ := value.([]any)
	return rows
}

// revalidateLocked re-runs validation for surviving rows once the form has
// been submitted and the re-validation mode reacts to changes.
func (a *FieldArray) revalidateLocked(ctx context.Context) []*asyncJob {
	c := a.ctrl
	if shouldSkipValidation(false, false, c.isSubmitted, c.mode, c.reValidateMode) {
		return nil
	}
	selected, err := c.selectLocked([]string{a.path})
	if err != nil {
		return nil
	}
	var jobs []*asyncJob
	for _, target := range selected {
		if job := c.validateLocked(ctx, target, true); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// shiftLocked moves per-row bookkeeping after a removal: the removed row's
// entries are dropped and later rows move down one index. Pending checks under
// the array are cancelled since their paths no longer point at the same row.
func (a *FieldArray) shiftLocked(removed int) {
	c := a.ctrl
	for path := range c.pending {
		if paths.Within(path, a.path) {
			c.generations[path]++
			c.cancelPendingLocked(path)
		}
	}
	c.touched = shiftKeys(c.touched, a.path, removed)
	c.errors = shiftKeys(c.errors, a.path, removed)
}

func shiftKeys[V any](src map[string]V, arrayPath string, removed int) map[string]V {
	out := make(map[string]V, len(src))
	prefix := paths.Split(arrayPath)
	for key, value := range src {
		if !paths.Within(key, arrayPath) || key == arrayPath {
			out[key] = value
			continue
		}
		segments := paths.Split(key)
		idx, err := strconv.Atoi(segments[len(prefix)])
		if err != nil {
			out[key] = value
			continue
		}
		switch {
		case idx == removed:
			continue
		case idx > removed:
			segments[len(prefix)] = strconv.Itoa(idx - 1)
			out[model.JoinPath(segments...)] = value
		default:
			out[key] = value
		}
	}
	return out
}

// reconcileRowsLocked keeps row identities in step with the list lengths of
// every tracked array at, above or below prefix.
func (c *Controller) reconcileRowsLocked(prefix string) {
	for arrayPath := range c.rowIDs {
		if prefix != "" && !paths.Within(arrayPath, prefix) && !paths.Within(prefix, arrayPath) {
			continue
		}
		value, _ := paths.Get(c.values, arrayPath)
		rows, _ := value.([]any)
		ids := c.rowIDs[arrayPath]
		switch {
		case len(ids) > len(rows):
			ids = ids[:len(rows)]
		case len(ids) < len(rows):
			for len(ids) < len(rows) {
				ids = append(ids, c.newID())
			}
		}
		c.rowIDs[arrayPath] = ids
	}
}
