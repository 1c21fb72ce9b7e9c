package form

import (
	"sync"

	"github.com/goliatone/go-formstate/internal/paths"
)

// WatchFunc receives a deep copy of the values and the path that changed. An
// empty path means the whole tree was replaced (Init, Reset).
type WatchFunc func(values map[string]any, changed string)

// StateFunc receives a form status snapshot after every transition.
type StateFunc func(state FormState)

// Subscription releases an observer. Unsubscribe is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops further notifications.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type watcher struct {
	id      uint64
	filters []string
	fn      WatchFunc
}

func (w *watcher) wants(changed string) bool {
	if len(w.filters) == 0 || changed == "" {
		return true
	}
	for _, filter := range w.filters {
		if paths.Within(changed, filter) || paths.Within(filter, changed) {
			return true
		}
	}
	return false
}

type observer struct {
	id uint64
	fn StateFunc
}

// Watch calls fn after every value change. When paths are given, fn only runs
// for changes at, above or below one of them.
func (c *Controller) Watch(fn WatchFunc, watched ...string) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	filters := make([]string, 0, len(watched))
	for _, path := range watched {
		if clean := paths.Normalize(path); clean != "" {
			filters = append(filters, clean)
		}
	}

	c.mu.Lock()
	c.nextSubID++
	w := &watcher{id: c.nextSubID, filters: filters, fn: fn}
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	return &Subscription{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for idx, existing := range c.watchers {
			if existing.id == w.id {
				c.watchers = append(c.watchers[:idx:idx], c.watchers[idx+1:]...)
				return
			}
		}
	}}
}

// WatchValue returns the current value at path.
func (c *Controller) WatchValue(path string) any {
	value, _ := c.GetValue(path)
	return value
}

// Subscribe calls fn with a status snapshot after every transition.
func (c *Controller) Subscribe(fn StateFunc) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	c.mu.Lock()
	c.nextSubID++
	o := &observer{id: c.nextSubID, fn: fn}
	c.observers = append(c.observers, o)
	c.mu.Unlock()

	return &Subscription{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for idx, existing := range c.observers {
			if existing.id == o.id {
				c.observers = append(c.observers[:idx:idx], c.observers[idx+1:]...)
				return
			}
		}
	}}
}

// event is captured under the lock and delivered after it is released.
type event struct {
	state     FormState
	observers []*observer

	changed  string
	values   map[string]any
	watchers []*watcher
}

func (c *Controller) eventLocked(valuesChanged bool, changed string) event {
	ev := event{}
	if len(c.observers) > 0 {
		ev.state = c.stateLocked()
		ev.observers = append([]*observer(nil), c.observers...)
	}
	if valuesChanged {
		for _, w := range c.watchers {
			if w.wants(changed) {
				ev.watchers = append(ev.watchers, w)
			}
		}
		if len(ev.watchers) > 0 {
			ev.changed = changed
			ev.values = paths.CloneMap(c.values)
		}
	}
	return ev
}

func (c *Controller) dispatch(ev event) {
	for _, w := range ev.watchers {
		w.fn(paths.CloneMap(ev.values), ev.changed)
	}
	for _, o := range ev.observers {
		o.fn(ev.state)
	}
}
