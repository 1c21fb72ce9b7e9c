package devtool

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render"
)

// Snapshot is what the inspection panel shows.
type Snapshot struct {
	Version  uint64              `json:"version"`
	At       time.Time           `json:"at"`
	State    form.FormState      `json:"state"`
	Values   map[string]any      `json:"values"`
	RowIDs   map[string][]string `json:"rowIds,omitempty"`
	Disabled []string            `json:"disabled,omitempty"`
}

// Panel tracks the latest snapshot of a controller and fans it out to
// listeners. It never mutates the controller.
type Panel struct {
	ctrl *form.Controller
	now  func() time.Time

	mu        sync.Mutex
	current   Snapshot
	listeners map[uint64]func(Snapshot)
	nextID    uint64
	subs      []*form.Subscription
	closed    bool
}

// PanelOption customises a Panel.
type PanelOption func(*Panel)

// WithPanelClock overrides the snapshot timestamp source.
func WithPanelClock(now func() time.Time) PanelOption {
	return func(p *Panel) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPanel binds a panel to ctrl and takes the first snapshot.
func NewPanel(ctrl *form.Controller, options ...PanelOption) *Panel {
	p := &Panel{
		ctrl:      ctrl,
		now:       time.Now,
		listeners: map[uint64]func(Snapshot){},
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	p.refresh()
	p.subs = append(p.subs,
		ctrl.Subscribe(func(form.FormState) { p.refresh() }),
		ctrl.Watch(func(map[string]any, string) { p.refresh() }),
	)
	return p
}

// Snapshot returns the latest snapshot.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// JSON encodes the latest snapshot.
func (p *Panel) JSON() ([]byte, error) {
	return json.Marshal(p.Snapshot())
}

// Listen registers fn for every new snapshot. The returned func removes it.
func (p *Panel) Listen(fn func(Snapshot)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || fn == nil {
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Close detaches the panel from the controller and drops every listener.
func (p *Panel) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	subs := p.subs
	p.subs = nil
	p.listeners = map[uint64]func(Snapshot){}
	p.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (p *Panel) refresh() {
	captured := render.Capture(p.ctrl)
	snap := Snapshot{
		At:       p.now(),
		State:    captured.State,
		Values:   render.JSONValues(captured.Values),
		RowIDs:   rowIDs(captured.Rows),
		Disabled: flagged(captured.Disabled),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	snap.Version = p.current.Version + 1
	p.current = snap
	listeners := make([]func(Snapshot), 0, len(p.listeners))
	for _, id := range sortedIDs(p.listeners) {
		listeners = append(listeners, p.listeners[id])
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func rowIDs(rows map[string][]form.Row) map[string][]string {
	if len(rows) == 0 {
		return nil
	}
	out := make(map[string][]string, len(rows))
	for path, list := range rows {
		ids := make([]string, len(list))
		for idx, row := range list {
			ids[idx] = row.ID
		}
		out[path] = ids
	}
	return out
}

func sortedIDs(m map[uint64]func(Snapshot)) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
