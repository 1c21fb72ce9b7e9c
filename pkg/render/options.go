package render

import (
	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
)

// Snapshot is the controller state a renderer draws from.
type Snapshot struct {
	State    form.FormState
	Values   map[string]any
	Rows     map[string][]form.Row
	MinRows  map[string]int
	Disabled map[string]bool
}

// RenderOptions carry per-request data for a render.
type RenderOptions struct {
	Snapshot Snapshot
	// Watch names the value shown in the view heading.
	Watch string
	// Errors holds messages from outside the controller, for example a
	// failed submit handler, keyed by field path or JSON pointer. Paths that do
	// not match a field become form-level messages.
	Errors map[string][]string
	// Action is the base URL form controls post to.
	Action string
}

// Capture reads everything a renderer needs from ctrl. Dynamic arrays are
// discovered from the bound definition.
func Capture(ctrl *form.Controller) Snapshot {
	snap := Snapshot{
		State:    ctrl.State(),
		Values:   ctrl.GetValues(),
		Rows:     map[string][]form.Row{},
		MinRows:  map[string]int{},
		Disabled: map[string]bool{},
	}
	for leaf := range paths.Leaves(snap.Values) {
		if ctrl.IsDisabled(leaf) {
			snap.Disabled[leaf] = true
		}
	}
	if def, ok := ctrl.Definition(); ok {
		captureRows(ctrl, def.Fields, "", &snap)
	}
	return snap
}

func captureRows(ctrl *form.Controller, fields []model.Field, prefix string, snap *Snapshot) {
	for _, field := range fields {
		path := model.JoinPath(prefix, field.Name)
		switch {
		case field.Type == model.FieldTypeObject:
			captureRows(ctrl, field.Nested, path, snap)
		case field.Type == model.FieldTypeArray && field.Dynamic:
			rows := ctrl.FieldArray(path)
			snap.Rows[path] = rows.Fields()
			snap.MinRows[path] = rows.MinRows()
		}
	}
}
