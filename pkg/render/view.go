package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
)

// FieldKind tells renderers how to draw a FieldView.
type FieldKind string

const (
	KindInput FieldKind = "input"
	KindGroup FieldKind = "group"
	KindList  FieldKind = "list"
	KindRows  FieldKind = "rows"
)

// View is the presentation model for one render.
type View struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Heading       string      `json:"heading,omitempty"`
	Watched       string      `json:"watched,omitempty"`
	Action        string      `json:"action"`
	Loading       bool        `json:"loading"`
	Fields        []FieldView `json:"fields"`
	FormErrors    []string    `json:"formErrors,omitempty"`
	SubmitEnabled bool        `json:"submitEnabled"`
	Status        Status      `json:"status"`
}

// Status mirrors the form flags shown next to the actions.
type Status struct {
	Dirty            bool `json:"dirty"`
	Valid            bool `json:"valid"`
	Validating       bool `json:"validating"`
	Submitting       bool `json:"submitting"`
	Submitted        bool `json:"submitted"`
	SubmitSuccessful bool `json:"submitSuccessful"`
	SubmitCount      int  `json:"submitCount"`
}

// FieldView is one input, group, fixed list, or row list.
type FieldView struct {
	Path        string      `json:"path"`
	Name        string      `json:"name"`
	Label       string      `json:"label,omitempty"`
	InputType   string      `json:"inputType,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Kind        FieldKind   `json:"kind"`
	Value       string      `json:"value"`
	Error       string      `json:"error,omitempty"`
	Disabled    bool        `json:"disabled,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Touched     bool        `json:"touched,omitempty"`
	Dirty       bool        `json:"dirty,omitempty"`
	Children    []FieldView `json:"children,omitempty"`
	Rows        []RowView   `json:"rows,omitempty"`
	AddLabel    string      `json:"addLabel,omitempty"`
	RemoveLabel string      `json:"removeLabel,omitempty"`
}

// RowView is one dynamic row. The first rows up to the minimum count are
// never removable.
type RowView struct {
	ID        string      `json:"id"`
	Index     int         `json:"index"`
	Removable bool        `json:"removable"`
	Fields    []FieldView `json:"fields"`
}

type viewBuilder struct {
	snap     Snapshot
	external map[string][]string
}

// BuildView derives the presentation model. Each input shows its first error
// only, and submit is enabled while the form is dirty and not submitting.
func BuildView(def model.FormModel, options RenderOptions) View {
	snap := options.Snapshot
	if snap.Values == nil {
		snap.Values = map[string]any{}
	}
	mapping := MapErrorPayload(snap.Values, options.Errors)
	b := viewBuilder{snap: snap, external: mapping.Fields}

	state := snap.State
	view := View{
		ID:            def.ID,
		Title:         def.Title,
		Action:        strings.TrimRight(options.Action, "/"),
		Loading:       state.IsLoading,
		FormErrors:    mapping.Form,
		SubmitEnabled: state.IsDirty && !state.IsSubmitting,
		Status: Status{
			Dirty:            state.IsDirty,
			Valid:            state.IsValid,
			Validating:       state.IsValidating,
			Submitting:       state.IsSubmitting,
			Submitted:        state.IsSubmitted,
			SubmitSuccessful: state.IsSubmitSuccessful,
			SubmitCount:      state.SubmitCount,
		},
	}
	if watch := paths.Normalize(options.Watch); watch != "" {
		value, _ := paths.Get(snap.Values, watch)
		view.Watched = FormatValue(value)
		view.Heading = "Watched value: " + view.Watched
	}
	for _, field := range def.Fields {
		view.Fields = append(view.Fields, b.field(field, field.Name))
	}
	return view
}

func (b viewBuilder) field(field model.Field, path string) FieldView {
	fv := FieldView{
		Path:        path,
		Name:        field.Name,
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Required:    field.Required(),
	}
	switch {
	case field.Type == model.FieldTypeObject:
		fv.Kind = KindGroup
		for _, child := range field.Nested {
			fv.Children = append(fv.Children, b.field(child, model.JoinPath(path, child.Name)))
		}
	case field.Type == model.FieldTypeArray && field.Dynamic:
		fv.Kind = KindRows
		fv.AddLabel = metadata(field, "add.label", "Add")
		fv.RemoveLabel = metadata(field, "remove.label", "Remove")
		fv.Rows = b.rows(field, path)
	case field.Type == model.FieldTypeArray:
		fv.Kind = KindList
		if field.Items == nil {
			break
		}
		base := labelOrName(field)
		for idx := 0; idx < field.MaxItems; idx++ {
			slot := *field.Items
			slot.Name = strconv.Itoa(idx)
			slot.Label = metadata(field, "label."+slot.Name, fmt.Sprintf("%s %d", base, idx+1))
			fv.Children = append(fv.Children, b.field(slot, model.JoinPath(path, slot.Name)))
		}
	default:
		b.input(&fv, field, path)
	}
	return fv
}

func (b viewBuilder) rows(field model.Field, path string) []RowView {
	minRows := b.snap.MinRows[path]
	if minRows < 1 {
		minRows = 1
	}
	rows := b.snap.Rows[path]
	out := make([]RowView, 0, len(rows))
	for _, row := range rows {
		rowPath := model.JoinPath(path, strconv.Itoa(row.Index))
		rv := RowView{ID: row.ID, Index: row.Index, Removable: row.Index >= minRows}
		if field.Items != nil {
			item := *field.Items
			if item.Type == model.FieldTypeObject {
				for _, child := range item.Nested {
					rv.Fields = append(rv.Fields, b.field(child, model.JoinPath(rowPath, child.Name)))
				}
			} else {
				item.Name = strconv.Itoa(row.Index)
				rv.Fields = append(rv.Fields, b.field(item, rowPath))
			}
		}
		out = append(out, rv)
	}
	return out
}

func (b viewBuilder) input(fv *FieldView, field model.Field, path string) {
	state := b.snap.State
	fv.Kind = KindInput
	fv.InputType = field.InputType
	if fv.InputType == "" {
		fv.InputType = model.InputText
	}
	value, _ := paths.Get(b.snap.Values, path)
	fv.Value = FormatValue(value)
	fv.Disabled = b.snap.Disabled[path]
	fv.Touched = state.TouchedFields[path]
	fv.Dirty = state.DirtyFields[path]
	if message := state.Error(path); message != "" {
		fv.Error = message
	} else if messages := b.external[path]; len(messages) > 0 {
		fv.Error = messages[0]
	}
}

// FormatValue renders a form value as input text: NaN and zero dates are
// empty, dates use the date input layout.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(form.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}

func metadata(field model.Field, key, fallback string) string {
	if value := strings.TrimSpace(field.Metadata[key]); value != "" {
		return value
	}
	return fallback
}

func labelOrName(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}
