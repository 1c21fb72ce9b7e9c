package uischema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Decorator applies overlays to a form model.
type Decorator struct {
	store *Store
}

var _ model.Decorator = (*Decorator)(nil)

// NewDecorator builds a Decorator backed by the provided store. When store is
// nil or empty, the decorator becomes a no-op.
func NewDecorator(store *Store) *Decorator {
	return &Decorator{store: store}
}

// Decorate applies the overlay registered for form.ID. Forms without an
// overlay are left untouched; an overlay naming a missing field fails.
func (d *Decorator) Decorate(form *model.FormModel) error {
	if d == nil || d.store.Empty() || form == nil {
		return nil
	}
	op, ok := d.store.Operation(form.ID)
	if !ok {
		return nil
	}

	form.Fields = append([]model.Field(nil), form.Fields...)
	if op.Form.Title != "" {
		form.Title = op.Form.Title
	}
	if op.Form.Description != "" {
		form.Description = op.Form.Description
	}
	form.Metadata = mergeStringMap(form.Metadata, op.Form.Metadata)

	keys := make([]string, 0, len(op.Fields))
	for key := range op.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ordered := map[string]bool{}
	for _, key := range keys {
		field, err := resolve(form, key)
		if err != nil {
			return fmt.Errorf("uischema: operation %q: %w", op.ID, err)
		}
		cfg := op.Fields[key]
		applyField(field, cfg)
		if cfg.Order != nil {
			ordered[parentPath(key)] = true
		}
	}

	for parent := range ordered {
		siblings, err := siblingsOf(form, parent)
		if err != nil {
			return fmt.Errorf("uischema: operation %q: %w", op.ID, err)
		}
		reorder(siblings, parent, op.Fields)
	}
	return nil
}

func applyField(field *model.Field, cfg FieldConfig) {
	if cfg.Label != "" {
		field.Label = cfg.Label
	}
	if cfg.Placeholder != "" {
		field.Placeholder = cfg.Placeholder
	}
	if cfg.Description != "" {
		field.Description = cfg.Description
	}
	if cfg.InputType != "" {
		field.InputType = cfg.InputType
	}
	if cfg.DisabledWhen != nil {
		field.DisabledWhen = strings.TrimSpace(*cfg.DisabledWhen)
	}
	field.Metadata = mergeStringMap(field.Metadata, cfg.Metadata)
	if len(cfg.Messages) == 0 {
		return
	}
	// The source definition shares the rule slice.
	rules := make([]model.ValidationRule, len(field.Validations))
	copy(rules, field.Validations)
	for idx := range rules {
		if message, ok := cfg.Messages[rules[idx].Kind]; ok {
			rules[idx].Message = message
		}
		if name := rules[idx].Params["name"]; name != "" {
			if message, ok := cfg.Messages[name]; ok {
				rules[idx].Message = message
			}
		}
	}
	field.Validations = rules
}

// resolve walks path through the form and returns the addressed field. Array
// items are addressed with the wildcard or any numeric index.
func resolve(form *model.FormModel, path string) (*model.Field, error) {
	segments := strings.Split(path, ".")
	fields := &form.Fields
	var current *model.Field
	for idx, segment := range segments {
		if current != nil && current.Type == model.FieldTypeArray {
			if segment != model.Wildcard && !isIndex(segment) {
				return nil, fmt.Errorf("field %q: segment %q must address an array item", path, segment)
			}
			if current.Items == nil {
				return nil, fmt.Errorf("field %q: array has no item definition", path)
			}
			item := *current.Items
			item.Nested = append([]model.Field(nil), item.Nested...)
			current.Items = &item
			current = current.Items
			fields = &current.Nested
			continue
		}
		found := false
		for pos := range *fields {
			if (*fields)[pos].Name == segment {
				current = &(*fields)[pos]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("field %q not found at %q", path, strings.Join(segments[:idx+1], "."))
		}
		current.Nested = append([]model.Field(nil), current.Nested...)
		fields = &current.Nested
	}
	if current == nil {
		return nil, fmt.Errorf("field %q not found", path)
	}
	return current, nil
}

func siblingsOf(form *model.FormModel, parent string) ([]model.Field, error) {
	if parent == "" {
		return form.Fields, nil
	}
	field, err := resolve(form, parent)
	if err != nil {
		return nil, err
	}
	return field.Nested, nil
}

func reorder(fields []model.Field, parent string, overlay map[string]FieldConfig) {
	rank := func(field model.Field) (int, bool) {
		cfg, ok := overlay[model.JoinPath(parent, field.Name)]
		if !ok || cfg.Order == nil {
			return 0, false
		}
		return *cfg.Order, true
	}
	sort.SliceStable(fields, func(i, j int) bool {
		ri, oki := rank(fields[i])
		rj, okj := rank(fields[j])
		switch {
		case oki && okj:
			return ri < rj
		case oki:
			return true
		default:
			return false
		}
	})
}

func parentPath(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func isIndex(segment string) bool {
	n, err := strconv.Atoi(segment)
	return err == nil && n >= 0
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	out := make(map[string]string, len(dst)+len(src))
	for key, value := range dst {
		out[key] = value
	}
	for key, value := range src {
		out[key] = value
	}
	return out
}
