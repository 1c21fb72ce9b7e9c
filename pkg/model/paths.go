package model

import (
	"strconv"
	"strings"
	"time"
)

// Wildcard is the index placeholder used for dynamic array rows.
const Wildcard = "*"

// Leaf is a bindable input addressed by its dotted path.
type Leaf struct {
	Path  string
	Field Field
}

// Leaves flattens the form into bindable inputs. Objects contribute their
// nested leaves, fixed arrays contribute one leaf per slot, and dynamic arrays
// contribute their item leaves under the `*` wildcard.
func Leaves(form FormModel) []Leaf {
	var out []Leaf
	collectLeaves(form.Fields, "", &out)
	return out
}

// Lookup finds the field definition for a dotted path. Numeric segments match
// both fixed slots and dynamic rows.
func Lookup(form FormModel, path string) (Field, bool) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	fields := form.Fields
	var current *Field
	for i := 0; i < len(segments); i++ {
		segment := segments[i]
		if current != nil && current.Type == FieldTypeArray {
			if segment != Wildcard && !isIndex(segment) {
				return Field{}, false
			}
			if current.Items == nil {
				return Field{}, false
			}
			item := *current.Items
			current = &item
			fields = item.Nested
			continue
		}
		found := false
		for idx := range fields {
			if fields[idx].Name == segment {
				field := fields[idx]
				current = &field
				fields = field.Nested
				found = true
				break
			}
		}
		if !found {
			return Field{}, false
		}
	}
	if current == nil {
		return Field{}, false
	}
	return *current, true
}

// ZeroValues builds the value tree implied by the form shape: empty strings,
// zero numbers, zero dates, fixed arrays sized to MaxItems, and dynamic arrays
// seeded with MinItems rows. Field defaults win over zero values.
func ZeroValues(form FormModel) map[string]any {
	out := make(map[string]any, len(form.Fields))
	for _, field := range form.Fields {
		out[field.Name] = zeroValue(field)
	}
	return out
}

// ZeroValue is the initial value of a single field, as used for a new
// dynamic array row.
func ZeroValue(field Field) any {
	return zeroValue(field)
}

// JoinPath joins dotted path segments, skipping empty parts.
func JoinPath(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ".")
}

func collectLeaves(fields []Field, prefix string, out *[]Leaf) {
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		path := JoinPath(prefix, name)
		collectField(field, path, out)
	}
}

func collectField(field Field, path string, out *[]Leaf) {
	switch field.Type {
	case FieldTypeObject:
		collectLeaves(field.Nested, path, out)
	case FieldTypeArray:
		if field.Items == nil {
			*out = append(*out, Leaf{Path: path, Field: field})
			return
		}
		if field.Dynamic || field.MaxItems <= 0 {
			collectField(*field.Items, JoinPath(path, Wildcard), out)
			return
		}
		for idx := 0; idx < field.MaxItems; idx++ {
			collectField(*field.Items, JoinPath(path, strconv.Itoa(idx)), out)
		}
	default:
		*out = append(*out, Leaf{Path: path, Field: field})
	}
}

func zeroValue(field Field) any {
	if field.Default != nil {
		return field.Default
	}
	switch field.Type {
	case FieldTypeObject:
		nested := make(map[string]any, len(field.Nested))
		for _, child := range field.Nested {
			nested[child.Name] = zeroValue(child)
		}
		return nested
	case FieldTypeArray:
		count := field.MinItems
		if !field.Dynamic && field.MaxItems > 0 {
			count = field.MaxItems
		}
		items := make([]any, count)
		for idx := range items {
			if field.Items != nil {
				items[idx] = zeroValue(*field.Items)
			}
		}
		return items
	case FieldTypeNumber:
		return float64(0)
	case FieldTypeDate:
		return time.Time{}
	case FieldTypeBoolean:
		return false
	default:
		return ""
	}
}

func isIndex(segment string) bool {
	_, err := strconv.Atoi(segment)
	return err == nil
}
