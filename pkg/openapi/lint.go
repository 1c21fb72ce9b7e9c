package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/condition/expr"
)

// Violation is one unsupported or malformed `x-formgen` entry.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	return v.Location + " -> " + v.Message
}

var fieldHints = map[string]func(any) string{
	"label":        expectString,
	"placeholder":  expectString,
	"inputType":    expectString,
	"messages":     expectStringMap,
	"metadata":     expectStringMap,
	"order":        expectNumber,
	"dynamic":      expectBool,
	"disabledWhen": expectCondition,
	"rules":        expectRules,
}

var operationHints = map[string]func(any) string{
	"metadata": expectStringMap,
}

// Lint reports every `x-formgen` entry the builder would reject or ignore, in
// location order. Operations without a request body are skipped.
func Lint(ctx context.Context, data []byte) ([]Violation, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Paths == nil {
		return nil, nil
	}

	var out []Violation
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if operation == nil {
				continue
			}
			id := operation.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			base := "operation." + id
			out = append(out, lintExtensions(base, operation.Extensions, operationHints)...)
			if schema := requestSchema(operation.RequestBody); schema != nil {
				out = append(out, lintSchema(base+".requestBody", schema)...)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location == out[j].Location {
			return out[i].Message < out[j].Message
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

func lintSchema(location string, ref *openapi3.SchemaRef) []Violation {
	if ref == nil || ref.Value == nil {
		return nil
	}
	schema := ref.Value
	out := lintExtensions(location, schema.Extensions, fieldHints)
	for _, name := range sortedKeys(schema.Properties) {
		out = append(out, lintSchema(location+".properties."+name, schema.Properties[name])...)
	}
	if schema.Items != nil {
		out = append(out, lintSchema(location+".items", schema.Items)...)
	}
	return out
}

func lintExtensions(location string, extensions map[string]any, allowed map[string]func(any) string) []Violation {
	var out []Violation
	for key, value := range extensions {
		switch {
		case key == extensionNamespace:
			nested, ok := value.(map[string]any)
			if !ok {
				out = append(out, Violation{location, fmt.Sprintf("%s must be an object, found %T", extensionNamespace, value)})
				continue
			}
			for _, hint := range sortedKeys(nested) {
				out = append(out, lintHint(location+"."+hint, hint, nested[hint], allowed)...)
			}
		case strings.HasPrefix(key, extensionNamespace+"-"):
			out = append(out, Violation{location, fmt.Sprintf("%s: flattened keys are not supported, nest it under %s", key, extensionNamespace)})
		}
	}
	return out
}

func lintHint(location, key string, value any, allowed map[string]func(any) string) []Violation {
	check, ok := allowed[key]
	if !ok {
		return []Violation{{location, fmt.Sprintf("unsupported key %q", key)}}
	}
	if message := check(value); message != "" {
		return []Violation{{location, message}}
	}
	return nil
}

func expectString(value any) string {
	if _, ok := value.(string); !ok {
		return fmt.Sprintf("must be a string, found %T", value)
	}
	return ""
}

func expectBool(value any) string {
	if _, ok := value.(bool); !ok {
		return fmt.Sprintf("must be a boolean, found %T", value)
	}
	return ""
}

func expectNumber(value any) string {
	if _, ok := intValue(value); !ok {
		return fmt.Sprintf("must be a number, found %T", value)
	}
	return ""
}

func expectStringMap(value any) string {
	if _, ok := value.(map[string]any); !ok {
		return fmt.Sprintf("must be an object, found %T", value)
	}
	return ""
}

func expectCondition(value any) string {
	rule, ok := value.(string)
	if !ok {
		return fmt.Sprintf("must be a string, found %T", value)
	}
	if _, err := expr.New().Compile(rule); err != nil {
		return fmt.Sprintf("invalid expression: %v", err)
	}
	return ""
}

func expectRules(value any) string {
	if _, err := customRules(value, ""); err != nil {
		return strings.TrimPrefix(err.Error(), "openapi: : ")
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
