package openapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/model"
)

// ErrOperationNotFound is returned when the requested operation is missing or
// has no request body schema.
var ErrOperationNotFound = errors.New("openapi: operation not found")

const extensionNamespace = "x-formgen"

// Builder converts an operation request body into a model.FormModel.
type Builder struct {
	resolveReferences bool
	validate          bool
	logger            *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithReferenceResolution allows external $ref targets while loading.
func WithReferenceResolution(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.resolveReferences = enabled
	}
}

// WithDocumentValidation validates the document before building.
func WithDocumentValidation(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.validate = enabled
	}
}

// WithBuilderLogger sets the logger used for build diagnostics.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder constructs a Builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build parses data and converts the request body of operationID into a form.
// The operation summary becomes the form title.
func (b *Builder) Build(ctx context.Context, data []byte, operationID string) (model.FormModel, error) {
	if err := ctx.Err(); err != nil {
		return model.FormModel{}, err
	}
	if len(data) == 0 {
		return model.FormModel{}, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: b.resolveReferences,
	}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("openapi: load document: %w", err)
	}
	if b.validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return model.FormModel{}, fmt.Errorf("openapi: validate: %w", err)
		}
	}

	operation := findOperation(doc, operationID)
	if operation == nil {
		return model.FormModel{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	schema := requestSchema(operation.RequestBody)
	if schema == nil || schema.Value == nil {
		return model.FormModel{}, fmt.Errorf("%w: %q has no request body schema", ErrOperationNotFound, operationID)
	}

	fields, err := convertProperties(schema.Value, "")
	if err != nil {
		return model.FormModel{}, err
	}
	form := model.FormModel{
		ID:          operationID,
		Title:       operation.Summary,
		Description: operation.Description,
		Fields:      fields,
		Metadata:    stringMap(formgenExtension(operation.Extensions)["metadata"]),
	}
	b.logger.Debug("form built", "operation", operationID, "fields", len(fields))
	return form, nil
}

// BuildSource loads src with loader and builds the form for operationID.
func (b *Builder) BuildSource(ctx context.Context, loader *Loader, src Source, operationID string) (model.FormModel, error) {
	if loader == nil {
		loader = NewLoader()
	}
	data, err := loader.Load(ctx, src)
	if err != nil {
		return model.FormModel{}, err
	}
	return b.Build(ctx, data, operationID)
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
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
			if id == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	for _, mt := range content {
		if mt != nil {
			return mt.Schema
		}
	}
	return nil
}

type orderedField struct {
	order int
	field model.Field
}

func convertProperties(schema *openapi3.Schema, prefix string) ([]model.Field, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	ordered := make([]orderedField, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		field, err := convertField(name, ref, required[name], model.JoinPath(prefix, name))
		if err != nil {
			return nil, err
		}
		order := len(schema.Properties) + 1
		if ref != nil && ref.Value != nil {
			if value, ok := intValue(formgenExtension(ref.Value.Extensions)["order"]); ok {
				order = value
			}
		}
		ordered = append(ordered, orderedField{order: order, field: field})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].field.Name < ordered[j].field.Name
	})

	fields := make([]model.Field, len(ordered))
	for idx, entry := range ordered {
		fields[idx] = entry.field
	}
	return fields, nil
}

func convertField(name string, ref *openapi3.SchemaRef, required bool, path string) (model.Field, error) {
	if ref == nil || ref.Value == nil {
		return model.Field{}, fmt.Errorf("openapi: %s: unresolved schema", path)
	}
	src := ref.Value
	ext := formgenExtension(src.Extensions)
	messages := stringMap(ext["messages"])

	field := model.Field{
		Name:         name,
		Label:        firstNonEmpty(stringValue(ext["label"]), src.Title),
		Placeholder:  stringValue(ext["placeholder"]),
		Description:  src.Description,
		Default:      src.Default,
		DisabledWhen: stringValue(ext["disabledWhen"]),
		Metadata:     stringMap(ext["metadata"]),
	}

	switch schemaType := firstSchemaType(src.Type); schemaType {
	case openapi3.TypeString, "":
		field.Type = model.FieldTypeString
		field.InputType = model.InputText
		switch src.Format {
		case "email":
			field.InputType = model.InputEmail
		case "date", "date-time":
			field.Type = model.FieldTypeDate
			field.InputType = model.InputDate
		}
	case openapi3.TypeNumber, openapi3.TypeInteger:
		field.Type = model.FieldTypeNumber
		field.InputType = model.InputNumber
	case openapi3.TypeBoolean:
		field.Type = model.FieldTypeBoolean
	case openapi3.TypeObject:
		field.Type = model.FieldTypeObject
		field.InputType = ""
		nested, err := convertProperties(src, path)
		if err != nil {
			return model.Field{}, err
		}
		field.Nested = nested
	case openapi3.TypeArray:
		field.Type = model.FieldTypeArray
		field.MinItems = int(src.MinItems)
		if src.MaxItems != nil {
			field.MaxItems = int(*src.MaxItems)
		}
		field.Dynamic = boolValue(ext["dynamic"])
		if src.Items != nil {
			item, err := convertField("", src.Items, false, model.JoinPath(path, model.Wildcard))
			if err != nil {
				return model.Field{}, err
			}
			field.Items = &item
		}
	default:
		return model.Field{}, fmt.Errorf("openapi: %s: unsupported type %q", path, schemaType)
	}
	if inputType := stringValue(ext["inputType"]); inputType != "" {
		field.InputType = inputType
	}

	label := firstNonEmpty(field.Label, name)
	if required {
		field.Validations = append(field.Validations, model.ValidationRule{
			Kind:    model.ValidationRuleRequired,
			Message: firstNonEmpty(messages[model.ValidationRuleRequired], label+" is required"),
		})
	}
	if src.Pattern != "" {
		field.Validations = append(field.Validations, model.ValidationRule{
			Kind:    model.ValidationRulePattern,
			Params:  map[string]string{"pattern": src.Pattern},
			Message: firstNonEmpty(messages[model.ValidationRulePattern], "Invalid "+strings.ToLower(label)),
		})
	}
	if src.MinLength > 0 {
		field.Validations = append(field.Validations, boundRule(model.ValidationRuleMinLength, strconv.FormatUint(src.MinLength, 10), messages))
	}
	if src.MaxLength != nil {
		field.Validations = append(field.Validations, boundRule(model.ValidationRuleMaxLength, strconv.FormatUint(*src.MaxLength, 10), messages))
	}
	if src.Min != nil {
		field.Validations = append(field.Validations, boundRule(model.ValidationRuleMin, strconv.FormatFloat(*src.Min, 'f', -1, 64), messages))
	}
	if src.Max != nil {
		field.Validations = append(field.Validations, boundRule(model.ValidationRuleMax, strconv.FormatFloat(*src.Max, 'f', -1, 64), messages))
	}
	custom, err := customRules(ext["rules"], path)
	if err != nil {
		return model.Field{}, err
	}
	field.Validations = append(field.Validations, custom...)
	return field, nil
}

func boundRule(kind, value string, messages map[string]string) model.ValidationRule {
	return model.ValidationRule{
		Kind:    kind,
		Params:  map[string]string{"value": value},
		Message: messages[kind],
	}
}

// customRules reads `x-formgen.rules`, a list of {name, message, async}
// entries resolved against the validation registry when the form is bound.
func customRules(raw any, path string) ([]model.ValidationRule, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("openapi: %s: %s.rules must be a list", path, extensionNamespace)
	}
	rules := make([]model.ValidationRule, 0, len(list))
	for idx, entry := range list {
		mapped, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("openapi: %s: rule %d must be an object", path, idx)
		}
		name := strings.TrimSpace(stringValue(mapped["name"]))
		if name == "" {
			return nil, fmt.Errorf("openapi: %s: rule %d has no name", path, idx)
		}
		kind := model.ValidationRuleValidate
		if boolValue(mapped["async"]) {
			kind = model.ValidationRuleValidateAsync
		}
		rules = append(rules, model.ValidationRule{
			Kind:    kind,
			Params:  map[string]string{"name": name},
			Message: stringValue(mapped["message"]),
		})
	}
	return rules, nil
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func formgenExtension(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	mapped, ok := raw[extensionNamespace].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return mapped
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

func stringMap(value any) map[string]string {
	mapped, ok := value.(map[string]any)
	if !ok || len(mapped) == 0 {
		return nil
	}
	out := make(map[string]string, len(mapped))
	for key, entry := range mapped {
		out[key] = stringValue(entry)
	}
	return out
}

func intValue(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func boolValue(value any) bool {
	typed, _ := value.(bool)
	return typed
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
