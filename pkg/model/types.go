package model

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

const (
	ValidationRuleRequired      = "required"
	ValidationRulePattern       = "pattern"
	ValidationRuleMin           = "min"
	ValidationRuleMax           = "max"
	ValidationRuleMinLength     = "minLength"
	ValidationRuleMaxLength     = "maxLength"
	ValidationRuleValidate      = "validate"
	ValidationRuleValidateAsync = "validateAsync"
)

// Input types understood by the renderers. Empty falls back to InputText.
const (
	InputText   = "text"
	InputEmail  = "email"
	InputNumber = "number"
	InputDate   = "date"
)

// ValidationRule represents a single declarative constraint applied to a
// field. Message is the text surfaced to the user when the rule fails.
type ValidationRule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Field models an individual input (or group of inputs) inside a form.
type Field struct {
	Name         string            `json:"name"`
	Type         FieldType         `json:"type"`
	InputType    string            `json:"inputType,omitempty"`
	Label        string            `json:"label,omitempty"`
	Placeholder  string            `json:"placeholder,omitempty"`
	Description  string            `json:"description,omitempty"`
	Default      any               `json:"default,omitempty"`
	DisabledWhen string            `json:"disabledWhen,omitempty"`
	Nested       []Field           `json:"nested,omitempty"`
	Items        *Field            `json:"items,omitempty"`
	MinItems     int               `json:"minItems,omitempty"`
	MaxItems     int               `json:"maxItems,omitempty"`
	Dynamic      bool              `json:"dynamic,omitempty"`
	Validations  []ValidationRule  `json:"validations,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// FormModel is the top-level representation the controller binds and the
// renderers consume.
type FormModel struct {
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      []Field           `json:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Rule returns the first validation rule of the given kind.
func (f Field) Rule(kind string) (ValidationRule, bool) {
	for _, rule := range f.Validations {
		if rule.Kind == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// Required reports whether the field carries a required rule.
func (f Field) Required() bool {
	_, ok := f.Rule(ValidationRuleRequired)
	return ok
}
