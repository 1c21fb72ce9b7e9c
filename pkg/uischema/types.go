package uischema

// Store holds the overlays loaded from one or more files, keyed by form ID.
type Store struct {
	operations map[string]Operation
}

// Operation is the overlay for a single form.
type Operation struct {
	ID     string
	Source string
	Form   FormConfig
	Fields map[string]FieldConfig
}

// FormConfig overrides form-level presentation.
type FormConfig struct {
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Metadata    map[string]string `json:"metadata" yaml:"metadata"`
}

// FieldConfig overrides one field. Messages are keyed by rule kind (required,
// pattern) or by custom rule name (notAdmin). Order reorders the field among
// its siblings; unordered siblings keep their relative position after the
// ordered ones.
type FieldConfig struct {
	Label        string            `json:"label" yaml:"label"`
	Placeholder  string            `json:"placeholder" yaml:"placeholder"`
	Description  string            `json:"description" yaml:"description"`
	InputType    string            `json:"inputType" yaml:"inputType"`
	DisabledWhen *string           `json:"disabledWhen" yaml:"disabledWhen"`
	Order        *int              `json:"order" yaml:"order"`
	Messages     map[string]string `json:"messages" yaml:"messages"`
	Metadata     map[string]string `json:"metadata" yaml:"metadata"`

	OriginalPath string `json:"-" yaml:"-"`
}
