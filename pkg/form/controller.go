package form

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/internal/paths"
	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/condition/expr"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// DefaultsFunc resolves the initial values of the form. It may block on a
// remote lookup; Init waits for it.
type DefaultsFunc func(ctx context.Context) (map[string]any, error)

// Controller owns the state of one form.
type Controller struct {
	mu sync.Mutex

	mode           Mode
	reValidateMode Mode
	criteria       validation.Criteria
	defaultsFunc   DefaultsFunc
	logger         *slog.Logger
	newID          func() string
	compiler       condition.Compiler

	definition *model.FormModel
	fields     map[string]*field
	order      []string

	shape    map[string]any
	defaults map[string]any
	values   map[string]any

	dirty   map[string]bool
	touched map[string]bool
	errors  validation.Errors

	loading     bool
	initialized bool

	isSubmitting       bool
	isSubmitted        bool
	isSubmitSuccessful bool
	submitCount        int

	generations map[string]uint64
	pending     map[string]*pendingCheck
	inflight    int
	idle        chan struct{}

	// version counts value mutations; HandleSubmit compares it across
	// asynchronous validation.
	version uint64

	rowIDs    map[string][]string
	minRows   map[string]int
	fixedRows map[string]int
	watchers  []*watcher
	observers []*observer
	onSuccess []*successHook
	nextSubID uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithMode sets when fields validate before the first submission.
func WithMode(mode Mode) Option {
	return func(c *Controller) {
		if mode.valid() {
			c.mode = mode
		}
	}
}

// WithReValidateMode sets when fields validate after the first submission.
// Only ModeOnChange, ModeOnBlur and ModeOnSubmit are meaningful.
func WithReValidateMode(mode Mode) Option {
	return func(c *Controller) {
		switch mode {
		case ModeOnChange, ModeOnBlur, ModeOnSubmit:
			c.reValidateMode = mode
		}
	}
}

// WithCriteria selects whether a field records its first failing rule or
// every failing synchronous rule.
func WithCriteria(criteria validation.Criteria) Option {
	return func(c *Controller) {
		c.criteria = criteria
	}
}

// WithDefaults installs the loader Init uses to resolve default values.
func WithDefaults(fn DefaultsFunc) Option {
	return func(c *Controller) {
		c.defaultsFunc = fn
	}
}

// WithDefaultValues merges static defaults into the form shape.
func WithDefaultValues(values map[string]any) Option {
	return func(c *Controller) {
		c.shape = merge(c.shape, values)
	}
}

// WithLogger routes controller diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator overrides the generator used for field-array row identities.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithConditionCompiler overrides the compiler used for disablement
// expressions.
func WithConditionCompiler(compiler condition.Compiler) Option {
	return func(c *Controller) {
		if compiler != nil {
			c.compiler = compiler
		}
	}
}

// New constructs a Controller. The form starts in the loading state until Init
// resolves the defaults.
func New(options ...Option) *Controller {
	c := &Controller{
		mode:           ModeOnSubmit,
		reValidateMode: ModeOnChange,
		criteria:       validation.CriteriaFirstError,
		logger:         slog.New(slog.DiscardHandler),
		newID:          uuid.NewString,
		compiler:       expr.New(),
		fields:         make(map[string]*field),
		shape:          make(map[string]any),
		values:         make(map[string]any),
		dirty:          make(map[string]bool),
		touched:        make(map[string]bool),
		errors:         validation.Errors{},
		loading:        true,
		generations:    make(map[string]uint64),
		pending:        make(map[string]*pendingCheck),
		rowIDs:         make(map[string][]string),
		minRows:        make(map[string]int),
		fixedRows:      make(map[string]int),
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	return c
}

// Mode reports the validation mode used before the first submission.
func (c *Controller) Mode() Mode { return c.mode }

// ReValidateMode reports the validation mode used after the first submission.
func (c *Controller) ReValidateMode() Mode { return c.reValidateMode }

// Definition returns the form model passed to Bind, if any.
func (c *Controller) Definition() (model.FormModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.definition == nil {
		return model.FormModel{}, false
	}
	return *c.definition, true
}

// Init resolves the default values and leaves the loading state. When the
// defaults loader fails the form stays loading and the error is returned.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	ev := c.eventLocked(false, "")
	c.mu.Unlock()
	c.dispatch(ev)

	var resolved map[string]any
	if c.defaultsFunc != nil {
		fetched, err := c.defaultsFunc(ctx)
		if err != nil {
			c.logger.Error("form defaults failed", "error", err)
			return fmt.Errorf("form: resolve defaults: %w", err)
		}
		resolved = fetched
	}

	c.mu.Lock()
	c.defaults = merge(c.shape, resolved)
	c.resetLocked()
	c.loading = false
	c.initialized = true
	ev = c.eventLocked(true, "")
	c.mu.Unlock()

	c.logger.Debug("form initialised", "fields", len(c.order))
	c.dispatch(ev)
	return nil
}

// Register binds a path to a rule set. Paths may use "*" in place of a
// field-array index ("phNumbers.*.number"). Registering an existing path
// replaces its rules.
func (c *Controller) Register(path string, rules validation.RuleSet, options ...FieldOption) error {
	clean := paths.Normalize(path)
	if clean == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	f := &field{path: clean, rules: rules}
	for _, option := range options {
		if option != nil {
			option(f)
		}
	}
	if expression := strings.TrimSpace(f.disabledExpr); expression != "" && f.disabled == nil {
		fn, err := c.compiler.Compile(expression)
		if err != nil {
			return fmt.Errorf("form: compile disablement for %q: %w", clean, err)
		}
		f.disabled = fn
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.fields[clean]; !exists {
		c.order = append(c.order, clean)
	}
	c.fields[clean] = f
	return nil
}

// Bind registers every leaf of a declarative form. Declarative rules are
// compiled through registry, number and date fields get the matching
// coercion, and the form shape seeds the default values.
func (c *Controller) Bind(definition model.FormModel, registry *validation.Registry) error {
	for _, leaf := range model.Leaves(definition) {
		rules, err := registry.Compile(leaf.Field.Validations)
		if err != nil {
			return fmt.Errorf("form: bind %q: %w", leaf.Path, err)
		}
		options := []FieldOption{WithCoercion(coercionFor(leaf.Field))}
		if leaf.Field.DisabledWhen != "" {
			options = append(options, DisabledWhenExpr(leaf.Field.DisabledWhen))
		}
		if err := c.Register(leaf.Path, rules, options...); err != nil {
			return err
		}
	}
	bindArrays(c, definition.Fields, "")

	c.mu.Lock()
	defer c.mu.Unlock()
	copied := definition
	c.definition = &copied
	c.shape = merge(model.ZeroValues(definition), c.shape)
	return nil
}

func bindArrays(c *Controller, fields []model.Field, prefix string) {
	for _, f := range fields {
		path := model.JoinPath(prefix, f.Name)
		switch f.Type {
		case model.FieldTypeObject:
			bindArrays(c, f.Nested, path)
		case model.FieldTypeArray:
			c.mu.Lock()
			if f.Dynamic {
				c.minRows[path] = f.MinItems
			} else if f.MaxItems > 0 {
				c.fixedRows[path] = f.MaxItems
			}
			c.mu.Unlock()
		}
	}
}

// Registered lists the registered path patterns in registration order.
func (c *Controller) Registered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// IsDisabled reports whether the field at path is currently disabled.
func (c *Controller) IsDisabled(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fieldForLocked(paths.Normalize(path))
	return f != nil && c.disabledLocked(f)
}

func coercionFor(f model.Field) Coercion {
	switch f.Type {
	case model.FieldTypeNumber:
		return CoerceNumber
	case model.FieldTypeDate:
		return CoerceDate
	default:
		return CoerceNone
	}
}

// merge deep copies base and overlays values on top. Maps merge recursively;
// every other value, lists included, replaces what base holds.
func merge(base, overlay map[string]any) map[string]any {
	out := paths.CloneMap(base)
	for key, value := range overlay {
		nested, isMap := value.(map[string]any)
		existing, existingIsMap := out[key].(map[string]any)
		if isMap && existingIsMap {
			out[key] = merge(existing, nested)
			continue
		}
		out[key] = paths.Clone(value)
	}
	return out
}
