package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/model"
)

// ErrUnknownRule is returned when a declarative rule references a custom
// check that was never registered.
var ErrUnknownRule = errors.New("validation: unknown rule")

// Registry stores named custom checks so declarative forms can reference
// them by name ("notAdmin", "emailAvailable").
type Registry struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	async  map[string]AsyncCheckFunc
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		checks: make(map[string]CheckFunc),
		async:  make(map[string]AsyncCheckFunc),
	}
}

// RegisterCheck adds a synchronous check. Duplicate names return an error.
func (r *Registry) RegisterCheck(name string, fn CheckFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("validation: check name and function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exists(name) {
		return fmt.Errorf("validation: check %q already registered", name)
	}
	r.checks[name] = fn
	return nil
}

// RegisterAsync adds an asynchronous check. Duplicate names return an error.
func (r *Registry) RegisterAsync(name string, fn AsyncCheckFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("validation: check name and function are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exists(name) {
		return fmt.Errorf("validation: check %q already registered", name)
	}
	r.async[name] = fn
	return nil
}

// MustRegisterCheck panics on registration failure.
func (r *Registry) MustRegisterCheck(name string, fn CheckFunc) {
	if err := r.RegisterCheck(name, fn); err != nil {
		panic(err)
	}
}

// MustRegisterAsync panics on registration failure.
func (r *Registry) MustRegisterAsync(name string, fn AsyncCheckFunc) {
	if err := r.RegisterAsync(name, fn); err != nil {
		panic(err)
	}
}

// List returns the sorted names of every registered check.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks)+len(r.async))
	for name := range r.checks {
		names = append(names, name)
	}
	for name := range r.async {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) exists(name string) bool {
	_, hasCheck := r.checks[name]
	_, hasAsync := r.async[name]
	return hasCheck || hasAsync
}

// Compile turns declarative model rules into a RuleSet. Custom rules are
// resolved from the registry; a nil registry only supports built-in kinds.
func (r *Registry) Compile(rules []model.ValidationRule) (RuleSet, error) {
	compiled := make([]Rule, 0, len(rules))
	for _, declared := range rules {
		rule, err := r.compileRule(declared)
		if err != nil {
			return RuleSet{}, err
		}
		compiled = append(compiled, rule)
	}
	return NewRuleSet(compiled...), nil
}

func (r *Registry) compileRule(declared model.ValidationRule) (Rule, error) {
	message := strings.TrimSpace(declared.Message)
	switch declared.Kind {
	case model.ValidationRuleRequired:
		return Required(message), nil
	case model.ValidationRulePattern:
		expr := declared.Params["pattern"]
		re, err := regexp.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("validation: compile pattern %q: %w", expr, err)
		}
		return Pattern(re, message), nil
	case model.ValidationRuleMin, model.ValidationRuleMax:
		limit, err := strconv.ParseFloat(strings.TrimSpace(declared.Params["value"]), 64)
		if err != nil {
			return Rule{}, fmt.Errorf("validation: %s rule requires numeric value: %w", declared.Kind, err)
		}
		if declared.Kind == model.ValidationRuleMin {
			return Min(limit, message), nil
		}
		return Max(limit, message), nil
	case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
		limit, err := strconv.Atoi(strings.TrimSpace(declared.Params["value"]))
		if err != nil {
			return Rule{}, fmt.Errorf("validation: %s rule requires integer value: %w", declared.Kind, err)
		}
		if declared.Kind == model.ValidationRuleMinLength {
			return MinLength(limit, message), nil
		}
		return MaxLength(limit, message), nil
	case model.ValidationRuleValidate, model.ValidationRuleValidateAsync:
		name := strings.TrimSpace(declared.Params["name"])
		if r == nil {
			return Rule{}, fmt.Errorf("%w: %q (no registry)", ErrUnknownRule, name)
		}
		r.mu.RLock()
		check, syncOK := r.checks[name]
		asyncCheck, asyncOK := r.async[name]
		r.mu.RUnlock()
		switch {
		case declared.Kind == model.ValidationRuleValidate && syncOK:
			return Validate(name, check, message), nil
		case declared.Kind == model.ValidationRuleValidateAsync && asyncOK:
			return ValidateAsync(name, asyncCheck, message), nil
		}
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, name)
	default:
		return Rule{}, fmt.Errorf("%w: kind %q", ErrUnknownRule, declared.Kind)
	}
}
