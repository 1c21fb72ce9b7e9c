package validation

import (
	"context"
	"errors"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// CheckFunc is a synchronous custom rule. A nil return means the value passes;
// the error text becomes the field message.
type CheckFunc func(value any) error

// AsyncCheckFunc is an asynchronous custom rule (typically backed by a remote
// lookup). Implementations must honour ctx cancellation.
type AsyncCheckFunc func(ctx context.Context, value any) error

// Criteria controls how many failures a rule set records per evaluation.
type Criteria int

const (
	// CriteriaFirstError stops at the first failing rule.
	CriteriaFirstError Criteria = iota
	// CriteriaAll evaluates every synchronous rule and records each failure in
	// FieldError.Types. Asynchronous rules still run only once the synchronous
	// rules pass.
	CriteriaAll
)

// Rule is a single compiled constraint.
type Rule struct {
	Kind    Kind
	Name    string
	Message string

	check      CheckFunc
	checkAsync AsyncCheckFunc
}

// Async reports whether the rule must be evaluated asynchronously.
func (r Rule) Async() bool { return r.checkAsync != nil }

// Required fails on empty values: nil, "", NaN, zero dates, empty lists.
func Required(message string) Rule {
	return Rule{
		Kind:    KindRequired,
		Name:    string(KindRequired),
		Message: message,
		check: func(value any) error {
			if IsEmpty(value) {
				return errors.New(message)
			}
			return nil
		},
	}
}

// Pattern fails when a non-empty string does not match re.
func Pattern(re *regexp.Regexp, message string) Rule {
	return Rule{
		Kind:    KindPattern,
		Name:    string(KindPattern),
		Message: message,
		check: func(value any) error {
			text, ok := value.(string)
			if !ok || text == "" || re == nil {
				return nil
			}
			if !re.MatchString(text) {
				return errors.New(message)
			}
			return nil
		},
	}
}

// Min fails when a number is below limit.
func Min(limit float64, message string) Rule {
	return numberBound(KindMin, message, func(n float64) bool { return n < limit })
}

// Max fails when a number is above limit.
func Max(limit float64, message string) Rule {
	return numberBound(KindMax, message, func(n float64) bool { return n > limit })
}

// MinLength fails when a non-empty string is shorter than limit runes.
func MinLength(limit int, message string) Rule {
	return lengthBound(KindMinLength, message, func(n int) bool { return n < limit })
}

// MaxLength fails when a string is longer than limit runes.
func MaxLength(limit int, message string) Rule {
	return lengthBound(KindMaxLength, message, func(n int) bool { return n > limit })
}

// Validate wraps a named synchronous custom rule. Message is used when fn
// returns an error with empty text.
func Validate(name string, fn CheckFunc, message ...string) Rule {
	return Rule{
		Kind:    KindValidate,
		Name:    name,
		Message: strings.Join(message, " "),
		check:   fn,
	}
}

// ValidateAsync wraps a named asynchronous custom rule.
func ValidateAsync(name string, fn AsyncCheckFunc, message ...string) Rule {
	return Rule{
		Kind:       KindAsync,
		Name:       name,
		Message:    strings.Join(message, " "),
		checkAsync: fn,
	}
}

// RuleSet is the ordered rule list bound to one field path.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a rule set. Rules run in the given order.
func NewRuleSet(rules ...Rule) RuleSet {
	return RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the rules.
func (s RuleSet) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Empty reports whether the set has no rules.
func (s RuleSet) Empty() bool { return len(s.rules) == 0 }

// HasAsync reports whether any rule is asynchronous.
func (s RuleSet) HasAsync() bool {
	for _, rule := range s.rules {
		if rule.Async() {
			return true
		}
	}
	return false
}

// Required reports whether the set carries a required rule.
func (s RuleSet) Required() bool {
	for _, rule := range s.rules {
		if rule.Kind == KindRequired {
			return true
		}
	}
	return false
}

// ValidateSync evaluates the synchronous rules. It returns nil when the value
// passes.
func (s RuleSet) ValidateSync(value any, criteria Criteria) *FieldError {
	var result *FieldError
	for _, rule := range s.rules {
		if rule.check == nil {
			continue
		}
		err := rule.check(value)
		if err == nil {
			continue
		}
		message := messageFor(rule, err)
		if result == nil {
			result = &FieldError{Kind: rule.Kind, Rule: rule.Name, Message: message}
			if criteria == CriteriaFirstError {
				return result
			}
			result.Types = map[string]string{}
		}
		if _, seen := result.Types[rule.Name]; !seen {
			result.Types[rule.Name] = message
		}
	}
	return result
}

// ValidateAsync evaluates the asynchronous rules in order and stops at the
// first failure. A non-nil error is returned only when ctx ends before the
// checks settle; callers should then discard the result.
func (s RuleSet) ValidateAsync(ctx context.Context, value any) (*FieldError, error) {
	for _, rule := range s.rules {
		if rule.checkAsync == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := rule.checkAsync(ctx, value)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			return &FieldError{Kind: KindAsync, Rule: rule.Name, Message: messageFor(rule, err)}, nil
		}
	}
	return nil, nil
}

// Validate runs the synchronous rules and, when they pass, the asynchronous
// rules.
func (s RuleSet) Validate(ctx context.Context, value any, criteria Criteria) (*FieldError, error) {
	if fieldErr := s.ValidateSync(value, criteria); fieldErr != nil {
		return fieldErr, nil
	}
	return s.ValidateAsync(ctx, value)
}

// IsEmpty reports whether a value counts as missing for required checks.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return math.IsNaN(v)
	case time.Time:
		return v.IsZero()
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func messageFor(rule Rule, err error) string {
	if err != nil {
		if text := strings.TrimSpace(err.Error()); text != "" {
			return text
		}
	}
	if rule.Message != "" {
		return rule.Message
	}
	return rule.Name
}

func numberBound(kind Kind, message string, violates func(float64) bool) Rule {
	return Rule{
		Kind:    kind,
		Name:    string(kind),
		Message: message,
		check: func(value any) error {
			n, ok := toNumber(value)
			if !ok || math.IsNaN(n) {
				return nil
			}
			if violates(n) {
				return errors.New(message)
			}
			return nil
		},
	}
}

func lengthBound(kind Kind, message string, violates func(int) bool) Rule {
	return Rule{
		Kind:    kind,
		Name:    string(kind),
		Message: message,
		check: func(value any) error {
			text, ok := value.(string)
			if !ok || text == "" {
				return nil
			}
			if violates(utf8.RuneCountInString(text)) {
				return errors.New(message)
			}
			return nil
		},
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
