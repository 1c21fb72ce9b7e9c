package validation

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func emailRules() RuleSet {
	return NewRuleSet(
		Required("Email is required"),
		Pattern(emailPattern, "Invalid email form"),
		Validate("notAdmin", func(value any) error {
			if value == "admin@example.com" {
				return errors.New("Enter a different email address")
			}
			return nil
		}),
		Validate("notBlackListed", func(value any) error {
			text, _ := value.(string)
			if strings.HasSuffix(text, "baddomain.com") {
				return errors.New("This domain is not supported")
			}
			return nil
		}),
	)
}

func TestRuleSet_ValidateSyncFirstError(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  *FieldError
	}{
		{name: "empty", value: "", want: &FieldError{Kind: KindRequired, Rule: "required", Message: "Email is required"}},
		{name: "pattern", value: "nope", want: &FieldError{Kind: KindPattern, Rule: "pattern", Message: "Invalid email form"}},
		{name: "admin", value: "admin@example.com", want: &FieldError{Kind: KindValidate, Rule: "notAdmin", Message: "Enter a different email address"}},
		{name: "valid", value: "robin@example.com", want: nil},
	}
	rules := emailRules()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rules.ValidateSync(tc.value, CriteriaFirstError)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("field error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuleSet_CriteriaAllRecordsEveryFailure(t *testing.T) {
	got := emailRules().ValidateSync("bad@@baddomain.com", CriteriaAll)
	if got == nil {
		t.Fatalf("expected failure")
	}
	if got.Rule != "pattern" {
		t.Fatalf("expected pattern to stay primary, got %q", got.Rule)
	}
	if !got.Has("notBlackListed") {
		t.Fatalf("expected notBlackListed recorded, got %#v", got.Types)
	}

	blacklisted := emailRules().ValidateSync("robin@baddomain.com", CriteriaAll)
	want := &FieldError{
		Kind:    KindValidate,
		Rule:    "notBlackListed",
		Message: "This domain is not supported",
		Types:   map[string]string{"notBlackListed": "This domain is not supported"},
	}
	if diff := cmp.Diff(want, blacklisted); diff != "" {
		t.Fatalf("field error mismatch (-want +got):\n%s", diff)
	}
}

func TestRuleSet_ValidateRunsAsyncAfterSync(t *testing.T) {
	calls := 0
	rules := NewRuleSet(
		Required("required"),
		ValidateAsync("emailAvailable", func(ctx context.Context, value any) error {
			calls++
			if value == "taken@example.com" {
				return errors.New("Email already exists")
			}
			return nil
		}),
	)

	if fieldErr, err := rules.Validate(context.Background(), "", CriteriaFirstError); err != nil || fieldErr == nil || fieldErr.Kind != KindRequired {
		t.Fatalf("expected required failure, got %v %v", fieldErr, err)
	}
	if calls != 0 {
		t.Fatalf("async rule should not run when sync rules fail")
	}

	fieldErr, err := rules.Validate(context.Background(), "taken@example.com", CriteriaFirstError)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := &FieldError{Kind: KindAsync, Rule: "emailAvailable", Message: "Email already exists"}
	if diff := cmp.Diff(want, fieldErr); diff != "" {
		t.Fatalf("field error mismatch (-want +got):\n%s", diff)
	}
	if !rules.HasAsync() || !rules.Required() {
		t.Fatalf("expected rule set to report async and required")
	}
}

func TestRuleSet_ValidateAsyncHonoursCancellation(t *testing.T) {
	rules := NewRuleSet(ValidateAsync("slow", func(ctx context.Context, value any) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	fieldErr, err := rules.ValidateAsync(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if fieldErr != nil {
		t.Fatalf("expected no field error on cancellation, got %v", fieldErr)
	}
}

func TestBounds(t *testing.T) {
	rules := NewRuleSet(Min(18, "too young"), Max(120, "too old"), MaxLength(3, "too long"))
	if got := rules.ValidateSync(float64(10), CriteriaFirstError); got == nil || got.Kind != KindMin {
		t.Fatalf("expected min failure, got %v", got)
	}
	if got := rules.ValidateSync(float64(121), CriteriaFirstError); got == nil || got.Kind != KindMax {
		t.Fatalf("expected max failure, got %v", got)
	}
	if got := rules.ValidateSync(math.NaN(), CriteriaFirstError); got != nil {
		t.Fatalf("NaN should be left to the required rule, got %v", got)
	}
	if got := rules.ValidateSync("abcd", CriteriaFirstError); got == nil || got.Kind != KindMaxLength {
		t.Fatalf("expected maxLength failure, got %v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{" ", false},
		{math.NaN(), true},
		{float64(0), false},
		{time.Time{}, true},
		{time.Now(), false},
		{[]any{}, true},
		{map[string]any{"a": 1}, false},
		{[]string{}, true},
		{false, false},
	}
	for _, tc := range cases {
		if got := IsEmpty(tc.value); got != tc.want {
			t.Errorf("IsEmpty(%#v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestErrorsMessagesAndClone(t *testing.T) {
	errs := Errors{
		"email": {Kind: KindPattern, Rule: "pattern", Message: "Invalid email form", Types: map[string]string{
			"pattern":        "Invalid email form",
			"notBlackListed": "This domain is not supported",
		}},
		"channel": {Kind: KindRequired, Rule: "required", Message: "Channel is required"},
	}
	want := map[string][]string{
		"email":   {"Invalid email form", "This domain is not supported"},
		"channel": {"Channel is required"},
	}
	if diff := cmp.Diff(want, errs.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"channel", "email"}, errs.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	cloned := errs.Clone()
	cloned["email"].Types["pattern"] = "changed"
	if errs["email"].Types["pattern"] != "Invalid email form" {
		t.Fatalf("clone shares Types map with source")
	}
	if errs.Message("missing") != "" || errs.Message("channel") != "Channel is required" {
		t.Fatalf("unexpected Message lookups")
	}
}
