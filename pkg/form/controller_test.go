package form

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func testDefinition() model.FormModel {
	return model.FormModel{
		ID: "signup",
		Fields: []model.Field{
			{Name: "username", Type: model.FieldTypeString, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleRequired, Message: "Username is required"},
			}},
			{Name: "email", Type: model.FieldTypeString, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleRequired, Message: "Email is required"},
				{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": `^[^@\s]+@[^@\s]+$`}, Message: "Invalid email form"},
				{Kind: model.ValidationRuleValidate, Params: map[string]string{"name": "notAdmin"}, Message: "Enter a different email address"},
			}},
			{Name: "channel", Type: model.FieldTypeString, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleRequired, Message: "Channel is required"},
			}},
			{Name: "social", Type: model.FieldTypeObject, Nested: []model.Field{
				{Name: "twitter", Type: model.FieldTypeString, DisabledWhen: `channel == ""`, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleRequired, Message: "Twitter is required"},
				}},
				{Name: "facebook", Type: model.FieldTypeString},
			}},
			{Name: "phoneNumbers", Type: model.FieldTypeArray, MaxItems: 2, Items: &model.Field{Type: model.FieldTypeString}},
			{Name: "phNumbers", Type: model.FieldTypeArray, Dynamic: true, MinItems: 1, Items: &model.Field{
				Type: model.FieldTypeObject,
				Nested: []model.Field{
					{Name: "number", Type: model.FieldTypeString, InputType: model.InputNumber, Validations: []model.ValidationRule{
						{Kind: model.ValidationRuleRequired, Message: "Number is required"},
					}},
				},
			}},
			{Name: "age", Type: model.FieldTypeNumber, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleRequired, Message: "Age is required"},
			}},
			{Name: "dob", Type: model.FieldTypeDate, Validations: []model.ValidationRule{
				{Kind: model.ValidationRuleRequired, Message: "Date of birth is required"},
			}},
		},
	}
}

func testRegistry() *validation.Registry {
	registry := validation.NewRegistry()
	registry.MustRegisterCheck("notAdmin", func(value any) error {
		if value == "admin@example.com" {
			return errors.New("Enter a different email address")
		}
		return nil
	})
	return registry
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("row-%d", next)
	}
}

var testDOB = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, options ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithIDGenerator(sequentialIDs()),
		WithDefaults(func(context.Context) (map[string]any, error) {
			return map[string]any{
				"username": "Batman",
				"email":    "Sincere@april.biz",
				"dob":      testDOB,
			}, nil
		}),
	}
	ctrl := New(append(base, options...)...)
	if err := ctrl.Bind(testDefinition(), testRegistry()); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return ctrl
}

func TestInit_ResolvesDefaultsOverFormShape(t *testing.T) {
	ctrl := newTestController(t)

	want := map[string]any{
		"username":     "Batman",
		"email":        "Sincere@april.biz",
		"channel":      "",
		"social":       map[string]any{"twitter": "", "facebook": ""},
		"phoneNumbers": []any{"", ""},
		"phNumbers":    []any{map[string]any{"number": ""}},
		"age":          float64(0),
		"dob":          testDOB,
	}
	if diff := cmp.Diff(want, ctrl.GetValues()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	state := ctrl.State()
	if state.IsLoading || state.IsDirty || state.IsSubmitted {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if state.IsValid {
		t.Fatalf("expected empty channel to make the form invalid")
	}
}

func TestInit_LoadingUntilDefaultsResolve(t *testing.T) {
	release := make(chan struct{})
	ctrl := New(WithDefaults(func(ctx context.Context) (map[string]any, error) {
		<-release
		return map[string]any{"username": "Batman"}, nil
	}))

	done := make(chan error, 1)
	go func() { done <- ctrl.Init(context.Background()) }()

	if !ctrl.State().IsLoading {
		t.Fatalf("expected loading before defaults resolve")
	}
	if err := ctrl.SetValue(context.Background(), "username", "x", SetValueOptions{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("init: %v", err)
	}
	if ctrl.State().IsLoading {
		t.Fatalf("expected loading to clear")
	}
}

func TestInit_FailureKeepsLoading(t *testing.T) {
	boom := errors.New("boom")
	ctrl := New(WithDefaults(func(context.Context) (map[string]any, error) { return nil, boom }))
	if err := ctrl.Init(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !ctrl.State().IsLoading {
		t.Fatalf("expected form to stay loading")
	}
}

func TestHandleSubmit_RequiredMissingBlocksOnValid(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	if err := ctrl.Change(ctx, "username", ""); err != nil {
		t.Fatalf("change: %v", err)
	}

	var invalid validation.Errors
	err := ctrl.HandleSubmit(ctx,
		func(context.Context, map[string]any) error {
			t.Fatalf("onValid must not run")
			return nil
		},
		func(_ context.Context, errs validation.Errors) { invalid = errs },
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := map[string]validation.Kind{
		"username":           validation.KindRequired,
		"channel":            validation.KindRequired,
		"phNumbers.0.number": validation.KindRequired,
	}
	got := map[string]validation.Kind{}
	for path, fieldErr := range invalid {
		got[path] = fieldErr.Kind
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("error kinds mismatch (-want +got):\n%s", diff)
	}

	state := ctrl.State()
	if !state.IsSubmitted || state.IsSubmitSuccessful || state.SubmitCount != 1 || state.IsSubmitting {
		t.Fatalf("unexpected submit flags: %+v", state)
	}
}

func TestHandleSubmit_DisabledFieldSkipsValidation(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")

	if !ctrl.IsDisabled("social.twitter") {
		t.Fatalf("expected twitter disabled while channel is empty")
	}
	_ = ctrl.Change(ctx, "channel", "X")
	if ctrl.IsDisabled("social.twitter") {
		t.Fatalf("expected twitter enabled once channel is set")
	}

	var invalid validation.Errors
	_ = ctrl.HandleSubmit(ctx, nil, func(_ context.Context, errs validation.Errors) { invalid = errs })
	if invalid.Message("social.twitter") != "Twitter is required" {
		t.Fatalf("expected twitter required once enabled, got %v", invalid)
	}

	_ = ctrl.Change(ctx, "channel", "")
	if _, ok := ctrl.State().Errors["social.twitter"]; ok {
		t.Fatalf("expected disabled field error to clear")
	}
	if got := ctrl.WatchValue("social.twitter"); got != "" {
		t.Fatalf("disabled field should keep its value, got %v", got)
	}
}

func TestHandleSubmit_OnValidErrorMarksUnsuccessful(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	_ = ctrl.Change(ctx, "channel", "X")
	_ = ctrl.Change(ctx, "social.twitter", "@x")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")

	boom := errors.New("boom")
	err := ctrl.HandleSubmit(ctx, func(context.Context, map[string]any) error { return boom }, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ctrl.State().IsSubmitSuccessful {
		t.Fatalf("expected unsuccessful submit")
	}
}

func TestChange_ValidationModes(t *testing.T) {
	cases := []struct {
		mode        Mode
		afterChange bool
		afterBlur   bool
		afterRetype bool
	}{
		{mode: ModeOnSubmit, afterChange: false, afterBlur: false, afterRetype: false},
		{mode: ModeOnChange, afterChange: true, afterBlur: true, afterRetype: true},
		{mode: ModeOnBlur, afterChange: false, afterBlur: true, afterRetype: true},
		{mode: ModeOnTouched, afterChange: false, afterBlur: true, afterRetype: true},
		{mode: ModeAll, afterChange: true, afterBlur: true, afterRetype: true},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			ctrl := newTestController(t, WithMode(tc.mode))
			ctx := context.Background()
			hasError := func() bool {
				_, ok := ctrl.State().Errors["email"]
				return ok
			}

			_ = ctrl.Change(ctx, "email", "not-an-email")
			if got := hasError(); got != tc.afterChange {
				t.Fatalf("after change: want error=%v, got %v", tc.afterChange, got)
			}
			_ = ctrl.Blur(ctx, "email")
			if got := hasError(); got != tc.afterBlur {
				t.Fatalf("after blur: want error=%v, got %v", tc.afterBlur, got)
			}
			_ = ctrl.Change(ctx, "email", "still-bad")
			if got := hasError(); got != tc.afterRetype {
				t.Fatalf("after retype: want error=%v, got %v", tc.afterRetype, got)
			}
		})
	}
}

func TestChange_ReValidatesAfterSubmit(t *testing.T) {
	ctrl := newTestController(t, WithMode(ModeOnSubmit), WithReValidateMode(ModeOnChange))
	ctx := context.Background()

	_ = ctrl.HandleSubmit(ctx, nil, nil)
	if ctrl.State().Errors.Message("channel") != "Channel is required" {
		t.Fatalf("expected channel error after submit")
	}
	_ = ctrl.Change(ctx, "channel", "X")
	if _, ok := ctrl.State().Errors["channel"]; ok {
		t.Fatalf("expected channel error to clear on change after submit")
	}
}

func TestIsValid_TracksLatestEditInSubmitMode(t *testing.T) {
	ctrl := newTestController(t, WithMode(ModeOnSubmit))
	ctx := context.Background()

	_ = ctrl.Change(ctx, "channel", "X")
	_ = ctrl.Change(ctx, "social.twitter", "@x")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")
	if !ctrl.State().IsValid {
		t.Fatalf("expected valid form")
	}
	_ = ctrl.Change(ctx, "email", "admin@example.com")
	state := ctrl.State()
	if state.IsValid {
		t.Fatalf("expected IsValid to drop on invalid edit")
	}
	if len(state.Errors) != 0 {
		t.Fatalf("onSubmit mode should not surface errors yet: %v", state.Errors)
	}
}

func TestChange_CoercesNumbersAndDates(t *testing.T) {
	ctrl := newTestController(t, WithMode(ModeOnChange))
	ctx := context.Background()

	_ = ctrl.Change(ctx, "age", "30")
	_ = ctrl.Change(ctx, "dob", "2000-01-01")
	if got := ctrl.WatchValue("age"); got != float64(30) {
		t.Fatalf("expected 30, got %#v", got)
	}
	if got, _ := ctrl.WatchValue("dob").(time.Time); !got.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2000-01-01, got %v", got)
	}

	_ = ctrl.Change(ctx, "age", "")
	age, _ := ctrl.WatchValue("age").(float64)
	if !math.IsNaN(age) {
		t.Fatalf("expected NaN for empty number, got %v", age)
	}
	if ctrl.State().Errors.Message("age") != "Age is required" {
		t.Fatalf("expected age required error")
	}
	if err := ctrl.Change(ctx, "unknown", "x"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestSetValue_Options(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	before := ctrl.GetValues()

	if err := ctrl.SetValue(ctx, "phoneNumbers.0", "123456789", SetValueOptions{}); err != nil {
		t.Fatalf("set value: %v", err)
	}
	after := ctrl.GetValues()
	if diff := cmp.Diff([]any{"123456789", ""}, after["phoneNumbers"]); diff != "" {
		t.Fatalf("phone slots mismatch (-want +got):\n%s", diff)
	}
	delete(before, "phoneNumbers")
	delete(after, "phoneNumbers")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("other values changed (-want +got):\n%s", diff)
	}
	state := ctrl.State()
	if state.IsDirty || len(state.TouchedFields) != 0 || len(state.Errors) != 0 {
		t.Fatalf("plain SetValue must not dirty, touch or validate: %+v", state)
	}

	err := ctrl.SetValue(ctx, "username", "", SetValueOptions{ShouldValidate: true, ShouldDirty: true, ShouldTouch: true})
	if err != nil {
		t.Fatalf("set value: %v", err)
	}
	state = ctrl.State()
	wantFlags := map[string]bool{"username": true}
	if diff := cmp.Diff(wantFlags, state.DirtyFields); diff != "" {
		t.Fatalf("dirty mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantFlags, state.TouchedFields); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if state.Errors.Message("username") != "Username is required" {
		t.Fatalf("expected username error, got %v", state.Errors)
	}
}

func TestSetValue_RowGrowsIdentities(t *testing.T) {
	ctrl := newTestController(t)
	rows := ctrl.FieldArray("phNumbers")

	err := ctrl.SetValue(context.Background(), "phNumbers.1", map[string]any{"number": "112312"}, SetValueOptions{})
	if err != nil {
		t.Fatalf("set value: %v", err)
	}
	got := rows.Fields()
	if len(got) != 2 || got[1].ID == "" || got[0].ID == got[1].ID {
		t.Fatalf("expected two rows with distinct ids, got %+v", got)
	}
	if diff := cmp.Diff(map[string]any{"number": "112312"}, got[1].Value); diff != "" {
		t.Fatalf("row value mismatch (-want +got):\n%s", diff)
	}
}

func TestGetValuesOf(t *testing.T) {
	ctrl := newTestController(t)
	want := map[string]any{"username": "Batman", "email": "Sincere@april.biz", "missing": nil}
	if diff := cmp.Diff(want, ctrl.GetValuesOf("username", "email", "missing")); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
	values := ctrl.GetValues()
	values["username"] = "mutated"
	if got, _ := ctrl.GetValue("username"); got != "Batman" {
		t.Fatalf("GetValues must return a copy, got %v", got)
	}
}

func TestTrigger(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()

	ok, err := ctrl.Trigger(ctx, "channel")
	if err != nil || ok {
		t.Fatalf("expected invalid channel, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff([]string{"channel"}, ctrl.State().Errors.Paths()); diff != "" {
		t.Fatalf("only channel should be validated (-want +got):\n%s", diff)
	}

	ok, err = ctrl.Trigger(ctx, "username", "email")
	if err != nil || !ok {
		t.Fatalf("expected valid username/email, got ok=%v err=%v", ok, err)
	}
	ok, err = ctrl.Trigger(ctx, "phNumbers")
	if err != nil || ok {
		t.Fatalf("expected empty row number to fail, got ok=%v err=%v", ok, err)
	}
	if _, err := ctrl.Trigger(ctx, "nope"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	ok, err = ctrl.Trigger(ctx)
	if err != nil || ok {
		t.Fatalf("expected whole form invalid, got ok=%v err=%v", ok, err)
	}
}

func TestReset_AfterSuccessfulSubmit(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers", WithMinRows(1))
	initialID := rows.Fields()[0].ID

	_ = ctrl.Change(ctx, "channel", "X")
	_ = ctrl.Change(ctx, "social.twitter", "@x")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")
	_ = ctrl.Blur(ctx, "channel")
	if err := rows.Append(ctx, map[string]any{"number": "2"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var submitted map[string]any
	if err := ctrl.HandleSubmit(ctx, func(_ context.Context, values map[string]any) error {
		submitted = values
		return nil
	}, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted == nil || !ctrl.State().IsSubmitSuccessful {
		t.Fatalf("expected successful submit")
	}

	ctrl.Reset()
	state := ctrl.State()
	if state.IsDirty || len(state.TouchedFields) != 0 || state.IsSubmitted || state.IsSubmitSuccessful {
		t.Fatalf("expected clean state after reset: %+v", state)
	}
	if state.SubmitCount != 1 {
		t.Fatalf("submit count must survive reset, got %d", state.SubmitCount)
	}
	if diff := cmp.Diff(ctrl.Defaults(), ctrl.GetValues()); diff != "" {
		t.Fatalf("values not restored (-want +got):\n%s", diff)
	}
	after := rows.Fields()
	if len(after) != 1 || after[0].ID == initialID {
		t.Fatalf("expected a single row with a fresh identity, got %+v", after)
	}
}

func TestResetWith_InstallsNewDefaults(t *testing.T) {
	ctrl := newTestController(t)
	ctrl.ResetWith(map[string]any{"username": "Robin"})
	if got := ctrl.WatchValue("username"); got != "Robin" {
		t.Fatalf("expected Robin, got %v", got)
	}
	if got := ctrl.WatchValue("channel"); got != "" {
		t.Fatalf("shape values must survive, got %v", got)
	}
	_ = ctrl.Change(context.Background(), "username", "Robin")
	if ctrl.State().IsDirty {
		t.Fatalf("value equal to new default must not be dirty")
	}
}

func TestDirty_ClearsWhenValueReturnsToDefault(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	_ = ctrl.Change(ctx, "username", "Robin")
	if !ctrl.State().IsDirty {
		t.Fatalf("expected dirty after edit")
	}
	_ = ctrl.Change(ctx, "username", "Batman")
	if ctrl.State().IsDirty {
		t.Fatalf("expected clean once value matches the default")
	}
}

func TestWatchAndSubscribe(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()

	var watched []string
	sub := ctrl.Watch(func(values map[string]any, changed string) {
		watched = append(watched, fmt.Sprintf("%s=%v", changed, values["username"]))
	}, "username")

	var states []FormState
	stateSub := ctrl.Subscribe(func(state FormState) { states = append(states, state) })

	_ = ctrl.Change(ctx, "username", "Robin")
	_ = ctrl.Change(ctx, "channel", "X")
	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = ctrl.Change(ctx, "username", "Nightwing")

	if diff := cmp.Diff([]string{"username=Robin"}, watched); diff != "" {
		t.Fatalf("watch calls mismatch (-want +got):\n%s", diff)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 state notifications, got %d", len(states))
	}
	if !states[0].IsDirty || !states[0].DirtyFields["username"] {
		t.Fatalf("expected dirty username in first snapshot: %+v", states[0])
	}

	stateSub.Unsubscribe()
	_ = ctrl.Change(ctx, "username", "Robin")
	if len(states) != 3 {
		t.Fatalf("unsubscribed observer still notified")
	}
}

func TestObserverCanResetAfterSuccess(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	ctrl.Subscribe(func(state FormState) {
		if state.IsSubmitSuccessful {
			ctrl.Reset()
		}
	})
	_ = ctrl.Change(ctx, "username", "Robin")
	_ = ctrl.Change(ctx, "channel", "X")
	_ = ctrl.Change(ctx, "social.twitter", "@x")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")

	if err := ctrl.HandleSubmit(ctx, func(context.Context, map[string]any) error { return nil }, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := ctrl.WatchValue("username"); got != "Batman" {
		t.Fatalf("expected defaults restored by observer, got %v", got)
	}
}

func TestRegister_DisabledExpressionError(t *testing.T) {
	ctrl := New()
	err := ctrl.Register("x", validation.NewRuleSet(), DisabledWhenExpr(`channel ==`))
	if err == nil || !strings.Contains(err.Error(), "compile disablement") {
		t.Fatalf("expected compile error, got %v", err)
	}
	if err := ctrl.Register(" ", validation.NewRuleSet()); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestShouldSkipValidation(t *testing.T) {
	cases := []struct {
		name                     string
		blur, touched, submitted bool
		mode, reValidate         Mode
		want                     bool
	}{
		{name: "all never skips", mode: ModeAll, reValidate: ModeOnSubmit, want: false},
		{name: "touched before blur", mode: ModeOnTouched, reValidate: ModeOnChange, want: true},
		{name: "touched on blur", blur: true, mode: ModeOnTouched, reValidate: ModeOnChange, want: false},
		{name: "touched change after touch", touched: true, mode: ModeOnTouched, reValidate: ModeOnChange, want: false},
		{name: "blur mode change", mode: ModeOnBlur, reValidate: ModeOnChange, want: true},
		{name: "change mode blur", blur: true, mode: ModeOnChange, reValidate: ModeOnChange, want: true},
		{name: "submit mode", mode: ModeOnSubmit, reValidate: ModeOnChange, want: true},
		{name: "submitted revalidate change", submitted: true, mode: ModeOnSubmit, reValidate: ModeOnChange, want: false},
		{name: "submitted revalidate blur on change", submitted: true, mode: ModeOnSubmit, reValidate: ModeOnBlur, want: true},
		{name: "submitted revalidate submit", submitted: true, mode: ModeOnChange, reValidate: ModeOnSubmit, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldSkipValidation(tc.blur, tc.touched, tc.submitted, tc.mode, tc.reValidate)
			if got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSetValue_KeepsListBounds(t *testing.T) {
	cases := []struct {
		name  string
		path  string
		value any
		want  error
	}{
		{name: "fixed slot past the end", path: "phoneNumbers.2", value: "555", want: ErrInvalidPath},
		{name: "fixed list with fewer slots", path: "phoneNumbers", value: []any{"555"}, want: ErrInvalidPath},
		{name: "fixed list with more slots", path: "phoneNumbers", value: []any{"1", "2", "3"}, want: ErrInvalidPath},
		{name: "row after a gap", path: "phNumbers.3", value: map[string]any{"number": "1"}, want: ErrInvalidPath},
		{name: "row field after a gap", path: "phNumbers.2.number", value: "1", want: ErrInvalidPath},
		{name: "row segment is not an index", path: "phNumbers.first", value: "1", want: ErrInvalidPath},
		{name: "rows emptied", path: "phNumbers", value: []any{}, want: ErrMinRows},
		{name: "rows replaced by a scalar", path: "phNumbers", value: "none", want: ErrInvalidPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := newTestController(t)
			before := ctrl.GetValues()

			err := ctrl.SetValue(context.Background(), tc.path, tc.value, SetValueOptions{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if diff := cmp.Diff(before, ctrl.GetValues()); diff != "" {
				t.Fatalf("rejected write changed values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetValue_ListWritesWithinBounds(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()
	rows := ctrl.FieldArray("phNumbers", WithMinRows(1))

	if err := ctrl.SetValue(ctx, "phoneNumbers", []any{"1", "2"}, SetValueOptions{}); err != nil {
		t.Fatalf("replace fixed list: %v", err)
	}
	if err := ctrl.SetValue(ctx, "phoneNumbers.1", "3", SetValueOptions{}); err != nil {
		t.Fatalf("set fixed slot: %v", err)
	}
	if err := ctrl.SetValue(ctx, "phNumbers.1", map[string]any{"number": "4"}, SetValueOptions{}); err != nil {
		t.Fatalf("append row by index: %v", err)
	}

	want := map[string]any{
		"phoneNumbers": []any{"1", "3"},
		"phNumbers": []any{
			map[string]any{"number": ""},
			map[string]any{"number": "4"},
		},
	}
	got := map[string]any{
		"phoneNumbers": ctrl.WatchValue("phoneNumbers"),
		"phNumbers":    ctrl.WatchValue("phNumbers"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list values mismatch (-want +got):\n%s", diff)
	}
	if n := len(rows.Fields()); n != 2 {
		t.Fatalf("expected 2 row identities, got %d", n)
	}
}

func TestChange_RejectsRowGap(t *testing.T) {
	ctrl := newTestController(t)
	if err := ctrl.Change(context.Background(), "phNumbers.5.number", "1"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if rows, _ := ctrl.WatchValue("phNumbers").([]any); len(rows) != 1 {
		t.Fatalf("expected a single row, got %v", rows)
	}
}

func TestOnSubmitSuccess_RunsAfterObservers(t *testing.T) {
	ctrl := newTestController(t)
	ctx := context.Background()

	var order []string
	ctrl.Subscribe(func(state FormState) {
		if state.IsSubmitSuccessful {
			order = append(order, "observer")
		}
	})
	hook := ctrl.OnSubmitSuccess(func(values map[string]any) {
		order = append(order, fmt.Sprintf("hook:%v", values["channel"]))
		ctrl.Reset()
	})
	var states []FormState
	ctrl.Subscribe(func(state FormState) { states = append(states, state) })

	_ = ctrl.Change(ctx, "channel", "X")
	_ = ctrl.Change(ctx, "social.twitter", "@x")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "1")
	if err := ctrl.HandleSubmit(ctx, func(context.Context, map[string]any) error { return nil }, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if diff := cmp.Diff([]string{"observer", "hook:X"}, order); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}
	if len(states) < 2 {
		t.Fatalf("expected success and reset states, got %d", len(states))
	}
	if !states[len(states)-2].IsSubmitSuccessful || states[len(states)-1].IsSubmitSuccessful {
		t.Fatalf("expected the reset state to arrive last: %+v", states[len(states)-2:])
	}

	hook.Unsubscribe()
	_ = ctrl.Change(ctx, "channel", "Y")
	_ = ctrl.Change(ctx, "social.twitter", "@y")
	_ = ctrl.Change(ctx, "phNumbers.0.number", "2")
	if err := ctrl.HandleSubmit(ctx, func(context.Context, map[string]any) error { return nil }, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("unsubscribed hook still ran: %v", order)
	}
}
