package channelform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/users"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// DefaultUserID is the directory record whose email seeds the form.
const DefaultUserID = 1

// Form is the channel sign-up form bound to a controller.
type Form struct {
	*form.Controller
	Rows *form.FieldArray

	dir       Directory
	userID    int
	now       func() time.Time
	logger    *slog.Logger
	onValid   form.ValidFunc
	onInvalid form.InvalidFunc
	ctrlOpts  []form.Option
	def       *model.FormModel

	mu   sync.Mutex
	subs []*form.Subscription
}

// Option customises a Form.
type Option func(*Form)

// WithDirectory injects the user directory.
func WithDirectory(dir Directory) Option {
	return func(f *Form) {
		if dir != nil {
			f.dir = dir
		}
	}
}

// WithUserID selects the directory record used for the default email.
func WithUserID(id int) Option {
	return func(f *Form) {
		if id > 0 {
			f.userID = id
		}
	}
}

// WithClock overrides the clock used for the default date of birth.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger routes submit results and value changes to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithOnValid replaces the default submit handler, which logs the values.
func WithOnValid(fn form.ValidFunc) Option {
	return func(f *Form) {
		f.onValid = fn
	}
}

// WithOnInvalid replaces the default error handler, which logs the errors.
func WithOnInvalid(fn form.InvalidFunc) Option {
	return func(f *Form) {
		f.onInvalid = fn
	}
}

// WithDefinition replaces the built-in field definition, for example with one
// built from an OpenAPI document. Named rules still resolve against Registry.
func WithDefinition(def model.FormModel) Option {
	return func(f *Form) {
		f.def = &def
	}
}

// WithControllerOptions forwards options to the underlying controller. They
// apply after the form's own defaults (onBlur mode, every-failure criteria).
func WithControllerOptions(options ...form.Option) Option {
	return func(f *Form) {
		f.ctrlOpts = append(f.ctrlOpts, options...)
	}
}

// New builds the channel form. Call Start to resolve the defaults.
func New(options ...Option) (*Form, error) {
	f := &Form{
		userID: DefaultUserID,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		if option != nil {
			option(f)
		}
	}
	if f.dir == nil {
		f.dir = users.New(users.WithLogger(f.logger))
	}
	if f.onValid == nil {
		f.onValid = f.logSubmitted
	}
	if f.onInvalid == nil {
		f.onInvalid = f.logErrors
	}

	ctrlOpts := append([]form.Option{
		form.WithMode(form.ModeOnBlur),
		form.WithCriteria(validation.CriteriaAll),
		form.WithLogger(f.logger),
		form.WithDefaults(Defaults(f.dir, f.userID, f.now)),
	}, f.ctrlOpts...)
	f.Controller = form.New(ctrlOpts...)
	def := Definition()
	if f.def != nil {
		def = *f.def
	}
	if err := f.Bind(def, Registry(f.dir, f.userID)); err != nil {
		return nil, fmt.Errorf("channelform: %w", err)
	}
	f.Rows = f.FieldArray(PathPhNumbers, form.WithMinRows(1))
	return f, nil
}

// Start resolves the defaults, then attaches the value logger and the hook
// that resets the form once a successful submission has been delivered to
// every observer.
func (f *Form) Start(ctx context.Context) error {
	if err := f.Init(ctx); err != nil {
		return err
	}
	f.track(f.Watch(func(values map[string]any, changed string) {
		f.logger.Debug("form values", "changed", changed, "values", values)
	}))
	f.track(f.OnSubmitSuccess(func(map[string]any) {
		f.Reset()
	}))
	return nil
}

// Close releases the subscriptions created by Start.
func (f *Form) Close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Submit validates the form and calls the configured handlers.
func (f *Form) Submit(ctx context.Context) error {
	return f.HandleSubmit(ctx, f.onValid, f.onInvalid)
}

// ValidateChannel re-validates the channel field only.
func (f *Form) ValidateChannel(ctx context.Context) (bool, error) {
	return f.Trigger(ctx, PathChannel)
}

// AddRow appends an empty phone number row.
func (f *Form) AddRow(ctx context.Context) error {
	return f.Rows.Append(ctx, EmptyRow())
}

// RemoveRow removes the phone number row at index. The first row is never
// removable.
func (f *Form) RemoveRow(ctx context.Context, index int) error {
	if index == 0 {
		return fmt.Errorf("%w: first row is fixed", form.ErrMinRows)
	}
	return f.Rows.Remove(ctx, index)
}

// ValuesReport groups the three value lookups offered by the Get Values action.
type ValuesReport struct {
	All      map[string]any `json:"all"`
	Username any            `json:"username"`
	Subset   map[string]any `json:"subset"`
}

// GetValuesReport reads the whole form, the username, and the username/email
// subset, logging each.
func (f *Form) GetValuesReport() ValuesReport {
	report := ValuesReport{
		All:      f.GetValues(),
		Username: f.WatchValue(PathUsername),
		Subset:   f.GetValuesOf(PathUsername, PathEmail),
	}
	f.logger.Info("get values", "all", report.All)
	f.logger.Info("get values", "username", report.Username)
	f.logger.Info("get values", "subset", report.Subset)
	return report
}

// ApplySetValueDemo performs the Set Value action: it clears the username
// with validation, dirty and touched flags, fills the primary phone slot, and
// writes the second dynamic phone row.
func (f *Form) ApplySetValueDemo(ctx context.Context) error {
	if err := f.SetValue(ctx, PathUsername, "", form.SetValueOptions{ShouldValidate: true, ShouldDirty: true, ShouldTouch: true}); err != nil {
		return err
	}
	if err := f.SetValue(ctx, "phoneNumbers.0", "123456789", form.SetValueOptions{}); err != nil {
		return err
	}
	return f.SetValue(ctx, "phNumbers.1", map[string]any{"number": "112312"}, form.SetValueOptions{})
}

func (f *Form) track(sub *form.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
}

func (f *Form) logSubmitted(_ context.Context, values map[string]any) error {
	f.logger.Info("form submitted", "values", values)
	return nil
}

func (f *Form) logErrors(_ context.Context, errs validation.Errors) {
	f.logger.Warn("form errors", "errors", errs.Messages())
}
