// Package config loads the formstate settings from YAML, an optional .env
// file and FORMSTATE_* environment variables, in that order of precedence
// (later wins), and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	theme "github.com/goliatone/go-theme"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/channelform"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/users"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMSTATE_"

// Config is the application configuration.
type Config struct {
	Mode           string `yaml:"mode" validate:"oneof=onBlur onChange onSubmit onTouched all"`
	ReValidateMode string `yaml:"reValidateMode" validate:"oneof=onBlur onChange onSubmit"`
	CriteriaMode   string `yaml:"criteriaMode" validate:"oneof=firstError all"`

	Form   FormConfig   `yaml:"form"`
	Users  UsersConfig  `yaml:"users"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Theme  ThemeConfig  `yaml:"theme"`
}

// FormConfig selects an alternate definition and the watched field.
type FormConfig struct {
	// Source is a path or URL of an OpenAPI document. Empty uses the built-in
	// channel form.
	Source    string `yaml:"source"`
	Operation string `yaml:"operation" validate:"required_with=Source"`
	Watch     string `yaml:"watch"`
	// Overlay is a directory of presentation overlays applied to the form.
	Overlay string `yaml:"overlay"`
}

// UsersConfig configures the user directory.
type UsersConfig struct {
	BaseURL       string        `yaml:"baseURL" validate:"required_unless=Offline true,omitempty,url"`
	DefaultUserID int           `yaml:"defaultUserID" validate:"gte=1"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	// Offline swaps the HTTP directory for the built-in sample records.
	Offline bool `yaml:"offline"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr   string `yaml:"addr" validate:"required,hostname_port"`
	Action string `yaml:"action"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ThemeConfig defines the theme manifest applied to the HTML renderer.
type ThemeConfig struct {
	Name     string                       `yaml:"name" validate:"required"`
	Variant  string                       `yaml:"variant"`
	Tokens   map[string]string            `yaml:"tokens"`
	Variants map[string]map[string]string `yaml:"variants"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Mode:           string(form.ModeOnBlur),
		ReValidateMode: string(form.ModeOnChange),
		CriteriaMode:   "all",
		Form:           FormConfig{Watch: "username"},
		Users: UsersConfig{
			BaseURL:       users.DefaultBaseURL,
			DefaultUserID: 1,
			Timeout:       10 * time.Second,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080", Action: "/form"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Theme: ThemeConfig{
			Name: "default",
			Tokens: map[string]string{
				"color-accent": "#2563eb",
				"color-error":  "#b91c1c",
				"radius":       "4px",
			},
			Variants: map[string]map[string]string{
				"dark": {"color-accent": "#60a5fa", "color-bg": "#111827", "color-fg": "#f9fafb"},
			},
		},
	}
}

// LoadOptions controls Load.
type LoadOptions struct {
	// EnvFile is loaded into the process environment when it exists.
	EnvFile string
	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load reads path (optional), applies the .env file and environment
// overrides, and validates the result.
func Load(path string, opts LoadOptions) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(bytes.NewReader(raw), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", opts.EnvFile, err)
		}
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges YAML from r into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"MODE":            &c.Mode,
		"REVALIDATE_MODE": &c.ReValidateMode,
		"CRITERIA_MODE":   &c.CriteriaMode,
		"FORM_SOURCE":     &c.Form.Source,
		"FORM_OPERATION":  &c.Form.Operation,
		"FORM_WATCH":      &c.Form.Watch,
		"FORM_OVERLAY":    &c.Form.Overlay,
		"USERS_BASE_URL":  &c.Users.BaseURL,
		"SERVER_ADDR":     &c.Server.Addr,
		"SERVER_ACTION":   &c.Server.Action,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
		"THEME_NAME":      &c.Theme.Name,
		"THEME_VARIANT":   &c.Theme.Variant,
	}
	for key, target := range strs {
		if value, ok := lookup(EnvPrefix + key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	if value, ok := lookup(EnvPrefix + "USERS_DEFAULT_USER_ID"); ok {
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sUSERS_DEFAULT_USER_ID: %w", EnvPrefix, err)
		}
		c.Users.DefaultUserID = id
	}
	if value, ok := lookup(EnvPrefix + "USERS_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sUSERS_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Users.Timeout = timeout
	}
	if value, ok := lookup(EnvPrefix + "USERS_OFFLINE"); ok {
		offline, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sUSERS_OFFLINE: %w", EnvPrefix, err)
		}
		c.Users.Offline = offline
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field constraint and reports them together.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		messages = append(messages, fmt.Sprintf("%s: failed %s (got %q)", path, rule, fmt.Sprint(fe.Value())))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(messages, "; "))
}

// ControllerOptions maps the validation settings onto controller options.
func (c Config) ControllerOptions() []form.Option {
	var options []form.Option
	if mode, ok := form.ParseMode(c.Mode); ok {
		options = append(options, form.WithMode(mode))
	}
	if mode, ok := form.ParseMode(c.ReValidateMode); ok {
		options = append(options, form.WithReValidateMode(mode))
	}
	criteria := validation.CriteriaAll
	if c.CriteriaMode == "firstError" {
		criteria = validation.CriteriaFirstError
	}
	return append(options, form.WithCriteria(criteria))
}

// Logger builds the slog logger described by the log settings.
func (c Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Directory returns the user directory the settings describe.
func (c Config) Directory(logger *slog.Logger) channelform.Directory {
	if c.Users.Offline {
		return users.NewMemory(users.SampleRecords()...)
	}
	return users.New(
		users.WithBaseURL(c.Users.BaseURL),
		users.WithTimeout(c.Users.Timeout),
		users.WithLogger(logger),
	)
}

// ThemeManifest converts the theme settings into a manifest.
func (c Config) ThemeManifest() *theme.Manifest {
	manifest := &theme.Manifest{
		Name:     c.Theme.Name,
		Version:  "1.0.0",
		Tokens:   copyTokens(c.Theme.Tokens),
		Variants: make(map[string]theme.Variant, len(c.Theme.Variants)),
	}
	for name, tokens := range c.Theme.Variants {
		manifest.Variants[name] = theme.Variant{Tokens: copyTokens(tokens)}
	}
	return manifest
}

func copyTokens(tokens map[string]string) map[string]string {
	out := make(map[string]string, len(tokens))
	for key, value := range tokens {
		out[key] = value
	}
	return out
}
