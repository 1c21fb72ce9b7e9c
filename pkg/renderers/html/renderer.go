// Package html renders the form view as server-side HTML through embedded
// pongo2 templates. Labels and messages may carry inline emphasis; they are
// sanitised before rendering. Theme tokens become CSS custom properties.
package html

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
	rendertemplate "github.com/goliatone/go-formstate/pkg/render/template"
	"github.com/goliatone/go-formstate/pkg/render/template/pongo"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed assets/formstate.css
var defaultStylesheet string

// ContentType is the media type produced by the renderer.
const ContentType = "text/html; charset=utf-8"

// TemplatesFS exposes the embedded template bundle.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS fs.FS
	templates  rendertemplate.TemplateRenderer
	theme      *theme.RendererConfig
	page       bool
	devtool    string
}

// WithTemplatesFS supplies an alternate template bundle. It must provide
// form.tmpl and page.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.templateFS = os.DirFS(path)
		}
	}
}

// WithTemplateRenderer injects a template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templates = renderer
		}
	}
}

// WithTheme applies theme tokens as CSS custom properties.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// WithPage wraps the form in a full HTML document.
func WithPage(enabled bool) Option {
	return func(cfg *config) {
		cfg.page = enabled
	}
}

// WithDevtoolLink adds a link to the inspection panel on full pages.
func WithDevtoolLink(href string) Option {
	return func(cfg *config) {
		cfg.devtool = strings.TrimSpace(href)
	}
}

// Renderer renders forms as HTML.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	theme     *theme.RendererConfig
	page      bool
	devtool   string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	engine := cfg.templates
	if engine == nil {
		built, err := pongo.New(pongo.WithFS(cfg.templateFS), pongo.WithExtension(".tmpl"))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure templates: %w", err)
		}
		engine = built
	}
	return &Renderer{templates: engine, theme: cfg.theme, page: cfg.page, devtool: cfg.devtool}, nil
}

func (r *Renderer) Name() string { return "html" }

func (r *Renderer) ContentType() string { return ContentType }

// Render builds the view model and executes the form (or page) template.
func (r *Renderer) Render(_ context.Context, form model.FormModel, options render.RenderOptions) ([]byte, error) {
	view := sanitizeView(render.BuildView(form, options))
	data := map[string]any{"view": view}

	name := "form"
	if r.page {
		name = "page"
		data["stylesheet"] = defaultStylesheet
		data["devtool"] = r.devtool
		if r.theme != nil {
			data["themeName"] = r.theme.Theme
			data["themeStyle"] = CSSVarsStyle(r.theme.CSSVars)
		}
	}
	out, err := r.templates.RenderTemplate(name, data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	return []byte(out), nil
}

// ThemeConfig flattens a manifest and one of its variants into renderer
// settings. Variant tokens override the base tokens; every token becomes a
// "--name" custom property.
func ThemeConfig(manifest *theme.Manifest, variant string) *theme.RendererConfig {
	if manifest == nil {
		return nil
	}
	tokens := make(map[string]string, len(manifest.Tokens))
	for key, value := range manifest.Tokens {
		tokens[key] = value
	}
	if v, ok := manifest.Variants[variant]; ok {
		for key, value := range v.Tokens {
			tokens[key] = value
		}
	}
	vars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		vars["--"+strings.TrimPrefix(key, "--")] = value
	}
	return &theme.RendererConfig{
		Theme:   manifest.Name,
		Variant: variant,
		Tokens:  tokens,
		CSSVars: vars,
	}
}

// CSSVarsStyle renders custom properties as a :root rule. Values containing
// markup or rule delimiters are dropped.
func CSSVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {")
	for _, key := range keys {
		value := vars[key]
		if strings.ContainsAny(key+value, "<>{};") {
			continue
		}
		fmt.Fprintf(&b, " %s: %s;", key, value)
	}
	b.WriteString(" }")
	return b.String()
}

var (
	policyOnce    sync.Once
	messagePolicy *bluemonday.Policy
)

// messageSanitizer allows inline emphasis only.
func messageSanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "em", "i", "code", "small")
		messagePolicy = policy
	})
	return messagePolicy
}

// Sanitize cleans a label or message for inline HTML output.
func Sanitize(raw string) string {
	return strings.TrimSpace(messageSanitizer().Sanitize(raw))
}

func sanitizeView(view render.View) render.View {
	for idx, message := range view.FormErrors {
		view.FormErrors[idx] = Sanitize(message)
	}
	view.Fields = sanitizeFields(view.Fields)
	return view
}

func sanitizeFields(fields []render.FieldView) []render.FieldView {
	for idx := range fields {
		field := &fields[idx]
		field.Label = Sanitize(field.Label)
		field.Error = Sanitize(field.Error)
		field.Children = sanitizeFields(field.Children)
		for rowIdx := range field.Rows {
			field.Rows[rowIdx].Fields = sanitizeFields(field.Rows[rowIdx].Fields)
		}
	}
	return fields
}
