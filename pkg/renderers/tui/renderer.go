// Package tui drives a form controller from the terminal. Session walks the
// inputs through a PromptDriver (survey by default) and offers the form
// actions from a menu; Renderer prints the same view model as plain text.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
)

// ContentType is the media type produced by Renderer.
const ContentType = "text/plain; charset=utf-8"

// Renderer prints the view model as an indented text outline.
type Renderer struct {
	indent string
}

var _ render.Renderer = (*Renderer)(nil)

// NewRenderer returns the text renderer.
func NewRenderer() *Renderer {
	return &Renderer{indent: "  "}
}

func (r *Renderer) Name() string { return "tui" }

func (r *Renderer) ContentType() string { return ContentType }

func (r *Renderer) Render(ctx context.Context, form model.FormModel, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	r.writeView(&buf, render.BuildView(form, options))
	return buf.Bytes(), nil
}

func (r *Renderer) writeView(w io.Writer, view render.View) {
	title := view.Title
	if title == "" {
		title = view.ID
	}
	fmt.Fprintln(w, title)
	if view.Heading != "" {
		fmt.Fprintln(w, view.Heading)
	}
	if view.Loading {
		fmt.Fprintln(w, "Loading...")
		return
	}
	fmt.Fprintln(w)
	for _, field := range view.Fields {
		r.writeField(w, field, 0)
	}
	for _, message := range view.FormErrors {
		fmt.Fprintf(w, "! %s\n", message)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, statusLine(view))
}

func (r *Renderer) writeField(w io.Writer, field render.FieldView, depth int) {
	pad := strings.Repeat(r.indent, depth)
	label := fieldLabel(field)
	switch field.Kind {
	case render.KindGroup, render.KindList:
		fmt.Fprintf(w, "%s%s\n", pad, label)
		for _, child := range field.Children {
			r.writeField(w, child, depth+1)
		}
	case render.KindRows:
		fmt.Fprintf(w, "%s%s\n", pad, label)
		for _, row := range field.Rows {
			marker := ""
			if row.Removable {
				marker = " (" + strings.ToLower(field.RemoveLabel) + " available)"
			}
			fmt.Fprintf(w, "%s%s[%d]%s\n", pad, r.indent, row.Index+1, marker)
			for _, child := range row.Fields {
				r.writeField(w, child, depth+2)
			}
		}
	default:
		value := field.Value
		if field.Disabled {
			value = "(disabled)"
		}
		required := ""
		if field.Required {
			required = " *"
		}
		fmt.Fprintf(w, "%s%s%s: %s\n", pad, label, required, value)
		if field.Error != "" {
			fmt.Fprintf(w, "%s%s! %s\n", pad, r.indent, field.Error)
		}
	}
}

func fieldLabel(field render.FieldView) string {
	if field.Label != "" {
		return stripTags(field.Label)
	}
	return field.Name
}

func statusLine(view render.View) string {
	submit := "disabled"
	if view.SubmitEnabled {
		submit = "enabled"
	}
	s := view.Status
	return fmt.Sprintf("dirty=%t valid=%t validating=%t submitted=%t submits=%d submit=%s",
		s.Dirty, s.Valid, s.Validating, s.Submitted, s.SubmitCount, submit)
}

var plainText = bluemonday.StrictPolicy()

// stripTags removes inline markup from labels meant for HTML.
func stripTags(s string) string {
	return html.UnescapeString(plainText.Sanitize(s))
}
