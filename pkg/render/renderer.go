// Package render turns a form definition plus a controller snapshot into a
// view model and hands it to named renderers (HTML, terminal).
package render

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Renderer converts a form and its current state into bytes.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.FormModel, options RenderOptions) ([]byte, error)
}
