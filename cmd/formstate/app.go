package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/pkg/channelform"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/uischema"
)

// app carries what every subcommand needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// startForm builds the channel form from the settings, optionally replacing
// its definition with an OpenAPI operation and decorating it with overlays,
// and resolves the defaults.
func (a *app) startForm(ctx context.Context, options ...channelform.Option) (*channelform.Form, error) {
	opts := []channelform.Option{
		channelform.WithDirectory(a.cfg.Directory(a.logger)),
		channelform.WithUserID(a.cfg.Users.DefaultUserID),
		channelform.WithLogger(a.logger),
		channelform.WithControllerOptions(a.cfg.ControllerOptions()...),
	}
	def, err := a.definition(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, channelform.WithDefinition(def))
	f, err := channelform.New(append(opts, options...)...)
	if err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, a.cfg.Users.Timeout+5*time.Second)
	defer cancel()
	if err := f.Start(startCtx); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	return f, nil
}

func (a *app) definition(ctx context.Context) (model.FormModel, error) {
	def := channelform.Definition()
	if a.cfg.Form.Source != "" {
		src, err := openapi.ParseSource(a.cfg.Form.Source)
		if err != nil {
			return model.FormModel{}, err
		}
		loader := openapi.NewLoader(
			openapi.WithHTTPFallback(a.cfg.Users.Timeout),
			openapi.WithLoaderLogger(a.logger),
		)
		def, err = openapi.NewBuilder(openapi.WithBuilderLogger(a.logger)).BuildSource(ctx, loader, src, a.cfg.Form.Operation)
		if err != nil {
			return model.FormModel{}, err
		}
	}
	if a.cfg.Form.Overlay == "" {
		return def, nil
	}
	store, err := uischema.LoadFS(os.DirFS(a.cfg.Form.Overlay))
	if err != nil {
		return model.FormModel{}, err
	}
	if err := model.Apply(&def, uischema.NewDecorator(store)); err != nil {
		return model.FormModel{}, err
	}
	a.logger.Debug("overlay applied", "dir", a.cfg.Form.Overlay, "operations", store.Operations())
	return def, nil
}
