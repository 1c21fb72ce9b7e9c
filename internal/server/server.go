// Package server exposes a channel form over HTTP with gin: the rendered
// page, one POST route per form action, the devtool snapshot and stream, and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/goliatone/go-formstate/pkg/channelform"
	"github.com/goliatone/go-formstate/pkg/devtool"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/html"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and action logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAction sets the route prefix the form actions are mounted under.
func WithAction(prefix string) Option {
	return func(s *Server) {
		s.action = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	}
}

// WithWatch names the value shown in the page heading.
func WithWatch(path string) Option {
	return func(s *Server) {
		s.watch = path
	}
}

// WithTheme applies theme tokens to the rendered page.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithRenderer replaces the HTML page renderer.
func WithRenderer(renderer render.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.page = renderer
		}
	}
}

// Server serves one form. Handlers may run concurrently; the controller
// serialises every mutation.
type Server struct {
	form    *channelform.Form
	page    render.Renderer
	theme   *theme.RendererConfig
	panel   *devtool.Panel
	metrics *prometheus.Registry
	engine  *gin.Engine
	logger  *slog.Logger
	action  string
	watch   string

	requests *prometheus.CounterVec

	mu       sync.Mutex
	external map[string][]string
}

// New wires the routes for f. Close releases the devtool panel.
func New(f *channelform.Form, options ...Option) (*Server, error) {
	if f == nil {
		return nil, errors.New("server: form required")
	}
	s := &Server{
		form:   f,
		logger: slog.New(slog.DiscardHandler),
		action: "/form",
		watch:  channelform.PathUsername,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.page == nil {
		page, err := html.New(html.WithPage(true), html.WithDevtoolLink("/devtool"), html.WithTheme(s.theme))
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.page = page
	}

	def, _ := f.Definition()
	s.metrics = prometheus.NewRegistry()
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "formstate",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	if err := registerAll(s.metrics,
		collectors.NewGoCollector(),
		devtool.NewCollector(f.Controller, "formstate", prometheus.Labels{"form": def.ID}),
		s.requests,
	); err != nil {
		return nil, fmt.Errorf("server: register metrics: %w", err)
	}

	s.panel = devtool.NewPanel(f.Controller)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.observe)
	s.routes()
	return s, nil
}

func registerAll(registry *prometheus.Registry, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close detaches the devtool panel from the form.
func (s *Server) Close() {
	s.panel.Close()
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// observe logs each request and counts it by route template.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	s.requests.WithLabelValues(route, c.Request.Method, fmt.Sprint(status)).Inc()
	s.logger.Debug("http request",
		"method", c.Request.Method,
		"route", route,
		"status", status,
		"duration", time.Since(start),
	)
}
