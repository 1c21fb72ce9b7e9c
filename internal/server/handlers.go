package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render"
)

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.handlePage)
	r.GET("/healthz", s.handleHealth)
	r.GET("/devtool", s.handleDevtool)
	r.GET("/devtool/ws", s.handleDevtoolStream)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))

	g := r.Group(s.action)
	g.GET("", s.handlePage)
	g.POST("/submit", s.handleSubmit)
	g.POST("/reset", s.handleReset)
	g.POST("/validate", s.handleValidate)
	g.POST("/set-value", s.handleSetValue)
	g.GET("/values", s.handleValues)
	g.POST("/rows", s.handleAddRow)
	g.POST("/rows/:index/delete", s.handleRemoveRow)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePage(c *gin.Context) {
	s.renderPage(c, http.StatusOK)
}

// renderPage waits for pending async checks so the page shows settled errors.
func (s *Server) renderPage(c *gin.Context, status int) {
	ctx := c.Request.Context()
	if err := s.form.WaitIdle(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	def, _ := s.form.Definition()
	s.mu.Lock()
	external := s.external
	s.mu.Unlock()

	out, err := s.page.Render(ctx, def, render.RenderOptions{
		Snapshot: render.Capture(s.form.Controller),
		Watch:    s.watch,
		Errors:   external,
		Action:   s.action,
	})
	if err != nil {
		s.logger.Error("render page", "error", err)
		c.String(http.StatusInternalServerError, "render failed")
		return
	}
	c.Data(status, s.page.ContentType(), out)
}

// applyPosted copies posted inputs into the form as change and blur events,
// in path order. Unknown and disabled paths are ignored.
func (s *Server) applyPosted(c *gin.Context) error {
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	keys := make([]string, 0, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ctx := c.Request.Context()
	for _, path := range keys {
		current, ok := s.form.GetValue(path)
		if !ok || s.form.IsDisabled(path) || !isLeaf(current) {
			continue
		}
		posted := c.Request.PostForm.Get(path)
		if posted != render.FormatValue(current) {
			if err := s.form.Change(ctx, path, posted); err != nil {
				return err
			}
		}
		if err := s.form.Blur(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func isLeaf(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

func (s *Server) setExternal(errs map[string][]string) {
	s.mu.Lock()
	s.external = errs
	s.mu.Unlock()
}

func (s *Server) handleSubmit(c *gin.Context) {
	if err := s.applyPosted(c); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	err := s.form.Submit(c.Request.Context())
	switch {
	case err != nil:
		s.logger.Warn("submit failed", "error", err)
		s.setExternal(map[string][]string{"": {err.Error()}})
		s.renderPage(c, http.StatusUnprocessableEntity)
	case len(s.form.State().Errors) > 0:
		s.setExternal(nil)
		s.renderPage(c, http.StatusUnprocessableEntity)
	default:
		s.setExternal(nil)
		s.renderPage(c, http.StatusOK)
	}
}

func (s *Server) handleReset(c *gin.Context) {
	s.form.Reset()
	s.setExternal(nil)
	s.renderPage(c, http.StatusOK)
}

func (s *Server) handleValidate(c *gin.Context) {
	if err := s.applyPosted(c); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.form.ValidateChannel(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.renderPage(c, http.StatusOK)
}

func (s *Server) handleSetValue(c *gin.Context) {
	if err := s.form.ApplySetValueDemo(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.renderPage(c, http.StatusOK)
}

func (s *Server) handleValues(c *gin.Context) {
	report := s.form.GetValuesReport()
	report.All = render.JSONValues(report.All)
	report.Subset = render.JSONValues(report.Subset)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleAddRow(c *gin.Context) {
	if err := s.applyPosted(c); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err := s.form.AddRow(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.renderPage(c, http.StatusOK)
}

func (s *Server) handleRemoveRow(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid row index")
		return
	}
	if err := s.applyPosted(c); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err := s.form.RemoveRow(c.Request.Context(), index); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, form.ErrMinRows) || errors.Is(err, form.ErrInvalidPath) {
			status = http.StatusConflict
		}
		c.String(status, err.Error())
		return
	}
	s.renderPage(c, http.StatusOK)
}

func (s *Server) handleDevtool(c *gin.Context) {
	raw, err := s.panel.JSON()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
