package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// ErrNoDefinition is returned when the controller has no bound definition.
var ErrNoDefinition = errors.New("tui: controller has no bound definition")

// Session runs the interactive menu loop for one controller.
type Session struct {
	ctrl    *form.Controller
	def     model.FormModel
	driver  PromptDriver
	text    *Renderer
	submit  SubmitFunc
	actions []Action
	watch   string
	logger  *slog.Logger
}

type menuItem struct {
	label string
	run   func(ctx context.Context) (quit bool, err error)
}

// NewSession binds a session to ctrl, which must already carry a definition
// (see form.Controller.Bind).
func NewSession(ctrl *form.Controller, options ...Option) (*Session, error) {
	if ctrl == nil {
		return nil, errors.New("tui: controller required")
	}
	def, ok := ctrl.Definition()
	if !ok {
		return nil, ErrNoDefinition
	}
	s := &Session{
		ctrl:   ctrl,
		def:    def,
		text:   NewRenderer(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	if s.submit == nil {
		s.submit = s.defaultSubmit
	}
	return s, nil
}

// Run shows the form and the action menu until the user quits. Action
// failures are reported and the loop continues; aborting a prompt ends it.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.show(ctx); err != nil {
			return err
		}
		items := s.menu()
		labels := make([]string, len(items))
		for idx, item := range items {
			labels[idx] = item.label
		}
		choice, err := s.driver.Select(ctx, SelectConfig{Message: "Action", Options: labels})
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(items) {
			continue
		}
		quit, err := items[choice].run(ctx)
		if err != nil {
			if errors.Is(err, ErrAborted) || ctx.Err() != nil {
				return err
			}
			s.logger.Warn("tui action failed", "action", items[choice].label, "error", err)
			if infoErr := s.driver.Info(ctx, "Error: "+err.Error()); infoErr != nil {
				return infoErr
			}
		}
		if quit {
			return nil
		}
	}
}

func (s *Session) show(ctx context.Context) error {
	if err := s.ctrl.WaitIdle(ctx); err != nil {
		return err
	}
	out, err := s.text.Render(ctx, s.def, s.options())
	if err != nil {
		return err
	}
	return s.driver.Info(ctx, string(out))
}

func (s *Session) options() render.RenderOptions {
	return render.RenderOptions{Snapshot: render.Capture(s.ctrl), Watch: s.watch}
}

func (s *Session) menu() []menuItem {
	items := []menuItem{{label: "Edit fields", run: s.editFields}}

	view := render.BuildView(s.def, s.options())
	for _, field := range rowFields(view.Fields) {
		field := field
		items = append(items, menuItem{
			label: fmt.Sprintf("%s (%s)", field.AddLabel, fieldLabel(field)),
			run: func(ctx context.Context) (bool, error) {
				return false, s.ctrl.FieldArray(field.Path).Append(ctx, emptyRow(s.def, field.Path))
			},
		})
		if removable(field) {
			items = append(items, menuItem{
				label: fmt.Sprintf("%s (%s)", field.RemoveLabel, fieldLabel(field)),
				run: func(ctx context.Context) (bool, error) {
					return false, s.removeRow(ctx, field)
				},
			})
		}
	}

	items = append(items,
		menuItem{label: "Submit", run: func(ctx context.Context) (bool, error) { return false, s.submit(ctx) }},
		menuItem{label: "Reset", run: func(context.Context) (bool, error) { s.ctrl.Reset(); return false, nil }},
		menuItem{label: "Show values", run: s.showValues},
	)
	for _, action := range s.actions {
		action := action
		items = append(items, menuItem{label: action.Label, run: func(ctx context.Context) (bool, error) {
			return false, action.Run(ctx)
		}})
	}
	return append(items, menuItem{label: "Quit", run: func(context.Context) (bool, error) { return true, nil }})
}

// editFields prompts every enabled input in order. Disablement is checked
// per input so earlier answers can enable later fields.
func (s *Session) editFields(ctx context.Context) (bool, error) {
	view := render.BuildView(s.def, s.options())
	for _, input := range flattenInputs(view.Fields, "") {
		if s.ctrl.IsDisabled(input.field.Path) {
			continue
		}
		current := input.field.Value
		if value, ok := s.ctrl.GetValue(input.field.Path); ok {
			current = render.FormatValue(value)
		}
		answer, err := s.driver.Input(ctx, InputConfig{
			Message: input.label,
			Default: current,
			Help:    input.field.Path,
		})
		if err != nil {
			return false, err
		}
		if answer != current {
			if err := s.ctrl.Change(ctx, input.field.Path, answer); err != nil {
				return false, err
			}
		}
		if err := s.ctrl.Blur(ctx, input.field.Path); err != nil {
			return false, err
		}
		if err := s.ctrl.WaitIdle(ctx); err != nil {
			return false, err
		}
		if message := s.ctrl.State().Error(input.field.Path); message != "" {
			if err := s.driver.Info(ctx, fmt.Sprintf("  ! %s", message)); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (s *Session) removeRow(ctx context.Context, field render.FieldView) error {
	var options []string
	var indexes []int
	for _, row := range field.Rows {
		if row.Removable {
			options = append(options, fmt.Sprintf("Row %d", row.Index+1))
			indexes = append(indexes, row.Index)
		}
	}
	choice, err := s.driver.Select(ctx, SelectConfig{Message: "Remove which row?", Options: options})
	if err != nil {
		return err
	}
	if choice < 0 || choice >= len(indexes) {
		return nil
	}
	ok, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Remove row %d?", indexes[choice]+1), Default: true})
	if err != nil || !ok {
		return err
	}
	return s.ctrl.FieldArray(field.Path).Remove(ctx, indexes[choice])
}

func (s *Session) showValues(ctx context.Context) (bool, error) {
	return false, s.info(ctx, "Values: ", render.JSONValues(s.ctrl.GetValues()))
}

func (s *Session) defaultSubmit(ctx context.Context) error {
	return s.ctrl.HandleSubmit(ctx,
		func(ctx context.Context, values map[string]any) error {
			return s.info(ctx, "Submitted: ", render.JSONValues(values))
		},
		func(ctx context.Context, errs validation.Errors) {
			if err := s.info(ctx, "Errors: ", errs.Messages()); err != nil {
				s.logger.Warn("tui report errors", "error", err)
			}
		},
	)
}

func (s *Session) info(ctx context.Context, prefix string, payload any) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return s.driver.Info(ctx, prefix+string(raw))
}

type promptInput struct {
	label string
	field render.FieldView
}

func flattenInputs(fields []render.FieldView, prefix string) []promptInput {
	var out []promptInput
	for _, field := range fields {
		label := fieldLabel(field)
		if prefix != "" {
			label = prefix + " / " + label
		}
		switch field.Kind {
		case render.KindInput:
			out = append(out, promptInput{label: label, field: field})
		case render.KindGroup, render.KindList:
			out = append(out, flattenInputs(field.Children, label)...)
		case render.KindRows:
			for _, row := range field.Rows {
				out = append(out, flattenInputs(row.Fields, label+" "+strconv.Itoa(row.Index+1))...)
			}
		}
	}
	return out
}

func rowFields(fields []render.FieldView) []render.FieldView {
	var out []render.FieldView
	for _, field := range fields {
		switch field.Kind {
		case render.KindRows:
			out = append(out, field)
		case render.KindGroup:
			out = append(out, rowFields(field.Children)...)
		}
	}
	return out
}

func removable(field render.FieldView) bool {
	for _, row := range field.Rows {
		if row.Removable {
			return true
		}
	}
	return false
}

// emptyRow builds a zero row for the dynamic array at path.
func emptyRow(def model.FormModel, path string) any {
	field, ok := model.Lookup(def, path)
	if !ok || field.Items == nil {
		return ""
	}
	return model.ZeroValue(*field.Items)
}
