package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/internal/server"
	"github.com/goliatone/go-formstate/pkg/devtool"
	"github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/html"
	"github.com/goliatone/go-formstate/pkg/renderers/tui"
)

func newRootCommand() *cobra.Command {
	var (
		configPath string
		envFile    string
		offline    bool
	)
	a := &app{}

	cmd := &cobra.Command{
		Use:           "formstate",
		Short:         "Channel sign-up form engine",
		Long:          `formstate runs the channel sign-up form in the terminal, over HTTP, or renders it once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, config.LoadOptions{EnvFile: envFile})
			if err != nil {
				return err
			}
			if offline {
				cfg.Users.Offline = true
			}
			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "use the built-in user records instead of the HTTP directory")

	cmd.AddCommand(
		newRenderCommand(a),
		newTUICommand(a),
		newServeCommand(a),
		newValuesCommand(a),
		newLintCommand(),
	)
	return cmd
}

func newRenderCommand(a *app) *cobra.Command {
	var (
		format string
		output string
		page   bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the form with its resolved defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := a.startForm(ctx)
			if err != nil {
				return err
			}
			defer f.Close()

			htmlRenderer, err := html.New(
				html.WithPage(page),
				html.WithTheme(html.ThemeConfig(a.cfg.ThemeManifest(), a.cfg.Theme.Variant)),
			)
			if err != nil {
				return err
			}
			registry := render.NewRegistry()
			registry.MustRegister(htmlRenderer)
			registry.MustRegister(tui.NewRenderer())

			def, _ := f.Definition()
			out, _, err := registry.Render(ctx, format, def, render.RenderOptions{
				Snapshot: render.Capture(f.Controller),
				Watch:    a.cfg.Form.Watch,
				Action:   a.cfg.Server.Action,
			})
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Form written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "html", "renderer name (html or tui)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&page, "page", false, "wrap HTML output in a full document")
	return cmd
}

func newTUICommand(a *app) *cobra.Command {
	var withDevtool bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Fill in the form interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := a.startForm(ctx)
			if err != nil {
				return err
			}
			defer f.Close()
			if withDevtool {
				defer devtool.AttachLogger(f.Controller, a.logger).Close()
			}

			out := cmd.OutOrStdout()
			session, err := tui.NewSession(f.Controller,
				tui.WithPromptDriver(tui.NewSurveyDriver(out)),
				tui.WithLogger(a.logger),
				tui.WithWatch(a.cfg.Form.Watch),
				tui.WithSubmit(f.Submit),
				tui.WithAction("Get values", func(context.Context) error {
					report := f.GetValuesReport()
					report.All = render.JSONValues(report.All)
					report.Subset = render.JSONValues(report.Subset)
					return writeJSON(out, report)
				}),
				tui.WithAction("Set value", f.ApplySetValueDemo),
				tui.WithAction("Validate channel", func(ctx context.Context) error {
					_, err := f.ValidateChannel(ctx)
					return err
				}),
			)
			if err != nil {
				return err
			}
			return session.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&withDevtool, "devtool", false, "log every form transition")
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f, err := a.startForm(ctx)
			if err != nil {
				return err
			}
			defer f.Close()
			defer devtool.AttachLogger(f.Controller, a.logger).Close()

			srv, err := server.New(f,
				server.WithLogger(a.logger),
				server.WithAction(a.cfg.Server.Action),
				server.WithWatch(a.cfg.Form.Watch),
				server.WithTheme(html.ThemeConfig(a.cfg.ThemeManifest(), a.cfg.Theme.Variant)),
			)
			if err != nil {
				return err
			}
			defer srv.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newValuesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "values",
		Short: "Print the resolved default values as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.startForm(cmd.Context())
			if err != nil {
				return err
			}
			defer f.Close()
			return writeJSON(cmd.OutOrStdout(), render.JSONValues(f.Defaults()))
		},
	}
}

// newLintCommand checks the x-formgen hints of OpenAPI documents. It does not
// need the form configuration.
func newLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "lint <document>...",
		Short:             "Report unsupported x-formgen hints in OpenAPI documents",
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			found := 0
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				violations, err := openapi.Lint(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				for _, v := range violations {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, v)
				}
				found += len(violations)
			}
			if found > 0 {
				return fmt.Errorf("%d x-formgen violation(s)", found)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
