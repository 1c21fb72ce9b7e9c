package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"--offline", "--env-file", filepath.Join(t.TempDir(), ".env")}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValuesCommand(t *testing.T) {
	out, err := run(t, "values")
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(out), &values); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if values["username"] != "Batman" || values["email"] != "Sincere@april.biz" {
		t.Fatalf("unexpected defaults: %v", values)
	}
}

func TestRenderCommand_Formats(t *testing.T) {
	htmlOut, err := run(t, "render")
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !strings.Contains(htmlOut, "<form") || !strings.Contains(htmlOut, "Watched value: Batman") {
		t.Fatalf("unexpected html output:\n%s", htmlOut)
	}

	textOut, err := run(t, "render", "--format", "tui")
	if err != nil {
		t.Fatalf("render tui: %v", err)
	}
	if !strings.Contains(textOut, "Youtube Form") || strings.Contains(textOut, "<form") {
		t.Fatalf("unexpected text output:\n%s", textOut)
	}

	if _, err := run(t, "render", "--format", "pdf"); err == nil {
		t.Fatalf("expected unknown renderer error")
	}
}

func TestRenderCommand_PageToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "form.html")
	out, err := run(t, "render", "--page", "--output", target)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Form written to") {
		t.Fatalf("unexpected output %q", out)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "<!DOCTYPE html>") || !strings.Contains(string(raw), "--color-accent") {
		t.Fatalf("expected themed page, got:\n%s", raw)
	}
}

func TestRenderCommand_OpenAPIDefinition(t *testing.T) {
	document := filepath.Join("..", "..", "pkg", "openapi", "testdata", "channel.yaml")
	cfgPath := filepath.Join(t.TempDir(), "formstate.yaml")
	config := "form:\n  source: " + document + "\n  operation: youtube-form\n"
	if err := os.WriteFile(cfgPath, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := run(t, "--config", cfgPath, "render", "--format", "tui")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Youtube Form") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRenderCommand_Overlay(t *testing.T) {
	dir := t.TempDir()
	overlays := filepath.Join(dir, "overlays")
	if err := os.Mkdir(overlays, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	overlay := "operations:\n  youtube-form:\n    form:\n      title: Channel sign-up\n    fields:\n      username:\n        label: Handle\n"
	if err := os.WriteFile(filepath.Join(overlays, "channel.yaml"), []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	cfgPath := filepath.Join(dir, "formstate.yaml")
	if err := os.WriteFile(cfgPath, []byte("form:\n  overlay: "+overlays+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := run(t, "--config", cfgPath, "render", "--format", "tui")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Channel sign-up") || !strings.Contains(out, "Handle *: Batman") {
		t.Fatalf("overlay not applied:\n%s", out)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "formstate.yaml")
	if err := os.WriteFile(cfgPath, []byte("mode: sometimes\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := run(t, "--config", cfgPath, "values"); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Fatalf("expected mode validation error, got %v", err)
	}
}

func TestLintCommand(t *testing.T) {
	clean := filepath.Join("..", "..", "pkg", "openapi", "testdata", "channel.yaml")
	if _, err := run(t, "lint", clean); err != nil {
		t.Fatalf("lint clean document: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	doc := `openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /x:
    post:
      operationId: x
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                name: {type: string, x-formgen: {widget: area}}
      responses:
        "200": {description: ok}
`
	if err := os.WriteFile(bad, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := run(t, "lint", bad)
	if err == nil || !strings.Contains(out, `unsupported key "widget"`) {
		t.Fatalf("expected violation, got %v / %q", err, out)
	}
}
