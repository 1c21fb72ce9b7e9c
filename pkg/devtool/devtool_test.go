package devtool_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formstate/pkg/channelform"
	"github.com/goliatone/go-formstate/pkg/devtool"
	"github.com/goliatone/go-formstate/pkg/users"
)

var fixedNow = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func startForm(t *testing.T) *channelform.Form {
	t.Helper()
	f, err := channelform.New(
		channelform.WithDirectory(users.NewMemory(users.SampleRecords()...)),
		channelform.WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestPanel_TracksTransitions(t *testing.T) {
	f := startForm(t)
	panel := devtool.NewPanel(f.Controller, devtool.WithPanelClock(func() time.Time { return fixedNow }))
	defer panel.Close()

	first := panel.Snapshot()
	if first.Values["username"] != "Batman" || first.State.IsDirty {
		t.Fatalf("unexpected initial snapshot: %+v", first)
	}
	if ids := first.RowIDs[channelform.PathPhNumbers]; len(ids) != 1 {
		t.Fatalf("expected one row id, got %v", ids)
	}

	var seen []devtool.Snapshot
	stop := panel.Listen(func(s devtool.Snapshot) { seen = append(seen, s) })

	if err := f.Change(context.Background(), channelform.PathUsername, "Robin"); err != nil {
		t.Fatalf("change: %v", err)
	}
	latest := panel.Snapshot()
	if latest.Values["username"] != "Robin" || !latest.State.IsDirty {
		t.Fatalf("snapshot did not follow the change: %+v", latest)
	}
	if latest.Version <= first.Version || !latest.At.Equal(fixedNow) {
		t.Fatalf("unexpected version/time: %d %v", latest.Version, latest.At)
	}
	if len(seen) == 0 || seen[len(seen)-1].Values["username"] != "Robin" {
		t.Fatalf("listener missed the change: %+v", seen)
	}

	stop()
	count := len(seen)
	if err := f.Change(context.Background(), channelform.PathUsername, "Alfred"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if len(seen) != count {
		t.Fatalf("stopped listener still notified")
	}

	panel.Close()
	if err := f.Change(context.Background(), channelform.PathUsername, "Bruce"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if got := panel.Snapshot().Values["username"]; got != "Alfred" {
		t.Fatalf("closed panel must stop tracking, got %v", got)
	}
}

func TestPanel_JSONHandlesUnparsableNumbers(t *testing.T) {
	f := startForm(t)
	panel := devtool.NewPanel(f.Controller)
	defer panel.Close()

	if err := f.Change(context.Background(), channelform.PathAge, "abc"); err != nil {
		t.Fatalf("change: %v", err)
	}
	raw, err := panel.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(string(raw), `"age":null`) {
		t.Fatalf("expected NaN age as null, got %s", raw)
	}
}

func TestLogger_WritesTransitionsUntilClosed(t *testing.T) {
	f := startForm(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	attached := devtool.AttachLogger(f.Controller, logger)

	if err := f.Change(context.Background(), channelform.PathUsername, ""); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := f.Blur(context.Background(), channelform.PathUsername); err != nil {
		t.Fatalf("blur: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"form state"`, `"isDirty":true`, `"msg":"form values"`, `"msg":"form errors"`, channelform.MsgUsernameRequired} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output:\n%s", want, out)
		}
	}

	attached.Close()
	attached.Close()
	buf.Reset()
	if err := f.Change(context.Background(), channelform.PathUsername, "Robin"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("closed logger still writing: %s", buf.String())
	}
}

func TestLogger_SortsFlaggedPaths(t *testing.T) {
	f := startForm(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	defer devtool.AttachLogger(f.Controller, logger).Close()

	ctx := context.Background()
	_ = f.Change(ctx, channelform.PathUsername, "Robin")
	_ = f.Change(ctx, channelform.PathChannel, "X")
	if want := `"dirty":["channel","username"]`; !strings.Contains(buf.String(), want) {
		t.Fatalf("expected %s in log output:\n%s", want, buf.String())
	}
}

func TestLogger_ResetStateFollowsSuccessfulSubmit(t *testing.T) {
	f := startForm(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	defer devtool.AttachLogger(f.Controller, logger).Close()

	ctx := context.Background()
	_ = f.Change(ctx, channelform.PathChannel, "X")
	_ = f.Change(ctx, channelform.PathAge, "30")
	if err := f.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var states []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"msg":"form state"`) {
			states = append(states, line)
		}
	}
	if len(states) < 2 {
		t.Fatalf("expected success and reset states, got:\n%s", buf.String())
	}
	if success := states[len(states)-2]; !strings.Contains(success, `"isSubmitSuccessful":true`) {
		t.Fatalf("expected success state before the reset: %s", success)
	}
	if last := states[len(states)-1]; !strings.Contains(last, `"isSubmitSuccessful":false`) || !strings.Contains(last, `"isDirty":false`) {
		t.Fatalf("expected the reset state last: %s", last)
	}
}

func TestCollector_ReportsFlags(t *testing.T) {
	f := startForm(t)
	registry := prometheus.NewRegistry()
	registry.MustRegister(devtool.NewCollector(f.Controller, "", prometheus.Labels{"form": "youtube-form"}))

	if got := gauge(t, registry, "formstate_flag", "flag", "dirty"); got != 0 {
		t.Fatalf("pristine form reported dirty=%v", got)
	}
	if err := f.Change(context.Background(), channelform.PathUsername, ""); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := f.Blur(context.Background(), channelform.PathUsername); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := gauge(t, registry, "formstate_flag", "flag", "dirty"); got != 1 {
		t.Fatalf("expected dirty=1, got %v", got)
	}
	if got := gauge(t, registry, "formstate_field_errors", "path", channelform.PathUsername); got != 1 {
		t.Fatalf("expected one username error, got %v", got)
	}
	if got := gauge(t, registry, "formstate_touched_fields", "", ""); got != 1 {
		t.Fatalf("expected one touched field, got %v", got)
	}
}

// gauge returns the value of the metric in family name whose label matches;
// an empty label name selects the first metric.
func gauge(t *testing.T, g prometheus.Gatherer, name, label, value string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label == "" {
				return metricValue(metric.GetGauge().GetValue(), metric.GetCounter().GetValue())
			}
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metricValue(metric.GetGauge().GetValue(), metric.GetCounter().GetValue())
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func metricValue(gauge, counter float64) float64 {
	if gauge != 0 {
		return gauge
	}
	return counter
}
