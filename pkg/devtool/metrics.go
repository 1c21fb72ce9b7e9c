package devtool

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Collector implements prometheus.Collector for one form controller. Metrics
// are read from the controller on every scrape:
//
//	<ns>_flag{flag="dirty|valid|validating|submitting|submitted|submit_successful"}
//	<ns>_submits_total
//	<ns>_field_errors{path="..."}
//	<ns>_touched_fields
//	<ns>_dirty_fields
type Collector struct {
	ctrl *form.Controller

	flagDesc    *prometheus.Desc
	submitDesc  *prometheus.Desc
	errorDesc   *prometheus.Desc
	touchedDesc *prometheus.Desc
	dirtyDesc   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector for ctrl. namespace defaults to "formstate";
// constLabels are attached to every metric (for example the form id).
func NewCollector(ctrl *form.Controller, namespace string, constLabels prometheus.Labels) *Collector {
	if namespace == "" {
		namespace = "formstate"
	}
	return &Collector{
		ctrl: ctrl,
		flagDesc: prometheus.NewDesc(
			fmt.Sprintf("%s_flag", namespace),
			"Form status flags (1 set, 0 clear)",
			[]string{"flag"}, constLabels,
		),
		submitDesc: prometheus.NewDesc(
			fmt.Sprintf("%s_submits_total", namespace),
			"Submit attempts since the form was created",
			nil, constLabels,
		),
		errorDesc: prometheus.NewDesc(
			fmt.Sprintf("%s_field_errors", namespace),
			"Current error count per field path",
			[]string{"path"}, constLabels,
		),
		touchedDesc: prometheus.NewDesc(
			fmt.Sprintf("%s_touched_fields", namespace),
			"Number of touched fields",
			nil, constLabels,
		),
		dirtyDesc: prometheus.NewDesc(
			fmt.Sprintf("%s_dirty_fields", namespace),
			"Number of fields that differ from their defaults",
			nil, constLabels,
		),
	}
}

// Describe sends metric descriptors.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.flagDesc
	ch <- c.submitDesc
	ch <- c.errorDesc
	ch <- c.touchedDesc
	ch <- c.dirtyDesc
}

// Collect reads the controller state and emits const metrics.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	state := c.ctrl.State()
	flags := []struct {
		name string
		set  bool
	}{
		{"dirty", state.IsDirty},
		{"valid", state.IsValid},
		{"validating", state.IsValidating},
		{"submitting", state.IsSubmitting},
		{"submitted", state.IsSubmitted},
		{"submit_successful", state.IsSubmitSuccessful},
	}
	for _, flag := range flags {
		ch <- prometheus.MustNewConstMetric(c.flagDesc, prometheus.GaugeValue, boolGauge(flag.set), flag.name)
	}
	ch <- prometheus.MustNewConstMetric(c.submitDesc, prometheus.CounterValue, float64(state.SubmitCount))
	for path, messages := range state.Errors.Messages() {
		ch <- prometheus.MustNewConstMetric(c.errorDesc, prometheus.GaugeValue, float64(len(messages)), path)
	}
	ch <- prometheus.MustNewConstMetric(c.touchedDesc, prometheus.GaugeValue, float64(len(flagged(state.TouchedFields))))
	ch <- prometheus.MustNewConstMetric(c.dirtyDesc, prometheus.GaugeValue, float64(len(flagged(state.DirtyFields))))
}

func boolGauge(set bool) float64 {
	if set {
		return 1
	}
	return 0
}
