// Package devtool observes a form controller for debugging: Logger writes a
// structured record on every transition, Panel keeps a live snapshot that can
// be served as JSON or streamed, and Collector exposes the form flags as
// Prometheus metrics.
package devtool
