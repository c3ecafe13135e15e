// Package prometheus renders tokenguard metrics as Prometheus text exposition and serves
// them from [PrometheusExporter.Handler].
package prometheus
