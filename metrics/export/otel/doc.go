// Package otel publishes tokenguard metrics through OpenTelemetry observable instruments.
// Callers own the MeterProvider and pass in a Meter.
package otel
