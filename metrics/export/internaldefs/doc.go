// Package internaldefs names the exported tokenguard metrics and the latency bucket bounds.
// The prometheus and otel exporters both render from these tables.
package internaldefs
