package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() tokenguard.MetricsSnapshot
}

// PrometheusExporter serves a metrics source as a scrape endpoint.
type PrometheusExporter struct {
	source metricsSource
}

func NewPrometheusExporter(engine *tokenguard.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource is used by tests and by callers wrapping several engines.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render is empty while the engine has metrics disabled. The latency histogram only appears
// when latency tracking is on.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return ""
	}

	var b strings.Builder
	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def, "counter")
		fmt.Fprintf(&b, "%s %d\n", def.Name, snapshot.Counters[def.ID])
	}

	raw, ok := snapshot.Histograms[internaldefs.Latency.ID]
	if !ok {
		return b.String()
	}
	name := internaldefs.Latency.Name
	cumulative := internaldefs.Cumulative(raw)
	writeHeader(&b, internaldefs.Latency, "histogram")
	for i, bucket := range internaldefs.Buckets {
		fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", name, bucket.Label, cumulative[i])
	}
	// only bucket counts are tracked, so the sum is always zero
	fmt.Fprintf(&b, "%s_count %d\n%s_sum 0\n", name, cumulative[len(cumulative)-1], name)
	return b.String()
}

func writeHeader(b *strings.Builder, def internaldefs.Def, kind string) {
	help := strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(def.Help)
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", def.Name, help, def.Name, kind)
}
