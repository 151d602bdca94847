package prometheus

import (
	"net/http"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	goSession "github.com/MrEthical07/goSession"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter serves controller metrics from a private registry holding a single
// [Collector]. Nothing else is registered, so scrapes contain only gosession_* series.
type PrometheusExporter struct {
	source   metricsSource
	registry *prom.Registry
}

// NewPrometheusExporter creates an exporter reading from c.
func NewPrometheusExporter(c *goSession.Controller) *PrometheusExporter {
	return NewPrometheusExporterFromSource(c)
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	registry := prom.NewRegistry()
	if source != nil {
		registry.MustRegister(NewCollectorFromSource(source))
	}
	return &PrometheusExporter{source: source, registry: registry}
}

// Registry exposes the backing registry, e.g. to merge it into a prom.Gatherers.
func (p *PrometheusExporter) Registry() *prom.Registry {
	return p.registry
}

// Handler serves the registry with content negotiation.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Render returns the text exposition of the current metrics, or "" when metrics are
// disabled and no audit events were dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}
	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && p.source.AuditDropped() == 0 {
		return ""
	}

	families, err := p.registry.Gather()
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return ""
		}
	}
	return b.String()
}
