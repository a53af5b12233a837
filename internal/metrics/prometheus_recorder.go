package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	resolveDuration *prom.HistogramVec
	resolveResults  *prom.CounterVec
	treeLoads       *prom.CounterVec
	duplicateRoutes *prom.GaugeVec
	buildDuration   *prom.HistogramVec
	pagesWritten    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on reg.
// A nil reg gets a fresh registry with the Go and process collectors.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	pr := &PrometheusRecorder{
		reg: reg,
		resolveDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of route resolutions",
			Buckets:   prom.DefBuckets,
		}, []string{"set"}),
		resolveResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_results_total",
			Help:      "Route resolutions by outcome",
		}, []string{"set", "outcome"}),
		treeLoads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tree_loads_total",
			Help:      "Document tree loads by result",
		}, []string{"set", "result"}),
		duplicateRoutes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_routes",
			Help:      "Overridden route bindings in the current tree",
		}, []string{"set"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Static export duration by final status",
			Buckets:   prom.DefBuckets,
		}, []string{"status"}),
		pagesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Pages written by static exports",
		}, []string{"set"}),
	}
	reg.MustRegister(pr.resolveDuration, pr.resolveResults, pr.treeLoads,
		pr.duplicateRoutes, pr.buildDuration, pr.pagesWritten)
	return pr
}

func (p *PrometheusRecorder) ObserveResolve(set string, outcome Outcome, d time.Duration) {
	p.resolveDuration.WithLabelValues(set).Observe(d.Seconds())
	p.resolveResults.WithLabelValues(set, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncTreeLoad(set string, ok bool) {
	res := "failed"
	if ok {
		res = "success"
	}
	p.treeLoads.WithLabelValues(set, res).Inc()
}

func (p *PrometheusRecorder) SetDuplicateRoutes(set string, n int) {
	p.duplicateRoutes.WithLabelValues(set).Set(float64(n))
}

func (p *PrometheusRecorder) ObserveBuild(status string, d time.Duration) {
	p.buildDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPagesWritten(set string) {
	p.pagesWritten.WithLabelValues(set).Inc()
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
