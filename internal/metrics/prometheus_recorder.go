package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration       *prom.HistogramVec
	buildDuration      prom.Histogram
	buildOutcome       *prom.CounterVec
	postProcessOutcome *prom.CounterVec
	errorKeys          *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil registry gets a fresh private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_pass_duration_seconds",
			Help:      "Duration of individual rendering engine passes",
			Buckets:   prom.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pass"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration including all passes and cleanup",
			Buckets:   prom.ExponentialBuckets(0.1, 2, 12),
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		postProcessOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "postprocess_outcomes_total",
			Help:      "Post-process outcomes by final status",
		}, []string{"outcome"}),
		errorKeys: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_errors_total",
			Help:      "Recorded build diagnostics by error key",
		}, []string{"key"}),
	}
	reg.MustRegister(pr.passDuration, pr.buildDuration, pr.buildOutcome, pr.postProcessOutcome, pr.errorKeys)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(pass int, d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(strconv.Itoa(pass)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncPostProcessOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.postProcessOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncErrorKey(key string) {
	if p == nil {
		return
	}
	p.errorKeys.WithLabelValues(key).Inc()
}
