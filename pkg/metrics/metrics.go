package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "shopping"

// Recorder owns a private registry so several recorders can coexist in tests.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	agentInvocations *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	resolverAttempts *prometheus.CounterVec
	resolverResults  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		agentInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_invocations_total",
				Help:      "Total number of agent invocations by outcome",
			},
			[]string{"agent", "outcome"},
		),
		agentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_duration_seconds",
				Help:      "Duration of agent invocations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		resolverAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_attempts_total",
				Help:      "Catalog similarity requests by attempt outcome",
			},
			[]string{"outcome"},
		),
		resolverResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_resolutions_total",
				Help:      "Item name resolutions by result",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_requests_total",
				Help:      "Memory service requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "memory_request_duration_seconds",
				Help:      "Memory service request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	r.registry.MustRegister(
		r.agentInvocations,
		r.agentDuration,
		r.resolverAttempts,
		r.resolverResults,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the exposition format for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveInvocation(agent, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.agentInvocations.WithLabelValues(agent, outcome).Inc()
	r.agentDuration.WithLabelValues(agent).Observe(seconds)
}

func (r *Recorder) ResolverAttempt(outcome string) {
	if r == nil {
		return
	}
	r.resolverAttempts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ResolverResult(result string) {
	if r == nil {
		return
	}
	r.resolverResults.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveRequest(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(seconds)
}

// Counters flattens every counter sample into "name{label=value,...}" keys.
// Short-lived processes log it instead of serving /metrics.
func (r *Recorder) Counters() (map[string]float64, error) {
	out := map[string]float64{}
	if r == nil {
		return out, nil
	}

	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[sampleKey(mf.GetName(), m.GetLabel())] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

func sampleKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, lp := range labels {
		pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}
