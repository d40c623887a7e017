// Package metrics holds the Prometheus collectors for the task engine.
package metrics

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for the modification counter.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
)

// Metrics holds Prometheus counters and gauges for the task engine.
type Metrics struct {
	registry           *prometheus.Registry
	modificationsTotal *prometheus.CounterVec
	tasksActive        prometheus.Gauge
	validationFailures prometheus.Counter
	sweptConnections   prometheus.Counter
}

// New creates and registers the engine metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	modificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audiocloud_modifications_total",
		Help: "Total number of task spec modifications by kind and result",
	}, []string{"kind", "result"})
	tasksActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiocloud_tasks_active",
		Help: "Number of tasks currently held by the store",
	})
	validationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocloud_validation_failures_total",
		Help: "Total number of task specs rejected by validation",
	})
	sweptConnections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocloud_swept_connections_total",
		Help: "Total number of connections removed because a node they referenced was deleted",
	})

	registry.MustRegister(
		modificationsTotal,
		tasksActive,
		validationFailures,
		sweptConnections,
	)

	return &Metrics{
		registry:           registry,
		modificationsTotal: modificationsTotal,
		tasksActive:        tasksActive,
		validationFailures: validationFailures,
		sweptConnections:   sweptConnections,
	}
}

// ObserveModification counts one modification of the given kind.
func (m *Metrics) ObserveModification(kind, result string) {
	if m == nil {
		return
	}
	m.modificationsTotal.WithLabelValues(kind, result).Inc()
}

// SetTasksActive sets the active task gauge.
func (m *Metrics) SetTasksActive(n int) {
	if m == nil {
		return
	}
	m.tasksActive.Set(float64(n))
}

// IncValidationFailures increments the validation failure counter.
func (m *Metrics) IncValidationFailures() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

// AddSweptConnections adds n to the swept connection counter.
func (m *Metrics) AddSweptConnections(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptConnections.Add(float64(n))
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Gather returns every counter and gauge sample, sorted by name then labels.
func (m *Metrics) Gather() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			sample := Sample{Name: family.GetName(), Labels: map[string]string{}}
			for _, pair := range metric.GetLabel() {
				sample.Labels[pair.GetName()] = pair.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				sample.Value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				sample.Value = metric.GetGauge().GetValue()
			default:
				continue
			}
			out = append(out, sample)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return labelKey(out[i].Labels) < labelKey(out[j].Labels)
	})
	return out, nil
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var key string
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key
}
