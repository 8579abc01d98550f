package prometrics

import (
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type definition struct {
	help    string
	labels  []string
	buckets []float64 // nil for counters
}

var definitions = map[observability.MetricKey]definition{
	observability.MUsecaseRequests:         {help: "Total number of use case invocations.", labels: []string{"use_case", "outcome"}},
	observability.MUsecaseDuration:         {help: "Duration of use case execution in seconds.", labels: []string{"use_case"}, buckets: prometheus.DefBuckets},
	observability.MHTTPRequests:            {help: "Total number of HTTP requests.", labels: []string{"method", "route", "status"}},
	observability.MHTTPRequestDuration:     {help: "HTTP request latency in seconds.", labels: []string{"method", "route", "status"}, buckets: prometheus.DefBuckets},
	observability.MExternalRequests:        {help: "Total number of calls to external peers.", labels: []string{"peer", "endpoint", "outcome"}},
	observability.MExternalRequestDuration: {help: "Latency of calls to external peers in seconds.", labels: []string{"peer", "endpoint"}, buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30}},
	observability.MEventPublishFailures:    {help: "Count of domain event publish failures.", labels: []string{"event"}},
	observability.MOrdersCreated:           {help: "Orders created.", labels: nil},
	observability.MOrderItems:              {help: "Order line items created.", labels: nil},
	observability.MPayments:                {help: "Payment lifecycle events by result.", labels: []string{"event", "result"}},
	observability.MCacheLookups:            {help: "Cache lookups by cache and result.", labels: []string{"cache", "result"}},
	observability.MRateLimited:             {help: "Requests rejected by rate limiting.", labels: []string{"route"}},
}

// Registry owns the Prometheus vectors behind the observability.Metrics port.
type Registry struct {
	counters   map[observability.MetricKey]*prometheus.CounterVec
	histograms map[observability.MetricKey]*prometheus.HistogramVec
}

// New creates every known vector and registers it with reg.
func New(reg prometheus.Registerer, namespace string) (*Registry, error) {
	r := &Registry{
		counters:   make(map[observability.MetricKey]*prometheus.CounterVec),
		histograms: make(map[observability.MetricKey]*prometheus.HistogramVec),
	}
	for key, def := range definitions {
		var c prometheus.Collector
		if def.buckets == nil {
			cv := prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace, Name: string(key), Help: def.help,
			}, def.labels)
			r.counters[key] = cv
			c = cv
		} else {
			hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace, Name: string(key), Help: def.help, Buckets: def.buckets,
			}, def.labels)
			r.histograms[key] = hv
			c = hv
		}
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Counter(name observability.MetricKey) observability.Counter {
	if cv, ok := r.counters[name]; ok {
		return &counter{v: cv}
	}
	return observability.NopCounter()
}

func (r *Registry) Histogram(name observability.MetricKey) observability.Histogram {
	if hv, ok := r.histograms[name]; ok {
		return &histogram{v: hv}
	}
	return observability.NopHistogram()
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}
