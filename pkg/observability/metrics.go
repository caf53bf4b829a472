package observability

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// MetricsCollector exposes counters, gauges and histograms in the
// Prometheus text format without pulling in the full client library.
type MetricsCollector struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter tracks a cumulative value.
type Counter struct {
	value float64
	mu    sync.Mutex
}

// Gauge tracks a current value.
type Gauge struct {
	value float64
	mu    sync.Mutex
}

// Histogram tracks sum and count of observations.
type Histogram struct {
	sum   float64
	count uint64
	mu    sync.Mutex
}

var (
	defaultCollector *MetricsCollector
	once             sync.Once
)

// GetCollector returns the process-wide collector.
func GetCollector() *MetricsCollector {
	once.Do(func() {
		defaultCollector = &MetricsCollector{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
	})
	return defaultCollector
}

func (c *Counter) Inc() { c.Add(1) }

func (c *Counter) Add(val float64) {
	c.mu.Lock()
	c.value += val
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (g *Gauge) Set(val float64) {
	g.mu.Lock()
	g.value = val
	g.mu.Unlock()
}

func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (h *Histogram) Observe(val float64) {
	h.mu.Lock()
	h.sum += val
	h.count++
	h.mu.Unlock()
}

func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (m *MetricsCollector) Counter(name string) *Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c := &Counter{}
	m.counters[name] = c
	return c
}

func (m *MetricsCollector) Gauge(name string) *Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g := &Gauge{}
	m.gauges[name] = g
	return g
}

func (m *MetricsCollector) Histogram(name string) *Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h
	}
	h := &Histogram{}
	m.histograms[name] = h
	return h
}

// Timer records the elapsed time into the named histogram when the
// returned function runs.
func (m *MetricsCollector) Timer(name string) func() {
	start := time.Now()
	return func() {
		m.Histogram(name).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics endpoint.
func (m *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m.mu.RLock()
		defer m.mu.RUnlock()

		for _, name := range sortedKeys(m.counters) {
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %.2f\n", name, m.counters[name].Value())
		}
		for _, name := range sortedKeys(m.gauges) {
			fmt.Fprintf(w, "# TYPE %s gauge\n", name)
			fmt.Fprintf(w, "%s %.2f\n", name, m.gauges[name].Value())
		}
		for _, name := range sortedKeys(m.histograms) {
			h := m.histograms[name]
			fmt.Fprintf(w, "# TYPE %s histogram\n", name)
			fmt.Fprintf(w, "%s_sum %.6f\n", name, h.Sum())
			fmt.Fprintf(w, "%s_count %d\n", name, h.Count())
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Predefined metric names
const (
	// Alert engine
	MetricCyclesRun          = "alert_engine_cycles_total"
	MetricCycleErrors        = "alert_engine_cycle_errors_total"
	MetricAlertsEvaluated    = "alert_engine_alerts_evaluated_total"
	MetricAlertsTriggered    = "alert_engine_alerts_triggered_total"
	MetricEvaluationDuration = "alert_engine_evaluation_duration_seconds"
	MetricStoreWriteDuration = "alert_engine_store_write_duration_seconds"
	MetricWebhooksSent       = "alert_engine_webhooks_sent_total"
	MetricWebhooksFailed     = "alert_engine_webhooks_failed_total"

	// API gateway
	MetricHTTPRequests        = "api_gateway_http_requests_total"
	MetricHTTPDuration        = "api_gateway_http_duration_seconds"
	MetricWSClientConnections = "api_gateway_websocket_connections"

	// NATS
	MetricNATSMessagesReceived  = "nats_messages_received_total"
	MetricNATSMessagesPublished = "nats_messages_published_total"
	MetricNATSPublishErrors     = "nats_publish_errors_total"
)
