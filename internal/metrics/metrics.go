package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	commandsTotal     *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	deviceHealthy     *prometheus.GaugeVec
	devicePorts       *prometheus.GaugeVec
	mappedSlots       prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_commands_total",
			Help: "Relay commands by operation and result.",
		}, []string{"operation", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_command_duration_seconds",
			Help:    "Histogram of relay command round trips by operation.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"operation"}),
		deviceHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_device_healthy",
			Help: "1 when every port of the device reported a status on the last probe.",
		}, []string{"device", "host"}),
		devicePorts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relay_device_resolved_ports",
			Help: "Number of ports with a readable status on the last probe.",
		}, []string{"device"}),
		mappedSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_mapped_slots",
			Help: "Number of slots with a live mapping.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.commandsTotal,
		m.commandDuration,
		m.deviceHealthy,
		m.devicePorts,
		m.mappedSlots,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) HTTPRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RelayCommand(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commandsTotal.WithLabelValues(operation, result).Inc()
	m.commandDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) DeviceHealth(device, host string, healthy bool, resolvedPorts int) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.deviceHealthy.WithLabelValues(device, host).Set(v)
	m.devicePorts.WithLabelValues(device).Set(float64(resolvedPorts))
}

func (m *Metrics) MappedSlots(n int) {
	if m == nil {
		return
	}
	m.mappedSlots.Set(float64(n))
}
