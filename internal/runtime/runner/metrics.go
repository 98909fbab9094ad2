package runner

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by Metrics.
const (
	DeliveryOK     = "ok"
	DeliveryFailed = "failed"
)

// Metrics tracks job and delivery statistics.
type Metrics struct {
	mu sync.Mutex

	jobsTotal        *prometheus.CounterVec
	messagesGathered *prometheus.CounterVec
	deliveriesTotal  *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notiflow",
			Subsystem: "runner",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewMetrics creates a collector set that registers with registerer, or with the default
// registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer:       registerer,
		jobsTotal:        newCounterVec("jobs_total", "Job runs by final state", []string{"job", "status"}),
		messagesGathered: newCounterVec("messages_gathered_total", "Messages returned by sources", []string{"job", "source"}),
		deliveriesTotal:  newCounterVec("deliveries_total", "Destination emits by outcome", []string{"destination", "status"}),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notiflow",
				Subsystem: "runner",
				Name:      "job_duration_seconds",
				Help:      "Wall time of a job run",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job"},
		),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	for _, c := range m.collectors() {
		if err := m.registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.jobsTotal, m.messagesGathered, m.deliveriesTotal, m.jobDuration}
}

// RecordJob records the final state and duration of a run.
func (m *Metrics) RecordJob(job string, state State, d time.Duration) {
	m.jobsTotal.WithLabelValues(job, state.String()).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// RecordGathered records how many messages a source returned.
func (m *Metrics) RecordGathered(job, source string, n int) {
	m.messagesGathered.WithLabelValues(job, source).Add(float64(n))
}

// RecordDelivery records one emit to a destination.
func (m *Metrics) RecordDelivery(destination string, err error) {
	status := DeliveryOK
	if err != nil {
		status = DeliveryFailed
	}
	m.deliveriesTotal.WithLabelValues(destination, status).Inc()
}

// WriteTextfile writes the current values of the collectors registered with g to path in the
// text exposition format, for node-exporter style collection of one-shot runs.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}

// Reset clears every series (useful for testing).
func (m *Metrics) Reset() {
	m.jobsTotal.Reset()
	m.messagesGathered.Reset()
	m.deliveriesTotal.Reset()
	m.jobDuration.Reset()
}
