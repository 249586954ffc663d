package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Mining Metrics
	RecordsTotal     *prometheus.CounterVec
	PersonDaysTotal  prometheus.Counter
	CirclesTotal     prometheus.Counter
	CirclesPerDay    prometheus.Histogram
	MiningDuration   prometheus.Histogram
	StoreBatchErrors prometheus.Counter

	// Mesos Metrics
	MesosTotal      prometheus.Counter
	MesosDuration   prometheus.Histogram
	MesosStructDist prometheus.Histogram
}

// NewCollector creates a new metrics collector registered on reg. A nil reg
// means the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observation_records_total",
				Help:      "Observation records read, by outcome",
			},
			[]string{"outcome"}, // accepted, malformed, unknown_location, out_of_area
		),

		PersonDaysTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "person_days_total",
				Help:      "Total number of person-days mined",
			},
		),

		CirclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circles_total",
				Help:      "Total number of circles mined",
			},
		),

		CirclesPerDay: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "circles_per_person_day",
				Help:      "Number of circles mined per person-day",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
			},
		),

		MiningDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mining_duration_seconds",
				Help:      "Duration of mining runs in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
		),

		StoreBatchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_batch_errors_total",
				Help:      "Total number of failed result batch writes",
			},
		),

		MesosTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mesos_computations_total",
				Help:      "Total number of mesos graph pairs computed",
			},
		),

		MesosDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mesos_duration_seconds",
				Help:      "Duration of one mesos computation in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		MesosStructDist: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mesos_struct_dist",
				Help:      "Distribution of mesos structural distances",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordRecords adds n records with the given outcome
func (c *Collector) RecordRecords(outcome string, n int64) {
	if n > 0 {
		c.RecordsTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordPersonDay counts a mined person-day and its circles
func (c *Collector) RecordPersonDay(circles int) {
	c.PersonDaysTotal.Inc()
	c.CirclesTotal.Add(float64(circles))
	c.CirclesPerDay.Observe(float64(circles))
}

// RecordMesos counts one mesos computation
func (c *Collector) RecordMesos(d time.Duration, structDist float64) {
	c.MesosTotal.Inc()
	c.MesosDuration.Observe(d.Seconds())
	c.MesosStructDist.Observe(structDist)
}
