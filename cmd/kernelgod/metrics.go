package main

import (
	"time"

	"github.com/hupe1980/kernelgo"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements kernelgo.MetricsCollector.
type PrometheusCollector struct {
	requests  *prometheus.HistogramVec
	rejected  *prometheus.CounterVec
	snapshots *prometheus.HistogramVec
	arrays    *prometheus.CounterVec
}

var _ kernelgo.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers it with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kernelgo_request_duration_seconds",
			Help:    "Latency of kernel requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelgo_rejected_bytes_total",
			Help: "Bytes requested by requests the memory guard refused",
		}, []string{"op"}),
		snapshots: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kernelgo_snapshot_duration_seconds",
			Help:    "Latency of snapshot saves and loads",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "status"}),
		arrays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelgo_snapshot_arrays_total",
			Help: "Arrays written or read by snapshots",
		}, []string{"action"}),
	}

	reg.MustRegister(c.requests, c.rejected, c.snapshots, c.arrays)
	return c
}

func status(err error) string {
	if err != nil {
		return kernelgo.KindOf(err).String()
	}
	return "ok"
}

func (c *PrometheusCollector) RecordExecute(op string, d time.Duration, err error) {
	c.requests.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordRejected(op string, requested int64) {
	c.rejected.WithLabelValues(op).Add(float64(requested))
}

func (c *PrometheusCollector) RecordSnapshot(action string, arrays int, d time.Duration, err error) {
	c.snapshots.WithLabelValues(action, status(err)).Observe(d.Seconds())
	if err == nil {
		c.arrays.WithLabelValues(action).Add(float64(arrays))
	}
}

// memoryGauge exports the engine's charged bytes on every scrape.
func memoryGauge(e *kernelgo.Engine) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "kernelgo_memory_used_bytes",
		Help: "Bytes held by the array table and in-flight reservations",
	}, func() float64 {
		return float64(e.MemoryUsage())
	})
}
