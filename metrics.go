package kernelgo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/kernelgo/engine"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordExecute is called after each kernel request.
	// err is nil if the request succeeded.
	RecordExecute(op string, duration time.Duration, err error)

	// RecordRejected is called when the memory guard refuses a request.
	RecordRejected(op string, requested int64)

	// RecordSnapshot is called after each snapshot save or load.
	// action is "save" or "load".
	RecordSnapshot(action string, arrays int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordExecute(string, time.Duration, error)       {}
func (NoopMetricsCollector) RecordRejected(string, int64)                     {}
func (NoopMetricsCollector) RecordSnapshot(string, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ExecuteCount      atomic.Int64
	ExecuteErrors     atomic.Int64
	ExecuteTotalNanos atomic.Int64
	RejectedCount     atomic.Int64
	RejectedBytes     atomic.Int64
	SaveCount         atomic.Int64
	LoadCount         atomic.Int64
	SnapshotErrors    atomic.Int64
	SnapshotArrays    atomic.Int64
}

// RecordExecute implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExecute(_ string, duration time.Duration, err error) {
	b.ExecuteCount.Add(1)
	b.ExecuteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ExecuteErrors.Add(1)
	}
}

// RecordRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejected(_ string, requested int64) {
	b.RejectedCount.Add(1)
	b.RejectedBytes.Add(requested)
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(action string, arrays int, _ time.Duration, err error) {
	switch action {
	case "save":
		b.SaveCount.Add(1)
	case "load":
		b.LoadCount.Add(1)
	}
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotArrays.Add(int64(arrays))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ExecuteCount:    b.ExecuteCount.Load(),
		ExecuteErrors:   b.ExecuteErrors.Load(),
		ExecuteAvgNanos: b.getAvgExecuteNanos(),
		RejectedCount:   b.RejectedCount.Load(),
		RejectedBytes:   b.RejectedBytes.Load(),
		SaveCount:       b.SaveCount.Load(),
		LoadCount:       b.LoadCount.Load(),
		SnapshotErrors:  b.SnapshotErrors.Load(),
		SnapshotArrays:  b.SnapshotArrays.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgExecuteNanos() int64 {
	count := b.ExecuteCount.Load()
	if count == 0 {
		return 0
	}
	return b.ExecuteTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ExecuteCount    int64
	ExecuteErrors   int64
	ExecuteAvgNanos int64
	RejectedCount   int64
	RejectedBytes   int64
	SaveCount       int64
	LoadCount       int64
	SnapshotErrors  int64
	SnapshotArrays  int64
}

// observer forwards engine events to the collector and the logger.
type observer struct {
	e *Engine
}

var _ engine.MetricsObserver = observer{}

func (o observer) OnExecute(op string, duration time.Duration, err error) {
	o.e.metrics.RecordExecute(op, duration, err)
}

func (o observer) OnRejected(op string, requested int64) {
	o.e.metrics.RecordRejected(op, requested)
	o.e.logger.LogRejected(context.Background(), op, requested, o.e.rc.MemoryUsage(), o.e.rc.MemoryLimit())
}
