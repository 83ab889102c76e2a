package engine

import "time"

// MetricsObserver defines the interface for observing engine events.
type MetricsObserver interface {
	// OnExecute is called when a request completes, successfully or not.
	OnExecute(op string, duration time.Duration, err error)

	// OnRejected is called when the memory guard rejects a request.
	OnRejected(op string, requested int64)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (o *NoopMetricsObserver) OnExecute(op string, duration time.Duration, err error) {}
func (o *NoopMetricsObserver) OnRejected(op string, requested int64)                  {}
