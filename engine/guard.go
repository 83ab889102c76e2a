package engine

import "github.com/hupe1980/kernelgo/internal/resource"

// guard admits the projected bytes of a request before any allocation. The
// returned reservation is drawn down by the request's output arrays.
func (e *Engine) guard(op string, projected int64) (*resource.Reservation, error) {
	res, err := e.rc.Reserve(projected)
	if err != nil {
		e.metrics.OnRejected(op, projected)
		if e.logger != nil {
			e.logger.Warn("request rejected by memory guard",
				"op", op,
				"requested", projected,
				"used", e.rc.MemoryUsage(),
				"budget", e.rc.MemoryLimit(),
			)
		}
		return nil, &ErrOutOfMemory{Requested: projected, Budget: e.rc.MemoryLimit(), cause: err}
	}
	return res, nil
}
