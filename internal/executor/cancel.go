package executor

import "sync/atomic"

// CancelSignal is a cooperative cancellation flag for one in-flight
// fan-out: once Cancel is called, the fan-out loop stops submitting new
// updates but lets dispatched ones resolve, since an in-flight write
// cannot be safely cancelled mid-request.
type CancelSignal struct {
	flag atomic.Bool
}

// NewCancelSignal returns a signal in the not-cancelled state.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{}
}

// Cancel requests that no further updates be submitted.
func (c *CancelSignal) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *CancelSignal) Cancelled() bool {
	if c == nil {
		return false
	}
	return c.flag.Load()
}
