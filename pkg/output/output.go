// Package output defines the transport used to submit one payload per
// cycle. Implementations live in subpackages.
package output

import (
	"context"
	"errors"
)

const (
	// StatusConnectionFailed is reported when no exchange with the
	// collector took place.
	StatusConnectionFailed = -1
	// StatusDelivered is reported by message transports that have no
	// status code of their own once the broker acknowledged the payload.
	StatusDelivered = 1
)

// ErrNotConnected is returned by transports that hold a connection and
// are asked to submit while it is down.
var ErrNotConnected = errors.New("transport not connected")

// Response is the outcome of a completed or failed submission. A
// StatusCode > 0 means the exchange completed, whatever the code.
type Response struct {
	StatusCode int
	Body       []byte
}

// Completed reports whether the collector answered at all.
func (r Response) Completed() bool { return r.StatusCode > 0 }

type Transport interface {
	Submit(ctx context.Context, payload []byte) (Response, error)
	Close() error
}
