package mqtt

import "errors"

var (
	// ErrNoBroker is returned when no broker address is configured.
	ErrNoBroker = errors.New("mqtt: no broker configured")

	// ErrConnectTimeout is returned when the broker does not accept the
	// connection in time.
	ErrConnectTimeout = errors.New("mqtt: connect timeout")
)
