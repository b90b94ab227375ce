package serialmux

import (
	"io"
	"time"
)

// SerialPorter is the minimal port surface the mux needs, so tests can run
// without hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter is implemented by ports that support read timeouts.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// SerialPortFactory opens ports.
type SerialPortFactory interface {
	Open(path string, opts PortOptions) (SerialPorter, error)
}
