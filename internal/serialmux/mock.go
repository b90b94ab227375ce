package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// NewMockSerialMux returns a mux whose port emits line every interval until
// ctx is done. Writes are discarded. It stands in for a sensor board during
// development.
func NewMockSerialMux(ctx context.Context, line []byte, interval time.Duration) *SerialMux[SerialPorter] {
	r, w := io.Pipe()
	port := &pipePort{PipeReader: r}

	if !bytes.HasSuffix(line, []byte("\n")) {
		line = append(append([]byte(nil), line...), '\n')
	}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Write(line); err != nil {
					return
				}
			}
		}
	}()

	return NewSerialMux[SerialPorter](port)
}

type pipePort struct {
	*io.PipeReader
}

func (p *pipePort) Write(b []byte) (int, error) { return len(b), nil }

// TestableSerialPort is a scripted port for tests.
type TestableSerialPort struct {
	mu sync.Mutex

	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer

	// ReadError and WriteError are returned once by the next call.
	ReadError  error
	WriteError error
	CloseError error

	// ShortWrite makes Write report one byte fewer than it was given.
	ShortWrite bool

	Closed      bool
	ReadCalls   int
	WriteCalls  int
	ReadTimeout time.Duration

	// BlockReads makes Read wait for data or Close instead of returning EOF.
	BlockReads bool

	readCond *sync.Cond
}

func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

var errPortClosed = errors.New("serial port closed")

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errPortClosed
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errPortClosed
		}
	}

	return t.ReadBuffer.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errPortClosed
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	n, err := t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	t.readCond.Broadcast()
	return t.CloseError
}

func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// AddReadData queues data for Read and wakes a blocked reader.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}

// MockSerialPortFactory returns Port (or Error) from Open and records calls.
type MockSerialPortFactory struct {
	mu        sync.Mutex
	Port      SerialPorter
	Error     error
	OpenCalls []MockOpenCall
}

type MockOpenCall struct {
	Path    string
	Options PortOptions
}

func NewMockSerialPortFactory(port SerialPorter) *MockSerialPortFactory {
	return &MockSerialPortFactory{Port: port}
}

func (f *MockSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenCalls = append(f.OpenCalls, MockOpenCall{Path: path, Options: opts})
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil.
func (f *MockSerialPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.OpenCalls) == 0 {
		return nil
	}
	c := f.OpenCalls[len(f.OpenCalls)-1]
	return &c
}
