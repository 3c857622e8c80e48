package host

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/gospectro/pkg/config"
	"github.com/itohio/gospectro/pkg/elevator"
	"github.com/itohio/gospectro/pkg/instrument"
	"github.com/itohio/gospectro/pkg/photometer"
	"github.com/itohio/gospectro/pkg/protocol"
	"github.com/itohio/gospectro/pkg/status"
)

// Mock simulates a spectrophotometer by running the instrument control loop
// in-process. The host side talks to it through the same protocol as Serial.
type Mock struct {
	cfg *config.Config

	link      *link
	mu        sync.RWMutex
	connected bool
	closed    bool

	inst    *instrument.Instrument
	display *status.Memory
	port    *mockPort
	conn    *mockConn
	cancel  context.CancelFunc
	stopped chan struct{}

	// Simulation state
	startTime time.Time
	released  atomic.Bool
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	m := &Mock{
		cfg:  cfg,
		link: newLink(DefaultBufferSize),
	}
	m.released.Store(true)
	return m
}

// Connect starts the simulated instrument.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.closed {
		return fmt.Errorf("device was closed")
	}

	pr, pw := io.Pipe()
	in := &byteQueue{}
	m.port = &mockPort{in: in, out: pw}
	m.port.writable.Store(true)

	icfg := m.cfg.Instrument()
	icfg.Elevator.StepDelay = m.cfg.Mock.StepDelay
	icfg.DisplayWidth = 16
	icfg.DisplayHeight = 2

	m.startTime = time.Now()
	m.display = status.NewMemory(icfg.DisplayHeight)
	m.inst = instrument.New(icfg, instrument.Hardware{
		ADC:            photometer.ADCFunc(m.readADC),
		Coils:          [4]elevator.Pin{coil{}, coil{}, coil{}, coil{}},
		Port:           m.port,
		RecordReleased: m.released.Load,
		Display:        m.display,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.stopped = make(chan struct{})
	go func() {
		defer close(m.stopped)
		m.inst.Run(ctx)
	}()

	m.conn = &mockConn{PipeReader: pr, in: in}
	m.link.start(m.conn)
	m.connected = true

	return nil
}

// Close stops the simulated instrument.
func (m *Mock) Close() error {
	if !m.IsConnected() {
		return nil
	}

	// Release callers waiting for a reply before taking the lock
	m.link.stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	// Closing the read end fails any report the loop is writing, so the loop
	// can always observe the cancellation.
	m.port.writable.Store(false)
	m.conn.Close()
	m.cancel()
	<-m.stopped
	m.port.out.Close()

	m.link.wait()
	m.connected = false
	m.closed = true

	return nil
}

// Reports returns the channel for reading reports.
func (m *Mock) Reports() <-chan protocol.Report {
	return m.link.reports
}

// Handshake exchanges the handshake with the simulated instrument.
func (m *Mock) Handshake(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	return m.link.handshake(ctx)
}

// RequestAbsorbance asks for a single report.
func (m *Mock) RequestAbsorbance(ctx context.Context) (protocol.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return protocol.Report{}, ErrNotConnected
	}
	return m.link.request(ctx)
}

// Stream sets the acquisition delay and starts streaming.
func (m *Mock) Stream(delay time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	return m.link.stream(delay)
}

// StopStream returns the simulated instrument to on-request mode.
func (m *Mock) StopStream() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	return m.link.stopStream()
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// PressEject simulates a press of the eject button.
func (m *Mock) PressEject() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.inst.EjectEdge()
	return nil
}

// PressRecord simulates holding the record button for hold. Holds of at
// least the long press threshold calibrate the blank; shorter ones report.
func (m *Mock) PressRecord(hold time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.released.Store(false)
	m.inst.RecordEdge()
	time.Sleep(hold)
	m.released.Store(true)
	return nil
}

// Status returns the rows of the simulated status display.
func (m *Mock) Status() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.display == nil {
		return nil
	}
	return []string{m.display.Line(0), m.display.Line(1)}
}

// readADC simulates the photodiode behind a sample that transmits a fraction
// of full scale, optionally drifting over time.
func (m *Mock) readADC() uint16 {
	full := float64(m.cfg.Photometer.RawMax)

	level := m.cfg.Mock.Transmittance + m.cfg.Mock.Drift*time.Since(m.startTime).Seconds()
	if m.cfg.Mock.NoiseLevel > 0 {
		level += (rand.Float64()*2 - 1) * m.cfg.Mock.NoiseLevel
	}

	raw := level * full
	if raw < 0 {
		raw = 0
	} else if raw > full {
		raw = full
	}
	return uint16(raw)
}

// coil is a stepper coil that goes nowhere.
type coil struct{}

func (coil) Set(bool) {}

// byteQueue carries host commands to the simulated instrument.
type byteQueue struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (q *byteQueue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Write(p)
}

func (q *byteQueue) ReadByte() (byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.ReadByte()
}

func (q *byteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Len()
}

// mockPort is the instrument side of the simulated link.
type mockPort struct {
	in       *byteQueue
	out      *io.PipeWriter
	writable atomic.Bool
}

func (p *mockPort) ReadByte() (byte, error)     { return p.in.ReadByte() }
func (p *mockPort) Buffered() int               { return p.in.Len() }
func (p *mockPort) Writable() bool              { return p.writable.Load() }
func (p *mockPort) Write(b []byte) (int, error) { return p.out.Write(b) }

// mockConn is the host side of the simulated link.
type mockConn struct {
	*io.PipeReader
	in *byteQueue
}

func (c *mockConn) Write(b []byte) (int, error) { return c.in.Write(b) }
