package host

import (
	"context"
	"errors"
	"time"

	"github.com/itohio/gospectro/pkg/protocol"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrTimeout          = errors.New("timed out waiting for the device")
)

// Device defines the interface for spectrophotometers (real or mocked).
type Device interface {
	Connect() error
	Close() error
	// Reports returns the channel of parsed report lines. It is closed by Close.
	Reports() <-chan protocol.Report
	// Handshake makes sure the device answers before any other command.
	Handshake(ctx context.Context) error
	// RequestAbsorbance asks for one report and waits for it. Only meaningful
	// while the device is not streaming.
	RequestAbsorbance(ctx context.Context) (protocol.Report, error)
	// Stream sets the acquisition delay and switches the device to streaming.
	Stream(delay time.Duration) error
	// StopStream switches the device back to on-request mode.
	StopStream() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
