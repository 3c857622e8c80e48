// Package host talks to the spectrophotometer from a computer, either over a
// serial port or to an in-process simulation.
package host

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/gospectro/pkg/protocol"
)

const (
	// DefaultBaudRate matches the firmware UART.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the reports channel buffer.
	DefaultBufferSize = 100
)

// knownVIDs are USB vendor IDs of boards the firmware is usually flashed on.
var knownVIDs = []string{
	"2341", // Arduino
	"2a03", // Arduino.org
	"239a", // Adafruit
	"2886", // Seeed
	"1a86", // CH340 clones
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	USB         bool
}

// Serial represents a connection to the instrument over a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	link      *link
	mu        sync.RWMutex
	connected bool
	closed    bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		link:     newLink(bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Fall back to plain names
		names, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		result := make([]Port, 0, len(names))
		for _, name := range names {
			result = append(result, Port{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		result = append(result, Port{
			Name:        d.Name,
			Description: describe(d),
			USB:         d.IsUSB,
		})
	}
	return result, nil
}

// Detect returns the first USB serial port that looks like a supported board.
func Detect() (string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	port := detect(details)
	if port == "" {
		return "", fmt.Errorf("no supported board found among %d ports", len(details))
	}
	return port, nil
}

func detect(details []*enumerator.PortDetails) string {
	for _, d := range details {
		if !d.IsUSB {
			continue
		}
		if strings.Contains(strings.ToLower(d.Product), "arduino") {
			return d.Name
		}
		for _, vid := range knownVIDs {
			if strings.EqualFold(d.VID, vid) {
				return d.Name
			}
		}
	}
	return ""
}

func describe(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return d.Name
	}
	desc := fmt.Sprintf("%s [%s:%s]", d.Name, d.VID, d.PID)
	if d.Product != "" {
		desc += " " + d.Product
	}
	return desc
}

// Connect connects to the serial port and starts reading reports.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.closed {
		return fmt.Errorf("device was closed")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	// Start reading reports in a goroutine
	d.link.start(port)

	return nil
}

// Close closes the connection and stops reading reports.
func (d *Serial) Close() error {
	if !d.IsConnected() {
		return nil
	}

	// Release callers waiting for a reply before taking the lock
	d.link.stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	// Close serial port, which unblocks the reader
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.link.wait()
	d.connected = false
	d.closed = true

	return nil
}

// Reports returns the channel for reading reports.
func (d *Serial) Reports() <-chan protocol.Report {
	return d.link.reports
}

// Handshake discards pending input and exchanges the handshake twice.
func (d *Serial) Handshake(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if err := d.conn.ResetInputBuffer(); err != nil {
		log.Printf("Failed to reset input buffer: %v", err)
	}
	return d.link.handshake(ctx)
}

// RequestAbsorbance asks for a single report.
func (d *Serial) RequestAbsorbance(ctx context.Context) (protocol.Report, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return protocol.Report{}, ErrNotConnected
	}
	return d.link.request(ctx)
}

// Stream sets the acquisition delay and starts streaming.
func (d *Serial) Stream(delay time.Duration) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}
	return d.link.stream(delay)
}

// StopStream returns the device to on-request mode.
func (d *Serial) StopStream() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}
	return d.link.stopStream()
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
