// Package protocol defines the byte-oriented host link of the spectrophotometer
// and the device-side command handler.
//
// The host sends single command bytes. SetDaqDelay is followed by ASCII digits
// terminated by 'x'. The device answers with report lines
// "<ms since boot>,<absorbance>\r\n" and a fixed handshake reply.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Code is a host command byte.
type Code byte

const (
	Handshake      Code = 0
	VoltageRequest Code = 1 // Sample once and report; the report carries absorbance
	OnRequest      Code = 2
	Stream         Code = 3
	SetDaqDelay    Code = 4
)

func (c Code) String() string {
	switch c {
	case Handshake:
		return "Handshake"
	case VoltageRequest:
		return "VoltageRequest"
	case OnRequest:
		return "OnRequest"
	case Stream:
		return "Stream"
	case SetDaqDelay:
		return "SetDaqDelay"
	default:
		return "Unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

const (
	// DelaySentinel terminates the SetDaqDelay argument.
	DelaySentinel = 'x'
	// HandshakeReply is sent in response to Handshake, followed by CRLF.
	HandshakeReply = "Message received."
	// LineEnding terminates every device line.
	LineEnding = "\r\n"
)

// Mode is the data acquisition mode.
type Mode uint8

const (
	ModeOnRequest Mode = iota
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeOnRequest:
		return "OnRequest"
	case ModeStream:
		return "Stream"
	default:
		return "Unknown"
	}
}

// ErrMalformedReport is returned by ParseReport for lines that are not reports.
var ErrMalformedReport = errors.New("malformed report")

// Report is one measurement line sent by the device.
type Report struct {
	Timestamp  uint32 // Milliseconds since device boot
	Absorbance float32
}

// Time returns the timestamp as a duration since device boot.
func (r Report) Time() time.Duration {
	return time.Duration(r.Timestamp) * time.Millisecond
}

// AppendReport appends the wire form of a report to dst.
// Absorbance is printed with exactly three decimals.
func AppendReport(dst []byte, timestamp uint32, absorbance float32) []byte {
	dst = strconv.AppendUint(dst, uint64(timestamp), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, float64(absorbance), 'f', 3, 32)
	return append(dst, LineEnding...)
}

// ParseReport parses a report line. Surrounding whitespace is ignored.
func ParseReport(line string) (Report, error) {
	line = strings.TrimSpace(line)
	ts, abs, ok := strings.Cut(line, ",")
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrMalformedReport, line)
	}

	timestamp, err := strconv.ParseUint(ts, 10, 32)
	if err != nil {
		return Report{}, fmt.Errorf("%w: invalid timestamp: %w", ErrMalformedReport, err)
	}

	absorbance, err := strconv.ParseFloat(abs, 32)
	if err != nil {
		return Report{}, fmt.Errorf("%w: invalid absorbance: %w", ErrMalformedReport, err)
	}

	return Report{
		Timestamp:  uint32(timestamp),
		Absorbance: float32(absorbance),
	}, nil
}

// Command encodes a single-byte command.
func Command(code Code) []byte {
	return []byte{byte(code)}
}

// DelayCommand encodes SetDaqDelay with its argument.
func DelayCommand(delay time.Duration) []byte {
	ms := uint64(delay / time.Millisecond)
	cmd := []byte{byte(SetDaqDelay)}
	cmd = strconv.AppendUint(cmd, ms, 10)
	return append(cmd, DelaySentinel)
}
