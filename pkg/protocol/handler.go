package protocol

import (
	"io"
	"runtime"
	"strconv"
	"time"
)

// Port is the device side of the serial link. machine.UART provides
// everything except Writable, which the firmware adapts.
type Port interface {
	io.ByteReader
	io.Writer
	// Buffered returns the number of received bytes ready to read.
	Buffered() int
	// Writable reports whether the host side is ready to accept output.
	Writable() bool
}

// maxDelayDigits bounds the SetDaqDelay argument; uint32 milliseconds never
// need more.
const maxDelayDigits = 10

// DefaultArgTimeout bounds the wait for a SetDaqDelay argument.
const DefaultArgTimeout = time.Second

// Handler dispatches host commands. It is the only writer of the acquisition
// mode and delay. It runs on the control loop.
type Handler struct {
	port       Port
	now        func() uint32
	argTimeout uint32

	mode  Mode
	delay uint32

	// request is invoked for VoltageRequest.
	request func()

	dropped uint32
	buf     [maxDelayDigits]byte
}

// NewHandler creates a Handler. now returns milliseconds since boot and
// request produces and sends one report.
func NewHandler(port Port, now func() uint32, request func(), delay, argTimeout time.Duration) *Handler {
	if argTimeout <= 0 {
		argTimeout = DefaultArgTimeout
	}
	if request == nil {
		request = func() {}
	}

	return &Handler{
		port:       port,
		now:        now,
		argTimeout: uint32(argTimeout / time.Millisecond),
		delay:      uint32(delay / time.Millisecond),
		request:    request,
	}
}

type command struct {
	code Code
	run  func(h *Handler)
}

var commands = [...]command{
	{Handshake, (*Handler).handshake},
	{VoltageRequest, func(h *Handler) { h.request() }},
	{OnRequest, func(h *Handler) { h.mode = ModeOnRequest }},
	{Stream, func(h *Handler) { h.mode = ModeStream }},
	{SetDaqDelay, (*Handler).readDelay},
}

// Handle runs the command for code. Unknown codes are ignored; the return
// value reports whether the code was recognized.
func (h *Handler) Handle(code byte) bool {
	if int(code) >= len(commands) {
		return false
	}
	commands[code].run(h)
	return true
}

// Mode returns the acquisition mode.
func (h *Handler) Mode() Mode {
	return h.mode
}

// Delay returns the streaming delay in milliseconds.
func (h *Handler) Delay() uint32 {
	return h.delay
}

// Dropped returns how many replies were discarded because the port was not
// writable or the write failed.
func (h *Handler) Dropped() uint32 {
	return h.dropped
}

// Send writes a line to the host if the port is writable. Nothing is queued
// or retried.
func (h *Handler) Send(line []byte) bool {
	if !h.port.Writable() {
		h.dropped++
		return false
	}
	if _, err := h.port.Write(line); err != nil {
		h.dropped++
		return false
	}
	return true
}

func (h *Handler) handshake() {
	h.Send([]byte(HandshakeReply + LineEnding))
}

// readDelay consumes digits up to the sentinel. Other characters are
// skipped. A missing sentinel, empty argument or overflow keeps the old delay.
func (h *Handler) readDelay() {
	n := 0
	overflow := false
	start := h.now()

	for {
		if h.port.Buffered() == 0 {
			if h.now()-start >= h.argTimeout {
				return
			}
			runtime.Gosched()
			continue
		}

		b, err := h.port.ReadByte()
		if err != nil {
			return
		}
		if b == DelaySentinel {
			break
		}
		if b < '0' || b > '9' {
			continue
		}
		if n == len(h.buf) {
			overflow = true
			continue
		}
		h.buf[n] = b
		n++
	}

	if n == 0 || overflow {
		return
	}

	v, err := strconv.ParseUint(string(h.buf[:n]), 10, 32)
	if err != nil {
		return
	}
	h.delay = uint32(v)
}
