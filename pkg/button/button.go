// Package button turns pin interrupts into debounced logical button events.
//
// Edge methods run in interrupt context: they only compare and store
// single-word atomics. Everything else runs on the control loop.
package button

import (
	"sync/atomic"
	"time"
)

// Config holds the button timing.
type Config struct {
	Debounce  time.Duration `yaml:"debounce"`   // Minimum spacing between accepted edges
	LongPress time.Duration `yaml:"long_press"` // Holds at least this long are Long presses
}

// DefaultConfig returns 200 ms debounce and an 800 ms long press threshold.
func DefaultConfig() Config {
	return Config{
		Debounce:  200 * time.Millisecond,
		LongPress: 800 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.LongPress <= 0 {
		c.LongPress = def.LongPress
	}
	return c
}

// Press is a classified record button press.
type Press uint8

const (
	PressShort Press = iota
	PressLong
)

func (p Press) String() string {
	switch p {
	case PressShort:
		return "Short"
	case PressLong:
		return "Long"
	default:
		return "Unknown"
	}
}

// Classify returns PressLong when held reaches threshold.
func Classify(held, threshold time.Duration) Press {
	if held >= threshold {
		return PressLong
	}
	return PressShort
}

// guard is a per-source debounce filter over millisecond timestamps.
// The zero value rejects edges during the first window after boot.
type guard struct {
	last   atomic.Uint32
	window uint32
}

func (g *guard) accept(now uint32) bool {
	if now-g.last.Load() < g.window {
		return false
	}
	g.last.Store(now)
	return true
}

func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

// EjectSource is the edge-triggered eject button.
type EjectSource struct {
	guard     guard
	requested atomic.Bool
}

// NewEjectSource creates an EjectSource.
func NewEjectSource(cfg Config) *EjectSource {
	cfg = cfg.withDefaults()
	s := &EjectSource{}
	s.guard.window = millis(cfg.Debounce)
	return s
}

// Edge handles a falling edge observed at now (ms since boot).
// It reports whether the edge was accepted.
func (s *EjectSource) Edge(now uint32) bool {
	if !s.guard.accept(now) {
		return false
	}
	s.requested.Store(true)
	return true
}

// Pending reports whether an eject was requested.
func (s *EjectSource) Pending() bool {
	return s.requested.Load()
}

// Clear drops the pending request, including any that arrived while the
// previous eject was still moving.
func (s *EjectSource) Clear() {
	s.requested.Store(false)
}

// RecordState is the state of the record button.
type RecordState uint32

const (
	Armed RecordState = iota
	AwaitingRelease
)

func (s RecordState) String() string {
	switch s {
	case Armed:
		return "Armed"
	case AwaitingRelease:
		return "AwaitingRelease"
	default:
		return "Unknown"
	}
}

// RecordSource is the record button: a short press samples, a long press
// calibrates. The interrupt only captures the press edge; hold duration is
// measured by the loop in Poll.
type RecordSource struct {
	guard     guard
	state     atomic.Uint32
	pressedAt atomic.Uint32
	longPress uint32
}

// NewRecordSource creates an armed RecordSource.
func NewRecordSource(cfg Config) *RecordSource {
	cfg = cfg.withDefaults()
	s := &RecordSource{longPress: millis(cfg.LongPress)}
	s.guard.window = millis(cfg.Debounce)
	return s
}

// State returns the current state.
func (s *RecordSource) State() RecordState {
	return RecordState(s.state.Load())
}

// Edge handles a falling edge observed at now. While a press is being timed
// the source is disabled and edges are ignored.
func (s *RecordSource) Edge(now uint32) bool {
	if RecordState(s.state.Load()) != Armed {
		return false
	}
	if !s.guard.accept(now) {
		return false
	}
	// pressedAt must be visible before the state flips.
	s.pressedAt.Store(now)
	s.state.Store(uint32(AwaitingRelease))
	return true
}

// Poll is called from the loop with the current line level. Once a press is
// being timed and the line reads released, it classifies the hold measured
// from the interrupt timestamp, re-arms the source and returns the press.
func (s *RecordSource) Poll(released bool, now uint32) (Press, bool) {
	if RecordState(s.state.Load()) != AwaitingRelease || !released {
		return 0, false
	}

	held := now - s.pressedAt.Load()
	press := PressShort
	if held >= s.longPress {
		press = PressLong
	}

	// Release chatter falls inside a fresh debounce window. The interrupt
	// does not touch the guard while disarmed.
	s.guard.last.Store(now)
	s.state.Store(uint32(Armed))
	return press, true
}
