package elevator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePin struct {
	level  bool
	writes int
}

func (p *fakePin) Set(high bool) {
	p.level = high
	p.writes++
}

func newFakeStepper() (*Stepper, [4]*fakePin, *[]time.Duration) {
	var fakes [4]*fakePin
	var pins [4]Pin
	for i := range fakes {
		fakes[i] = &fakePin{}
		pins[i] = fakes[i]
	}

	var sleeps []time.Duration
	s := NewStepper(pins)
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, fakes, &sleeps
}

func levels(pins [4]*fakePin) [4]bool {
	return [4]bool{pins[0].level, pins[1].level, pins[2].level, pins[3].level}
}

func TestStepper_Forward(t *testing.T) {
	s, pins, sleeps := newFakeStepper()

	s.Step(1, time.Millisecond)
	assert.Equal(t, 1, s.Phase())
	assert.Equal(t, halfStepSequence[1], levels(pins))

	s.Step(3, time.Millisecond)
	assert.Equal(t, 4, s.Phase())
	assert.Equal(t, halfStepSequence[4], levels(pins))
	assert.Len(t, *sleeps, 4)
}

func TestStepper_WrapsAround(t *testing.T) {
	s, pins, _ := newFakeStepper()

	s.Step(-1, 0)
	assert.Equal(t, 7, s.Phase())
	assert.Equal(t, halfStepSequence[7], levels(pins))

	s.Step(9, 0)
	assert.Equal(t, 0, s.Phase())
	assert.Equal(t, halfStepSequence[0], levels(pins))
}

func TestStepper_ForwardThenBackwardRestoresPhase(t *testing.T) {
	s, _, sleeps := newFakeStepper()

	s.Step(37, 2*time.Millisecond)
	s.Step(-37, 2*time.Millisecond)
	assert.Equal(t, 0, s.Phase())
	require.Len(t, *sleeps, 74)
	for _, d := range *sleeps {
		assert.Equal(t, 2*time.Millisecond, d)
	}
}

func TestStepper_Zero(t *testing.T) {
	s, pins, sleeps := newFakeStepper()
	s.Step(0, time.Second)
	assert.Equal(t, 0, s.Phase())
	assert.Empty(t, *sleeps)
	for _, p := range pins {
		assert.Zero(t, p.writes)
	}
}

func TestStepper_Release(t *testing.T) {
	s, pins, _ := newFakeStepper()
	s.Step(2, 0)
	s.Release()
	assert.Equal(t, [4]bool{}, levels(pins))
}

func TestElevator_EjectAlternates(t *testing.T) {
	s, _, sleeps := newFakeStepper()
	e := New(s, Config{Travel: 16, StepDelay: time.Millisecond})

	require.False(t, e.Raised())

	want := []bool{true, false, true, false, true}
	for i, w := range want {
		assert.Equal(t, w, e.Eject(), "eject #%d", i+1)
		assert.Equal(t, w, e.Raised())
	}

	// Odd number of moves leaves the motor one travel forward.
	assert.Equal(t, 16%8, s.Phase())
	assert.Len(t, *sleeps, 16*len(want))
}

func TestElevator_RaiseInsertIdempotent(t *testing.T) {
	s, _, sleeps := newFakeStepper()
	e := New(s, Config{Travel: 5})

	e.Insert()
	assert.False(t, e.Raised())
	assert.Empty(t, *sleeps)

	e.Raise()
	e.Raise()
	assert.True(t, e.Raised())
	assert.Len(t, *sleeps, 5)
	assert.Equal(t, 5, s.Phase())

	e.Insert()
	assert.False(t, e.Raised())
	assert.Equal(t, 0, s.Phase())
}

func TestNew_DefaultTravel(t *testing.T) {
	s, _, _ := newFakeStepper()
	e := New(s, Config{})
	assert.Equal(t, DefaultConfig().Travel, e.cfg.Travel)
}
