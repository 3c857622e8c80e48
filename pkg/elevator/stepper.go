package elevator

import (
	"time"
)

// Pin is a digital output. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// 8-step half-step sequence for a 4-phase unipolar motor
var halfStepSequence = [8][4]bool{
	{true, false, false, false},
	{true, true, false, false},
	{false, true, false, false},
	{false, true, true, false},
	{false, false, true, false},
	{false, false, true, true},
	{false, false, false, true},
	{true, false, false, true},
}

// Stepper drives four coil lines through the half-step sequence.
type Stepper struct {
	pins        [4]Pin
	currentStep int
	sleep       func(time.Duration)
}

// NewStepper creates a Stepper on the given coil pins. The pins must already
// be configured as outputs.
func NewStepper(pins [4]Pin) *Stepper {
	return &Stepper{
		pins:  pins,
		sleep: time.Sleep,
	}
}

// Phase returns the current index into the half-step sequence.
func (s *Stepper) Phase() int {
	return s.currentStep
}

func (s *Stepper) applyStep() {
	sequence := halfStepSequence[s.currentStep]
	for i := range 4 {
		s.pins[i].Set(sequence[i])
	}
}

// Step moves count half-steps, forward for positive counts and backward for
// negative ones, pausing delay after every step.
//
// Step blocks for |count| * delay. The control loop does not service serial
// input or buttons while the motor is moving.
func (s *Stepper) Step(count int32, delay time.Duration) {
	dir := 1
	if count < 0 {
		dir = -1
		count = -count
	}

	n := len(halfStepSequence)
	for range count {
		s.currentStep = (s.currentStep + dir + n) % n
		s.applyStep()
		s.sleep(delay)
	}
}

// Release de-energizes all coils.
func (s *Stepper) Release() {
	for _, p := range s.pins {
		p.Set(false)
	}
}
