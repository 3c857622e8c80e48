// Package elevator moves the cuvette holder in and out of the light path.
package elevator

import (
	"time"
)

// Config describes the elevator travel.
type Config struct {
	Travel    int32         `yaml:"travel"`     // Half-steps between lowered and raised
	StepDelay time.Duration `yaml:"step_delay"` // Pause after every half-step
}

// DefaultConfig returns a quarter turn of a 28BYJ-48 geared motor at a safe speed.
func DefaultConfig() Config {
	return Config{
		Travel:    1024,
		StepDelay: 2 * time.Millisecond,
	}
}

// Elevator raises and lowers the sample. Position is not tracked beyond the
// raised flag: every raise of +Travel is undone by a later -Travel.
type Elevator struct {
	stepper *Stepper
	cfg     Config
	raised  bool
}

// New creates an Elevator in the lowered (measuring) position.
func New(stepper *Stepper, cfg Config) *Elevator {
	def := DefaultConfig()
	if cfg.Travel <= 0 {
		cfg.Travel = def.Travel
	}

	return &Elevator{
		stepper: stepper,
		cfg:     cfg,
	}
}

// Raised reports whether the sample is out of the light path.
func (e *Elevator) Raised() bool {
	return e.raised
}

// Eject alternates between raising and lowering the sample. It blocks until
// the move completes and returns the new state.
func (e *Elevator) Eject() bool {
	if e.raised {
		e.move(-e.cfg.Travel)
	} else {
		e.move(e.cfg.Travel)
	}
	e.raised = !e.raised
	return e.raised
}

// Raise lifts the sample if it is lowered.
func (e *Elevator) Raise() {
	if !e.raised {
		e.Eject()
	}
}

// Insert lowers the sample into the light path if it is raised.
func (e *Elevator) Insert() {
	if e.raised {
		e.Eject()
	}
}

func (e *Elevator) move(steps int32) {
	e.stepper.Step(steps, e.cfg.StepDelay)
	e.stepper.Release()
}
