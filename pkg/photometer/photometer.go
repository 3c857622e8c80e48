// Package photometer turns raw photodiode samples into absorbance values.
package photometer

import (
	"github.com/chewxy/math32"
)

// ADC is the analog front end of the photodiode.
// Reads are assumed to always succeed, the same way machine.ADC.Get does.
type ADC interface {
	Read() uint16
}

// ADCFunc adapts a plain function to the ADC interface.
type ADCFunc func() uint16

func (f ADCFunc) Read() uint16 { return f() }

// Config holds the photometric constants of the instrument.
type Config struct {
	RawMin       uint16  `yaml:"raw_min"`       // Raw value that maps to zero light
	RawMax       uint16  `yaml:"raw_max"`       // Full scale raw value
	Reference    float32 `yaml:"reference"`     // Normalized reading of the empty light path
	Scaling      float32 `yaml:"scaling"`       // Multiplier applied to the Beer-Lambert term
	Offset       float32 `yaml:"offset"`        // Added after scaling
	InitialBlank float32 `yaml:"initial_blank"` // Blank used until the first calibration
	Epsilon      float32 `yaml:"epsilon"`       // Lower bound on normalized readings
}

// DefaultConfig returns the constants for a 10-bit ADC and an uncalibrated detector.
func DefaultConfig() Config {
	return Config{
		RawMin:       0,
		RawMax:       1023,
		Reference:    0.8,
		Scaling:      1,
		Offset:       0,
		InitialBlank: 0,
		Epsilon:      1e-4,
	}
}

// Engine converts detector samples to absorbance and keeps the blank.
// It is not safe for concurrent use; the control loop owns it.
type Engine struct {
	adc   ADC
	cfg   Config
	blank float32
}

// New creates an Engine reading from adc.
func New(adc ADC, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.RawMax == 0 || cfg.RawMax <= cfg.RawMin {
		cfg.RawMin, cfg.RawMax = def.RawMin, def.RawMax
	}
	if cfg.Reference <= 0 {
		cfg.Reference = def.Reference
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}

	return &Engine{
		adc:   adc,
		cfg:   cfg,
		blank: cfg.InitialBlank,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Blank returns the current blank offset.
func (e *Engine) Blank() float32 {
	return e.blank
}

// SetBlank overrides the blank offset.
func (e *Engine) SetBlank(blank float32) {
	e.blank = blank
}

// Measure reads one raw sample and returns it normalized to [0, 1].
func (e *Engine) Measure() float32 {
	return e.Normalize(e.adc.Read())
}

// Normalize maps a raw sample from [RawMin, RawMax] onto [0, RawMax] and
// divides by RawMax.
func (e *Engine) Normalize(raw uint16) float32 {
	if raw <= e.cfg.RawMin {
		return 0
	}
	if raw >= e.cfg.RawMax {
		return 1
	}

	span := float32(e.cfg.RawMax - e.cfg.RawMin)
	mapped := float32(raw-e.cfg.RawMin) * float32(e.cfg.RawMax) / span
	return mapped / float32(e.cfg.RawMax)
}

// Absorbance computes scaling * (log10(reference/reading) - blank) + offset.
// Readings below Epsilon are clamped to keep the logarithm finite.
func (e *Engine) Absorbance(reading float32) float32 {
	return e.cfg.Scaling*(e.opticalDensity(reading)-e.blank) + e.cfg.Offset
}

// Sample measures once and returns the absorbance.
func (e *Engine) Sample() float32 {
	return e.Absorbance(e.Measure())
}

// Calibrate re-baselines the instrument on the sample currently in the light
// path. The previous blank is discarded, so an immediate Sample of the same
// cuvette reads Offset. It returns the new blank.
func (e *Engine) Calibrate() float32 {
	e.blank = e.opticalDensity(e.Measure())
	return e.blank
}

func (e *Engine) opticalDensity(reading float32) float32 {
	reading = math32.Max(reading, e.cfg.Epsilon)
	return math32.Log10(e.cfg.Reference / reading)
}
