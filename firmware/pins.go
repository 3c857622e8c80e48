//go:build tinygo

package main

import "machine"

const (
	// Photodiode behind the cuvette
	PIN_PHOTODIODE = machine.A0

	// Light source, always on
	PIN_LIGHT = machine.D1

	// Buttons, active low with pull-ups
	PIN_EJECT  = machine.D2
	PIN_RECORD = machine.D3

	// Stepper driver inputs, in half-step table order
	PIN_COIL1 = machine.D6
	PIN_COIL2 = machine.D7
	PIN_COIL3 = machine.D8
	PIN_COIL4 = machine.D9

	// ADC configuration. Readings are scaled down to 10 bits.
	ADC_REFERENCE_MV = 3300
	ADC_RESOLUTION   = 12
	ADC_SHIFT        = 16 - 10

	// Status LCD on the default I2C bus
	LCD_WIDTH  = 16
	LCD_HEIGHT = 2
)
