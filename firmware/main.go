//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"

	"github.com/itohio/gospectro/pkg/elevator"
	"github.com/itohio/gospectro/pkg/instrument"
	"github.com/itohio/gospectro/pkg/status"
)

// adc scales the photodiode reading to the 10-bit range the photometer
// expects. machine.ADC returns left-aligned 16-bit values.
type adc struct {
	machine.ADC
}

func (a adc) Read() uint16 {
	return a.Get() >> ADC_SHIFT
}

// usbPort is the host link. Output is only sent while a terminal holds DTR.
type usbPort struct {
	machine.Serialer
}

func (p usbPort) Writable() bool {
	return p.DTR()
}

func main() {
	PIN_LIGHT.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LIGHT.High()

	var coils [4]elevator.Pin
	for i, p := range []machine.Pin{PIN_COIL1, PIN_COIL2, PIN_COIL3, PIN_COIL4} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
		coils[i] = p
	}

	PIN_PHOTODIODE.Configure(machine.PinConfig{Mode: machine.PinInput})
	photodiode := adc{machine.ADC{Pin: PIN_PHOTODIODE}}
	photodiode.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	PIN_EJECT.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_RECORD.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	var display status.Display = status.Nop{}
	if err := machine.I2C0.Configure(machine.I2CConfig{}); err != nil {
		println("i2c:", err.Error())
	} else if lcd, err := status.NewLCD(machine.I2C0, status.DefaultLCDAddress, LCD_WIDTH, LCD_HEIGHT); err != nil {
		println("lcd:", err.Error())
	} else {
		display = lcd
	}

	cfg := instrument.DefaultConfig()
	cfg.DisplayWidth = LCD_WIDTH
	cfg.DisplayHeight = LCD_HEIGHT

	inst := instrument.New(cfg, instrument.Hardware{
		ADC:            photodiode,
		Coils:          coils,
		Port:           usbPort{machine.Serial},
		RecordReleased: PIN_RECORD.Get,
		Display:        display,
	})

	PIN_EJECT.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		inst.EjectEdge()
	})
	PIN_RECORD.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		inst.RecordEdge()
	})

	inst.Run(context.Background())
}
