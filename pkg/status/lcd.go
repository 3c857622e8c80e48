package status

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

// DefaultLCDAddress is the usual address of a PCF8574 LCD backpack.
const DefaultLCDAddress = 0x27

// LCD is an HD44780 character display behind an I2C backpack.
type LCD struct {
	dev hd44780i2c.Device
}

var _ Display = (*LCD)(nil)

// NewLCD configures the display on bus. The bus must already be configured.
// Configuration takes about a second because of the controller's power-up
// timing.
func NewLCD(bus drivers.I2C, addr uint8, width, height uint8) (*LCD, error) {
	l := &LCD{dev: hd44780i2c.New(bus, addr)}
	if err := l.dev.Configure(hd44780i2c.Config{Width: width, Height: height}); err != nil {
		return nil, fmt.Errorf("failed to configure LCD: %w", err)
	}
	return l, nil
}

func (l *LCD) Clear() {
	l.dev.ClearDisplay()
}

func (l *LCD) WriteAt(col, row uint8, text string) {
	l.dev.SetCursor(col, row)
	l.dev.Print([]byte(text))
}
