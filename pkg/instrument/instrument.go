// Package instrument is the cooperative control loop of the spectrophotometer.
//
// One Instrument owns all device state: acquisition mode and delay (through
// the protocol handler), the blank (through the photometric engine), the
// elevator flag and the button sources. Only EjectEdge and RecordEdge may be
// called from interrupt context; everything else belongs to the loop.
package instrument

import (
	"context"
	"strconv"
	"time"

	"github.com/itohio/gospectro/pkg/button"
	"github.com/itohio/gospectro/pkg/elevator"
	"github.com/itohio/gospectro/pkg/photometer"
	"github.com/itohio/gospectro/pkg/protocol"
	"github.com/itohio/gospectro/pkg/status"
)

// Config holds the tunables of the instrument.
type Config struct {
	Photometer photometer.Config
	Elevator   elevator.Config
	Buttons    button.Config

	DaqDelay   time.Duration // Initial streaming delay
	ArgTimeout time.Duration // Wait for the SetDaqDelay argument
	LoopIdle   time.Duration // Pause between loop iterations in Run

	DisplayWidth  uint8
	DisplayHeight uint8

	Verbose bool
}

// DefaultConfig returns the configuration used by the firmware.
func DefaultConfig() Config {
	return Config{
		Photometer:    photometer.DefaultConfig(),
		Elevator:      elevator.DefaultConfig(),
		Buttons:       button.DefaultConfig(),
		DaqDelay:      20 * time.Millisecond,
		ArgTimeout:    protocol.DefaultArgTimeout,
		LoopIdle:      100 * time.Microsecond,
		DisplayWidth:  16,
		DisplayHeight: 2,
	}
}

// Hardware bundles the collaborators the loop drives.
type Hardware struct {
	ADC   photometer.ADC
	Coils [4]elevator.Pin
	Port  protocol.Port
	// RecordReleased reads the record button line; true when not pressed.
	RecordReleased func() bool
	Display        status.Display
	// Clock returns milliseconds since boot. Defaults to Millis(time.Now()).
	Clock func() uint32
}

// Millis returns a clock counting milliseconds since start.
func Millis(start time.Time) func() uint32 {
	return func() uint32 {
		return uint32(time.Since(start) / time.Millisecond)
	}
}

// Instrument is the control loop and the single owner of device state.
type Instrument struct {
	clock    func() uint32
	port     protocol.Port
	released func() bool

	engine   *photometer.Engine
	elevator *elevator.Elevator
	eject    *button.EjectSource
	record   *button.RecordSource
	handler  *protocol.Handler
	panel    *status.Panel

	idle    time.Duration
	verbose bool

	lastReport     uint32
	lastAbsorbance float32
	reports        uint32
	shownMode      protocol.Mode
	shownDelay     uint32
	modeShown      bool
	line           []byte
}

// New creates an Instrument. The hardware must already be configured.
func New(cfg Config, hw Hardware) *Instrument {
	if hw.Clock == nil {
		hw.Clock = Millis(time.Now())
	}
	if hw.RecordReleased == nil {
		hw.RecordReleased = func() bool { return true }
	}
	if cfg.DisplayHeight == 0 {
		cfg.DisplayHeight = 2
	}

	i := &Instrument{
		clock:    hw.Clock,
		port:     hw.Port,
		released: hw.RecordReleased,
		engine:   photometer.New(hw.ADC, cfg.Photometer),
		elevator: elevator.New(elevator.NewStepper(hw.Coils), cfg.Elevator),
		eject:    button.NewEjectSource(cfg.Buttons),
		record:   button.NewRecordSource(cfg.Buttons),
		panel:    status.NewPanel(hw.Display, cfg.DisplayWidth, cfg.DisplayHeight),
		idle:     cfg.LoopIdle,
		verbose:  cfg.Verbose,
		line:     make([]byte, 0, 32),
	}
	i.handler = protocol.NewHandler(hw.Port, hw.Clock, i.requestReport, cfg.DaqDelay, cfg.ArgTimeout)

	i.panel.Reset()
	i.showMode()
	i.panel.Show(1, "Ready")
	return i
}

// EjectEdge is the eject button interrupt handler.
func (i *Instrument) EjectEdge() {
	i.eject.Edge(i.clock())
}

// RecordEdge is the record button interrupt handler.
func (i *Instrument) RecordEdge() {
	i.record.Edge(i.clock())
}

// Run calls Tick until ctx is done.
func (i *Instrument) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		i.Tick()

		if i.idle > 0 {
			time.Sleep(i.idle)
		}
	}
}

// Tick runs one loop iteration:
//  1. a streamed report when streaming and the delay has passed,
//  2. at most one command byte from the host,
//  3. classification of a released record press,
//  4. a pending eject, which blocks until the elevator stops.
func (i *Instrument) Tick() {
	if i.handler.Mode() == protocol.ModeStream && i.clock()-i.lastReport > i.handler.Delay() {
		i.lastReport = i.report()
	}

	if i.port.Buffered() > 0 {
		if b, err := i.port.ReadByte(); err == nil {
			if !i.handler.Handle(b) {
				i.trace("ignored command", uint32(b))
			}
		}
		i.showMode()
	}

	if press, ok := i.record.Poll(i.released(), i.clock()); ok {
		switch press {
		case button.PressShort:
			i.report()
		case button.PressLong:
			i.calibrate()
		}
	}

	if i.eject.Pending() {
		i.moveElevator()
		i.eject.Clear()
	}
}

func (i *Instrument) requestReport() {
	i.report()
}

// report samples, sends one line and returns the sampling timestamp.
func (i *Instrument) report() uint32 {
	ts := i.clock()
	abs := i.engine.Sample()

	i.line = protocol.AppendReport(i.line[:0], ts, abs)
	if !i.handler.Send(i.line) {
		i.trace("report dropped", ts)
	}

	i.reports++
	i.lastAbsorbance = abs
	i.showAbsorbance(abs)
	return ts
}

func (i *Instrument) calibrate() {
	i.engine.Calibrate()
	i.panel.Show(1, "Blank set")
	i.trace("calibrated", i.clock())
}

func (i *Instrument) moveElevator() {
	if i.elevator.Raised() {
		i.panel.Show(1, "Lowering...")
	} else {
		i.panel.Show(1, "Raising...")
	}

	if i.elevator.Eject() {
		i.panel.Show(1, "Sample out")
	} else {
		i.panel.Show(1, "Sample in")
	}
	i.trace("elevator moved", i.clock())
}

func (i *Instrument) showMode() {
	mode, delay := i.handler.Mode(), i.handler.Delay()
	if i.modeShown && mode == i.shownMode && delay == i.shownDelay {
		return
	}
	i.shownMode, i.shownDelay, i.modeShown = mode, delay, true

	if mode == protocol.ModeStream {
		i.panel.Show(0, "Stream "+strconv.FormatUint(uint64(delay), 10)+"ms")
	} else {
		i.panel.Show(0, "On request")
	}
}

func (i *Instrument) showAbsorbance(abs float32) {
	text := strconv.AppendFloat([]byte("A="), float64(abs), 'f', 3, 32)
	i.panel.Show(1, string(text))
}

func (i *Instrument) trace(msg string, v uint32) {
	if !i.verbose {
		return
	}
	println("[", i.clock(), "]", msg, v)
}

// Mode returns the acquisition mode.
func (i *Instrument) Mode() protocol.Mode { return i.handler.Mode() }

// Delay returns the streaming delay.
func (i *Instrument) Delay() time.Duration {
	return time.Duration(i.handler.Delay()) * time.Millisecond
}

// Blank returns the calibration blank.
func (i *Instrument) Blank() float32 { return i.engine.Blank() }

// Raised reports the elevator state.
func (i *Instrument) Raised() bool { return i.elevator.Raised() }

// Reports returns the number of reports produced so far.
func (i *Instrument) Reports() uint32 { return i.reports }

// LastAbsorbance returns the most recent reported absorbance.
func (i *Instrument) LastAbsorbance() float32 { return i.lastAbsorbance }

// RecordState returns the record button state.
func (i *Instrument) RecordState() button.RecordState { return i.record.State() }
