package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/gospectro/pkg/button"
	"github.com/itohio/gospectro/pkg/elevator"
	"github.com/itohio/gospectro/pkg/instrument"
	"github.com/itohio/gospectro/pkg/photometer"
	"github.com/itohio/gospectro/pkg/protocol"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Photometer  photometer.Config `yaml:"photometer"`
	Elevator    elevator.Config   `yaml:"elevator"`
	Buttons     button.Config     `yaml:"buttons"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Kinetics    KineticsConfig    `yaml:"kinetics"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port       string `yaml:"port"`
	BaudRate   int    `yaml:"baud_rate"`
	AutoDetect bool   `yaml:"auto_detect"` // Look for an Arduino-like USB port when Port is empty
}

// AcquisitionConfig contains data acquisition parameters.
type AcquisitionConfig struct {
	DaqDelay       time.Duration `yaml:"daq_delay"`       // Streaming delay requested from the device
	ArgTimeout     time.Duration `yaml:"arg_timeout"`     // Device wait for the SetDaqDelay argument
	RequestTimeout time.Duration `yaml:"request_timeout"` // Host wait for a reply
	DiscardReads   int           `yaml:"discard_reads"`   // Reports thrown away after starting a stream
	AverageSamples int           `yaml:"average_samples"` // Moving average window (0 = disabled)
}

// KineticsConfig contains rate analysis parameters.
type KineticsConfig struct {
	Window      time.Duration `yaml:"window"`       // Samples older than this are dropped
	Threshold   float64       `yaml:"threshold"`    // Absorbance per second that counts as a change
	MinDuration time.Duration `yaml:"min_duration"` // Shorter changes are treated as noise
}

// MockConfig contains the simulated instrument configuration.
type MockConfig struct {
	Transmittance float64       `yaml:"transmittance"` // Fraction of full scale reaching the detector
	NoiseLevel    float64       `yaml:"noise_level"`   // Peak noise as a fraction of full scale
	Drift         float64       `yaml:"drift"`         // Transmittance change per second
	StepDelay     time.Duration `yaml:"step_delay"`    // Simulated elevator step delay
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:       "",
			BaudRate:   115200,
			AutoDetect: true,
		},
		Photometer: photometer.DefaultConfig(),
		Elevator:   elevator.DefaultConfig(),
		Buttons:    button.DefaultConfig(),
		Acquisition: AcquisitionConfig{
			DaqDelay:       20 * time.Millisecond,
			ArgTimeout:     protocol.DefaultArgTimeout,
			RequestTimeout: 2 * time.Second,
			DiscardReads:   5,
			AverageSamples: 0,
		},
		Kinetics: KineticsConfig{
			Window:      time.Minute,
			Threshold:   0.005,
			MinDuration: 2 * time.Second,
		},
		Mock: MockConfig{
			Transmittance: 0.4,
			NoiseLevel:    0.002,
			Drift:         0,
			StepDelay:     100 * time.Microsecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Instrument returns the device-side configuration, used by the mock.
func (c *Config) Instrument() instrument.Config {
	cfg := instrument.DefaultConfig()
	cfg.Photometer = c.Photometer
	cfg.Elevator = c.Elevator
	cfg.Buttons = c.Buttons
	cfg.DaqDelay = c.Acquisition.DaqDelay
	cfg.ArgTimeout = c.Acquisition.ArgTimeout
	return cfg
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Photometer.RawMax == 0 {
		c.Photometer.RawMax = def.Photometer.RawMax
	}
	if c.Photometer.Reference == 0 {
		c.Photometer.Reference = def.Photometer.Reference
	}
	if c.Photometer.Scaling == 0 {
		c.Photometer.Scaling = def.Photometer.Scaling
	}
	if c.Photometer.Epsilon == 0 {
		c.Photometer.Epsilon = def.Photometer.Epsilon
	}

	if c.Elevator.Travel == 0 {
		c.Elevator.Travel = def.Elevator.Travel
	}
	if c.Elevator.StepDelay == 0 {
		c.Elevator.StepDelay = def.Elevator.StepDelay
	}

	if c.Buttons.Debounce == 0 {
		c.Buttons.Debounce = def.Buttons.Debounce
	}
	if c.Buttons.LongPress == 0 {
		c.Buttons.LongPress = def.Buttons.LongPress
	}

	if c.Acquisition.ArgTimeout == 0 {
		c.Acquisition.ArgTimeout = def.Acquisition.ArgTimeout
	}
	if c.Acquisition.RequestTimeout == 0 {
		c.Acquisition.RequestTimeout = def.Acquisition.RequestTimeout
	}

	if c.Kinetics.Window == 0 {
		c.Kinetics.Window = def.Kinetics.Window
	}
	if c.Kinetics.Threshold == 0 {
		c.Kinetics.Threshold = def.Kinetics.Threshold
	}

	if c.Mock.Transmittance == 0 {
		c.Mock.Transmittance = def.Mock.Transmittance
	}
	if c.Mock.StepDelay == 0 {
		c.Mock.StepDelay = def.Mock.StepDelay
	}
}
