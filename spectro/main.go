package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/gospectro/pkg/config"
	"github.com/itohio/gospectro/pkg/host"
	"github.com/itohio/gospectro/pkg/kinetics"
	"github.com/itohio/gospectro/pkg/sample"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use the simulated instrument instead of a serial port")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
		modeFlag    = flag.String("mode", "stream", "Acquisition mode: stream or request")
		pointsFlag  = flag.Int("n", 100, "Number of data points to acquire")
		delayFlag   = flag.Int("delay", -1, "Delay between data points in ms (overrides config)")
		outputFlag  = flag.String("o", "", "Write samples to this CSV file")
		previewFlag = flag.Int("preview", 20, "Print at most this many samples to stdout (0 = none)")
		averageFlag = flag.Int("average", -1, "Number of samples to average (0 = disabled, overrides config)")
		saveFlag    = flag.Bool("save-config", false, "Write the effective configuration back to the config file")
		kineticFlag = flag.Bool("kinetics", false, "Report the absorbance rate and reaction events")
	)
	flag.Parse()

	if *listFlag {
		listPorts()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *delayFlag >= 0 {
		cfg.Acquisition.DaqDelay = time.Duration(*delayFlag) * time.Millisecond
	}
	if *averageFlag >= 0 {
		cfg.Acquisition.AverageSamples = *averageFlag
	}

	if *saveFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Failed to save configuration: %v", err)
		}
		log.Printf("Configuration saved to %s", *configFlag)
	}

	device, err := openDevice(cfg, *mockFlag)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer device.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hctx, cancel := context.WithTimeout(ctx, cfg.Acquisition.RequestTimeout+time.Second)
	err = device.Handshake(hctx)
	cancel()
	if err != nil {
		log.Fatalf("Handshake failed: %v", err)
	}
	log.Printf("Device ready")

	var samples []sample.Sample
	switch *modeFlag {
	case "stream":
		samples, err = acquireStream(ctx, device, cfg, *pointsFlag)
	case "request":
		samples, err = acquireOnRequest(ctx, device, cfg, *pointsFlag)
	default:
		log.Fatalf("Unknown mode %q (want stream or request)", *modeFlag)
	}
	if err != nil {
		log.Printf("Acquisition stopped: %v", err)
	}
	log.Printf("Acquired %d samples", len(samples))

	if *kineticFlag && len(samples) > 0 {
		meter := analyze(cfg, samples)
		log.Printf("Rate: %.5f A/s over the last %v", meter.Rate(), cfg.Kinetics.Window)
		for i, e := range meter.Events() {
			log.Printf("Event %d: %v..%v dA=%.4f (%.5f A/s)", i+1, e.Start, e.End, e.Delta, e.Rate())
		}
	}

	if *previewFlag > 0 && len(samples) > 0 {
		preview := sample.DownsampleSamples(nil, samples, *previewFlag)
		if err := sample.WriteCSV(os.Stdout, preview); err != nil {
			log.Printf("Failed to print samples: %v", err)
		}
	}

	if *outputFlag != "" {
		if err := sample.Save(*outputFlag, samples); err != nil {
			log.Fatalf("Failed to save samples: %v", err)
		}
		log.Printf("Samples saved to %s", *outputFlag)
	}
}

// openDevice connects to the simulated instrument or to a serial port,
// detecting the port when none is configured.
func openDevice(cfg *config.Config, mock bool) (host.Device, error) {
	var device host.Device
	if mock {
		device = host.NewMock(cfg)
	} else {
		port := cfg.Serial.Port
		if port == "" && cfg.Serial.AutoDetect {
			detected, err := host.Detect()
			if err != nil {
				return nil, err
			}
			log.Printf("Detected board on %s", detected)
			port = detected
		}
		if port == "" {
			return nil, fmt.Errorf("no serial port configured; use -p or -list")
		}
		device = host.New(port, cfg.Serial.BaudRate, host.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		return nil, err
	}
	return device, nil
}

// acquireStream streams n samples at the configured delay, dropping the
// first few reports and optionally averaging.
func acquireStream(ctx context.Context, device host.Device, cfg *config.Config, n int) ([]sample.Sample, error) {
	if err := device.Stream(cfg.Acquisition.DaqDelay); err != nil {
		return nil, err
	}
	defer func() {
		if err := device.StopStream(); err != nil {
			log.Printf("Failed to stop streaming: %v", err)
		}
	}()

	stream := sample.NewConverter(cfg.Acquisition.DiscardReads, host.DefaultBufferSize)(device.Reports())
	if cfg.Acquisition.AverageSamples > 0 {
		stream = sample.NewAveragingConverter(cfg.Acquisition.AverageSamples, host.DefaultBufferSize)(stream)
	}

	// A point is overdue after a few delays without data.
	idle := cfg.Acquisition.RequestTimeout + 4*cfg.Acquisition.DaqDelay

	samples := make([]sample.Sample, 0, n)
	for len(samples) < n {
		select {
		case s, ok := <-stream:
			if !ok {
				return samples, host.ErrNotConnected
			}
			samples = append(samples, s)
		case <-time.After(idle):
			return samples, host.ErrTimeout
		case <-ctx.Done():
			return samples, ctx.Err()
		}
	}
	return samples, nil
}

// acquireOnRequest asks for n single reports, waiting the configured delay
// between requests.
func acquireOnRequest(ctx context.Context, device host.Device, cfg *config.Config, n int) ([]sample.Sample, error) {
	if err := device.StopStream(); err != nil {
		return nil, err
	}

	samples := make([]sample.Sample, 0, n)
	for len(samples) < n {
		rctx, cancel := context.WithTimeout(ctx, cfg.Acquisition.RequestTimeout)
		rep, err := device.RequestAbsorbance(rctx)
		cancel()
		if err != nil {
			return samples, err
		}
		samples = append(samples, sample.FromReport(rep))

		select {
		case <-time.After(cfg.Acquisition.DaqDelay):
		case <-ctx.Done():
			return samples, ctx.Err()
		}
	}
	return samples, nil
}

// analyze runs the samples through a kinetics meter, logging each event once
// it has lasted long enough to be reported.
func analyze(cfg *config.Config, samples []sample.Sample) *kinetics.Meter {
	meter := kinetics.New(cfg)

	seen := 0
	meter.OnUpdate(func(_ []sample.Sample, _ []float64, events []kinetics.Event) {
		if len(events) > seen {
			e := events[len(events)-1]
			log.Printf("Reaction started at %v", e.Start)
		}
		seen = len(events)
	})

	input := make(chan sample.Sample)
	go func() {
		defer close(input)
		for _, s := range samples {
			input <- s
		}
	}()
	meter.ProcessSamples(input)
	return meter
}

func listPorts() {
	ports, err := host.Ports()
	if err != nil {
		log.Fatalf("Failed to list ports: %v", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Println(p.Description)
	}
}
