// Package kinetics follows absorbance over time: the rate of change over a
// sliding window and the intervals where the sample is reacting.
package kinetics

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/gospectro/pkg/config"
	"github.com/itohio/gospectro/pkg/sample"
)

// Event is an interval where absorbance changed faster than the threshold.
type Event struct {
	StartIndex int           // Start sample index in buffer
	EndIndex   int           // End sample index in buffer (updated as the event continues)
	Start      time.Duration // Start time since device boot
	End        time.Duration // End time (updated as the event continues)
	Delta      float64       // Absorbance change over the event
}

// Duration returns how long the event lasted.
func (e Event) Duration() time.Duration {
	return e.End - e.Start
}

// Rate returns the mean absorbance change per second over the event.
func (e Event) Rate() float64 {
	d := e.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return e.Delta / d
}

// UpdateFunc receives copies of the current buffers.
type UpdateFunc func(samples []sample.Sample, derivatives []float64, events []Event)

// Meter keeps a time window of samples with their derivatives and detects
// events.
//
// Derivatives correspond exactly to sample pairs:
// derivative[i] = (sample[i+1] - sample[i]) / dt, so n samples have n-1
// derivatives.
type Meter struct {
	samples     []sample.Sample
	derivatives []float64
	events      []Event
	mu          sync.RWMutex

	callbacks []UpdateFunc
	cbMu      sync.RWMutex

	window      time.Duration
	threshold   float64
	minDuration time.Duration

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a new Meter.
func New(cfg *config.Config) *Meter {
	return &Meter{
		window:      cfg.Kinetics.Window,
		threshold:   cfg.Kinetics.Threshold,
		minDuration: cfg.Kinetics.MinDuration,
	}
}

// ProcessSamples adds samples from the input channel until it closes.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.Add(s)
	}

	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// Add appends a sample, drops samples that left the window, updates the
// derivatives and events and notifies callbacks.
func (m *Meter) Add(s sample.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)
	m.trim(s.Time - m.window)

	if n := len(m.samples); n >= 2 {
		prev, curr := m.samples[n-2], m.samples[n-1]
		dt := (curr.Time - prev.Time).Seconds()
		if dt > 0 {
			m.derivatives = append(m.derivatives, (curr.Absorbance-prev.Absorbance)/dt)
		} else {
			// Duplicate timestamp; carry the previous slope
			m.derivatives = append(m.derivatives, m.lastDerivative())
		}
		m.updateEvents()
	}

	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

func (m *Meter) lastDerivative() float64 {
	if len(m.derivatives) == 0 {
		return 0
	}
	return m.derivatives[len(m.derivatives)-1]
}

// trim removes samples at or before cutoff together with their derivatives.
func (m *Meter) trim(cutoff time.Duration) {
	if m.window <= 0 {
		return
	}

	cut := 0
	for cut < len(m.samples)-1 && m.samples[cut].Time <= cutoff {
		cut++
	}
	if cut == 0 {
		return
	}

	m.samples = m.samples[cut:]
	if cut <= len(m.derivatives) {
		m.derivatives = m.derivatives[cut:]
	} else {
		m.derivatives = m.derivatives[:0]
	}

	valid := m.events[:0]
	for _, e := range m.events {
		e.StartIndex -= cut
		e.EndIndex -= cut
		if e.EndIndex < 0 {
			continue
		}
		if e.StartIndex < 0 {
			e.StartIndex = 0
			e.Start = m.samples[0].Time
			e.Delta = m.samples[e.EndIndex].Absorbance - m.samples[0].Absorbance
		}
		valid = append(valid, e)
	}
	m.events = valid
}

// updateEvents extends the current event or starts a new one when the last
// derivative exceeds the threshold. A change of direction starts a new event.
func (m *Meter) updateEvents() {
	d := m.lastDerivative()
	if math.Abs(d) <= m.threshold {
		return
	}

	last := len(m.samples) - 1
	if n := len(m.events); n > 0 {
		e := &m.events[n-1]
		if e.EndIndex == last-1 && math.Signbit(e.Delta) == math.Signbit(d) {
			e.EndIndex = last
			e.End = m.samples[last].Time
			e.Delta = m.samples[last].Absorbance - m.samples[e.StartIndex].Absorbance
			return
		}
	}

	m.events = append(m.events, Event{
		StartIndex: last - 1,
		EndIndex:   last,
		Start:      m.samples[last-1].Time,
		End:        m.samples[last].Time,
		Delta:      m.samples[last].Absorbance - m.samples[last-1].Absorbance,
	})
}

// Samples returns a copy of the current samples buffer.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Derivatives returns a copy of the current derivatives buffer.
func (m *Meter) Derivatives() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]float64, len(m.derivatives))
	copy(result, m.derivatives)
	return result
}

// Events returns the events in the window that lasted at least the minimum
// duration.
func (m *Meter) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterEvents()
}

func (m *Meter) filterEvents() []Event {
	result := make([]Event, 0, len(m.events))
	for _, e := range m.events {
		if e.Duration() >= m.minDuration {
			result = append(result, e)
		}
	}
	return result
}

// Rate returns the least squares slope of absorbance over the window in
// absorbance units per second. Fewer than two samples give zero.
func (m *Meter) Rate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := float64(len(m.samples))
	if n < 2 {
		return 0
	}

	// Center times on the first sample to keep the sums small
	t0 := m.samples[0].Time
	var sx, sy, sxx, sxy float64
	for _, s := range m.samples {
		x := (s.Time - t0).Seconds()
		sx += x
		sy += s.Absorbance
		sxx += x * x
		sxy += x * s.Absorbance
	}

	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// OnUpdate registers a callback invoked after every sample.
// The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback UpdateFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks to be sent again after ProcessSamples
// returned.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with copies of the data.
func (m *Meter) notifyCallbacks() {
	m.mu.RLock()
	samplesCopy := make([]sample.Sample, len(m.samples))
	copy(samplesCopy, m.samples)
	derivativesCopy := make([]float64, len(m.derivatives))
	copy(derivativesCopy, m.derivatives)
	eventsCopy := m.filterEvents()
	m.mu.RUnlock()

	m.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samplesCopy, derivativesCopy, eventsCopy)
		}
	}
}
