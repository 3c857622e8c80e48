package kinetics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/gospectro/pkg/sample"
)

// TestMeter_GracefulShutdown_NoCallbacksAfterClose tests that the meter stops
// sending callbacks after the input channel is closed.
func TestMeter_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	m := newMeter(10 * time.Second)

	var calls atomic.Int32
	m.OnUpdate(func(_ []sample.Sample, _ []float64, _ []Event) {
		calls.Add(1)
	})

	input := make(chan sample.Sample, 10)
	for i := 0; i < 3; i++ {
		input <- at(i*1000, float64(i)*0.1)
	}
	close(input)

	// Returns once the channel is drained
	m.ProcessSamples(input)
	assert.Equal(t, int32(3), calls.Load())

	// Samples added after shutdown are kept but not announced
	m.Add(at(3000, 0.3))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, m.Samples(), 4)

	m.ResetShutdown()
	m.Add(at(4000, 0.4))
	assert.Equal(t, int32(4), calls.Load())
}
