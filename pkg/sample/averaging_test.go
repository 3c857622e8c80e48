package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(out <-chan Sample) []Sample {
	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}
	return samples
}

func TestNewAveragingConverter_BasicAveraging(t *testing.T) {
	converter := NewAveragingConverter(3, 10)

	in := make(chan Sample, 10)
	out := converter(in)

	// Send 5 samples with increasing values
	for i := 0; i < 5; i++ {
		in <- Sample{
			Time:       time.Duration(i) * time.Millisecond,
			Absorbance: float64(i),
		}
	}
	close(in)

	samples := collect(out)
	require.Len(t, samples, 5)

	want := []float64{0, 0.5, 1, 2, 3}
	for i, s := range samples {
		assert.InDelta(t, want[i], s.Absorbance, 1e-9, "sample %d", i)
		assert.Equal(t, time.Duration(i)*time.Millisecond, s.Time)
	}
}

func TestNewAveragingConverter_ConstantInput(t *testing.T) {
	converter := NewAveragingConverter(5, 10)

	in := make(chan Sample, 10)
	out := converter(in)

	for i := 0; i < 10; i++ {
		in <- Sample{Time: time.Duration(i), Absorbance: 0.42}
	}
	close(in)

	for _, s := range collect(out) {
		assert.InDelta(t, 0.42, s.Absorbance, 1e-9)
	}
}

func TestNewAveragingConverter_EmptyChannel(t *testing.T) {
	converter := NewAveragingConverter(3, 10)

	in := make(chan Sample)
	out := converter(in)

	close(in)

	// Should close immediately (no samples to average)
	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}

func TestNewAveragingConverter_InvalidWindowSize(t *testing.T) {
	converter := NewAveragingConverter(0, 10) // Invalid window size

	in := make(chan Sample, 5)
	out := converter(in)

	in <- Sample{Absorbance: 1}
	in <- Sample{Absorbance: 3}
	close(in)

	// Window size defaults to 1, so samples pass through
	samples := collect(out)
	require.Len(t, samples, 2)
	assert.Equal(t, 3.0, samples[1].Absorbance)
}

func TestAverageSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    Sample
	}{
		{
			name:    "empty samples",
			samples: []Sample{},
			want:    Sample{},
		},
		{
			name:    "single sample",
			samples: []Sample{{Time: time.Second, Absorbance: 0.2}},
			want:    Sample{Time: time.Second, Absorbance: 0.2},
		},
		{
			name: "multiple samples use the last time",
			samples: []Sample{
				{Time: 1 * time.Millisecond, Absorbance: 0.1},
				{Time: 2 * time.Millisecond, Absorbance: 0.2},
				{Time: 3 * time.Millisecond, Absorbance: 0.6},
			},
			want: Sample{Time: 3 * time.Millisecond, Absorbance: 0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := averageSamples(tt.samples)
			assert.Equal(t, tt.want.Time, got.Time)
			assert.InDelta(t, tt.want.Absorbance, got.Absorbance, 1e-9)
		})
	}
}
