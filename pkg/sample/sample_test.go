package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gospectro/pkg/protocol"
)

func TestFromReport(t *testing.T) {
	tests := []struct {
		name string
		rep  protocol.Report
		want Sample
	}{
		{
			name: "zero",
			rep:  protocol.Report{},
			want: Sample{},
		},
		{
			name: "positive absorbance",
			rep:  protocol.Report{Timestamp: 1500, Absorbance: 0.25},
			want: Sample{Time: 1500 * time.Millisecond, Absorbance: 0.25},
		},
		{
			name: "negative absorbance after blanking",
			rep:  protocol.Report{Timestamp: 42, Absorbance: -0.5},
			want: Sample{Time: 42 * time.Millisecond, Absorbance: -0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromReport(tt.rep))
		})
	}
}

func TestNewConverter_ChannelProcessing(t *testing.T) {
	converter := NewConverter(0, 10)

	in := make(chan protocol.Report, 3)
	out := converter(in)

	in <- protocol.Report{Timestamp: 10, Absorbance: 0.1}
	in <- protocol.Report{Timestamp: 20, Absorbance: 0.2}
	in <- protocol.Report{Timestamp: 30, Absorbance: 0.3}
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	require.Len(t, samples, 3)
	assert.Equal(t, 10*time.Millisecond, samples[0].Time)
	assert.InDelta(t, 0.3, samples[2].Absorbance, 1e-6)
}

func TestNewConverter_Discard(t *testing.T) {
	converter := NewConverter(5, 10)

	in := make(chan protocol.Report, 8)
	out := converter(in)

	for i := range 8 {
		in <- protocol.Report{Timestamp: uint32(i)}
	}
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	require.Len(t, samples, 3)
	assert.Equal(t, 5*time.Millisecond, samples[0].Time)
}

func TestNewConverter_EmptyChannel(t *testing.T) {
	converter := NewConverter(5, 10)

	in := make(chan protocol.Report)
	out := converter(in)

	close(in)

	// Should close immediately
	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}
