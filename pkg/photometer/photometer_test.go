package photometer

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constADC(v uint16) ADC {
	return ADCFunc(func() uint16 { return v })
}

func TestNew_Defaults(t *testing.T) {
	e := New(constADC(0), Config{})
	cfg := e.Config()

	assert.Equal(t, uint16(0), cfg.RawMin)
	assert.Equal(t, uint16(1023), cfg.RawMax)
	assert.Equal(t, float32(0.8), cfg.Reference)
	assert.Equal(t, float32(1e-4), cfg.Epsilon)
	assert.Equal(t, float32(0), e.Blank())
}

func TestNew_InitialBlank(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBlank = 0.25
	e := New(constADC(0), cfg)
	assert.Equal(t, float32(0.25), e.Blank())
}

func TestNormalize(t *testing.T) {
	e := New(constADC(0), DefaultConfig())

	for _, raw := range []uint16{0, 1, 100, 511, 512, 1000, 1022, 1023} {
		got := e.Normalize(raw)
		want := float32(raw) / 1023
		assert.InDelta(t, want, got, 1e-6, "raw=%d", raw)
		assert.GreaterOrEqual(t, got, float32(0))
		assert.LessOrEqual(t, got, float32(1))
	}

	// Out of range samples are clamped.
	assert.Equal(t, float32(1), e.Normalize(4095))
}

func TestNormalize_RawMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RawMin = 100
	cfg.RawMax = 1100
	e := New(constADC(0), cfg)

	tests := []struct {
		name string
		raw  uint16
		want float32
	}{
		{"below minimum", 50, 0},
		{"at minimum", 100, 0},
		{"midpoint", 600, 0.5},
		{"at maximum", 1100, 1},
		{"above maximum", 2000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Normalize(tt.raw), 1e-6)
		})
	}
}

func TestNew_InvalidRangeFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RawMin = 500
	cfg.RawMax = 400
	e := New(constADC(0), cfg)
	assert.Equal(t, uint16(0), e.Config().RawMin)
	assert.Equal(t, uint16(1023), e.Config().RawMax)
}

func TestAbsorbance_ReferenceGivesOffset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scaling = 2.5
	cfg.Offset = 0.125
	e := New(constADC(0), cfg)

	assert.InDelta(t, 0.125, e.Absorbance(cfg.Reference), 1e-6)
}

func TestAbsorbance_Formula(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scaling = 1.5
	cfg.Offset = 0.1
	e := New(constADC(0), cfg)
	e.SetBlank(0.2)

	reading := float32(0.08)
	want := 1.5*(math32.Log10(0.8/0.08)-0.2) + 0.1
	assert.InDelta(t, want, e.Absorbance(reading), 1e-5)
}

func TestAbsorbance_MonotonicallyDecreasing(t *testing.T) {
	e := New(constADC(0), DefaultConfig())

	prev := e.Absorbance(0.001)
	for r := float32(0.01); r <= 1; r += 0.01 {
		cur := e.Absorbance(r)
		assert.Less(t, cur, prev, "reading=%f", r)
		prev = cur
	}
}

func TestAbsorbance_ClampsNearZero(t *testing.T) {
	e := New(constADC(0), DefaultConfig())

	atEpsilon := e.Absorbance(1e-4)
	assert.False(t, math32.IsInf(atEpsilon, 0))
	assert.Equal(t, atEpsilon, e.Absorbance(0))
	assert.Equal(t, atEpsilon, e.Absorbance(-1))
	assert.Equal(t, atEpsilon, e.Absorbance(1e-7))
}

func TestCalibrate_Rebaselines(t *testing.T) {
	raw := uint16(300)
	cfg := DefaultConfig()
	cfg.Scaling = 1.2
	cfg.Offset = 0.05
	e := New(ADCFunc(func() uint16 { return raw }), cfg)

	e.SetBlank(3) // stale blank must not leak into the new one
	blank := e.Calibrate()
	require.InDelta(t, math32.Log10(0.8/(300.0/1023.0)), blank, 1e-5)
	assert.Equal(t, blank, e.Blank())

	assert.InDelta(t, 0.05, e.Sample(), 1e-5)

	// A darker sample reads positive absorbance relative to the blank.
	raw = 150
	assert.Greater(t, e.Sample(), float32(0.05))
}

func TestCalibrate_Idempotent(t *testing.T) {
	e := New(constADC(700), DefaultConfig())

	first := e.Calibrate()
	second := e.Calibrate()
	assert.InDelta(t, first, second, 1e-6)
	assert.InDelta(t, 0, e.Sample(), 1e-6)
}
