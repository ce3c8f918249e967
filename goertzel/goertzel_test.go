package goertzel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sineWave(freq, rate float64, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestPowerPeaksAtToneFrequency(t *testing.T) {
	const rate = 44100.0
	wave := sineWave(1900.0, rate, 512, 1000.0)

	onTone := NewBinRate(1900.0, rate)
	offTone := NewBinRate(1300.0, rate)

	pOn := onTone.Power(wave)
	pOff := offTone.Power(wave)

	assert.Greater(t, pOn, pOff*10, "on-frequency bin should dominate an off-frequency bin")
}

func TestHannWindowEndpoints(t *testing.T) {
	w := Hann(64)
	require.Len(t, w, 64)
	assert.InDelta(t, 0.0, w[0], 1e-9)
	assert.Greater(t, w[32], 0.9)
}

func TestHannDegenerateLengths(t *testing.T) {
	assert.Len(t, Hann(0), 1)
	assert.Len(t, Hann(1), 1)
}

func TestPeakFrequencyRecoversTone(t *testing.T) {
	const rate = 44100.0
	const length = 256
	wave := sineWave(1800.0, rate, length, 1000.0)
	bins := BuildBinSet(length, 1500.0, 2300.0, rate)

	got := PeakFrequency(wave, bins, 1500.0, 2300.0, rate)
	assert.InDelta(t, 1800.0, got, 30.0)
}

func TestPeakFrequencyClampsToRange(t *testing.T) {
	const rate = 44100.0
	const length = 128
	wave := sineWave(400.0, rate, length, 1000.0) // well outside [1500,2300]
	bins := BuildBinSet(length, 1500.0, 2300.0, rate)

	got := PeakFrequency(wave, bins, 1500.0, 2300.0, rate)
	assert.GreaterOrEqual(t, got, 1500.0)
	assert.LessOrEqual(t, got, 2300.0)
}

func TestCachedBinSetStable(t *testing.T) {
	a := CachedBinSet(256, 1500.0, 2300.0, 44100.0)
	b := CachedBinSet(256, 1500.0, 2300.0, 44100.0)
	assert.Equal(t, len(a.Bins), len(b.Bins))
	assert.Equal(t, a.Indices, b.Indices)
}

func TestSNREstimateNeverPanicsNearEdges(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 2000).Draw(rt, "n")
		center := rapid.IntRange(-100, n+100).Draw(rt, "center")
		samples := make([]int16, n)
		for i := range samples {
			samples[i] = int16(rapid.IntRange(-30000, 30000).Draw(rt, "s"))
		}
		assert.NotPanics(t, func() {
			SNREstimate(samples, center, 0, 44100.0)
		})
	})
}

func TestPeakFrequencyNeverPanicsForAdversarialWindows(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.SampledFrom([]int{8, 16, 48, 64, 128, 256, 512, 1024}).Draw(rt, "length")
		window := make([]float64, length)
		for i := range window {
			window[i] = rapid.Float64Range(-32768, 32767).Draw(rt, "x")
		}
		bins := CachedBinSet(length, 1500.0, 2300.0, 44100.0)
		assert.NotPanics(t, func() {
			PeakFrequency(window, bins, 1500.0, 2300.0, 44100.0)
		})
	})
}
