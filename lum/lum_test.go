package lum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func toneSamples(freq, rate float64, n int) []int16 {
	out := make([]int16, n)
	phase := 0.0
	step := 2 * math.Pi * freq / rate
	for i := range out {
		out[i] = int16(10000.0 * math.Sin(phase))
		phase += step
	}
	return out
}

func TestDemodulateRecoversLowAndHighTones(t *testing.T) {
	const rate = 44100.0
	lowSamples := toneSamples(1500, rate, 20000)
	highSamples := toneSamples(2300, rate, 20000)

	lowLum := Demodulate(lowSamples, Options{SampleRate: rate})
	highLum := Demodulate(highSamples, Options{SampleRate: rate})

	assert.NotEmpty(t, lowLum)
	assert.NotEmpty(t, highLum)

	lowMean := meanByte(lowLum[len(lowLum)/4:])
	highMean := meanByte(highLum[len(highLum)/4:])
	assert.Less(t, lowMean, 60.0)
	assert.Greater(t, highMean, 200.0)
}

func meanByte(xs []byte) float64 {
	total := 0
	for _, x := range xs {
		total += int(x)
	}
	if len(xs) == 0 {
		return 0
	}
	return float64(total) / float64(len(xs))
}

func TestDemodulateWorkersAgreeWithSequential(t *testing.T) {
	const rate = 44100.0
	samples := toneSamples(1900, rate, 8000)

	seq := Demodulate(samples, Options{SampleRate: rate, Workers: 1})
	par := Demodulate(samples, Options{SampleRate: rate, Workers: 4})

	assert.Equal(t, len(seq), len(par))
	for i := range seq {
		assert.InDelta(t, int(seq[i]), int(par[i]), 2, "index %d", i)
	}
}

func TestFreqToIntensityClampsToByteRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		freq := rapid.Float64Range(-1e6, 1e6).Draw(rt, "freq")
		v := freqToIntensity(freq)
		assert.GreaterOrEqual(t, int(v), 0)
		assert.LessOrEqual(t, int(v), 255)
	})
}

func TestDemodulateNeverPanicsOnShortBuffers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(rt, "n")
		samples := make([]int16, n)
		for i := range samples {
			samples[i] = int16(rapid.IntRange(-32768, 32767).Draw(rt, "s"))
		}
		assert.NotPanics(t, func() {
			Demodulate(samples, Options{})
		})
	})
}
