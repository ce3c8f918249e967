package header

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100.0

func toneSamples(freq, rate float64, durationMS float64) []int16 {
	n := int(rate * durationMS / 1000.0)
	out := make([]int16, n)
	phase := 0.0
	step := 2 * math.Pi * freq / rate
	for i := range out {
		out[i] = int16(10000.0 * math.Sin(phase))
		phase += step
	}
	return out
}

func buildHeaderBuffer() []int16 {
	var buf []int16
	buf = append(buf, toneSamples(1900, testRate, leaderMS)...)
	buf = append(buf, toneSamples(1200, testRate, breakMS)...)
	buf = append(buf, toneSamples(1900, testRate, leaderMS)...)
	buf = append(buf, toneSamples(1200, testRate, visBitMS*visSlots)...)
	return buf
}

func TestDetectorRecognizesFullHeader(t *testing.T) {
	buf := buildHeaderBuffer()
	buf = append(buf, toneSamples(2000, testRate, 500)...) // trailing video-band noise

	d := NewRate(testRate)
	var end int
	var ok bool
	for i, s := range buf {
		end, ok = d.Push(s, i)
		if ok {
			break
		}
	}
	require.True(t, ok, "expected header to be detected")
	assert.Greater(t, end, 0)
	assert.LessOrEqual(t, end, len(buf))
	assert.Equal(t, Done, d.State())
}

func TestDetectorNeverFiresOnSilence(t *testing.T) {
	d := NewRate(testRate)
	silence := make([]int16, int(testRate*2))
	for i, s := range silence {
		_, ok := d.Push(s, i)
		assert.False(t, ok)
	}
}

func TestStateStringCoversAllStates(t *testing.T) {
	for s := Leader1; s <= Done; s++ {
		assert.NotEqual(t, "Unknown", s.String())
	}
	assert.Equal(t, "Unknown", State(99).String())
}
