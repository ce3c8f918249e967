package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sstvdecode/header"
	"sstvdecode/internal/synth"
	"sstvdecode/mode"
)

func buildFrame(t *testing.T) ([]int16, int) {
	t.Helper()
	img := synth.NewImage(mode.Scottie1.ImgWidth, mode.Scottie1.NumLines)
	img.FillColorBars()
	samples := synth.Render(img, mode.Scottie1, synth.Options{})

	det := header.New()
	for i, s := range samples {
		if end, ok := det.Push(s, i); ok {
			return samples, end
		}
	}
	require.Fail(t, "header never detected in synthesized buffer")
	return samples, 0
}

func TestGlobalSlantLocatorFindsSync(t *testing.T) {
	samples, headerEnd := buildFrame(t)
	loc := &GlobalSlantLocator{SampleRate: nominalSampleRate}
	result := loc.Locate(samples, headerEnd, 0, mode.Scottie1)

	assert.True(t, result.Receiving)
	assert.InDelta(t, nominalSampleRate, result.Rate, nominalSampleRate*0.05+1)
}

func TestLineTrackerLocatorFindsSyncPositions(t *testing.T) {
	samples, headerEnd := buildFrame(t)
	loc := &LineTrackerLocator{SampleRate: nominalSampleRate}
	result := loc.Locate(samples, headerEnd, 0, mode.Scottie1)

	assert.True(t, result.Receiving)
	assert.Greater(t, len(result.SyncPositions), 10)
	for i := 1; i < len(result.SyncPositions); i++ {
		assert.Greater(t, result.SyncPositions[i], result.SyncPositions[i-1], "I1: sync positions must be strictly increasing")
	}
}

func TestClampRateStaysWithinFivePercent(t *testing.T) {
	assert.Equal(t, nominalSampleRate*0.95, clampRate(1000))
	assert.Equal(t, nominalSampleRate*1.05, clampRate(1e9))
	assert.Equal(t, nominalSampleRate, clampRate(nominalSampleRate))
}

func TestLineTrackerOnEmptyBufferDoesNotPanic(t *testing.T) {
	loc := &LineTrackerLocator{SampleRate: nominalSampleRate}
	assert.NotPanics(t, func() {
		loc.Locate(nil, 0, 0, mode.Scottie1)
	})
}

func TestGlobalSlantLocatorOnEmptyBufferDoesNotPanic(t *testing.T) {
	loc := &GlobalSlantLocator{SampleRate: nominalSampleRate}
	assert.NotPanics(t, func() {
		loc.Locate(nil, 0, 0, mode.Scottie1)
	})
}
