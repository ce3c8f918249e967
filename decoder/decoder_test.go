package decoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sstvdecode/internal/synth"
	"sstvdecode/mode"
	"sstvdecode/raster"
)

// canvasMargin is the horizontal offset of the decoded image region
// within the full panel, mirroring raster's unexported marginX.
const canvasMargin = (raster.Width - raster.ImageWidth) / 2

func TestNewRejectsUnregisteredStrategy(t *testing.T) {
	_, err := New(Options{Strategy: Strategy(99)})
	require.Error(t, err)
}

func TestNewAppliesDefaultHeaderTimeout(t *testing.T) {
	d, err := New(Options{Strategy: StrategyGlobalSlant})
	require.NoError(t, err)
	assert.Equal(t, defaultSampleRate*5, float64(int(d.opts.HeaderTimeout.Seconds()*defaultSampleRate)))
}

func TestDecodeOnSilenceReportsNotReceiving(t *testing.T) {
	d, err := New(Options{Strategy: StrategyGlobalSlant})
	require.NoError(t, err)

	silence := make([]int16, 50000)
	result, err := d.Decode(silence)
	require.NoError(t, err)
	assert.False(t, result.Receiving)
	assert.NotNil(t, result.Canvas)
}

func TestDecodeRoundTripWithGlobalSlant(t *testing.T) {
	img := synth.NewImage(mode.Scottie1.ImgWidth, mode.Scottie1.NumLines)
	img.FillFlat(128, 128, 128) // 1900Hz tone, dead center of the video band
	samples := synth.Render(img, mode.Scottie1, synth.Options{})

	d, err := New(Options{Strategy: StrategyGlobalSlant})
	require.NoError(t, err)

	result, err := d.Decode(samples)
	require.NoError(t, err)
	assert.True(t, result.Receiving)
	assert.InDelta(t, 44100.0, result.EffectiveRate, 44100.0*0.05+1)

	var sumAbsErr float64
	n := 0
	for y := 0; y < raster.ImageHeight; y++ {
		for x := 0; x < raster.ImageWidth; x++ {
			r, g, b, _ := result.Canvas.At(x+canvasMargin, y).RGBA()
			sumAbsErr += math.Abs(float64(r>>8) - 127)
			sumAbsErr += math.Abs(float64(g>>8) - 127)
			sumAbsErr += math.Abs(float64(b>>8) - 127)
			n += 3
		}
	}
	mae := sumAbsErr / float64(n)
	assert.Less(t, mae, 3.0, "a uniform-gray source should decode close to intensity 127 across every channel")
}

func TestDecodeRoundTripWithLineTracker(t *testing.T) {
	img := synth.NewImage(mode.Scottie1.ImgWidth, mode.Scottie1.NumLines)
	img.FillHorizontalStep() // left half white (2300Hz), right half black (1500Hz)
	samples := synth.Render(img, mode.Scottie1, synth.Options{})

	d, err := New(Options{Strategy: StrategyLineTracker})
	require.NoError(t, err)

	result, err := d.Decode(samples)
	require.NoError(t, err)
	assert.True(t, result.Receiving)
	assert.NotEmpty(t, result.SyncPositions)

	const midLine = raster.ImageHeight / 2
	leftMin := 255
	for x := 0; x < 100; x++ {
		r, _, _, _ := result.Canvas.At(x+canvasMargin, midLine).RGBA()
		if v := int(r >> 8); v < leftMin {
			leftMin = v
		}
	}
	assert.GreaterOrEqual(t, leftMin, 240, "left half of the step should decode near white")

	rightMax := 0
	for x := raster.ImageWidth - 100; x < raster.ImageWidth; x++ {
		r, _, _, _ := result.Canvas.At(x+canvasMargin, midLine).RGBA()
		if v := int(r >> 8); v > rightMax {
			rightMax = v
		}
	}
	assert.LessOrEqual(t, rightMax, 15, "right half of the step should decode near black")
}
