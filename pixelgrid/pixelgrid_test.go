package pixelgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"sstvdecode/mode"
	"sstvdecode/raster"
)

func flatLum(value byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestSampleFlatFieldProducesFlatFrame(t *testing.T) {
	m := mode.Scottie1
	const rate = 44100.0
	n := m.ExpectedLineSamples(rate) * m.NumLines
	lum := flatLum(128, n)

	frame := Sample(lum, rate, 0, m)
	require.Equal(t, m.ImgWidth*m.NumLines, len(frame.R))

	nonZero := 0
	for i := range frame.R {
		if frame.R[i] != 0 || frame.G[i] != 0 || frame.B[i] != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, len(frame.R)/2, "most pixels should have sampled the flat luminance buffer")
}

func TestSampleOutOfRangeIndexLeavesZero(t *testing.T) {
	m := mode.Scottie1
	lum := flatLum(255, 10) // far too short to cover any real line
	frame := Sample(lum, 44100.0, 0, m)
	for i := range frame.R {
		assert.Zero(t, frame.R[i], "I2: out-of-range sample index must be skipped, not read")
	}
}

func TestRenderProducesCorrectCanvasSize(t *testing.T) {
	m := mode.Scottie1
	frame := &Frame{Width: m.ImgWidth, Height: m.NumLines,
		R: flatLum(10, m.ImgWidth*m.NumLines),
		G: flatLum(20, m.ImgWidth*m.NumLines),
		B: flatLum(30, m.ImgWidth*m.NumLines),
	}
	canvas := frame.Render()
	b := canvas.Bounds()
	assert.Equal(t, raster.Width, b.Dx())
	assert.Equal(t, raster.Height, b.Dy())
}

func TestBilerpNeverExceedsByteRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.IntRange(2, 8).Draw(rt, "width")
		height := rapid.IntRange(2, 8).Draw(rt, "height")
		plane := make([]byte, width*height)
		for i := range plane {
			plane[i] = byte(rapid.IntRange(0, 255).Draw(rt, "v"))
		}
		x0 := rapid.IntRange(0, width-2).Draw(rt, "x0")
		y0 := rapid.IntRange(0, height-2).Draw(rt, "y0")
		fx := rapid.Float64Range(0, 1).Draw(rt, "fx")
		fy := rapid.Float64Range(0, 1).Draw(rt, "fy")
		v := bilerp(plane, width, x0, y0, x0+1, y0+1, fx, fy)
		assert.GreaterOrEqual(t, int(v), 0)
		assert.LessOrEqual(t, int(v), 255)
	})
}
