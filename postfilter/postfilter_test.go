package postfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSmooth3FlatRowUnchanged(t *testing.T) {
	row := []byte{100, 100, 100, 100, 100}
	got := Smooth3(row)
	assert.Equal(t, row, got)
}

func TestSmooth3EdgeClamping(t *testing.T) {
	row := []byte{0, 255, 0}
	got := Smooth3(row)
	// out[0] averages row[0],row[0],row[1] = (0+0+255)/3 = 85
	assert.Equal(t, byte(85), got[0])
	// out[2] averages row[1],row[2],row[2] = (255+0+0)/3 = 85
	assert.Equal(t, byte(85), got[2])
}

func TestSmoothFrameDimensions(t *testing.T) {
	frame := make([]byte, 12*4)
	out := SmoothFrame(frame, 12, 4)
	assert.Len(t, out, len(frame))
}

func TestSmooth3NeverPanics(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 500).Draw(rt, "n")
		row := make([]byte, n)
		for i := range row {
			row[i] = byte(rapid.IntRange(0, 255).Draw(rt, "v"))
		}
		assert.NotPanics(t, func() {
			Smooth3(row)
		})
	})
}
