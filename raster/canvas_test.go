package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCanvasDimensions(t *testing.T) {
	c := New()
	b := c.Bounds()
	assert.Equal(t, Width, b.Dx())
	assert.Equal(t, Height, b.Dy())
}

func TestNewCanvasBorderFilled(t *testing.T) {
	c := New()
	r, g, b, a := c.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xFA<<8|0xFA), r)
	assert.Equal(t, uint32(0xF0<<8|0xF0), g)
	assert.Equal(t, uint32(0xD8<<8|0xD8), b)
	assert.Equal(t, uint32(0xFFFF), a)
}

func TestSetImagePixelWritesWithinRegion(t *testing.T) {
	c := New()
	c.SetImagePixel(5, 5, 1, 2, 3)
	r, g, b, _ := c.At(5+marginX, 5).RGBA()
	assert.Equal(t, uint32(1<<8|1), r)
	assert.Equal(t, uint32(2<<8|2), g)
	assert.Equal(t, uint32(3<<8|3), b)
}

func TestSetImagePixelOutOfRangeIsNoop(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() {
		c.SetImagePixel(-1, -1, 9, 9, 9)
		c.SetImagePixel(ImageWidth, ImageHeight, 9, 9, 9)
	})
}

func TestSmoothImageRegionFlatFieldUnchanged(t *testing.T) {
	c := New()
	for y := 0; y < ImageHeight; y++ {
		for x := 0; x < ImageWidth; x++ {
			c.SetImagePixel(x, y, 100, 150, 200)
		}
	}
	c.SmoothImageRegion()
	r, g, b, _ := c.At(ImageWidth/2+marginX, ImageHeight/2).RGBA()
	assert.Equal(t, uint32(100<<8|100), r)
	assert.Equal(t, uint32(150<<8|150), g)
	assert.Equal(t, uint32(200<<8|200), b)
}

func TestSmoothImageRegionLeavesBorderAlone(t *testing.T) {
	c := New()
	c.SmoothImageRegion()
	r, g, b, a := c.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xFA<<8|0xFA), r)
	assert.Equal(t, uint32(0xF0<<8|0xF0), g)
	assert.Equal(t, uint32(0xD8<<8|0xD8), b)
	assert.Equal(t, uint32(0xFFFF), a)
}
