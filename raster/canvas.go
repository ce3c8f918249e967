// Package raster defines the fixed-geometry output canvas every decode
// strategy paints into: a 288x192 panel with a centered 240x192 image
// region, bordered in the reference viewer's panel color.
package raster

import (
	"image"

	"sstvdecode/postfilter"
)

const (
	// Width and Height are the full panel dimensions.
	Width  = 288
	Height = 192

	// ImageWidth and ImageHeight are the centered image region's
	// dimensions; the resized Scottie frame (240x192 after the
	// 320x256->240x192 bilinear resize) pastes here unscaled.
	ImageWidth  = 240
	ImageHeight = 192

	// BorderColor is the panel background shown around the image
	// region, 0xFAF0D8 (a pale parchment) read as 0xRRGGBB.
	BorderColor = 0xFAF0D8
)

// marginX is the horizontal offset of the image region within the panel.
const marginX = (Width - ImageWidth) / 2

// Canvas is the panel raster: a fixed 288x192 image.RGBA, pre-filled
// with BorderColor, with a 240x192 region in the middle reserved for
// the decoded frame.
type Canvas struct {
	*image.RGBA
}

// New returns a Canvas filled with BorderColor.
func New() *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	r, g, b := borderRGB()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			offset := img.PixOffset(x, y)
			img.Pix[offset] = r
			img.Pix[offset+1] = g
			img.Pix[offset+2] = b
			img.Pix[offset+3] = 0xFF
		}
	}
	return &Canvas{RGBA: img}
}

func borderRGB() (byte, byte, byte) {
	return byte(BorderColor >> 16 & 0xFF), byte(BorderColor >> 8 & 0xFF), byte(BorderColor & 0xFF)
}

// SetImagePixel writes one RGB pixel at (x,y) within the 240x192 image
// region, offset into the panel's coordinate space.
func (c *Canvas) SetImagePixel(x, y int, r, g, b byte) {
	if x < 0 || x >= ImageWidth || y < 0 || y >= ImageHeight {
		return
	}
	offset := c.PixOffset(x+marginX, y)
	c.Pix[offset] = r
	c.Pix[offset+1] = g
	c.Pix[offset+2] = b
	c.Pix[offset+3] = 0xFF
}

// SmoothImageRegion applies the 3-tap horizontal post-filter to the
// 240x192 image region in place, one channel at a time, over the final
// pasted pixels rather than the pre-resize native frame.
func (c *Canvas) SmoothImageRegion() {
	r := make([]byte, ImageWidth*ImageHeight)
	g := make([]byte, ImageWidth*ImageHeight)
	b := make([]byte, ImageWidth*ImageHeight)
	for y := 0; y < ImageHeight; y++ {
		for x := 0; x < ImageWidth; x++ {
			offset := c.PixOffset(x+marginX, y)
			i := y*ImageWidth + x
			r[i] = c.Pix[offset]
			g[i] = c.Pix[offset+1]
			b[i] = c.Pix[offset+2]
		}
	}

	r = postfilter.SmoothFrame(r, ImageWidth, ImageHeight)
	g = postfilter.SmoothFrame(g, ImageWidth, ImageHeight)
	b = postfilter.SmoothFrame(b, ImageWidth, ImageHeight)

	for y := 0; y < ImageHeight; y++ {
		for x := 0; x < ImageWidth; x++ {
			c.SetImagePixel(x, y, r[y*ImageWidth+x], g[y*ImageWidth+x], b[y*ImageWidth+x])
		}
	}
}
