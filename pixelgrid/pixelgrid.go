// Package pixelgrid samples a demodulated luminance vector onto the
// Scottie 1 pixel grid using a closed-form (rate, skip) addressing law,
// then resizes and pastes the result onto the output canvas. It is the
// downstream consumer shared by both sync-locator strategies.
package pixelgrid

import (
	"sstvdecode/mode"
	"sstvdecode/raster"
)

// Frame holds one decoded Scottie frame at its native 320x256
// resolution, one byte per channel per pixel.
type Frame struct {
	Width, Height int
	R, G, B       []byte // row-major, len == Width*Height
}

// at returns the row-major index of (x, y).
func (f *Frame) at(x, y int) int { return y*f.Width + x }

// Sample fills a Frame from stored luminance values by evaluating, for
// every (line, channel, column), the closed-form sample instant
//
//	t = y*LineTime + chanStart[chan] + (x-0.5)/ImgWidth*colorLen
//	idx = round(rate*t) + skip
//
// and reading lum[idx] as that pixel's intensity; out-of-range indices
// leave the pixel at zero (matching the reference's "continue" skip).
func Sample(lum []byte, rate float64, skip int, m mode.Spec) *Frame {
	frame := &Frame{
		Width:  m.ImgWidth,
		Height: m.NumLines,
		R:      make([]byte, m.ImgWidth*m.NumLines),
		G:      make([]byte, m.ImgWidth*m.NumLines),
		B:      make([]byte, m.ImgWidth*m.NumLines),
	}
	chanStart := m.ChannelStarts()
	colorLen := m.ColorLen()

	for y := 0; y < m.NumLines; y++ {
		for ch := 0; ch < 3; ch++ {
			base := float64(y)*m.LineTime + chanStart[ch]
			for x := 0; x < m.ImgWidth; x++ {
				t := base + (float64(x)-0.5)/float64(m.ImgWidth)*colorLen
				idx := int(rate*t+0.5) + skip
				if idx < 0 || idx >= len(lum) {
					continue
				}
				val := lum[idx]
				i := frame.at(x, y)
				switch m.ColorEnc {
				case mode.GBR:
					switch ch {
					case 0:
						frame.G[i] = val
					case 1:
						frame.B[i] = val
					default:
						frame.R[i] = val
					}
				default:
					switch ch {
					case 0:
						frame.R[i] = val
					case 1:
						frame.G[i] = val
					default:
						frame.B[i] = val
					}
				}
			}
		}
	}
	return frame
}

// Render bilinear-resizes the frame from its native resolution to the
// canvas's centered image region and pastes it into a fresh Canvas.
func (f *Frame) Render() *raster.Canvas {
	canvas := raster.New()
	resized := resizeBilinear(f, raster.ImageWidth, raster.ImageHeight)
	for y := 0; y < raster.ImageHeight; y++ {
		for x := 0; x < raster.ImageWidth; x++ {
			i := y*raster.ImageWidth + x
			canvas.SetImagePixel(x, y, resized.R[i], resized.G[i], resized.B[i])
		}
	}
	return canvas
}

// resizeBilinear resamples f to dstW x dstH using bilinear
// interpolation, matching PIL's Image.BILINEAR for a downscale with no
// antialiasing prefilter (the reference never enables PIL's reducing
// gap, since the 320x256->240x192 ratio is a simple 3/4 scale).
func resizeBilinear(f *Frame, dstW, dstH int) *Frame {
	out := &Frame{
		Width:  dstW,
		Height: dstH,
		R:      make([]byte, dstW*dstH),
		G:      make([]byte, dstW*dstH),
		B:      make([]byte, dstW*dstH),
	}
	scaleX := float64(f.Width) / float64(dstW)
	scaleY := float64(f.Height) / float64(dstH)

	for dy := 0; dy < dstH; dy++ {
		sy := (float64(dy)+0.5)*scaleY - 0.5
		y0 := int(sy)
		fy := sy - float64(y0)
		if y0 < 0 {
			y0 = 0
			fy = 0
		}
		y1 := y0 + 1
		if y1 >= f.Height {
			y1 = f.Height - 1
		}
		for dx := 0; dx < dstW; dx++ {
			sx := (float64(dx)+0.5)*scaleX - 0.5
			x0 := int(sx)
			fx := sx - float64(x0)
			if x0 < 0 {
				x0 = 0
				fx = 0
			}
			x1 := x0 + 1
			if x1 >= f.Width {
				x1 = f.Width - 1
			}

			di := dy*dstW + dx
			out.R[di] = bilerp(f.R, f.Width, x0, y0, x1, y1, fx, fy)
			out.G[di] = bilerp(f.G, f.Width, x0, y0, x1, y1, fx, fy)
			out.B[di] = bilerp(f.B, f.Width, x0, y0, x1, y1, fx, fy)
		}
	}
	return out
}

func bilerp(plane []byte, width, x0, y0, x1, y1 int, fx, fy float64) byte {
	p00 := float64(plane[y0*width+x0])
	p10 := float64(plane[y0*width+x1])
	p01 := float64(plane[y1*width+x0])
	p11 := float64(plane[y1*width+x1])
	top := p00 + (p10-p00)*fx
	bottom := p01 + (p11-p01)*fx
	v := top + (bottom-top)*fy
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v + 0.5)
}
