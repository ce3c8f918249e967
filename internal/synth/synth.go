// Package synth generates synthetic Scottie 1 tone sequences for
// round-trip testing: header, VIS onset, and a full 256-line GBR frame
// rendered from an RGB source image, optionally with clock drift and
// additive noise. It is the test-tooling counterpart of the decoder,
// playing the same role the teacher's NTSC/color-bars generators play
// for its own pipeline.
package synth

import (
	"math"

	"sstvdecode/mode"
)

const (
	sampleRate = 44100.0

	leaderMS = 300.0
	breakMS  = 10.0
	visBitMS = 30.0
	visSlots = 10

	amplitude = 10000.0
)

// Image is a 320x256 RGB source frame, row-major, one byte per channel
// per pixel — the in-memory shape every pattern generator below fills.
type Image struct {
	Width, Height int
	R, G, B       []byte
}

// NewImage allocates a blank width x height Image.
func NewImage(width, height int) *Image {
	return &Image{
		Width: width, Height: height,
		R: make([]byte, width*height),
		G: make([]byte, width*height),
		B: make([]byte, width*height),
	}
}

func (img *Image) at(x, y int) int { return y*img.Width + x }

// FillFlat paints every pixel the same color, the simplest possible
// round-trip fixture.
func (img *Image) FillFlat(r, g, b byte) {
	for i := range img.R {
		img.R[i], img.G[i], img.B[i] = r, g, b
	}
}

// FillColorBars paints 7 vertical SMPTE-style stripes, grounded on the
// teacher's FillColorBars test pattern.
func (img *Image) FillColorBars() {
	bars := [7][3]byte{
		{192, 192, 192},
		{192, 192, 0},
		{0, 192, 192},
		{0, 192, 0},
		{192, 0, 192},
		{192, 0, 0},
		{0, 0, 192},
	}
	barWidth := img.Width / 7
	if barWidth < 1 {
		barWidth = 1
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			idx := x / barWidth
			if idx >= 7 {
				idx = 6
			}
			i := img.at(x, y)
			img.R[i], img.G[i], img.B[i] = bars[idx][0], bars[idx][1], bars[idx][2]
		}
	}
}

// FillHorizontalStep paints the left half white and the right half
// black, exercising a hard intensity edge within a single line.
func (img *Image) FillHorizontalStep() {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := byte(255)
			if x >= img.Width/2 {
				v = 0
			}
			i := img.at(x, y)
			img.R[i], img.G[i], img.B[i] = v, v, v
		}
	}
}

// FillDiagonalSlant paints a ramp along x+y, exercising both the
// closed-form sampler's sub-pixel interpolation and the bilinear
// resize.
func (img *Image) FillDiagonalSlant() {
	maxSum := img.Width + img.Height - 2
	if maxSum < 1 {
		maxSum = 1
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := byte((x + y) * 255 / maxSum)
			i := img.at(x, y)
			img.R[i], img.G[i], img.B[i] = v, v, v
		}
	}
}

// Options configures Render.
type Options struct {
	// DriftPPM shifts the effective sample rate by this many parts per
	// million, simulating transmitter/receiver clock mismatch.
	DriftPPM float64
	// NoiseAmplitude adds uniform pseudo-random noise of this peak
	// amplitude (in the same units as the tone amplitude) via a fixed
	// linear-congruential sequence seeded by seed, keeping Render
	// deterministic without calling math/rand's global source.
	NoiseAmplitude float64
	Seed           uint32
}

// Render synthesizes a full Scottie 1 transmission: Leader1, Break,
// Leader2, a VIS-onset tone, then for every line of m: separator, Green,
// separator, Blue, a 1200Hz sync burst, porch, Red.
// The returned buffer is mono 16-bit PCM at the nominal 44.1kHz rate
// (before any DriftPPM is folded into the line timing below).
func Render(img *Image, m mode.Spec, opts Options) []int16 {
	rate := sampleRate * (1.0 + opts.DriftPPM/1e6)

	var out []int16
	tone := func(freq float64, duration float64) {
		n := int(rate * duration)
		appendTone(&out, freq, n, rate)
	}

	tone(1900, leaderMS/1000.0)
	tone(1200, breakMS/1000.0)
	tone(1900, leaderMS/1000.0)
	tone(1200, visBitMS/1000.0*visSlots)

	colorLen := m.ColorLen()

	for y := 0; y < m.NumLines; y++ {
		tone(1500, m.SeptrTime)
		renderColorSegment(&out, img, y, 0, m.ImgWidth, colorLen, rate)
		tone(1500, m.SeptrTime)
		renderColorSegment(&out, img, y, 1, m.ImgWidth, colorLen, rate)
		tone(1200, m.SyncTime)
		tone(1500, m.PorchTime)
		renderColorSegment(&out, img, y, 2, m.ImgWidth, colorLen, rate)
	}

	if opts.NoiseAmplitude > 0 {
		addNoise(out, opts.NoiseAmplitude, opts.Seed)
	}
	return out
}

// renderColorSegment appends colorLen seconds of frequency-modulated
// tone sweeping through img's row y, channel chanIdx (0=G,1=B,2=R per
// the Scottie GBR order), one pixel's intensity mapped linearly to
// [1500,2300]Hz per pixel dwell time.
func renderColorSegment(out *[]int16, img *Image, y, chanIdx, width int, colorLen, rate float64) {
	n := int(rate * colorLen)
	if n <= 0 {
		return
	}
	phase := 0.0
	for s := 0; s < n; s++ {
		frac := float64(s) / float64(n)
		x := int(frac * float64(width))
		if x >= width {
			x = width - 1
		}
		var v byte
		switch chanIdx {
		case 0:
			v = img.G[y*img.Width+x]
		case 1:
			v = img.B[y*img.Width+x]
		default:
			v = img.R[y*img.Width+x]
		}
		freq := 1500.0 + float64(v)/255.0*800.0
		phase += 2.0 * math.Pi * freq / rate
		*out = append(*out, int16(amplitude*math.Sin(phase)))
	}
}

func appendTone(out *[]int16, freq float64, n int, rate float64) {
	if n <= 0 {
		return
	}
	phase := 0.0
	step := 2.0 * math.Pi * freq / rate
	for i := 0; i < n; i++ {
		*out = append(*out, int16(amplitude*math.Sin(phase)))
		phase += step
	}
}

// addNoise perturbs samples in place with a deterministic
// linear-congruential sequence scaled to [-peak, peak].
func addNoise(samples []int16, peak float64, seed uint32) {
	state := seed
	if state == 0 {
		state = 0x2545F491
	}
	for i := range samples {
		state = state*1664525 + 1013904223
		frac := float64(state)/float64(1<<32)*2.0 - 1.0
		v := float64(samples[i]) + frac*peak
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
}
