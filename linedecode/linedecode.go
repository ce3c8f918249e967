// Package linedecode implements the phase-aware state-machine decode
// path: an alternative to pixelgrid's closed-form sampler that renders
// incrementally, one raw sample at a time, tracking which segment of
// the Scottie 1 line (porch, color, sync) the current sample falls in.
// It is driven directly by sync acceptances rather than a precomputed
// luminance vector, so it can render as sync positions arrive.
package linedecode

import (
	"sstvdecode/goertzel"
	"sstvdecode/raster"
)

// Phase names a segment of a Scottie 1 line.
type Phase int

const (
	Idle Phase = iota
	Porch1
	Green
	Porch2
	Blue
	Sync
	Porch3
	Red
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Porch1:
		return "Porch1"
	case Green:
		return "Green"
	case Porch2:
		return "Porch2"
	case Blue:
		return "Blue"
	case Sync:
		return "Sync"
	case Porch3:
		return "Porch3"
	case Red:
		return "Red"
	default:
		return "Unknown"
	}
}

const (
	inWidth  = 320
	inHeight = 256

	porchMS   = 1.5
	syncMS    = 9.0
	colorMS   = 138.24
	sampleFs  = 44100.0

	freqMin     = 1500.0
	freqMax     = 2300.0
	freqSpan    = freqMax - freqMin
	binStep     = 25.0

	pixelWindowScale = 3.0
	maxPixelSamples  = 64

	timingWindowPct = 0.12
)

var binCount = int((freqMax-freqMin)/binStep) + 1

// LineStateMachine decodes a Scottie 1 frame as a streaming per-sample
// phase state machine, driven by raw mono samples and external sync
// acceptances, rather than a precomputed luminance vector.
type LineStateMachine struct {
	lineCount int
	lineIndex int
	phase     Phase
	phaseSamples int
	lineSamples  int
	frameDone    bool

	porchSamples int
	syncSamples  int
	colorSamples int

	basePorchSamples int
	baseSyncSamples  int
	baseColorSamples int
	timingScale      float64
	syncPhaseOffset  int

	bins            []goertzel.Bin
	pixelWindowLen  int
	pixelBuf        []int16
	pixelWindow     []int16
	pixelPos        int
	pixelFill       int
	lastPixel       int

	accum [3][]int
	count [3][]int

	canvas       *raster.Canvas
	lastOutputY  int
}

// New builds a LineStateMachine with syncPhaseOffset (recovered from a
// sync.Result's PhaseOffset) applied at the first accepted sync.
func New(syncPhaseOffset int) *LineStateMachine {
	bins := make([]goertzel.Bin, binCount)
	for i := range bins {
		bins[i] = goertzel.NewBinRate(freqMin+float64(i)*binStep, sampleFs)
	}

	fs := float64(sampleFs)
	m := &LineStateMachine{
		lineCount:        inHeight,
		basePorchSamples: int(fs * (porchMS / 1000.0)),
		baseSyncSamples:  int(fs * (syncMS / 1000.0)),
		baseColorSamples: int(fs * (colorMS / 1000.0)),
		timingScale:      1.0,
		syncPhaseOffset:  syncPhaseOffset,
		bins:             bins,
		lastOutputY:      -1,
		phase:            Idle,
	}
	m.porchSamples = m.basePorchSamples
	m.syncSamples = m.baseSyncSamples
	m.colorSamples = m.baseColorSamples
	m.pixelWindowLen = calcPixelWindowSamples(m.colorSamples)
	m.resetPixelBuffers()
	m.canvas = raster.New()
	return m
}

func calcPixelWindowSamples(colorSamples int) int {
	n := int(float64(colorSamples) / float64(inWidth) * pixelWindowScale)
	if n < 8 {
		n = 8
	}
	if n > maxPixelSamples {
		n = maxPixelSamples
	}
	return n
}

func (m *LineStateMachine) resetPixelBuffers() {
	m.pixelBuf = make([]int16, m.pixelWindowLen)
	m.pixelWindow = make([]int16, m.pixelWindowLen)
	m.pixelPos = 0
	m.pixelFill = 0
	m.lastPixel = -1
}

func (m *LineStateMachine) applyTimingScale() {
	scale := m.timingScale
	m.porchSamples = int(float64(m.basePorchSamples)*scale + 0.5)
	m.syncSamples = int(float64(m.baseSyncSamples)*scale + 0.5)
	m.colorSamples = int(float64(m.baseColorSamples)*scale + 0.5)
	newLen := calcPixelWindowSamples(m.colorSamples)
	if newLen != m.pixelWindowLen {
		m.pixelWindowLen = newLen
		m.resetPixelBuffers()
	}
}

func (m *LineStateMachine) clearAccum() {
	for c := 0; c < 3; c++ {
		m.accum[c] = make([]int, inWidth)
		m.count[c] = make([]int, inWidth)
	}
}

func (m *LineStateMachine) startFrame() {
	m.lineIndex = 0
	m.phase = Porch1
	m.phaseSamples = 0
	m.lineSamples = 0
	m.applyTimingScale()
	m.clearAccum()
	m.resetPixelBuffers()
	m.frameDone = false
	m.lastOutputY = -1
	m.canvas = raster.New()
}

// Done reports whether every line of the frame has been rendered.
func (m *LineStateMachine) Done() bool { return m.frameDone }

// Canvas returns the panel built so far; valid to call at any point,
// including before the frame completes.
func (m *LineStateMachine) Canvas() *raster.Canvas { return m.canvas }

// OnSync notifies the state machine that a sync pulse was accepted.
// wasReceiving distinguishes the first sync of a new frame (always
// accepted, entering via syncPhaseOffset) from a mid-frame sync that is
// only honored once the Blue segment is nearly finished, following the
// same rate-learning update the original performs on acceptance.
func (m *LineStateMachine) OnSync(wasReceiving bool) bool {
	if !wasReceiving {
		m.startFrame()
		m.enterPostSyncPhase()
		return true
	}

	if m.phase != Blue {
		return false
	}
	guard := m.colorSamples / 4
	if guard < 1 {
		guard = 1
	}
	if m.phaseSamples < m.colorSamples-guard {
		return false
	}
	if m.lineSamples > 0 {
		expected := m.basePorchSamples*3 + m.baseColorSamples*3 + m.baseSyncSamples
		adjusted := m.lineSamples - m.syncPhaseOffset
		if adjusted < 1 {
			adjusted = 1
		}
		minSamples := int(float64(expected) * (1.0 - timingWindowPct))
		maxSamples := int(float64(expected) * (1.0 + timingWindowPct))
		if adjusted >= minSamples && adjusted <= maxSamples {
			ratio := float64(expected) / float64(adjusted)
			if ratio < 0.95 {
				ratio = 0.95
			}
			if ratio > 1.05 {
				ratio = 1.05
			}
			m.timingScale = m.timingScale*0.98 + ratio*0.02
			m.applyTimingScale()
		}
	}
	m.lineSamples = 0
	m.enterPostSyncPhase()
	return false
}

// enterPostSyncPhase places the state machine into Sync, Porch3, or Red
// according to syncPhaseOffset, matching where in the post-sync
// sequence a sync accepted mid-pulse actually lands.
func (m *LineStateMachine) enterPostSyncPhase() {
	offset := m.syncPhaseOffset
	switch {
	case offset < m.syncSamples:
		m.phase = Sync
		m.phaseSamples = offset
	case offset < m.syncSamples+m.porchSamples:
		m.phase = Porch3
		m.phaseSamples = offset - m.syncSamples
	default:
		m.phase = Red
		m.phaseSamples = offset - m.syncSamples - m.porchSamples
		if m.phaseSamples < 0 {
			m.phaseSamples = 0
		}
		if m.phaseSamples > m.colorSamples {
			m.phaseSamples = m.colorSamples
		}
		m.resetPixelBuffers()
	}
}

// Step feeds one raw sample through the state machine.
func (m *LineStateMachine) Step(mono int16) {
	if m.phase == Idle {
		return
	}
	m.lineSamples++
	switch m.phase {
	case Porch1:
		m.phaseSamples++
		if m.phaseSamples >= m.porchSamples {
			m.phase = Green
			m.phaseSamples = 0
			m.resetPixelBuffers()
		}
	case Porch2:
		m.phaseSamples++
		if m.phaseSamples >= m.porchSamples {
			m.phase = Blue
			m.phaseSamples = 0
			m.resetPixelBuffers()
		}
	case Sync:
		m.phaseSamples++
		if m.phaseSamples >= m.syncSamples {
			m.phase = Porch3
			m.phaseSamples = 0
		}
	case Porch3:
		m.phaseSamples++
		if m.phaseSamples >= m.porchSamples {
			m.phase = Red
			m.phaseSamples = 0
			m.resetPixelBuffers()
		}
	default:
		m.stepColor(mono)
	}
}

func (m *LineStateMachine) stepColor(mono int16) {
	pixel := (m.phaseSamples * inWidth) / m.colorSamples
	if pixel >= 0 && pixel < inWidth {
		m.pixelBuf[m.pixelPos] = mono
		m.pixelPos++
		if m.pixelPos >= m.pixelWindowLen {
			m.pixelPos = 0
		}
		if m.pixelFill < m.pixelWindowLen {
			m.pixelFill++
		}

		if pixel != m.lastPixel && m.pixelFill == m.pixelWindowLen {
			m.lastPixel = pixel
			for j := 0; j < m.pixelWindowLen; j++ {
				idx := m.pixelPos + j
				if idx >= m.pixelWindowLen {
					idx -= m.pixelWindowLen
				}
				m.pixelWindow[j] = m.pixelBuf[idx]
			}
			freq := estimateFreq(m.pixelWindow, m.bins)
			intensity := freqToIntensity(freq)
			var channel int
			switch m.phase {
			case Green:
				channel = 0
			case Blue:
				channel = 1
			default:
				channel = 2
			}
			m.accum[channel][pixel] += int(intensity)
			m.count[channel][pixel]++
		}
	}

	m.phaseSamples++
	if m.phaseSamples >= m.colorSamples {
		m.phaseSamples = 0
		switch m.phase {
		case Green:
			m.phase = Porch2
		case Blue:
			m.phase = Sync
		case Red:
			m.renderLine()
			m.lineIndex++
			m.clearAccum()
			if m.lineIndex >= m.lineCount {
				m.frameDone = true
				m.phase = Idle
				m.phaseSamples = 0
			} else {
				m.phase = Porch1
				m.phaseSamples = 0
				m.resetPixelBuffers()
			}
		}
	}
}

func (m *LineStateMachine) renderLine() {
	outY := (m.lineIndex * raster.ImageHeight) / m.lineCount
	if outY == m.lastOutputY || outY < 0 || outY >= raster.ImageHeight {
		return
	}
	m.lastOutputY = outY
	for outX := 0; outX < raster.ImageWidth; outX++ {
		inX := (outX * inWidth) / raster.ImageWidth
		if inX < 0 {
			inX = 0
		}
		if inX >= inWidth {
			inX = inWidth - 1
		}
		g := avgOrZero(m.accum[0][inX], m.count[0][inX])
		b := avgOrZero(m.accum[1][inX], m.count[1][inX])
		r := avgOrZero(m.accum[2][inX], m.count[2][inX])
		m.canvas.SetImagePixel(outX, outY, r, g, b)
	}
}

func avgOrZero(sum, count int) byte {
	if count == 0 {
		return 0
	}
	return byte(sum / count)
}

// estimateFreq finds the dominant bin in window by Goertzel power and
// refines it to fractional-bin precision with a three-point centroid
// offset, (right-left)/(left+peak+right), in the linear (not log) power
// domain: the line-decoder's lighter-weight sibling to
// goertzel.PeakFrequency.
func estimateFreq(window []int16, bins []goertzel.Bin) float64 {
	maxVal := 0.0
	maxIdx := 0
	mags := make([]float64, len(bins))
	for i, b := range bins {
		val := b.PowerInt16(window)
		mags[i] = val
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	left := maxIdx
	if maxIdx > 0 {
		left = maxIdx - 1
	}
	right := maxIdx
	if maxIdx+1 < len(bins) {
		right = maxIdx + 1
	}
	y1, y2, y3 := mags[left], mags[maxIdx], mags[right]
	denom := y1 + y2 + y3
	peak := float64(maxIdx)
	if denom > 0.0 {
		peak += (y3 - y1) / denom
	}
	freq := freqMin + peak*binStep
	if freq < freqMin {
		freq = freqMin
	}
	if freq > freqMax {
		freq = freqMax
	}
	return freq
}

func freqToIntensity(freq float64) byte {
	if freq < freqMin {
		freq = freqMin
	}
	if freq > freqMax {
		freq = freqMax
	}
	ratio := (freq - freqMin) / freqSpan
	v := int(ratio*255.0 + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
