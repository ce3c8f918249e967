// Package header implements the four-state recognizer for the SSTV
// header prefix (Leader1, Break, Leader2, VIS onset) that precedes
// every frame. Detection stops at VIS onset; the mode itself is assumed
// by the caller, per spec.
package header

import "sstvdecode/goertzel"

// State names a phase of the header state machine.
type State int

const (
	Leader1 State = iota
	Break
	Leader2
	VisStart
	Done
)

func (s State) String() string {
	switch s {
	case Leader1:
		return "Leader1"
	case Break:
		return "Break"
	case Leader2:
		return "Leader2"
	case VisStart:
		return "VisStart"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

const (
	windowSamples = 512
	hopSamples    = 256

	leaderMS  = 300.0
	breakMS   = 10.0
	visBitMS  = 30.0
	visSlots  = 10 // 8 VIS data bits + 1 start + 1 stop slot

	toneDetectRatio = 1.3
	toneTotalRatio  = 0.45
)

var toneFreqs = [4]float64{1100, 1200, 1300, 1900}

// Detector is a streaming state machine that consumes one sample at a
// time and reports the sample index at which the video portion of the
// frame begins, once VIS onset has been observed.
type Detector struct {
	sampleRate float64

	bins [4]goertzel.Bin
	buf  []int16
	pos  int
	fill int
	hop  int

	state State
	count int

	leaderWindows   int
	breakWindows    int
	visStartWindows int

	headerEnd    int
	headerEndSet bool
}

// New builds a Detector for the standard 44.1kHz sample rate.
func New() *Detector {
	return NewRate(44100.0)
}

// NewRate builds a Detector for an arbitrary sample rate.
func NewRate(sampleRate float64) *Detector {
	d := &Detector{
		sampleRate: sampleRate,
		buf:        make([]int16, windowSamples),
		state:      Leader1,
	}
	for i, f := range toneFreqs {
		d.bins[i] = goertzel.NewBinRate(f, sampleRate)
	}
	hopMS := 1000.0 * hopSamples / sampleRate
	d.leaderWindows = roundWindows(leaderMS / hopMS)
	d.breakWindows = roundWindows(breakMS / hopMS)
	d.visStartWindows = roundWindows(visBitMS / hopMS)
	return d
}

func roundWindows(n float64) int {
	w := int(n + 0.5)
	if w < 1 {
		return 1
	}
	return w
}

// State returns the detector's current phase.
func (d *Detector) State() State { return d.state }

// HeaderEnd reports the detected video-start sample index and whether
// detection has completed.
func (d *Detector) HeaderEnd() (int, bool) { return d.headerEnd, d.headerEndSet }

// Push feeds one sample (at absolute index sampleIndex within the
// buffer being scanned) into the circular analysis window. It returns
// (headerEnd, true) the hop at which VIS onset is confirmed, (0, false)
// on every call before that, and (headerEnd, true) again on every call
// after completion.
func (d *Detector) Push(sample int16, sampleIndex int) (int, bool) {
	if d.headerEndSet {
		return d.headerEnd, true
	}

	d.buf[d.pos] = sample
	d.pos++
	if d.pos >= windowSamples {
		d.pos = 0
	}
	if d.fill < windowSamples {
		d.fill++
		return 0, false
	}

	d.hop++
	if d.hop < hopSamples {
		return 0, false
	}
	d.hop = 0

	window := make([]int16, windowSamples)
	for j := 0; j < windowSamples; j++ {
		idx := d.pos + j
		if idx >= windowSamples {
			idx -= windowSamples
		}
		window[j] = d.buf[idx]
	}

	var powers [4]float64
	for i, b := range d.bins {
		powers[i] = b.PowerInt16(window)
	}
	tone, ok := dominantTone(powers)

	switch d.state {
	case Leader1:
		d.advance(ok && tone == 1900, d.leaderWindows, Break)
	case Break:
		d.advance(ok && tone == 1200, d.breakWindows, Leader2)
	case Leader2:
		d.advance(ok && tone == 1900, d.leaderWindows, VisStart)
	case VisStart:
		if ok && tone == 1200 {
			d.count++
			if d.count >= d.visStartWindows {
				visStartSample := sampleIndex - windowSamples
				if visStartSample < 0 {
					visStartSample = 0
				}
				d.headerEnd = visStartSample + int(d.sampleRate*(visBitMS/1000.0)*float64(visSlots))
				d.headerEndSet = true
				d.state = Done
				return d.headerEnd, true
			}
		} else {
			d.count = 0
		}
	}
	return 0, false
}

// advance is the common Leader1/Break/Leader2 transition: a hop whose
// tone matches the target accumulates the run count; a mismatch resets
// the counter to zero without abandoning the state.
func (d *Detector) advance(match bool, required int, next State) {
	if match {
		d.count++
		if d.count >= required {
			d.state = next
			d.count = 0
		}
	} else {
		d.count = 0
	}
}

// dominantTone classifies the dominant tone as the argmax whose power
// exceeds both toneDetectRatio times the runner-up and toneTotalRatio
// times the summed power across all four candidate tones.
func dominantTone(powers [4]float64) (float64, bool) {
	total := powers[0] + powers[1] + powers[2] + powers[3]
	maxIdx := 0
	maxVal := powers[0]
	for i := 1; i < 4; i++ {
		if powers[i] > maxVal {
			maxVal = powers[i]
			maxIdx = i
		}
	}
	otherMax := 0.0
	for i := 0; i < 4; i++ {
		if i != maxIdx && powers[i] > otherMax {
			otherMax = powers[i]
		}
	}
	if maxVal > otherMax*toneDetectRatio && maxVal > total*toneTotalRatio {
		return toneFreqs[maxIdx], true
	}
	return 0, false
}
