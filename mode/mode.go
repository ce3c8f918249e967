// Package mode describes the timing law of an SSTV transmission mode.
//
// Only Scottie 1 is implemented; the type is kept separate from the
// decoding pipeline so that a future mode has a natural home without
// touching header, sync, or pixel-grid code.
package mode

// ColorEncoding names the order in which a mode transmits its three
// color channels within a line.
type ColorEncoding int

const (
	// GBR transmits Green, then Blue, then Red, with the horizontal
	// sync pulse between Blue and Red rather than at the line head.
	GBR ColorEncoding = iota
)

// Spec is an immutable description of an SSTV mode's timing law.
// All durations are in seconds.
type Spec struct {
	Name string

	SyncTime  float64 // horizontal sync pulse duration
	PorchTime float64 // fixed-tone guard either side of sync
	SeptrTime float64 // separator between color segments
	PixelTime float64 // per-pixel dwell time within a color segment
	LineTime  float64 // nominal total line duration

	ImgWidth int // pixels per line
	NumLines int // lines per frame

	ColorEnc ColorEncoding
}

// ColorLen returns the duration of one color channel's segment.
func (s Spec) ColorLen() float64 {
	return s.PixelTime * float64(s.ImgWidth)
}

// ChannelStarts returns, for Scottie-family modes, the offset from the
// start of a line at which the Green, Blue, and Red segments begin.
// The layout is mode-defining: separator, Green, separator, Blue, sync,
// porch, Red — sync sits between Blue and Red, not at the line head.
func (s Spec) ChannelStarts() [3]float64 {
	colorLen := s.ColorLen()
	var start [3]float64
	start[0] = s.SeptrTime
	start[1] = start[0] + colorLen + s.SeptrTime
	start[2] = start[1] + colorLen + s.SyncTime + s.PorchTime
	return start
}

// Scottie1 is the hard-wired Scottie 1 mode descriptor: 320x256, GBR
// channel order, ~110s per frame.
var Scottie1 = Spec{
	Name:      "Scottie S1",
	SyncTime:  9e-3,
	PorchTime: 1.5e-3,
	SeptrTime: 1.5e-3,
	PixelTime: 0.4320e-3,
	LineTime:  428.38e-3,
	ImgWidth:  320,
	NumLines:  256,
	ColorEnc:  GBR,
}

// ExpectedLineSamples returns the nominal number of samples in one line
// at the given sample rate, built from the same per-segment durations
// the timing law specifies (porch x3 + color x3 + sync), rather than
// LineTime directly, matching how every consumer in this module derives
// its "expected gap" value.
func (s Spec) ExpectedLineSamples(sampleRate float64) int {
	seconds := s.PorchTime*3 + s.ColorLen()*3 + s.SyncTime
	return int(sampleRate*seconds + 0.5)
}
