package sync

import "sstvdecode/goertzel"

// toneBins holds the Goertzel bins shared by every sync-presence scorer:
// the sync tone widened by +/-75Hz to tolerate frequency shift, and an
// averaged video-band reference.
type toneBins struct {
	sync  []goertzel.Bin // 1150,1175,1200,1225,1250,1275 Hz
	video []goertzel.Bin // 1500,1700,1900,2100,2300 Hz
	b1100 goertzel.Bin
	b1300 goertzel.Bin
}

func buildToneBins(sampleRate float64) toneBins {
	var tb toneBins
	for _, f := range []float64{1150, 1175, 1200, 1225, 1250, 1275} {
		tb.sync = append(tb.sync, goertzel.NewBinRate(f, sampleRate))
	}
	for _, f := range []float64{1500, 1700, 1900, 2100, 2300} {
		tb.video = append(tb.video, goertzel.NewBinRate(f, sampleRate))
	}
	tb.b1100 = goertzel.NewBinRate(1100, sampleRate)
	tb.b1300 = goertzel.NewBinRate(1300, sampleRate)
	return tb
}

// syncPower is the widened 1200Hz sync power: the max across the six
// probe frequencies, tolerating a +/-75Hz shift.
func (tb toneBins) syncPower(weighted []float64) float64 {
	max := 0.0
	for _, b := range tb.sync {
		if p := b.Power(weighted); p > max {
			max = p
		}
	}
	return max
}

// videoPower is the average power across the five video-band probe
// frequencies.
func (tb toneBins) videoPower(weighted []float64) float64 {
	total := 0.0
	for _, b := range tb.video {
		total += b.Power(weighted)
	}
	return total / float64(len(tb.video))
}

func applyHann(samples []int16, hann []float64) []float64 {
	weighted := make([]float64, len(samples))
	for i, x := range samples {
		weighted[i] = float64(x) * hann[i]
	}
	return weighted
}
