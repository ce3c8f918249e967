package sync

import (
	"math"

	"sstvdecode/goertzel"
	"sstvdecode/mode"
)

const (
	slantHopSamples    = 13
	slantWindowSamples = 64

	minSlantDeg = 30 // degrees; q starts at 60 half-degree units
	maxSlantDeg = 150 // degrees; q stops before 300 half-degree units

	maxSlantRetries = 3

	xAccWidth = 700
)

// GlobalSlantLocator implements Strategy A (§4.3): a Hough-like slant
// search over a coarse sync-presence bitmap. It reports only (rate,
// skip); SyncPositions and PhaseOffset are left zero.
type GlobalSlantLocator struct {
	SampleRate float64
}

// Locate implements Locator.
func (g *GlobalSlantLocator) Locate(samples []int16, headerEnd int, freqShift float64, m mode.Spec) Result {
	rate := g.SampleRate
	if rate == 0 {
		rate = nominalSampleRate
	}
	hasSync := buildHasSyncBitmap(samples, rate, freqShift)
	finalRate, skip := findSyncSlant(m, rate, hasSync)
	return Result{
		Rate:      clampRate(finalRate),
		Skip:      skip,
		Receiving: anyTrue(hasSync),
	}
}

func anyTrue(bits []bool) bool {
	for _, b := range bits {
		if b {
			return true
		}
	}
	return false
}

// buildHasSyncBitmap hops 13 samples at a time across a 64-sample Hann
// window, marking a hop "sync" iff the widened-1200Hz power exceeds
// twice the averaged video-band power.
func buildHasSyncBitmap(samples []int16, sampleRate, freqShift float64) []bool {
	if len(samples) < slantWindowSamples {
		return nil
	}
	hann := goertzel.Hann(slantWindowSamples)
	tb := buildShiftedToneBins(sampleRate, freqShift)

	var hasSync []bool
	for start := 0; start+slantWindowSamples <= len(samples); start += slantHopSamples {
		window := samples[start : start+slantWindowSamples]
		weighted := applyHann(window, hann)
		pSync := tb.syncPower(weighted)
		pVideo := tb.videoPower(weighted)
		if pVideo < 1e-9 {
			pVideo = 1e-9
		}
		hasSync = append(hasSync, pSync > 2.0*pVideo)
	}
	return hasSync
}

func buildShiftedToneBins(sampleRate, freqShift float64) toneBins {
	var tb toneBins
	for _, f := range []float64{1150, 1175, 1200, 1225, 1250, 1275} {
		tb.sync = append(tb.sync, goertzel.NewBinRate(f+freqShift, sampleRate))
	}
	for _, f := range []float64{1500, 1700, 1900, 2100, 2300} {
		tb.video = append(tb.video, goertzel.NewBinRate(f+freqShift, sampleRate))
	}
	return tb
}

// findSyncSlant performs the Hough-style accumulator search for the
// dominant slant angle, rescaling rate and retrying until the signal is
// judged vertical (no slant) or the retry budget is exhausted, then
// recovers the horizontal phase to produce skip.
func findSyncSlant(m mode.Spec, rate float64, hasSync []bool) (float64, int) {
	if len(hasSync) == 0 {
		return rate, 0
	}
	lineWidth := int(m.LineTime/m.SyncTime*4.0 + 0.5)
	if lineWidth <= 0 {
		return rate, 0
	}

	retries := 0
	for {
		qMost := houghAccumulate(m, rate, hasSync, lineWidth)
		if qMost == 0 {
			break
		}
		slantAngleDeg := float64(qMost) / 2.0
		if slantAngleDeg > 89.0 && slantAngleDeg < 91.0 {
			break
		}
		if retries >= maxSlantRetries {
			rate = nominalSampleRate
			break
		}
		rate += math.Tan((90.0-slantAngleDeg)*math.Pi/180.0) / float64(lineWidth) * rate
		retries++
	}

	skip := horizontalPhaseSkip(m, rate, hasSync)
	return rate, skip
}

func houghAccumulate(m mode.Spec, rate float64, hasSync []bool, lineWidth int) int {
	angleSteps := (maxSlantDeg - minSlantDeg) * 2
	lines := make([][]int, lineWidth+1)
	for i := range lines {
		lines[i] = make([]int, angleSteps)
	}

	qMost := 0
	best := -1
	for cy := 0; cy < m.NumLines; cy++ {
		for cx := 0; cx < lineWidth; cx++ {
			t := (float64(cy) + float64(cx)/float64(lineWidth)) * m.LineTime
			idx := int(t * rate / slantHopSamples)
			if idx < 0 || idx >= len(hasSync) || !hasSync[idx] {
				continue
			}
			for q := minSlantDeg * 2; q < maxSlantDeg*2; q++ {
				angle := float64(q) / 2.0 * math.Pi / 180.0
				d := int(math.Round(float64(lineWidth) + (-float64(cx)*math.Sin(angle) + float64(cy)*math.Cos(angle))))
				if d <= 0 || d >= lineWidth {
					continue
				}
				aIdx := q - minSlantDeg*2
				lines[d][aIdx]++
				if lines[d][aIdx] > best {
					best = lines[d][aIdx]
					qMost = q
				}
			}
		}
	}
	return qMost
}

// horizontalPhaseSkip accumulates sync hits across all lines into a
// 700-column array, finds the 8-sample [+4,-4] convolution peak, and
// converts the resulting phase to a sample-domain skip.
func horizontalPhaseSkip(m mode.Spec, rate float64, hasSync []bool) int {
	xAcc := make([]int, xAccWidth)
	for y := 0; y < m.NumLines; y++ {
		for x := 0; x < xAccWidth; x++ {
			t := float64(y)*m.LineTime + float64(x)/float64(xAccWidth)*m.LineTime
			idx := int(t * rate / slantHopSamples)
			if idx >= 0 && idx < len(hasSync) && hasSync[idx] {
				xAcc[x]++
			}
		}
	}

	var maxConv *int
	xmax := 0
	for x := 0; x < xAccWidth-8; x++ {
		conv := sumRange(xAcc, x, x+4) - sumRange(xAcc, x+4, x+8)
		if maxConv == nil || conv > *maxConv {
			c := conv
			maxConv = &c
			xmax = x + 4
		}
	}
	if xmax > xAccWidth/2 {
		xmax -= xAccWidth / 2
	}

	s := float64(xmax)/float64(xAccWidth)*m.LineTime - m.SyncTime
	s = s - m.PixelTime*float64(m.ImgWidth)/2.0 + m.PorchTime*2.0
	return int(math.Round(s * rate))
}

func sumRange(xs []int, from, to int) int {
	total := 0
	for i := from; i < to; i++ {
		total += xs[i]
	}
	return total
}
