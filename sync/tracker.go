package sync

import (
	"sstvdecode/goertzel"
	"sstvdecode/mode"

	"gonum.org/v1/gonum/stat"
)

const (
	streamWindowSamples = 400
	streamHopSamples    = 80

	minSyncGapMS = 420.0

	toneDetectRatio = 1.6
	toneTotalRatio  = 0.55
	scoreRatio      = 1.6

	windowPct = 0.12
	maxFit    = 24

	scoreWindowSamples = 64
	scoreHopSamples    = 13

	phaseBins    = 512
	phaseMinHits = 64
)

// streamingDetector is the per-sample candidate detector: a 400-sample
// circular buffer hopping every 80 samples (§4.3 Strategy B step 1).
type streamingDetector struct {
	tb    toneBins
	b1100 goertzel.Bin
	b1300 goertzel.Bin
	hann  []float64

	buf  []int16
	pos  int
	fill int
	hop  int
}

func newStreamingDetector(sampleRate, freqShift float64) *streamingDetector {
	return &streamingDetector{
		tb:    buildShiftedToneBins(sampleRate, freqShift),
		b1100: goertzel.NewBinRate(1100+freqShift, sampleRate),
		b1300: goertzel.NewBinRate(1300+freqShift, sampleRate),
		hann:  nil, // unwindowed, matching the reference streaming detector
		buf:   make([]int16, streamWindowSamples),
	}
}

// push feeds one sample and reports whether the just-completed hop is a
// sync candidate.
func (d *streamingDetector) push(sample int16) bool {
	d.buf[d.pos] = sample
	d.pos++
	if d.pos >= streamWindowSamples {
		d.pos = 0
	}
	if d.fill < streamWindowSamples {
		d.fill++
		return false
	}
	d.hop++
	if d.hop < streamHopSamples {
		return false
	}
	d.hop = 0

	window := make([]int16, streamWindowSamples)
	for j := 0; j < streamWindowSamples; j++ {
		idx := d.pos + j
		if idx >= streamWindowSamples {
			idx -= streamWindowSamples
		}
		window[j] = d.buf[idx]
	}
	wf := make([]float64, streamWindowSamples)
	for i, x := range window {
		wf[i] = float64(x)
	}

	pSync := d.tb.syncPower(wf)
	pVideo := d.tb.videoPower(wf)
	if pVideo < 1e-9 {
		pVideo = 1e-9
	}
	p1100 := d.b1100.Power(wf)
	p1300 := d.b1300.Power(wf)

	scoreHit := (pSync / pVideo) > scoreRatio
	maxOther := p1100
	if p1300 > maxOther {
		maxOther = p1300
	}
	total := p1100 + pSync + p1300
	return scoreHit && pSync > toneDetectRatio*maxOther && pSync > toneTotalRatio*total
}

// LineTracker accepts sync candidates by their gap from the previous
// accepted sync, fitting a line y = a*n + b by ordinary least squares once
// enough accepts have accumulated, then predicting and tightening the
// window around that fit (§4.3 Strategy B step 2). Before the fit, only
// gaps shorter than the window's lower bound are rejected; any longer
// gap is accepted. After the fit, the gap must lie inside the window.
type LineTracker struct {
	expected  float64
	windowPct float64
	maxFit    int

	count    int
	fitCount int
	xs, ys   []float64

	slope     float64
	intercept float64
	fitReady  bool

	lastSample int
	miss       int
}

// NewLineTracker builds a tracker expecting gaps of expectedSamples,
// with a window of +/-windowPct of that value (only its lower bound
// applies until the fit is ready).
func NewLineTracker(expectedSamples float64, windowPct float64) *LineTracker {
	return &LineTracker{
		expected:   expectedSamples,
		windowPct:  windowPct,
		maxFit:     maxFit,
		lastSample: -1,
	}
}

func (t *LineTracker) reset() {
	*t = LineTracker{expected: t.expected, windowPct: t.windowPct, maxFit: t.maxFit, lastSample: -1}
}

// Accept reports whether sampleIndex is accepted as the next line sync.
func (t *LineTracker) Accept(sampleIndex int) bool {
	if t.expected <= 0 {
		t.lastSample = sampleIndex
		t.count++
		return true
	}
	minWindow := t.expected * (1.0 - t.windowPct)
	maxWindow := t.expected * (1.0 + t.windowPct)

	if t.count == 0 || t.lastSample < 0 {
		t.lastSample = sampleIndex
		t.fitCount++
		t.count = 1
		return true
	}
	delta := float64(sampleIndex - t.lastSample)

	if !t.fitReady {
		if delta < minWindow {
			t.miss++
			return false
		}
	} else {
		if delta < minWindow || delta > maxWindow {
			t.miss++
			return false
		}
	}

	x := float64(t.count)
	y := float64(sampleIndex)
	if !t.fitReady {
		t.xs = append(t.xs, x)
		t.ys = append(t.ys, y)
		t.fitCount++
		if t.fitCount >= t.maxFit {
			t.intercept, t.slope = stat.LinearRegression(t.xs, t.ys, nil, false)
			minSlope := t.expected * (1.0 - t.windowPct)
			maxSlope := t.expected * (1.0 + t.windowPct)
			if t.slope < minSlope {
				t.slope = minSlope
			}
			if t.slope > maxSlope {
				t.slope = maxSlope
			}
			t.fitReady = true
		}
	} else {
		pred := t.slope*x + t.intercept
		err := y - pred
		window := t.expected * t.windowPct
		if window > 0 && (err < -window || err > window) {
			t.miss++
			if t.miss > 3 {
				t.reset()
			}
			return false
		}
		const alpha = 0.02
		t.slope = t.slope*(1.0-alpha) + delta*alpha
		t.intercept = y - t.slope*x
		t.miss = 0
	}
	t.lastSample = sampleIndex
	t.count++
	return true
}

// FitReady reports whether the tracker has accumulated its initial
// least-squares fit.
func (t *LineTracker) FitReady() bool { return t.fitReady }

// Slope returns the fitted samples-per-line slope, valid only once
// FitReady is true.
func (t *LineTracker) Slope() float64 { return t.slope }

// LineTrackerLocator implements Strategy B (§4.3): a streaming detector
// feeding a LineTracker, with an optional global regression smoothing
// pass and a sub-line phase-offset recovery.
type LineTrackerLocator struct {
	SampleRate float64
	// Smooth enables the final global linear-regression pass over
	// accepted sync positions (SMOOTH_SYNC in the reference).
	Smooth bool
}

// Locate implements Locator.
func (l *LineTrackerLocator) Locate(samples []int16, headerEnd int, freqShift float64, m mode.Spec) Result {
	rate := l.SampleRate
	if rate == 0 {
		rate = nominalSampleRate
	}
	expectedLineSamples := m.ExpectedLineSamples(rate)
	minSyncGap := int(rate * (minSyncGapMS / 1000.0))

	det := newStreamingDetector(rate, freqShift)
	tracker := NewLineTracker(float64(expectedLineSamples), windowPct)

	lastSyncIndex := -minSyncGap
	var syncPositions []int

	start := headerEnd
	if start < 0 {
		start = 0
	}
	for idx := start; idx < len(samples); idx++ {
		if !det.push(samples[idx]) {
			continue
		}
		if idx-lastSyncIndex <= minSyncGap {
			continue
		}
		lastSyncIndex = idx
		if tracker.Accept(idx) {
			syncPositions = append(syncPositions, idx)
		}
	}

	if l.Smooth && len(syncPositions) >= 2 {
		syncPositions = smoothLine(syncPositions)
	}

	lineSamples := float64(expectedLineSamples)
	if tracker.FitReady() && tracker.Slope() > 0 {
		lineSamples = tracker.Slope()
	} else if len(syncPositions) > 1 {
		lineSamples = averageDiff(syncPositions)
	}

	rateScale := float64(expectedLineSamples) / lineSamples
	effectiveRate := rate
	if lineSamples > 0 {
		effectiveRate = nominalSampleRate * rateScale
	}

	hasSyncPositions := buildHasSyncPositions(samples, rate, freqShift, headerEnd)
	baseSample := 0
	if len(syncPositions) > 0 {
		baseSample = syncPositions[0]
	} else if headerEnd > 0 {
		baseSample = headerEnd
	}
	syncSamples := int(rate*(m.SyncTime) + 0.5)
	phaseOffset := computeSyncPhaseOffset(hasSyncPositions, baseSample, int(lineSamples+0.5), syncSamples)

	return Result{
		Rate:          clampRate(effectiveRate),
		Skip:          skipFromSyncPositions(m, clampRate(effectiveRate), syncPositions),
		SyncPositions: syncPositions,
		PhaseOffset:   phaseOffset,
		Receiving:     len(syncPositions) > 0,
	}
}

// skipFromSyncPositions anchors line index 0 at the first accepted sync
// (which, per the Scottie timing law, marks the boundary between the
// Blue and Red segments of that line), so that the closed-form
// pixel-grid sampler can be driven with (rate, skip) exactly as
// StrategyGlobalSlant is.
func skipFromSyncPositions(m mode.Spec, rate float64, syncPositions []int) int {
	if len(syncPositions) == 0 {
		return 0
	}
	chanStarts := m.ChannelStarts()
	tSync := chanStarts[2] - m.SyncTime - m.PorchTime
	return syncPositions[0] - int(rate*tSync+0.5)
}

func averageDiff(xs []int) float64 {
	if len(xs) < 2 {
		return 0
	}
	total := 0
	for i := 1; i < len(xs); i++ {
		total += xs[i] - xs[i-1]
	}
	return float64(total) / float64(len(xs)-1)
}

// smoothLine replaces sync_positions with the fitted line y = a*i + b
// from an ordinary least-squares regression over the accepted indices.
func smoothLine(positions []int) []int {
	n := len(positions)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range positions {
		xs[i] = float64(i)
		ys[i] = float64(p)
	}
	b, a := stat.LinearRegression(xs, ys, nil, false)
	out := make([]int, n)
	for i := range out {
		out[i] = int(a*float64(i) + b + 0.5)
	}
	return out
}

// buildHasSyncPositions scans the buffer from headerEnd with a 64-sample
// window hopping every 13 samples, recording the sample index of every
// hop scoring above scoreRatio; it feeds the phase-offset histogram.
func buildHasSyncPositions(samples []int16, sampleRate, freqShift float64, headerEnd int) []int {
	tb := buildShiftedToneBins(sampleRate, freqShift)
	start := headerEnd
	if start < scoreWindowSamples {
		start = scoreWindowSamples
	}
	var positions []int
	for end := start; end < len(samples); end += scoreHopSamples {
		if end < scoreWindowSamples {
			continue
		}
		window := samples[end-scoreWindowSamples : end]
		wf := make([]float64, len(window))
		for i, x := range window {
			wf[i] = float64(x)
		}
		pSync := tb.syncPower(wf)
		pVideo := tb.videoPower(wf)
		score := pSync / (pVideo + 1e-9)
		if score > scoreRatio {
			positions = append(positions, end)
		}
	}
	return positions
}

// computeSyncPhaseOffset histograms raw sync hits modulo the line
// period into 512 bins and locates the same [+4,-4] convolution peak
// used for the horizontal-phase search, reporting the sync pulse's
// falling-edge offset within the line (§4.3 Strategy B step 4).
func computeSyncPhaseOffset(positions []int, baseSample, lineSamples, syncSamples int) int {
	if lineSamples <= 0 || syncSamples <= 0 {
		return 0
	}
	bins := make([]int, phaseBins)
	hits := 0
	for _, pos := range positions {
		if pos < baseSample {
			continue
		}
		phase := (pos - baseSample) % lineSamples
		binIdx := phase * phaseBins / lineSamples
		if binIdx < 0 {
			binIdx = 0
		}
		if binIdx >= phaseBins {
			binIdx = phaseBins - 1
		}
		if bins[binIdx] < 0xFFFF {
			bins[binIdx]++
		}
		hits++
	}
	if hits < phaseMinHits {
		return 0
	}

	syncBins := syncSamples * phaseBins / lineSamples
	searchBins := syncBins * 2
	if searchBins < 8 {
		searchBins = 8
	}
	if searchBins > phaseBins/2 {
		searchBins = phaseBins / 2
	}

	maxConv := 0
	maxIdx := 0
	haveMax := false
	for i := 0; i < phaseBins-7; i++ {
		if i > searchBins && i < phaseBins-searchBins {
			continue
		}
		conv := sumRange(bins, i, i+4) - sumRange(bins, i+4, i+8)
		if !haveMax || conv > maxConv {
			haveMax = true
			maxConv = conv
			maxIdx = i + 4
		}
	}
	fallBin := maxIdx
	if fallBin > phaseBins/2 {
		fallBin -= phaseBins
	}
	fallSamples := fallBin * lineSamples / phaseBins
	offset := syncSamples - fallSamples
	if offset < 0 {
		offset = 0
	}
	if offset > lineSamples {
		offset = lineSamples
	}
	return offset
}
