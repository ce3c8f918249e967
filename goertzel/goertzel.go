// Package goertzel provides the narrowband spectral primitives shared by
// every other stage of the decoder: single-bin power via the Goertzel
// recurrence, fractional-bin peak-frequency estimation, and a narrowband
// SNR estimate. Window functions and per-length bin tables are cached by
// window length since they are read-only after construction.
package goertzel

import (
	"math"
	"sync"
)

const defaultSampleRate = 44100.0

// Bin holds the precomputed coefficients for evaluating the Goertzel
// recurrence at one target frequency and sample rate. Building a Bin
// does the trigonometry once; Power can then be called repeatedly with
// no further allocation.
type Bin struct {
	Freq       float64
	sampleRate float64
	cosW       float64
	sinW       float64
	coeff      float64
}

// NewBin builds a Bin for freq at the standard 44.1kHz sample rate.
func NewBin(freq float64) Bin {
	return NewBinRate(freq, defaultSampleRate)
}

// NewBinRate builds a Bin for freq at an arbitrary sample rate.
func NewBinRate(freq, sampleRate float64) Bin {
	w := 2.0 * math.Pi * freq / sampleRate
	cosW := math.Cos(w)
	return Bin{
		Freq:       freq,
		sampleRate: sampleRate,
		cosW:       cosW,
		sinW:       math.Sin(w),
		coeff:      2.0 * cosW,
	}
}

// Power runs the Goertzel recurrence over data and returns the spectral
// power at the Bin's target frequency. O(len(data)) time, O(1) state;
// it never allocates.
func (b Bin) Power(data []float64) float64 {
	var q0, q1, q2 float64
	for _, x := range data {
		q0 = b.coeff*q1 - q2 + x
		q2 = q1
		q1 = q0
	}
	real := q1 - q2*b.cosW
	imag := q2 * b.sinW
	return real*real + imag*imag
}

// PowerInt16 is Power specialized for raw PCM samples, avoiding a float64
// copy on the hot demodulation path.
func (b Bin) PowerInt16(data []int16) float64 {
	var q0, q1, q2 float64
	for _, x := range data {
		q0 = b.coeff*q1 - q2 + float64(x)
		q2 = q1
		q1 = q0
	}
	real := q1 - q2*b.cosW
	imag := q2 * b.sinW
	return real*real + imag*imag
}

// Hann returns the length-N Hann window, raised-cosine taper
// 0.5*(1-cos(2*pi*i/(N-1))).
func Hann(length int) []float64 {
	if length <= 1 {
		n := length
		if n < 1 {
			n = 1
		}
		w := make([]float64, n)
		for i := range w {
			w[i] = 1.0
		}
		return w
	}
	w := make([]float64, length)
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(length-1)))
	}
	return w
}

// BinSet is a cached set of Bins covering [fMin, fMax] for a given
// window length and sample rate, plus the matching Hann window.
type BinSet struct {
	Window  []float64
	Bins    []Bin
	Indices []int
	Length  int
}

// BuildBinSet constructs the Bins at every integer FFT-equivalent index
// k in [ceil(fMin*N/fs), floor(fMax*N/fs)] for a window of the given
// length, along with its Hann taper.
func BuildBinSet(length int, fMin, fMax, sampleRate float64) BinSet {
	kMin := int(math.Ceil(fMin * float64(length) / sampleRate))
	kMax := int(math.Floor(fMax * float64(length) / sampleRate))
	var bins []Bin
	var indices []int
	for k := kMin; k <= kMax; k++ {
		freq := float64(k) * sampleRate / float64(length)
		bins = append(bins, NewBinRate(freq, sampleRate))
		indices = append(indices, k)
	}
	return BinSet{
		Window:  Hann(length),
		Bins:    bins,
		Indices: indices,
		Length:  length,
	}
}

// cache is keyed by (length, fMin, fMax, sampleRate) since the decoder
// only ever needs the video-band set at 44.1kHz plus whatever the SNR
// estimator asks for; a process-wide cache keeps every repeated window
// length from rebuilding its trig tables. Guarded by a RWMutex since
// SNREstimate populates it from every luminance worker goroutine, not
// just the single-threaded warm-up pass in lum.Demodulate.
type cacheKey struct {
	length           int
	fMin, fMax, rate float64
}

var (
	binSetCacheMu sync.RWMutex
	binSetCache   = map[cacheKey]BinSet{}
)

// CachedBinSet returns (building and memoizing on first use) the BinSet
// for the given parameters. Safe for concurrent use from any number of
// goroutines.
func CachedBinSet(length int, fMin, fMax, sampleRate float64) BinSet {
	key := cacheKey{length, fMin, fMax, sampleRate}

	binSetCacheMu.RLock()
	bs, ok := binSetCache[key]
	binSetCacheMu.RUnlock()
	if ok {
		return bs
	}

	bs = BuildBinSet(length, fMin, fMax, sampleRate)

	binSetCacheMu.Lock()
	binSetCache[key] = bs
	binSetCacheMu.Unlock()
	return bs
}

// PeakFrequency applies a Hann window of length len(bins.Window) to
// window, evaluates Goertzel power at every bin in bins, and refines
// the maximum to fractional-bin precision via quadratic interpolation
// of the three bins around the peak. The result is clamped to
// [fMin, fMax]; an empty bin set yields fMin.
func PeakFrequency(window []float64, bins BinSet, fMin, fMax, sampleRate float64) float64 {
	if len(bins.Bins) == 0 {
		return fMin
	}
	weighted := make([]float64, len(window))
	for i, x := range window {
		weighted[i] = x * bins.Window[i]
	}
	powers := make([]float64, len(bins.Bins))
	maxIdx := 0
	maxVal := 0.0
	for i, b := range bins.Bins {
		val := b.Power(weighted)
		powers[i] = val
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	peakBin := float64(bins.Indices[maxIdx])
	if maxIdx > 0 && maxIdx < len(powers)-1 {
		p0, p1, p2 := powers[maxIdx-1], powers[maxIdx], powers[maxIdx+1]
		if p0 > 0.0 && p1 > 0.0 && p2 > 0.0 {
			denom := 2.0 * math.Log((p1*p1)/(p0*p2))
			if denom != 0.0 {
				peakBin = float64(bins.Indices[maxIdx]) + math.Log(p2/p0)/denom
			}
		}
	}
	freq := peakBin * sampleRate / float64(bins.Length)
	return clamp(freq, fMin, fMax)
}

// PeakFrequencyInt16 is PeakFrequency specialized for raw PCM input.
func PeakFrequencyInt16(window []int16, bins BinSet, fMin, fMax, sampleRate float64) float64 {
	if len(bins.Bins) == 0 {
		return fMin
	}
	weighted := make([]float64, len(window))
	for i, x := range window {
		weighted[i] = float64(x) * bins.Window[i]
	}
	powers := make([]float64, len(bins.Bins))
	maxIdx := 0
	maxVal := 0.0
	for i, b := range bins.Bins {
		val := b.Power(weighted)
		powers[i] = val
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	peakBin := float64(bins.Indices[maxIdx])
	if maxIdx > 0 && maxIdx < len(powers)-1 {
		p0, p1, p2 := powers[maxIdx-1], powers[maxIdx], powers[maxIdx+1]
		if p0 > 0.0 && p1 > 0.0 && p2 > 0.0 {
			denom := 2.0 * math.Log((p1*p1)/(p0*p2))
			if denom != 0.0 {
				peakBin = float64(bins.Indices[maxIdx]) + math.Log(p2/p0)/denom
			}
		}
	}
	freq := peakBin * sampleRate / float64(bins.Length)
	return clamp(freq, fMin, fMax)
}

const (
	videoFreqMin = 1500.0
	videoFreqMax = 2300.0

	snrWindowLength = 1024
	noiseLowMin     = 400.0
	noiseLowMax     = 800.0
	noiseHighMin    = 2700.0
	noiseHighMax    = 3400.0
)

// SNREstimate computes a narrowband SNR estimate, in dB, at centerIdx
// over a 1024-sample Hann window. It compares summed power in the video
// band (1500-2300Hz, shifted by freqShift) against a noise band
// (400-800 union 2700-3400Hz, same shift). Returns 0 if centerIdx is too
// close to a buffer edge to fit the window.
func SNREstimate(samples []int16, centerIdx int, freqShift, sampleRate float64) float64 {
	half := snrWindowLength / 2
	if centerIdx < half || centerIdx+half >= len(samples) {
		return 0
	}
	window := samples[centerIdx-half : centerIdx-half+snrWindowLength]

	videoSet := CachedBinSet(snrWindowLength, videoFreqMin+freqShift, videoFreqMax+freqShift, sampleRate)
	noiseLowSet := CachedBinSet(snrWindowLength, noiseLowMin+freqShift, noiseLowMax+freqShift, sampleRate)
	noiseHighSet := CachedBinSet(snrWindowLength, noiseHighMin+freqShift, noiseHighMax+freqShift, sampleRate)
	if len(videoSet.Bins) == 0 || len(noiseLowSet.Bins) == 0 || len(noiseHighSet.Bins) == 0 {
		return 0
	}

	weighted := make([]float64, snrWindowLength)
	for i, x := range window {
		weighted[i] = float64(x) * videoSet.Window[i]
	}

	var pVideo, pNoise float64
	for _, b := range videoSet.Bins {
		pVideo += b.Power(weighted)
	}
	for _, b := range noiseLowSet.Bins {
		pNoise += b.Power(weighted)
	}
	for _, b := range noiseHighSet.Bins {
		pNoise += b.Power(weighted)
	}

	nVideo := float64(len(videoSet.Bins))
	nNoise := float64(len(noiseLowSet.Bins) + len(noiseHighSet.Bins))
	pSignal := pVideo - pNoise*(nVideo/nNoise)
	pNoiseEst := pNoise * ((nVideo + nNoise) / nNoise)
	if pNoiseEst <= 0.0 {
		return 0
	}
	ratio := pSignal / pNoiseEst
	if ratio < 0.01 {
		ratio = 0.01
	}
	return 10.0 * math.Log10(ratio)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
