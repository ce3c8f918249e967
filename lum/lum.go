// Package lum demodulates a raw PCM sample buffer into a luminance
// vector: one value per output sample, measuring instantaneous
// frequency mapped to an intensity. Window length adapts to the local
// SNR so that a clean signal gets the shortest window (sharpest time
// resolution) while a noisy one gets a longer window, trading time
// resolution for frequency resolution and robustness.
package lum

import (
	"runtime"
	"sync"

	"sstvdecode/goertzel"
)

const (
	freqMin = 1500.0
	freqMax = 2300.0

	demodStride = 6

	snrLow  = 48
	snrHigh = 1024

	// snrRecomputeSamples is the raw-sample cadence at which demodRange
	// refreshes its SNR estimate (and, with it, the window length); the
	// estimate is reused for every stride position in between.
	snrRecomputeSamples = 256
)

// windowTable maps a minimum SNR threshold (dB) to the window length
// used at or above it; windows are tried from strictest to loosest and
// the first whose threshold the measured SNR clears wins.
var windowTable = []struct {
	minSNR float64
	length int
}{
	{20.0, 48},
	{10.0, 64},
	{9.0, 96},
	{3.0, 128},
	{-5.0, 256},
	{-10.0, 512},
	{-999.0, 1024},
}

// Options configures Demodulate.
type Options struct {
	// SampleRate is the PCM sample rate, in Hz. Zero means 44100.
	SampleRate float64
	// FreqShift is the header-estimated carrier offset applied to every
	// probe frequency.
	FreqShift float64
	// Workers bounds how many goroutines split the output vector
	// between them. Zero or negative means runtime.GOMAXPROCS(0).
	Workers int
}

// Demodulate walks samples at a stride of 6 (matching the Scottie pixel
// dwell time's Nyquist margin), producing one intensity value in
// [0,255] per stride position. The returned vector has
// len(samples)/demodStride entries.
func Demodulate(samples []int16, opts Options) []byte {
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100.0
	}
	n := len(samples) / demodStride
	out := make([]byte, n)
	if n == 0 {
		return out
	}

	warmBinSets(sampleRate, opts.FreqShift)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		demodRange(samples, out, 0, n, sampleRate, opts.FreqShift)
		return out
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			demodRange(samples, out, start, end, sampleRate, opts.FreqShift)
		}(start, end)
	}
	wg.Wait()
	return out
}

func warmBinSets(sampleRate, freqShift float64) {
	for _, w := range windowTable {
		goertzel.CachedBinSet(w.length, freqMin+freqShift, freqMax+freqShift, sampleRate)
	}
}

func demodRange(samples []int16, out []byte, start, end int, sampleRate, freqShift float64) {
	length := snrHigh
	// Refresh points sit at fixed multiples of snrStrides from index 0, so
	// a worker starting mid-vector uses the estimate a sequential pass would.
	snrStrides := (snrRecomputeSamples + demodStride - 1) / demodStride
	for i := start; i < end; i++ {
		center := i * demodStride
		if i == start || i%snrStrides == 0 {
			anchor := (i - i%snrStrides) * demodStride
			snr := goertzel.SNREstimate(samples, anchor, freqShift, sampleRate)
			length = selectWindowLength(snr)
		}

		half := length / 2
		lo := center - half
		hi := center + half
		if lo < 0 || hi > len(samples) {
			out[i] = centerIntensity(samples, center, freqShift, sampleRate)
			continue
		}
		window := samples[lo:hi]
		bins := goertzel.CachedBinSet(length, freqMin+freqShift, freqMax+freqShift, sampleRate)
		if len(bins.Bins) == 0 {
			out[i] = centerIntensity(samples, center, freqShift, sampleRate)
			continue
		}
		freq := goertzel.PeakFrequencyInt16(window, bins, freqMin+freqShift, freqMax+freqShift, sampleRate)
		out[i] = freqToIntensity(freq - freqShift)
	}
}

// centerIntensity falls back to the smallest window when a full window
// would run off the edge of the buffer.
func centerIntensity(samples []int16, center int, freqShift, sampleRate float64) byte {
	half := snrLow / 2
	lo := center - half
	hi := center + half
	if lo < 0 {
		lo = 0
	}
	if hi > len(samples) {
		hi = len(samples)
	}
	if hi <= lo {
		return 0
	}
	window := samples[lo:hi]
	bins := goertzel.CachedBinSet(len(window), freqMin+freqShift, freqMax+freqShift, sampleRate)
	if len(bins.Bins) == 0 {
		return 0
	}
	freq := goertzel.PeakFrequencyInt16(window, bins, freqMin+freqShift, freqMax+freqShift, sampleRate)
	return freqToIntensity(freq - freqShift)
}

// selectWindowLength picks the narrowest (most time-resolved) window
// whose SNR threshold the measured value clears.
func selectWindowLength(snrDB float64) int {
	for _, w := range windowTable {
		if snrDB >= w.minSNR {
			return w.length
		}
	}
	return snrHigh
}

// freqToIntensity maps a clamped [1500,2300]Hz frequency linearly to
// [0,255].
func freqToIntensity(freq float64) byte {
	if freq < freqMin {
		freq = freqMin
	}
	if freq > freqMax {
		freq = freqMax
	}
	v := (freq - freqMin) / (freqMax - freqMin) * 255.0
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v + 0.5)
}
