// Package decoder orchestrates header detection, sync location,
// luminance demodulation, pixel-grid sampling, and post-filtering into
// a single Decode call over a raw PCM buffer.
package decoder

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"sstvdecode/goertzel"
	"sstvdecode/header"
	"sstvdecode/lum"
	"sstvdecode/mode"
	"sstvdecode/pixelgrid"
	"sstvdecode/raster"
	"sstvdecode/sync"
)

// Strategy selects which sync.Locator strategy Decode drives.
type Strategy = sync.Strategy

const (
	StrategyGlobalSlant = sync.StrategyGlobalSlant
	StrategyLineTracker = sync.StrategyLineTracker
)

const defaultSampleRate = 44100.0

// Options configures a Decoder.
type Options struct {
	// Strategy picks the sync locator. Zero value is StrategyGlobalSlant.
	Strategy Strategy
	// HeaderTimeout bounds how much of the buffer is scanned for the
	// header before giving up. Zero means 5 seconds of samples.
	HeaderTimeout time.Duration
	// Workers bounds the luminance pass's worker pool. Zero or
	// negative means sequential (1 worker).
	Workers int
	// Logger receives structured diagnostics. Nil disables logging.
	Logger *log.Logger
}

// Decoder holds the fixed behavior (strategy, worker count, logger) a
// caller wants applied across many Decode calls.
type Decoder struct {
	opts Options
	loc  sync.Locator
}

// New validates opts and builds a Decoder.
func New(opts Options) (*Decoder, error) {
	switch opts.Strategy {
	case sync.StrategyGlobalSlant, sync.StrategyLineTracker:
	default:
		return nil, fmt.Errorf("decoder: unregistered strategy %d", opts.Strategy)
	}
	if opts.HeaderTimeout == 0 {
		opts.HeaderTimeout = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Decoder{
		opts: opts,
		loc:  sync.New(opts.Strategy),
	}, nil
}

// Result is the outcome of one Decode call.
type Result struct {
	// Canvas is the final 288x192 panel with the decoded frame pasted
	// into its centered image region.
	Canvas *raster.Canvas
	// Receiving reports whether a header and at least one sync line
	// were found; a false Result still has a valid, if blank, Canvas.
	Receiving bool
	// SyncPositions holds one sample index per accepted line sync.
	// Populated only for StrategyLineTracker; nil otherwise.
	SyncPositions []int
	// EffectiveRate is the sample rate, compensating for clock drift,
	// the pixel grid was sampled at.
	EffectiveRate float64
	// Skip is the sample offset applied after scaling by EffectiveRate.
	Skip int
}

// Decode runs the full pipeline over a mono 16-bit PCM buffer sampled
// at 44.1kHz: header detection, sync/slant location, luminance
// demodulation, pixel-grid sampling, and post-filtering.
func (d *Decoder) Decode(samples []int16) (Result, error) {
	logger := d.opts.Logger

	det := header.New()
	headerTimeoutSamples := int(d.opts.HeaderTimeout.Seconds() * defaultSampleRate)
	headerEnd, found := scanHeader(det, samples, headerTimeoutSamples)
	if logger != nil {
		logger.Info("header scan complete", "found", found, "headerEnd", headerEnd)
	}
	if !found {
		return Result{Canvas: raster.New(), Receiving: false}, nil
	}

	freqShift := estimateFreqShift(samples)

	m := mode.Scottie1
	syncResult := d.loc.Locate(samples, headerEnd, freqShift, m)
	if logger != nil {
		logger.Info("sync located",
			"strategy", d.opts.Strategy,
			"rate", syncResult.Rate,
			"skip", syncResult.Skip,
			"syncCount", len(syncResult.SyncPositions),
			"receiving", syncResult.Receiving,
		)
	}
	if !syncResult.Receiving {
		return Result{
			Canvas:        raster.New(),
			Receiving:     false,
			SyncPositions: syncResult.SyncPositions,
			EffectiveRate: syncResult.Rate,
			Skip:          syncResult.Skip,
		}, nil
	}

	luminance := lum.Demodulate(samples, lum.Options{
		SampleRate: defaultSampleRate,
		FreqShift:  freqShift,
		Workers:    d.opts.Workers,
	})

	frame := pixelgrid.Sample(luminance, syncResult.Rate/float64(demodStride), syncResult.Skip/demodStride, m)
	canvas := frame.Render()
	canvas.SmoothImageRegion()

	if logger != nil {
		logger.Info("frame complete", "lines", m.NumLines)
	}

	return Result{
		Canvas:        canvas,
		Receiving:     true,
		SyncPositions: syncResult.SyncPositions,
		EffectiveRate: syncResult.Rate,
		Skip:          syncResult.Skip,
	}, nil
}

// demodStride must match lum's internal stride: the luminance vector
// has one entry per demodStride input samples, so (rate, skip) need
// rescaling into that vector's index space before pixelgrid.Sample
// uses them as if it addressed raw samples directly.
const demodStride = 6

// scanHeader drives the header.Detector sample by sample up to
// timeoutSamples (or the end of the buffer, whichever comes first).
func scanHeader(det *header.Detector, samples []int16, timeoutSamples int) (int, bool) {
	limit := len(samples)
	if timeoutSamples > 0 && timeoutSamples < limit {
		limit = timeoutSamples
	}
	for i := 0; i < limit; i++ {
		if end, ok := det.Push(samples[i], i); ok {
			return end, true
		}
	}
	return 0, false
}

// freqMin and freqMax bound the video-tone band the leader-tone probe
// scans over, matching the pixel-grid video band exactly.
const (
	freqMin = 1500.0
	freqMax = 2300.0
)

// estimateFreqShift recovers the transmitter's carrier offset from
// nominal by scanning roughly the first two seconds of the buffer with
// a 1024-sample, 256-sample-hop Goertzel probe across the full video
// band and averaging the first 20 peaks that land within [1700,2100]Hz,
// the expected range of the 1900Hz leader tone. At least 5 accepted peaks
// are required or the shift is reported as zero; the [1700,2100]Hz
// acceptance band bounds the result to +/-200Hz of nominal.
func estimateFreqShift(samples []int16) float64 {
	const (
		leaderNominal = 1900.0
		acceptLow     = 1700.0
		acceptHigh    = 2100.0
		windowLen     = 1024
		hop           = 256
		minPeaks      = 5
		maxPeaks      = 20
		scanSeconds   = 2.0
	)

	maxSamples := int(defaultSampleRate * scanSeconds)
	if maxSamples > len(samples) {
		maxSamples = len(samples)
	}

	bins := goertzel.CachedBinSet(windowLen, freqMin, freqMax, defaultSampleRate)
	if len(bins.Bins) == 0 {
		return 0
	}

	var sum float64
	count := 0
	for start := 0; start+windowLen <= maxSamples; start += hop {
		window := samples[start : start+windowLen]
		peak := goertzel.PeakFrequencyInt16(window, bins, freqMin, freqMax, defaultSampleRate)
		if peak < acceptLow || peak > acceptHigh {
			continue
		}
		sum += peak
		count++
		if count >= maxPeaks {
			break
		}
	}
	if count < minPeaks {
		return 0
	}
	return sum/float64(count) - leaderNominal
}
