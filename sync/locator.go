// Package sync locates the per-line horizontal-sync pulses in an SSTV
// frame and the effective sample rate that compensates for
// transmitter/receiver clock drift ("slant"). Two interchangeable
// strategies are provided behind the Locator interface: a global
// Hough-like slant search over a coarse sync-presence bitmap (Strategy
// A, preferred for noisy input), and a per-sample streaming tracker with
// a least-squares line fit (Strategy B, which additionally reports
// individual sync positions and a sub-line phase offset).
package sync

import "sstvdecode/mode"

// Strategy selects which sync-locator algorithm Locate uses.
type Strategy int

const (
	// StrategyGlobalSlant is the Hough-like slant search (§4.3 Strategy A).
	StrategyGlobalSlant Strategy = iota
	// StrategyLineTracker is the streaming per-sample tracker (§4.3 Strategy B).
	StrategyLineTracker
)

// Result is the common output shape both strategies produce, so the
// orchestrator can pick either one without branching downstream.
type Result struct {
	// Rate is the effective sample rate absorbing clock drift, clamped
	// to +/-5% of the nominal rate.
	Rate float64
	// Skip is the sample offset the pixel-grid sampler adds after
	// scaling by Rate.
	Skip int
	// SyncPositions holds one sample index per detected line pulse,
	// strictly increasing. Nil for StrategyGlobalSlant, which does not
	// enumerate individual syncs.
	SyncPositions []int
	// PhaseOffset is the sub-line phase offset, in samples, recovered
	// from histogramming raw sync hits modulo the line period. Zero for
	// StrategyGlobalSlant.
	PhaseOffset int
	// Receiving reports whether at least one sync was accepted.
	Receiving bool
}

// Locator produces a Result from a sample buffer, the header's detected
// video-start index, and the header-derived frequency shift.
type Locator interface {
	Locate(samples []int16, headerEnd int, freqShift float64, m mode.Spec) Result
}

const nominalSampleRate = 44100.0

// New returns the Locator implementing strategy.
func New(strategy Strategy) Locator {
	switch strategy {
	case StrategyLineTracker:
		return &LineTrackerLocator{SampleRate: nominalSampleRate}
	default:
		return &GlobalSlantLocator{SampleRate: nominalSampleRate}
	}
}

// clampRate restricts rate to +/-5% of the nominal sample rate (I3).
func clampRate(rate float64) float64 {
	lo := nominalSampleRate * 0.95
	hi := nominalSampleRate * 1.05
	if rate < lo {
		return lo
	}
	if rate > hi {
		return hi
	}
	return rate
}
