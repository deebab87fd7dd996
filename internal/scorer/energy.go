package scorer

import (
	"math"

	"github.com/calder/hark/internal/audio"
)

// EnergyScorer maps frame RMS energy to [0,1]. It knows nothing about wake
// words; it exists as a no-model fallback for wiring the pipeline end to end
// and for calibrating thresholds against room noise.
type EnergyScorer struct {
	sampleRate  int
	frameLength int

	// reference is the RMS (of samples normalized to [-1,1]) that maps to
	// a score of 1.0. Quiet rooms sit around 0.001-0.01.
	reference float64
}

// NewEnergyScorer creates an energy scorer. A reference of 0 falls back to
// 0.2, roughly a loud close-talking voice.
func NewEnergyScorer(sampleRate, frameLength int, reference float64) *EnergyScorer {
	if reference <= 0 {
		reference = 0.2
	}
	return &EnergyScorer{
		sampleRate:  sampleRate,
		frameLength: frameLength,
		reference:   reference,
	}
}

// Score returns the frame's RMS energy scaled by the reference level,
// clamped to [0,1]. It never fails.
func (s *EnergyScorer) Score(frame audio.Frame) (float64, error) {
	return clampScore(rms(frame.Samples) / s.reference), nil
}

// SampleRate returns the configured rate.
func (s *EnergyScorer) SampleRate() int { return s.sampleRate }

// FrameLength returns the configured samples per frame.
func (s *EnergyScorer) FrameLength() int { return s.frameLength }

// Close is a no-op.
func (s *EnergyScorer) Close() error { return nil }

// rms computes root-mean-square energy over samples normalized to [-1,1].
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		v := float64(sample) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
