// Package scorer defines the wake-word scoring contract and its
// implementations. A scorer is an opaque function from one audio frame to a
// likelihood in [0,1]; how the score is computed is its own business.
package scorer

import (
	"fmt"

	"github.com/calder/hark/internal/audio"
)

// InferenceError reports a transient scoring failure. The pipeline recovers
// by skipping the frame; engine state is unchanged for that iteration.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Scorer assigns a wake-word likelihood to a frame.
type Scorer interface {
	// Score returns a value in [0,1] for a frame at SampleRate. Failures
	// are reported as *InferenceError.
	Score(frame audio.Frame) (float64, error)

	// SampleRate is the rate, in Hz, frames must be resampled to before
	// scoring.
	SampleRate() int

	// FrameLength is the number of samples per frame the scorer expects.
	FrameLength() int

	// Close releases scorer resources. Safe to call multiple times.
	Close() error
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
