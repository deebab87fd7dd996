package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRate is returned when a frame or target rate is not a positive
// sample rate.
var ErrInvalidRate = errors.New("audio: invalid sample rate")

// Resample converts a frame to targetRate by linear interpolation.
//
// When the frame is already at targetRate the input is returned unchanged,
// without copying. Otherwise the i-th output sample is interpolated between
// the two nearest input samples at position i*in.Rate/targetRate, and the
// output length is round(len(in)*targetRate/in.Rate). A zero-length input
// yields a zero-length output.
//
// This is not a bandlimited resampler. The distortion it introduces is
// acceptable for wake-word scoring, which tolerates minor waveform error.
func Resample(f Frame, targetRate int) (Frame, error) {
	if f.Rate <= 0 {
		return Frame{}, fmt.Errorf("resample frame %d: source rate %d: %w", f.Seq, f.Rate, ErrInvalidRate)
	}
	if targetRate <= 0 {
		return Frame{}, fmt.Errorf("resample frame %d: target rate %d: %w", f.Seq, targetRate, ErrInvalidRate)
	}
	if f.Rate == targetRate {
		return f, nil
	}

	n := len(f.Samples)
	outLen := int(math.Round(float64(n) * float64(targetRate) / float64(f.Rate)))
	out := Frame{
		Samples: make([]int16, outLen),
		Rate:    targetRate,
		Seq:     f.Seq,
	}
	if n == 0 || outLen == 0 {
		return out, nil
	}

	step := float64(f.Rate) / float64(targetRate)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= n-1 {
			out.Samples[i] = f.Samples[n-1]
			continue
		}
		frac := pos - float64(i0)
		s0 := float64(f.Samples[i0])
		s1 := float64(f.Samples[i0+1])
		out.Samples[i] = int16(math.Round(s0 + (s1-s0)*frac))
	}
	return out, nil
}
