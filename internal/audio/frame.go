package audio

import "time"

// Frame is a fixed-length chunk of mono 16-bit audio captured in one read
// from the input device. Frames are immutable once produced: each pipeline
// stage hands its frame forward and never touches it again.
type Frame struct {
	// Samples holds the signed 16-bit PCM samples.
	Samples []int16

	// Rate is the sample rate of Samples in Hz.
	Rate int

	// Seq is a monotonically increasing sequence index assigned by the
	// capture source.
	Seq uint64
}

// Duration returns the play time of the frame.
func (f Frame) Duration() time.Duration {
	if f.Rate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.Rate)
}

// ScoredFrame pairs a frame (already at the scorer's required rate) with the
// wake-word likelihood assigned to it and the wall-clock time it was scored.
type ScoredFrame struct {
	Frame     Frame
	Score     float64
	Timestamp time.Time
}

// BytesToInt16 converts little-endian s16le PCM bytes to samples. A trailing
// odd byte is dropped.
func BytesToInt16(data []byte) []int16 {
	n := len(data) / 2
	if n == 0 {
		return nil
	}
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return samples
}

// Int16ToFloat32 normalizes samples to [-1, 1]. Divides by 32768 (not 32767)
// so the full int16 range maps strictly inside [-1, 1].
func Int16ToFloat32(samples []int16) []float32 {
	if len(samples) == 0 {
		return nil
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
