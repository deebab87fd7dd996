package audio

import (
	"context"
	"fmt"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the device sample rate in Hz. The pipeline resamples to
	// the scorer's required rate, so this may differ from 16000 on devices
	// that only expose their native rate.
	SampleRate int

	// FrameLength is the number of samples per captured frame.
	FrameLength int

	// FrameBufferSize is the depth of the frame channel. Larger values
	// tolerate slower scoring at the cost of memory.
	FrameBufferSize int

	// DeviceID selects the capture device; empty means the system default.
	DeviceID string
}

// DefaultCaptureConfig returns a configuration matching the wake-word
// scorer's preferred input: 16 kHz mono, 1280-sample (80 ms) frames.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:      16000,
		FrameLength:     1280,
		FrameBufferSize: 32,
		DeviceID:        "",
	}
}

// CaptureError reports that the capture device failed or became unavailable.
// It is fatal: the pipeline terminates after releasing the device.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture: %s", e.Op)
	}
	return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Capturer produces a sequential stream of fixed-length frames from an audio
// device. Frames carry monotonically increasing sequence indices.
type Capturer interface {
	// Start begins capture. The device is released when Stop is called or
	// the context is cancelled.
	Start(ctx context.Context) error

	// Stop stops capture and releases the device. Idempotent.
	Stop() error

	// Frames returns the channel of captured frames.
	Frames() <-chan Frame

	// Errors returns the channel of capture faults. Errors of type
	// *CaptureError are fatal; anything else (e.g. frame drops under
	// backpressure) is informational.
	Errors() <-chan error

	// IsRunning reports whether capture is active.
	IsRunning() bool
}

// NewCapturer creates a capturer for the given configuration.
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
