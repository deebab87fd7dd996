package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements Capturer on top of the malgo (miniaudio) capture
// subsystem. The platform backend (PipeWire/ALSA/JACK/CoreAudio/WASAPI) is
// malgo's concern; this type only re-chunks the callback data into
// fixed-length frames.
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	frames       chan Frame
	errors       chan error

	mu       sync.RWMutex
	running  bool
	stopping bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Callback-thread state: samples carried over until a full frame is
	// available, and the next sequence index.
	pending []int16
	nextSeq uint64
}

// NewMalgoCapturer creates a new malgo-based capturer.
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	if config.SampleRate <= 0 || config.FrameLength <= 0 {
		return nil, fmt.Errorf("invalid capture config: rate=%d frame=%d", config.SampleRate, config.FrameLength)
	}
	depth := config.FrameBufferSize
	if depth <= 0 {
		depth = 32
	}
	return &MalgoCapturer{
		config:   config,
		frames:   make(chan Frame, depth),
		errors:   make(chan error, 8),
		stopChan: make(chan struct{}),
		pending:  make([]int16, 0, config.FrameLength),
	}, nil
}

// Start begins audio capture.
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.setStopped()
		return &CaptureError{Op: "init context", Err: err}
	}
	m.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.config.FrameLength)

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, framecount uint32) {
			m.onData(pInputSamples)
		},
		Stop: func() {
			// The backend stopped the device on its own (unplugged,
			// stream suspended). That is fatal for the pipeline.
			m.mu.RLock()
			requested := m.stopping
			m.mu.RUnlock()
			if !requested {
				m.sendError(&CaptureError{Op: "device stopped unexpectedly"})
			}
		},
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.setStopped()
		return &CaptureError{Op: "init device", Err: err}
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.setStopped()
		return &CaptureError{Op: "start device", Err: err}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// onData re-chunks callback buffers into FrameLength frames and delivers
// them without blocking the audio thread.
func (m *MalgoCapturer) onData(input []byte) {
	m.pending = append(m.pending, BytesToInt16(input)...)
	for len(m.pending) >= m.config.FrameLength {
		samples := make([]int16, m.config.FrameLength)
		copy(samples, m.pending[:m.config.FrameLength])
		m.pending = m.pending[:copy(m.pending, m.pending[m.config.FrameLength:])]

		frame := Frame{
			Samples: samples,
			Rate:    m.config.SampleRate,
			Seq:     m.nextSeq,
		}
		m.nextSeq++

		select {
		case m.frames <- frame:
		default:
			m.sendError(fmt.Errorf("frame buffer overflow, dropping frame %d", frame.Seq))
		}
	}
}

func (m *MalgoCapturer) sendError(err error) {
	select {
	case m.errors <- err:
	default:
	}
}

func (m *MalgoCapturer) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Stop stops audio capture and releases the device.
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.stopping = true
	m.mu.Unlock()

	close(m.stopChan)

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			// Release what we can even when the stop call fails.
			m.device.Uninit()
			m.malgoContext.Uninit()
			m.malgoContext.Free()
			return &CaptureError{Op: "stop device", Err: err}
		}
		m.device.Uninit()
	}

	if m.malgoContext != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
	}

	m.wg.Wait()

	close(m.frames)
	close(m.errors)
	return nil
}

// Frames returns the channel of captured frames.
func (m *MalgoCapturer) Frames() <-chan Frame {
	return m.frames
}

// Errors returns the channel of capture errors.
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active.
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
