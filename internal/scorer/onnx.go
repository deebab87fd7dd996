package scorer

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/calder/hark/internal/audio"
)

// ortInitOnce ensures the ONNX Runtime environment is initialized exactly
// once per process. ortInitErr is kept so later constructors surface the
// original failure instead of running against a dead environment.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXConfig configures an ONNXScorer.
type ONNXConfig struct {
	// ModelPath is the path of the wake-word model, exported as a single
	// ONNX graph taking [1, FrameLength] float32 audio and producing a
	// [1, 1] likelihood.
	ModelPath string

	// SampleRate is the rate the model was trained at.
	SampleRate int

	// FrameLength is the number of samples per inference call.
	FrameLength int

	// LibraryPath optionally points at the ONNX Runtime shared library.
	// Empty means the onnxruntime default lookup.
	LibraryPath string

	// InputName and OutputName are the graph's tensor names.
	InputName  string
	OutputName string
}

// DefaultONNXConfig returns the configuration for 16 kHz, 1280-sample
// wake-word models.
func DefaultONNXConfig(modelPath string) ONNXConfig {
	return ONNXConfig{
		ModelPath:   modelPath,
		SampleRate:  16000,
		FrameLength: 1280,
		InputName:   "input",
		OutputName:  "output",
	}
}

// ONNXScorer runs wake-word inference via ONNX Runtime. Input and output
// tensors are allocated once and reused between calls.
type ONNXScorer struct {
	cfg     ONNXConfig
	session *ort.AdvancedSession

	inputTensor  *ort.Tensor[float32] // [1, FrameLength]
	outputTensor *ort.Tensor[float32] // [1, 1]

	log *zap.Logger
}

// NewONNXScorer loads the model and allocates its tensors.
func NewONNXScorer(cfg ONNXConfig, log *zap.Logger) (*ONNXScorer, error) {
	if cfg.SampleRate <= 0 || cfg.FrameLength <= 0 {
		return nil, fmt.Errorf("onnx scorer: invalid config: rate=%d frame=%d", cfg.SampleRate, cfg.FrameLength)
	}
	if log == nil {
		log = zap.NewNop()
	}

	ortInitOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("onnx scorer: initialize runtime: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.FrameLength)))
	if err != nil {
		return nil, fmt.Errorf("onnx scorer: create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx scorer: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil, // default session options
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("onnx scorer: create session: %w", err)
	}

	log.Debug("onnx scorer ready",
		zap.String("model", cfg.ModelPath),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("frame_length", cfg.FrameLength))

	return &ONNXScorer{
		cfg:          cfg,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		log:          log,
	}, nil
}

// Score runs one inference on the frame.
func (s *ONNXScorer) Score(frame audio.Frame) (float64, error) {
	if frame.Rate != s.cfg.SampleRate {
		return 0, &InferenceError{Err: fmt.Errorf("frame rate %d, model wants %d", frame.Rate, s.cfg.SampleRate)}
	}
	if len(frame.Samples) != s.cfg.FrameLength {
		return 0, &InferenceError{Err: fmt.Errorf("frame length %d, model wants %d", len(frame.Samples), s.cfg.FrameLength)}
	}

	in := s.inputTensor.GetData()
	for i, sample := range frame.Samples {
		in[i] = float32(sample) / 32768.0
	}

	if err := s.session.Run(); err != nil {
		return 0, &InferenceError{Err: fmt.Errorf("run session: %w", err)}
	}

	return clampScore(float64(s.outputTensor.GetData()[0])), nil
}

// SampleRate returns the model's required sample rate.
func (s *ONNXScorer) SampleRate() int { return s.cfg.SampleRate }

// FrameLength returns the model's required samples per frame.
func (s *ONNXScorer) FrameLength() int { return s.cfg.FrameLength }

// Close releases ONNX Runtime resources. Safe to call multiple times.
func (s *ONNXScorer) Close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	return nil
}
