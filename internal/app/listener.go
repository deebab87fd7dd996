package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calder/hark/internal/audio"
	"github.com/calder/hark/internal/clip"
	"github.com/calder/hark/internal/detect"
	"github.com/calder/hark/internal/models"
	"github.com/calder/hark/internal/output"
	"github.com/calder/hark/internal/scorer"
)

// ListenerConfig holds configuration for a listening session.
type ListenerConfig struct {
	ModelName       string
	ScorerKind      string // "onnx" or "energy"
	ONNXLibrary     string
	EnergyReference float64

	AudioDevice        string
	CaptureRate        int
	CaptureFrameLength int

	Engine detect.Config

	OutputDir    string
	OutputFormat string
	OutputFile   string
	ShowScores   bool
	AutoDownload bool
}

// Listener orchestrates the detection pipeline: capture, resample, score,
// detect, persist.
type Listener struct {
	config ListenerConfig
	log    *zap.Logger
}

// NewListener creates a new Listener instance.
func NewListener(config ListenerConfig, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{config: config, log: log}
}

// Run starts the listening session and blocks until the context is
// cancelled or a fatal capture error occurs. The capture device is released
// on every exit path.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.config.Engine.Validate(); err != nil {
		return err
	}

	sc, err := l.buildScorer()
	if err != nil {
		return err
	}
	defer sc.Close()

	engine, err := detect.NewEngine(l.config.Engine, l.log)
	if err != nil {
		return err
	}

	deviceMgr := NewDeviceManager()
	selectedDevice, err := deviceMgr.SelectDevice(l.config.AudioDevice)
	if err != nil {
		return err
	}

	clipWriter := clip.NewWriter(l.config.OutputDir, l.log)

	formatter, closeFormatter, err := l.buildFormatter()
	if err != nil {
		return err
	}
	defer closeFormatter()

	statusOut := output.DefaultConsoleOutput()
	if l.config.OutputFile != "" {
		// Status goes to stderr when the event log goes to a file.
		statusOut = output.NewConsoleOutput(output.ConsoleConfig{
			ShowTimestamp: true,
			Writer:        os.Stderr,
		})
	}

	captureConfig := l.captureConfig(sc, selectedDevice)
	capturer, err := audio.NewCapturer(captureConfig)
	if err != nil {
		return fmt.Errorf("failed to create capturer: %w", err)
	}

	if err := capturer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Stop()

	statusOut.Info(fmt.Sprintf("Listening on %s (capture: %d Hz, scoring: %d Hz, frame: %d samples)",
		selectedDevice.Name, captureConfig.SampleRate, sc.SampleRate(), sc.FrameLength()))
	statusOut.Info(fmt.Sprintf("Clips will be written to %s", clipWriter.Dir()))
	statusOut.Info("Press Ctrl+C to stop.")

	// Clip persistence runs off the hot loop; failures are logged and
	// never touch engine state.
	var clips errgroup.Group
	clips.SetLimit(2)
	defer clips.Wait()

	var detectionCount int
	showScores := l.config.ShowScores && l.config.OutputFile == ""

	for {
		select {
		case <-ctx.Done():
			if showScores {
				statusOut.Clear()
			}
			formatter.Flush()
			statusOut.Info("Listening stopped")
			statusOut.Info(fmt.Sprintf("Total detections: %d", detectionCount))
			return nil

		case frame, ok := <-capturer.Frames():
			if !ok {
				return nil
			}

			resampled, err := audio.Resample(frame, sc.SampleRate())
			if err != nil {
				// Malformed frame: drop it and keep going.
				l.log.Warn("dropping frame", zap.Uint64("seq", frame.Seq), zap.Error(err))
				continue
			}

			score, err := sc.Score(resampled)
			if err != nil {
				// Transient scoring fault: skip the frame, engine state
				// unchanged.
				l.log.Warn("skipping frame", zap.Uint64("seq", frame.Seq), zap.Error(err))
				continue
			}

			if showScores {
				statusOut.Score(score)
			}

			sf := audio.ScoredFrame{Frame: resampled, Score: score, Timestamp: time.Now()}
			ev := engine.Process(sf)
			if ev == nil {
				continue
			}

			detectionCount++
			clipPath := clipWriter.PathFor(ev)
			clips.Go(func() error {
				if _, err := clipWriter.Write(ev); err != nil {
					l.log.Warn("clip write failed", zap.String("path", clipPath), zap.Error(err))
					statusOut.Error(fmt.Sprintf("Clip write failed: %v", err))
				}
				return nil
			})

			record := output.DetectionRecord{
				Index:      detectionCount,
				Score:      ev.Score,
				Timestamp:  ev.Timestamp,
				ClipPath:   clipPath,
				DurationMs: int(ev.Duration().Milliseconds()),
			}
			if err := formatter.WriteDetection(record); err != nil {
				l.log.Warn("event log write failed", zap.Error(err))
			}
			statusOut.Detection(detectionCount, ev.Score, clipPath)

		case err, ok := <-capturer.Errors():
			if !ok {
				return nil
			}
			var capErr *audio.CaptureError
			if errors.As(err, &capErr) {
				// Device gone: fatal. The deferred Stop releases what is
				// left of the device.
				formatter.Flush()
				return fmt.Errorf("capture device failed: %w", err)
			}
			l.log.Warn("capture fault", zap.Error(err))
		}
	}
}

// buildScorer constructs the configured scoring backend, resolving and
// (optionally) downloading the model for the ONNX scorer.
func (l *Listener) buildScorer() (scorer.Scorer, error) {
	engineCfg := l.config.Engine

	switch strings.ToLower(l.config.ScorerKind) {
	case "", "onnx":
		mgr := NewModelManager()
		selectedModel, err := mgr.SelectModel(l.config.ModelName)
		if err != nil {
			return nil, fmt.Errorf("failed to select model: %w", err)
		}
		selectedModel, err = mgr.EnsureModel(selectedModel, l.config.AutoDownload)
		if err != nil {
			return nil, err
		}
		modelPath, err := models.GetModelPath(selectedModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get model path: %w", err)
		}

		onnxCfg := scorer.DefaultONNXConfig(modelPath)
		onnxCfg.SampleRate = engineCfg.SampleRate
		onnxCfg.FrameLength = engineCfg.FrameLength
		onnxCfg.LibraryPath = l.config.ONNXLibrary
		return scorer.NewONNXScorer(onnxCfg, l.log)

	case "energy":
		return scorer.NewEnergyScorer(engineCfg.SampleRate, engineCfg.FrameLength, l.config.EnergyReference), nil

	default:
		return nil, fmt.Errorf("unknown scorer kind: %s (valid: onnx, energy)", l.config.ScorerKind)
	}
}

// buildFormatter sets up the detection event log.
func (l *Listener) buildFormatter() (output.Formatter, func(), error) {
	writer := os.Stdout
	cleanup := func() {}

	if l.config.OutputFile != "" {
		outFile, err := os.Create(l.config.OutputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		writer = outFile
		cleanup = func() { outFile.Close() }
	}

	var formatter output.Formatter
	switch strings.ToLower(l.config.OutputFormat) {
	case "", "console":
		// Console mode logs through ConsoleOutput only; keep a text
		// formatter when the user asked for a file.
		if l.config.OutputFile == "" {
			return noopFormatter{}, cleanup, nil
		}
		formatter = output.NewPlainTextFormatter(writer)
	case "json":
		formatter = output.NewJSONFormatter(writer)
	case "text":
		formatter = output.NewPlainTextFormatter(writer)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown output format: %s (valid: console, json, text)", l.config.OutputFormat)
	}

	closeAll := func() {
		formatter.Close()
		cleanup()
	}
	return formatter, closeAll, nil
}

// captureConfig derives the device capture parameters. When the device rate
// differs from the scoring rate, the frame length is scaled so each frame
// resamples to exactly one scorer frame.
func (l *Listener) captureConfig(sc scorer.Scorer, device *audio.DeviceInfo) audio.CaptureConfig {
	cfg := audio.DefaultCaptureConfig()
	cfg.DeviceID = device.ID

	if l.config.CaptureRate > 0 {
		cfg.SampleRate = l.config.CaptureRate
	} else {
		cfg.SampleRate = sc.SampleRate()
	}

	if l.config.CaptureFrameLength > 0 {
		cfg.FrameLength = l.config.CaptureFrameLength
	} else {
		cfg.FrameLength = sc.FrameLength()
	}
	if cfg.SampleRate != sc.SampleRate() {
		cfg.FrameLength = int(math.Round(float64(sc.FrameLength()) * float64(cfg.SampleRate) / float64(sc.SampleRate())))
		l.log.Info("capture rate differs from scoring rate, resampling",
			zap.Int("capture_rate", cfg.SampleRate),
			zap.Int("scoring_rate", sc.SampleRate()),
			zap.Int("capture_frame", cfg.FrameLength))
	}
	return cfg
}

// noopFormatter discards records; console mode reports detections through
// ConsoleOutput directly.
type noopFormatter struct{}

func (noopFormatter) WriteDetection(output.DetectionRecord) error { return nil }
func (noopFormatter) WriteEvent(string, string) error             { return nil }
func (noopFormatter) Flush() error                                { return nil }
func (noopFormatter) Close() error                                { return nil }
