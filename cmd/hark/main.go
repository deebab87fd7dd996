package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calder/hark/internal/app"
	"github.com/calder/hark/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.harkrc or /etc/hark/config.yaml)")
	listModels     = flag.Bool("list-models", false, "List all available wake-word models")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	setDefault     = flag.String("set-default", "", "Set a model as the default")
	modelName      = flag.String("model", "", "Use a specific wake-word model (default: hey_jarvis)")
	scorerKind     = flag.String("scorer", "", "Scoring backend: onnx, energy (default: onnx)")
	audioDevice    = flag.String("device", "", "Audio input device name (use --list-devices to see available devices)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	captureRate    = flag.Int("capture-rate", 0, "Device capture rate in Hz; resampled to 16 kHz when different (default: 16000)")
	outputDir      = flag.String("out-dir", "", "Directory for detection clips (default: ./detections)")
	outputFormat   = flag.String("format", "", "Detection log format: console, json, text")
	outputFile     = flag.String("output", "", "Detection log file (default: stdout)")
	showScores     = flag.Bool("show-scores", true, "Show the live score readout on the console")
	autoDownload   = flag.Bool("auto-download", false, "Automatically download the model if not found (no prompt)")
	verbose        = flag.Bool("verbose", false, "Enable debug logging")
	showVersion    = flag.Bool("version", false, "Show version information")

	enterThreshold   = flag.Float64("enter", 0, "Score at which candidate collection starts (default: 0.4)")
	confirmThreshold = flag.Float64("confirm", 0, "Score counting toward confirmation (default: 0.65)")
	decayThreshold   = flag.Float64("decay", 0, "Score below which a candidate is abandoned (default: 0.2)")
	consecutive      = flag.Int("consecutive", 0, "Consecutive high-score frames required to confirm (default: 2)")
	cooldownFrames   = flag.Int("cooldown", 0, "Frames suppressed after a detection (default: 10)")
	maxSession       = flag.Int("max-session", 0, "Max candidate session length in frames (default: 10)")
	ringCapacity     = flag.Int("ring", 0, "Pre-roll ring buffer capacity in frames (default: 20)")
	frameLength      = flag.Int("frame-length", 0, "Samples per frame (default: 1280)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("hark v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	mgr := app.NewModelManager()

	if *listModels {
		if err := mgr.ListModels(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listDownloaded {
		if err := mgr.ListDownloaded(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *downloadModel != "" {
		if err := mgr.Download(*downloadModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *setDefault != "" {
		if err := mgr.SetDefault(*setDefault); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overlays set flags onto the loaded configuration; flags win
// over the config file.
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["model"] {
		cfg.Model.Default = *modelName
	}
	if flagsSet["scorer"] {
		cfg.Scorer.Kind = *scorerKind
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["capture-rate"] {
		cfg.Audio.SampleRate = *captureRate
	}
	if flagsSet["frame-length"] {
		cfg.Audio.FrameLength = *frameLength
		cfg.Detector.FrameLength = *frameLength
	}
	if flagsSet["out-dir"] {
		cfg.Output.Dir = *outputDir
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["show-scores"] {
		cfg.Output.ShowScores = *showScores
	}

	if flagsSet["enter"] {
		cfg.Detector.Enter = *enterThreshold
	}
	if flagsSet["confirm"] {
		cfg.Detector.Confirm = *confirmThreshold
	}
	if flagsSet["decay"] {
		cfg.Detector.Decay = *decayThreshold
	}
	if flagsSet["consecutive"] {
		cfg.Detector.ConsecutiveFrames = *consecutive
	}
	if flagsSet["cooldown"] {
		cfg.Detector.CooldownFrames = *cooldownFrames
	}
	if flagsSet["max-session"] {
		cfg.Detector.MaxSessionFrames = *maxSession
	}
	if flagsSet["ring"] {
		cfg.Detector.RingCapacity = *ringCapacity
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return logCfg.Build()
}

func run(cfg *config.Config) error {
	logger, err := newLogger(*verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	fmt.Printf("hark v%s — wake-word listener\n\n", Version)

	listenerConfig := app.ListenerConfig{
		ModelName:          cfg.Model.Default,
		ScorerKind:         cfg.Scorer.Kind,
		ONNXLibrary:        cfg.Scorer.ONNXLibrary,
		EnergyReference:    cfg.Scorer.EnergyReference,
		AudioDevice:        cfg.Audio.Device,
		CaptureRate:        cfg.Audio.SampleRate,
		CaptureFrameLength: cfg.Audio.FrameLength,
		Engine:             cfg.Detector,
		OutputDir:          cfg.Output.Dir,
		OutputFormat:       cfg.Output.Format,
		OutputFile:         cfg.Output.File,
		ShowScores:         cfg.Output.ShowScores,
		AutoDownload:       *autoDownload,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := app.NewListener(listenerConfig, logger)
	return listener.Run(ctx)
}
