package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/calder/hark/internal/detect"
)

// Config represents the application configuration
type Config struct {
	// Model settings
	Model struct {
		Default string `yaml:"default"`
	} `yaml:"model"`

	// Scorer settings
	Scorer struct {
		// Kind selects the scoring backend: "onnx" or "energy".
		Kind string `yaml:"kind"`

		// ONNXLibrary optionally points at the ONNX Runtime shared
		// library.
		ONNXLibrary string `yaml:"onnx_library"`

		// EnergyReference is the RMS level the energy scorer maps to 1.0.
		EnergyReference float64 `yaml:"energy_reference"`
	} `yaml:"scorer"`

	// Detector holds the hysteresis state machine parameters.
	Detector detect.Config `yaml:"detector"`

	// Audio settings
	Audio struct {
		Device      string `yaml:"device"`
		SampleRate  int    `yaml:"sample_rate"`
		FrameLength int    `yaml:"frame_length"`
	} `yaml:"audio"`

	// Output settings
	Output struct {
		Dir        string `yaml:"dir"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		ShowScores bool   `yaml:"show_scores"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.Default = ""

	cfg.Scorer.Kind = "onnx"
	cfg.Scorer.EnergyReference = 0.2

	cfg.Detector = detect.DefaultConfig()

	// Capture at the detector rate by default; devices pinned to another
	// native rate can override and the pipeline resamples.
	cfg.Audio.Device = ""
	cfg.Audio.SampleRate = cfg.Detector.SampleRate
	cfg.Audio.FrameLength = cfg.Detector.FrameLength

	cfg.Output.Dir = "detections"
	cfg.Output.Format = "console"
	cfg.Output.File = ""
	cfg.Output.ShowScores = true

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.harkrc > /etc/hark/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".harkrc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/hark/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
