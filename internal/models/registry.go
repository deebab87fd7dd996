// Package models manages the local cache of wake-word ONNX models.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Asset is one downloadable file belonging to a model.
type Asset struct {
	Name string // filename inside the model directory
	URL  string
}

// Model represents a downloadable wake-word model.
type Model struct {
	Name        string
	Phrase      string // the wake phrase the model listens for
	Size        string
	Description string
	Assets      []Asset
}

// AvailableModels lists the known openWakeWord exports. The first asset of
// each model is the inference graph.
var AvailableModels = []Model{
	{
		Name:        "hey_jarvis",
		Phrase:      "hey jarvis",
		Size:        "1.4M",
		Description: "openWakeWord 'hey jarvis' model, 16kHz",
		Assets: []Asset{
			{Name: "hey_jarvis.onnx", URL: "https://github.com/dscripka/openWakeWord/releases/download/v0.5.1/hey_jarvis_v0.1.onnx"},
		},
	},
	{
		Name:        "alexa",
		Phrase:      "alexa",
		Size:        "1.4M",
		Description: "openWakeWord 'alexa' model, 16kHz",
		Assets: []Asset{
			{Name: "alexa.onnx", URL: "https://github.com/dscripka/openWakeWord/releases/download/v0.5.1/alexa_v0.1.onnx"},
		},
	},
	{
		Name:        "hey_mycroft",
		Phrase:      "hey mycroft",
		Size:        "1.4M",
		Description: "openWakeWord 'hey mycroft' model, 16kHz",
		Assets: []Asset{
			{Name: "hey_mycroft.onnx", URL: "https://github.com/dscripka/openWakeWord/releases/download/v0.5.1/hey_mycroft_v0.1.onnx"},
		},
	},
}

// DefaultModelName is the model used when none is configured.
const DefaultModelName = "hey_jarvis"

// FindModel returns the registry entry for name, or nil.
func FindModel(name string) *Model {
	for i := range AvailableModels {
		if AvailableModels[i].Name == name {
			return &AvailableModels[i]
		}
	}
	return nil
}

// GetModelsDir returns the directory where models are cached.
func GetModelsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "models"), nil
}

// GetDefaultModel returns the persisted default model name, falling back to
// DefaultModelName.
func GetDefaultModel() (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return DefaultModelName, err
	}

	data, err := os.ReadFile(filepath.Join(modelsDir, ".default_model"))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultModelName, nil
	}
	return name, nil
}

// SetDefaultModel persists the default model name.
func SetDefaultModel(name string) error {
	if FindModel(name) == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(modelsDir, ".default_model"), []byte(name), 0644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// IsModelDownloaded reports whether every asset of a model is present.
func IsModelDownloaded(name string) (bool, error) {
	model := FindModel(name)
	if model == nil {
		return false, fmt.Errorf("unknown model: %s", name)
	}
	modelsDir, err := GetModelsDir()
	if err != nil {
		return false, err
	}
	for _, asset := range model.Assets {
		if _, err := os.Stat(filepath.Join(modelsDir, name, asset.Name)); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// GetModelPath returns the path of the model's inference graph.
func GetModelPath(name string) (string, error) {
	model := FindModel(name)
	if model == nil {
		return "", fmt.Errorf("unknown model: %s", name)
	}
	modelsDir, err := GetModelsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(modelsDir, name, model.Assets[0].Name), nil
}

// ListDownloadedModels returns the names of fully downloaded models.
func ListDownloadedModels() ([]string, error) {
	var downloaded []string
	for _, model := range AvailableModels {
		ok, err := IsModelDownloaded(model.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			downloaded = append(downloaded, model.Name)
		}
	}
	return downloaded, nil
}

// ProgressFunc receives cumulative downloaded and total byte counts across
// all assets of one model. Total is 0 until sizes are known.
type ProgressFunc func(downloaded, total int64)

// DownloadModel fetches all assets of a model concurrently into the models
// directory. Each asset streams into a temporary file first and is renamed
// only after it downloaded fully.
func DownloadModel(name string, progress ProgressFunc) error {
	model := FindModel(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}
	modelDir := filepath.Join(modelsDir, name)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	var done, total atomic.Int64
	var g errgroup.Group
	g.SetLimit(4)

	for _, asset := range model.Assets {
		asset := asset
		g.Go(func() error {
			return downloadAsset(asset, modelDir, &done, &total, progress)
		})
	}
	return g.Wait()
}

func downloadAsset(asset Asset, dir string, done, total *atomic.Int64, progress ProgressFunc) error {
	resp, err := http.Get(asset.URL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: HTTP %d", asset.Name, resp.StatusCode)
	}
	if resp.ContentLength > 0 {
		total.Add(resp.ContentLength)
	}

	tmp, err := os.CreateTemp(dir, asset.Name+".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				tmp.Close()
				return fmt.Errorf("failed to write %s: %w", asset.Name, writeErr)
			}
			if progress != nil {
				progress(done.Add(int64(n)), total.Load())
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return fmt.Errorf("failed to read %s: %w", asset.Name, readErr)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, asset.Name)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", asset.Name, err)
	}
	return nil
}
