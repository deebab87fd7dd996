package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/calder/hark/internal/models"
)

// ModelManager handles wake-word model listing, download and defaults.
type ModelManager struct{}

func NewModelManager() *ModelManager {
	return &ModelManager{}
}

func (m *ModelManager) ListModels() error {
	fmt.Println("Available wake-word models:")
	fmt.Println()

	for i, model := range models.AvailableModels {
		fmt.Printf("%d. %s\n", i+1, model.Name)
		fmt.Printf("   Phrase:   %q\n", model.Phrase)
		fmt.Printf("   Size:     %s\n", model.Size)
		fmt.Printf("   Info:     %s\n", model.Description)

		downloaded, _ := models.IsModelDownloaded(model.Name)
		if downloaded {
			fmt.Printf("   Status:   ✓ Downloaded\n")
		} else {
			fmt.Printf("   Status:   Not downloaded\n")
		}
		fmt.Println()
	}

	fmt.Println("To download a model, use:")
	fmt.Println("  hark --download-model <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := models.ListDownloadedModels()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Println("No models downloaded yet.")
		fmt.Println()
		fmt.Println("Use 'hark --list-models' to see available models")
		fmt.Println("Use 'hark --download-model <name>' to download a model")
		return nil
	}

	fmt.Printf("Downloaded models (%d):\n", len(downloaded))
	fmt.Println()

	for i, modelName := range downloaded {
		fmt.Printf("%d. %s", i+1, modelName)
		if modelName == models.DefaultModelName {
			fmt.Printf(" [DEFAULT]")
		}
		fmt.Println()

		modelPath, err := models.GetModelPath(modelName)
		if err == nil {
			fmt.Printf("   Path: %s\n", modelPath)
		}
	}
	fmt.Println()
	fmt.Println("To listen with a model, run:")
	fmt.Println("  hark --model <model-name>")
	return nil
}

func (m *ModelManager) Download(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(os.Stderr, "Error: Unknown model '%s'\n", name)
		fmt.Println()
		fmt.Println("Use 'hark --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}

	if downloaded {
		fmt.Printf("Model '%s' is already downloaded.\n", name)
		modelPath, _ := models.GetModelPath(name)
		fmt.Printf("Location: %s\n", modelPath)
		return nil
	}

	fmt.Printf("Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Printf("Description: %s\n", model.Description)
	fmt.Println()

	if err := models.DownloadModel(name, printProgress); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

func (m *ModelManager) SetDefault(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(os.Stderr, "Error: Unknown model '%s'\n", name)
		fmt.Println()
		fmt.Println("Use 'hark --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := models.SetDefaultModel(name); err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}

	fmt.Printf("✓ Default model set to: %s (%q)\n", name, model.Phrase)

	downloaded, _ := models.IsModelDownloaded(name)
	if !downloaded {
		fmt.Println("Note: This model is not yet downloaded.")
		fmt.Printf("Run 'hark --download-model %s' to download it.\n", name)
	}
	return nil
}

// EnsureModel makes sure the named model is present locally, downloading it
// automatically or after a prompt.
func (m *ModelManager) EnsureModel(name string, autoDownload bool) (string, error) {
	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return "", fmt.Errorf("failed to check for model: %w", err)
	}

	if downloaded {
		return name, nil
	}

	if autoDownload {
		fmt.Printf("Model '%s' not found. Downloading automatically...\n", name)
		if err := models.DownloadModel(name, printProgress); err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		fmt.Println()
		return name, nil
	}

	fmt.Printf("Model '%s' not found.\n", name)
	fmt.Printf("Download '%s'? (y/n): ", name)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println()
		fmt.Println("You can download models using:")
		fmt.Println("  hark --list-models           # List available models")
		fmt.Println("  hark --download-model <name> # Download a specific model")
		return "", fmt.Errorf("model download declined")
	}

	if err := models.DownloadModel(name, printProgress); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	fmt.Println()

	return name, nil
}

// SelectModel resolves the model to use: the explicit name if given,
// otherwise the persisted default.
func (m *ModelManager) SelectModel(modelName string) (string, error) {
	if modelName != "" {
		return modelName, nil
	}
	return models.GetDefaultModel()
}

func printProgress(downloaded, total int64) {
	if total <= 0 {
		fmt.Printf("\rProgress: %d bytes", downloaded)
		return
	}
	percent := float64(downloaded) / float64(total) * 100
	fmt.Printf("\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}
