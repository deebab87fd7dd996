package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleOutput handles user-facing status lines on the terminal.
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior.
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp.
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout).
	Writer io.Writer
}

// NewConsoleOutput creates a new console output handler.
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	return &ConsoleOutput{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings.
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{
		ShowTimestamp: true,
		Writer:        os.Stdout,
	})
}

// Info writes an informational message.
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		fmt.Fprintf(c.writer, "[%s] %s\n", time.Now().Format("15:04:05"), msg)
		return
	}
	fmt.Fprintf(c.writer, "%s\n", msg)
}

// Error writes an error message to stderr.
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg)
}

// Score overwrites the current line with the live wake-word score.
func (c *ConsoleOutput) Score(score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\rCurrent score: %.4f", score)
}

// Detection clears the score line and announces a confirmed detection.
func (c *ConsoleOutput) Detection(index int, score float64, clipPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%60s\r", " ")
	fmt.Fprintf(c.writer, "[%d] DETECTED! score=%.4f", index, score)
	if clipPath != "" {
		fmt.Fprintf(c.writer, " clip=%s", clipPath)
	}
	fmt.Fprintln(c.writer)
}

// Clear clears the current line.
func (c *ConsoleOutput) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%60s\r", " ")
}
