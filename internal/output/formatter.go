package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DetectionRecord is one confirmed wake-word detection as written to the
// event log.
type DetectionRecord struct {
	Index      int       `json:"index"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
	ClipPath   string    `json:"clip_path,omitempty"`
	DurationMs int       `json:"duration_ms,omitempty"`
}

// Event represents a system event (state changes, recovered faults).
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for detection log formatters.
type Formatter interface {
	// WriteDetection writes one detection record.
	WriteDetection(rec DetectionRecord) error

	// WriteEvent writes a system event.
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written.
	Flush() error

	// Close closes the formatter and releases resources.
	Close() error
}

// JSONFormatter writes detections as a JSON stream.
type JSONFormatter struct {
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return &JSONFormatter{encoder: encoder}
}

// WriteDetection writes a detection record in JSON format.
func (j *JSONFormatter) WriteDetection(rec DetectionRecord) error {
	return j.encoder.Encode(rec)
}

// WriteEvent writes a system event.
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	return j.encoder.Encode(Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Flush ensures all buffered output is written.
func (j *JSONFormatter) Flush() error {
	// The encoder writes immediately, nothing to flush.
	return nil
}

// Close closes the formatter.
func (j *JSONFormatter) Close() error { return nil }

// PlainTextFormatter writes detections as timestamped text lines.
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter.
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer}
}

// WriteDetection writes a detection record in plain text.
func (p *PlainTextFormatter) WriteDetection(rec DetectionRecord) error {
	line := fmt.Sprintf("[%s] detection #%d score=%.3f", rec.Timestamp.Format("15:04:05"), rec.Index, rec.Score)
	if rec.ClipPath != "" {
		line += " clip=" + rec.ClipPath
	}
	_, err := fmt.Fprintln(p.writer, line)
	return err
}

// WriteEvent writes a system event.
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", time.Now().Format("15:04:05"), eventType, message)
	return err
}

// Flush ensures all buffered output is written.
func (p *PlainTextFormatter) Flush() error { return nil }

// Close closes the formatter.
func (p *PlainTextFormatter) Close() error { return nil }
