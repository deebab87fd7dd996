// Package clip persists detection audio as WAV files.
package clip

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/calder/hark/internal/detect"
)

// Writer writes one WAV clip per detection event into a directory, creating
// the directory on demand. Write failures never affect the detection
// pipeline; the caller logs them and moves on.
type Writer struct {
	dir string
	log *zap.Logger
}

// NewWriter creates a clip writer targeting dir.
func NewWriter(dir string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: dir, log: log}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// PathFor returns the path a given event's clip is written to. Names are
// deterministic in the event's timestamp and score:
// detection_<HH-MM-SS>_<score>.wav.
func (w *Writer) PathFor(ev *detect.Event) string {
	name := fmt.Sprintf("detection_%s_%.3f.wav", ev.Timestamp.Format("15-04-05"), ev.Score)
	return filepath.Join(w.dir, name)
}

// Write persists the event's audio as 32-bit float WAV, normalized to
// [-1,1], and returns the written path.
func (w *Writer) Write(ev *detect.Event) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("clip: create output directory: %w", err)
	}

	path := w.PathFor(ev)

	data := encodeFloatWAV(ev.Audio, ev.SampleRate)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("clip: write %s: %w", filepath.Base(path), err)
	}

	w.log.Debug("clip written",
		zap.String("path", path),
		zap.Int("samples", len(ev.Audio)),
		zap.Duration("audio", ev.Duration()))
	return path, nil
}

// encodeFloatWAV wraps int16 samples, normalized by 1/32768 to [-1,1], in a
// RIFF/WAV container using IEEE float (format 3) 32-bit samples. Non-PCM
// WAV carries an 18-byte fmt chunk and a fact chunk.
func encodeFloatWAV(samples []int16, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 32
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(samples) * 4

	// 12 RIFF/WAVE + 26 fmt + 12 fact + 8 data header.
	buf := make([]byte, 58+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(50+dataSize)) // file size - 8
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 18)                 // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 3)                  // IEEE float
	binary.LittleEndian.PutUint16(buf[22:24], channels)           // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)      // bits per sample
	binary.LittleEndian.PutUint16(buf[36:38], 0)                  // extension size

	copy(buf[38:42], "fact")
	binary.LittleEndian.PutUint32(buf[42:46], 4)
	binary.LittleEndian.PutUint32(buf[46:50], uint32(len(samples)))

	copy(buf[50:54], "data")
	binary.LittleEndian.PutUint32(buf[54:58], uint32(dataSize))
	for i, s := range samples {
		v := float32(s) / 32768.0
		binary.LittleEndian.PutUint32(buf[58+i*4:62+i*4], math.Float32bits(v))
	}

	return buf
}
