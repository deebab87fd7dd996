package clip

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/calder/hark/internal/detect"
)

func testEvent() *detect.Event {
	return &detect.Event{
		Timestamp:  time.Date(2026, 8, 30, 14, 32, 7, 0, time.UTC),
		Score:      0.875,
		Audio:      []int16{0, 16384, -16384, 32767, -32768},
		SampleRate: 16000,
	}
}

func TestDeterministicNaming(t *testing.T) {
	w := NewWriter("/tmp/clips", nil)
	got := w.PathFor(testEvent())
	want := filepath.Join("/tmp/clips", "detection_14-32-07_0.875.wav")
	if got != want {
		t.Fatalf("PathFor = %q, want %q", got, want)
	}
}

func TestWriteCreatesDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir, nil)

	path, err := w.Write(testEvent())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != w.PathFor(testEvent()) {
		t.Fatalf("Write path %q differs from PathFor %q", path, w.PathFor(testEvent()))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("written clip missing: %v", err)
	}
}

func TestWAVEncoding(t *testing.T) {
	ev := testEvent()
	data := encodeFloatWAV(ev.Audio, ev.SampleRate)

	if len(data) != 58+len(ev.Audio)*4 {
		t.Fatalf("encoded size = %d, want %d", len(data), 58+len(ev.Audio)*4)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if string(data[12:16]) != "fmt " {
		t.Fatal("missing fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 3 {
		t.Fatalf("audio format = %d, want 3 (IEEE float)", format)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Fatalf("channels = %d, want 1", channels)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 32 {
		t.Fatalf("bits per sample = %d, want 32", bits)
	}
	if string(data[38:42]) != "fact" {
		t.Fatal("missing fact chunk")
	}
	if n := binary.LittleEndian.Uint32(data[46:50]); n != uint32(len(ev.Audio)) {
		t.Fatalf("fact sample count = %d, want %d", n, len(ev.Audio))
	}
	if string(data[50:54]) != "data" {
		t.Fatal("missing data chunk")
	}
	if size := binary.LittleEndian.Uint32(data[54:58]); size != uint32(len(ev.Audio)*4) {
		t.Fatalf("data size = %d, want %d", size, len(ev.Audio)*4)
	}
}

func TestWAVNormalization(t *testing.T) {
	data := encodeFloatWAV([]int16{0, 16384, -32768}, 16000)

	readSample := func(i int) float32 {
		bits := binary.LittleEndian.Uint32(data[58+i*4 : 62+i*4])
		return math.Float32frombits(bits)
	}
	if v := readSample(0); v != 0 {
		t.Fatalf("sample 0 = %v, want 0", v)
	}
	if v := readSample(1); v != 0.5 {
		t.Fatalf("sample 1 = %v, want 0.5", v)
	}
	if v := readSample(2); v != -1.0 {
		t.Fatalf("sample 2 = %v, want -1.0", v)
	}
}

func TestWAVEmptyAudio(t *testing.T) {
	data := encodeFloatWAV(nil, 16000)
	if len(data) != 58 {
		t.Fatalf("empty clip size = %d, want 58 (headers only)", len(data))
	}
	if size := binary.LittleEndian.Uint32(data[54:58]); size != 0 {
		t.Fatalf("data size = %d, want 0", size)
	}
}
