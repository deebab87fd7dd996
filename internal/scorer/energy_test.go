package scorer

import (
	"math"
	"testing"

	"github.com/calder/hark/internal/audio"
)

func TestEnergyScorerSilence(t *testing.T) {
	s := NewEnergyScorer(16000, 1280, 0.2)
	score, err := s.Score(audio.Frame{Samples: make([]int16, 1280), Rate: 16000})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Fatalf("silence score = %v, want 0", score)
	}
}

func TestEnergyScorerFullScaleClamps(t *testing.T) {
	samples := make([]int16, 1280)
	for i := range samples {
		samples[i] = 32767
	}
	s := NewEnergyScorer(16000, 1280, 0.2)
	score, err := s.Score(audio.Frame{Samples: samples, Rate: 16000})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 1 {
		t.Fatalf("full-scale score = %v, want 1 (clamped)", score)
	}
}

func TestEnergyScorerProportional(t *testing.T) {
	// A square wave at amplitude a has RMS a/32768; with reference r the
	// score is a/(32768*r).
	samples := make([]int16, 1280)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 3277
		} else {
			samples[i] = -3277
		}
	}
	s := NewEnergyScorer(16000, 1280, 0.5)
	score, err := s.Score(audio.Frame{Samples: samples, Rate: 16000})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := (3277.0 / 32768.0) / 0.5
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", score, want)
	}
}

func TestEnergyScorerDefaults(t *testing.T) {
	s := NewEnergyScorer(16000, 1280, 0)
	if s.reference != 0.2 {
		t.Fatalf("reference = %v, want fallback 0.2", s.reference)
	}
	if s.SampleRate() != 16000 || s.FrameLength() != 1280 {
		t.Fatalf("unexpected rate/frame: %d/%d", s.SampleRate(), s.FrameLength())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEmptyFrameScoresZero(t *testing.T) {
	s := NewEnergyScorer(16000, 1280, 0.2)
	score, err := s.Score(audio.Frame{Rate: 16000})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 0 {
		t.Fatalf("empty frame score = %v, want 0", score)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := clampScore(tt.in); got != tt.want {
			t.Fatalf("clampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
