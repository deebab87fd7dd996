package detect

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/calder/hark/internal/audio"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameLength = 4
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// feed runs a score sequence through the engine and returns the emitted
// events with the (zero-based) index of the frame that triggered each.
func feed(e *Engine, scores []float64) (events []*Event, at []int) {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i, score := range scores {
		sf := audio.ScoredFrame{
			Frame: audio.Frame{
				Samples: []int16{int16(i), int16(i), int16(i), int16(i)},
				Rate:    16000,
				Seq:     uint64(i),
			},
			Score:     score,
			Timestamp: base.Add(time.Duration(i) * 80 * time.Millisecond),
		}
		if ev := e.Process(sf); ev != nil {
			events = append(events, ev)
			at = append(at, i)
		}
	}
	return events, at
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"enter above confirm", func(c *Config) { c.Enter = 0.7 }, true},
		{"decay above enter", func(c *Config) { c.Decay = 0.5 }, true},
		{"confirm above one", func(c *Config) { c.Confirm = 1.5 }, true},
		{"zero consecutive", func(c *Config) { c.ConsecutiveFrames = 0 }, true},
		{"negative cooldown", func(c *Config) { c.CooldownFrames = -1 }, true},
		{"zero ring", func(c *Config) { c.RingCapacity = 0 }, true},
		{"zero cooldown ok", func(c *Config) { c.CooldownFrames = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHysteresisInvariant(t *testing.T) {
	// Scores strictly below enter never leave idle and never emit.
	e := newTestEngine(t, testConfig())

	scores := []float64{0.0, 0.1, 0.39, 0.2, 0.35, 0.3, 0.39, 0.1, 0.0, 0.38}
	events, _ := feed(e, scores)

	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if e.State() != StateIdle {
		t.Fatalf("expected state idle, got %s", e.State())
	}
}

func TestDebounceInvariant(t *testing.T) {
	// A single confirm-level frame surrounded by low scores never triggers.
	e := newTestEngine(t, testConfig())

	events, _ := feed(e, []float64{0.1, 0.7, 0.3, 0.3, 0.1, 0.1})
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestScenarioA(t *testing.T) {
	// [0.1 0.1 0.5 0.7 0.7 0.1 0.1] → one event, at the second 0.7.
	e := newTestEngine(t, testConfig())

	events, at := feed(e, []float64{0.1, 0.1, 0.5, 0.7, 0.7, 0.1, 0.1})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if at[0] != 4 {
		t.Fatalf("expected trigger at frame 4, got %d", at[0])
	}
	if events[0].Score != 0.7 {
		t.Fatalf("event score = %v, want 0.7", events[0].Score)
	}
	// Session audio: frames 2, 3, 4 at 4 samples each.
	if len(events[0].Audio) != 12 {
		t.Fatalf("event audio length = %d, want 12", len(events[0].Audio))
	}
	if events[0].SampleRate != 16000 {
		t.Fatalf("event sample rate = %d, want 16000", events[0].SampleRate)
	}
}

func TestScenarioB(t *testing.T) {
	// [0.5 0.7 0.1 0.7 0.7]: the 0.1 decays the first session; the next
	// 0.7 starts a new one which confirms on the final frame.
	e := newTestEngine(t, testConfig())

	events, at := feed(e, []float64{0.5, 0.7, 0.1, 0.7, 0.7})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if at[0] != 4 {
		t.Fatalf("expected trigger at frame 4, got %d", at[0])
	}
	// Session audio: frames 3 and 4 only.
	if len(events[0].Audio) != 8 {
		t.Fatalf("event audio length = %d, want 8", len(events[0].Audio))
	}
}

func TestScenarioCCooldownSuppression(t *testing.T) {
	// Two qualifying bursts closer than cooldown: only the first emits.
	cfg := testConfig()
	e := newTestEngine(t, cfg)

	scores := []float64{0.5, 0.7, 0.7} // burst 1: event at frame 2
	scores = append(scores, 0.7, 0.7, 0.7, 0.7)
	scores = append(scores, 0.1, 0.1, 0.1)
	events, at := feed(e, scores)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if at[0] != 2 {
		t.Fatalf("expected trigger at frame 2, got %d", at[0])
	}
	if e.State() != StateCooldown {
		t.Fatalf("expected state cooldown, got %s", e.State())
	}
}

func TestCooldownInvariant(t *testing.T) {
	// After an event, no second event until CooldownFrames further frames
	// have been processed, regardless of score.
	cfg := testConfig()
	e := newTestEngine(t, cfg)

	if events, _ := feed(e, []float64{0.7, 0.7}); len(events) != 1 {
		t.Fatalf("expected priming event, got %d", len(events))
	}

	// CooldownFrames high-score frames must all be ignored.
	for i := 0; i < cfg.CooldownFrames; i++ {
		ev := e.Process(audio.ScoredFrame{
			Frame: audio.Frame{Samples: []int16{1, 2, 3, 4}, Rate: 16000},
			Score: 0.99,
		})
		if ev != nil {
			t.Fatalf("event emitted during cooldown at frame %d", i)
		}
	}
	if e.State() != StateIdle {
		t.Fatalf("expected idle after cooldown, got %s", e.State())
	}

	// The engine is re-armed now.
	events, _ := feed(e, []float64{0.9, 0.9})
	if len(events) != 1 {
		t.Fatalf("expected event after cooldown elapsed, got %d", len(events))
	}
}

func TestImmediateConfirmationSingleFrame(t *testing.T) {
	// With consecutive=1 a single confirm-level frame both enters and
	// confirms.
	cfg := testConfig()
	cfg.ConsecutiveFrames = 1
	e := newTestEngine(t, cfg)

	events, at := feed(e, []float64{0.1, 0.9})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if at[0] != 1 {
		t.Fatalf("expected trigger at frame 1, got %d", at[0])
	}
	if len(events[0].Audio) != 4 {
		t.Fatalf("event audio length = %d, want 4 (one frame)", len(events[0].Audio))
	}
}

func TestMidSessionResetRequiresFreshRun(t *testing.T) {
	// A mid-band score resets the consecutive counter without discarding
	// the session.
	e := newTestEngine(t, testConfig())

	events, at := feed(e, []float64{0.5, 0.7, 0.5, 0.7, 0.7})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if at[0] != 4 {
		t.Fatalf("expected trigger at frame 4, got %d", at[0])
	}
	// All five frames belong to the session.
	if len(events[0].Audio) != 20 {
		t.Fatalf("event audio length = %d, want 20", len(events[0].Audio))
	}
}

func TestSessionCapDiscard(t *testing.T) {
	// A session that reaches MaxSessionFrames without confirming is
	// discarded and the engine returns to idle.
	cfg := testConfig()
	cfg.MaxSessionFrames = 3
	e := newTestEngine(t, cfg)

	events, _ := feed(e, []float64{0.5, 0.5, 0.5})
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if e.State() != StateIdle {
		t.Fatalf("expected idle after session cap, got %s", e.State())
	}
}

func TestZeroCooldownReArmsImmediately(t *testing.T) {
	cfg := testConfig()
	cfg.CooldownFrames = 0
	e := newTestEngine(t, cfg)

	events, _ := feed(e, []float64{0.7, 0.7, 0.7, 0.7})
	if len(events) != 2 {
		t.Fatalf("expected 2 events with zero cooldown, got %d", len(events))
	}
}

func TestRingBufferBound(t *testing.T) {
	cfg := testConfig()
	cfg.RingCapacity = 5
	e := newTestEngine(t, cfg)

	scores := make([]float64, 50)
	for i := range scores {
		scores[i] = 0.1
	}
	feed(e, scores)

	pre := e.PreRoll()
	if len(pre) != 5 {
		t.Fatalf("pre-roll length = %d, want 5", len(pre))
	}
	// FIFO: the retained frames are the newest five, oldest first.
	for i, f := range pre {
		if want := uint64(45 + i); f.Seq != want {
			t.Fatalf("pre-roll[%d].Seq = %d, want %d", i, f.Seq, want)
		}
	}
}

func TestDeterminism(t *testing.T) {
	// Two independent engines fed the same sequence agree on state and
	// emitted events.
	scores := []float64{0.1, 0.5, 0.7, 0.3, 0.7, 0.7, 0.9, 0.1, 0.45, 0.66, 0.66, 0.0}

	e1 := newTestEngine(t, testConfig())
	e2 := newTestEngine(t, testConfig())

	ev1, at1 := feed(e1, scores)
	ev2, at2 := feed(e2, scores)

	if len(ev1) != len(ev2) {
		t.Fatalf("event counts differ: %d vs %d", len(ev1), len(ev2))
	}
	for i := range ev1 {
		if at1[i] != at2[i] {
			t.Fatalf("trigger index %d differs: %d vs %d", i, at1[i], at2[i])
		}
		if ev1[i].Score != ev2[i].Score {
			t.Fatalf("event %d score differs: %v vs %v", i, ev1[i].Score, ev2[i].Score)
		}
		if len(ev1[i].Audio) != len(ev2[i].Audio) {
			t.Fatalf("event %d audio length differs: %d vs %d", i, len(ev1[i].Audio), len(ev2[i].Audio))
		}
	}
	if e1.State() != e2.State() {
		t.Fatalf("final states differ: %s vs %s", e1.State(), e2.State())
	}
}

func TestEventDuration(t *testing.T) {
	ev := &Event{Audio: make([]int16, 16000), SampleRate: 16000}
	if d := ev.Duration(); d != time.Second {
		t.Fatalf("Duration() = %v, want 1s", d)
	}
}
