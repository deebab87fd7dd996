// Package detect turns a noisy per-frame wake-word score stream into
// discrete, debounced detection events.
//
// The engine is an explicit three-state machine with hysteresis: a low
// "decay" threshold, a middle "enter" threshold and a high "confirm"
// threshold (decay < enter < confirm) prevent flapping around a single
// cutoff, a consecutive-frame requirement rejects one-frame spikes, and a
// frame-counted cooldown suppresses duplicate events for the tail of the
// same utterance.
package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/calder/hark/internal/audio"
)

// Engine states.
const (
	StateIdle       = "idle"
	StateCollecting = "collecting"
	StateCooldown   = "cooldown"
)

// Transition events between states.
const (
	eventBegin   = "begin"   // idle -> collecting: score crossed enter
	eventConfirm = "confirm" // collecting -> cooldown: detection emitted
	eventDiscard = "discard" // collecting -> idle: decayed or session capped
	eventCooled  = "cooled"  // cooldown -> idle: cooldown elapsed
)

// Config holds the detection engine parameters, resolved once at startup.
type Config struct {
	// SampleRate is the rate, in Hz, frames must arrive at.
	SampleRate int `yaml:"sample_rate"`

	// FrameLength is the expected number of samples per frame.
	FrameLength int `yaml:"frame_length"`

	// Enter is the score at which the engine starts collecting candidate
	// audio.
	Enter float64 `yaml:"enter"`

	// Confirm is the score a frame must reach to count toward confirmation.
	Confirm float64 `yaml:"confirm"`

	// Decay is the score below which a candidate session is abandoned.
	Decay float64 `yaml:"decay"`

	// ConsecutiveFrames is how many frames at or above Confirm, in a row,
	// confirm a detection.
	ConsecutiveFrames int `yaml:"consecutive_frames"`

	// CooldownFrames is how many frames after a detection are ignored for
	// triggering purposes.
	CooldownFrames int `yaml:"cooldown_frames"`

	// MaxSessionFrames caps a candidate session; an unconfirmed session
	// this long is discarded.
	MaxSessionFrames int `yaml:"max_session_frames"`

	// RingCapacity bounds the pre-roll ring buffer, in frames.
	RingCapacity int `yaml:"ring_capacity"`
}

// DefaultConfig returns the canonical engine parameters: 16 kHz, 80 ms
// frames, with about 1.6 s of pre-roll context retained.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		FrameLength:       1280,
		Enter:             0.4,
		Confirm:           0.65,
		Decay:             0.2,
		ConsecutiveFrames: 2,
		CooldownFrames:    10,
		MaxSessionFrames:  10,
		RingCapacity:      20,
	}
}

// Validate checks the threshold ordering and counters.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("detect: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameLength <= 0 {
		return fmt.Errorf("detect: frame length must be positive, got %d", c.FrameLength)
	}
	if !(c.Decay < c.Enter && c.Enter < c.Confirm) {
		return fmt.Errorf("detect: thresholds must satisfy decay < enter < confirm, got %.3f / %.3f / %.3f",
			c.Decay, c.Enter, c.Confirm)
	}
	if c.Decay < 0 || c.Confirm > 1 {
		return fmt.Errorf("detect: thresholds must lie in [0,1], got %.3f / %.3f", c.Decay, c.Confirm)
	}
	if c.ConsecutiveFrames < 1 {
		return fmt.Errorf("detect: consecutive frames must be at least 1, got %d", c.ConsecutiveFrames)
	}
	if c.CooldownFrames < 0 {
		return fmt.Errorf("detect: cooldown frames must not be negative, got %d", c.CooldownFrames)
	}
	if c.MaxSessionFrames < 1 {
		return fmt.Errorf("detect: max session frames must be at least 1, got %d", c.MaxSessionFrames)
	}
	if c.RingCapacity < 1 {
		return fmt.Errorf("detect: ring capacity must be at least 1, got %d", c.RingCapacity)
	}
	return nil
}

// Event is an immutable record of one confirmed detection. Ownership passes
// to the consumer; the engine keeps no reference after emitting it.
type Event struct {
	// Timestamp is the wall-clock time of the confirming frame.
	Timestamp time.Time

	// Score is the score of the confirming frame.
	Score float64

	// Audio is the concatenation of the session's frames, at SampleRate.
	Audio []int16

	// SampleRate is the rate of Audio in Hz.
	SampleRate int
}

// Duration returns the play time of the event's audio.
func (e *Event) Duration() time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(e.Audio)) * time.Second / time.Duration(e.SampleRate)
}

// session accumulates candidate audio between entering collection and
// resolving (confirmed, decayed, or capped).
type session struct {
	frames      []audio.Frame
	consecutive int
}

func (s *session) add(f audio.Frame) {
	s.frames = append(s.frames, f)
}

func (s *session) concat() []int16 {
	total := 0
	for _, f := range s.frames {
		total += len(f.Samples)
	}
	out := make([]int16, 0, total)
	for _, f := range s.frames {
		out = append(out, f.Samples...)
	}
	return out
}

// Engine is the detection state machine. It is owned by a single pipeline
// loop: Process must be called once per frame, in arrival order, and is not
// safe for concurrent use.
type Engine struct {
	cfg  Config
	fsm  *fsm.FSM
	ring *audio.FrameRing
	sess *session
	log  *zap.Logger

	cooldownLeft int
}

// NewEngine creates an engine in the idle state.
func NewEngine(cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	machine := fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{StateIdle}, Dst: StateCollecting},
			{Name: eventConfirm, Src: []string{StateCollecting}, Dst: StateCooldown},
			{Name: eventDiscard, Src: []string{StateCollecting}, Dst: StateIdle},
			{Name: eventCooled, Src: []string{StateCooldown}, Dst: StateIdle},
		},
		fsm.Callbacks{},
	)
	return &Engine{
		cfg:  cfg,
		fsm:  machine,
		ring: audio.NewFrameRing(cfg.RingCapacity),
		log:  log,
	}, nil
}

// State returns the current state name.
func (e *Engine) State() string { return e.fsm.Current() }

// PreRoll returns the buffered pre-roll frames, oldest first. The ring is
// maintained in every state so that a few hundred milliseconds of context
// before a detection stay available; emitted clips currently contain the
// session frames only, and this buffer is the hook for extending them.
func (e *Engine) PreRoll() []audio.Frame { return e.ring.Frames() }

// Process feeds one scored frame through the state machine and returns a
// detection event if this frame confirmed one, or nil. It never blocks and
// holds at most RingCapacity + MaxSessionFrames frames at any time.
func (e *Engine) Process(sf audio.ScoredFrame) *Event {
	e.ring.Push(sf.Frame)

	switch e.fsm.Current() {
	case StateIdle:
		if sf.Score >= e.cfg.Enter {
			e.sess = &session{}
			e.sess.add(sf.Frame)
			e.transition(eventBegin, sf)
			// The entering frame itself counts toward confirmation when
			// it already clears the confirm threshold.
			if sf.Score >= e.cfg.Confirm {
				e.sess.consecutive = 1
				if ev := e.tryConfirm(sf); ev != nil {
					return ev
				}
			}
		}

	case StateCollecting:
		switch {
		case sf.Score >= e.cfg.Confirm:
			e.sess.add(sf.Frame)
			e.sess.consecutive++
			if ev := e.tryConfirm(sf); ev != nil {
				return ev
			}
			e.checkSessionCap(sf)

		case sf.Score < e.cfg.Decay:
			e.log.Debug("session decayed",
				zap.Uint64("seq", sf.Frame.Seq),
				zap.Float64("score", sf.Score),
				zap.Int("session_frames", len(e.sess.frames)))
			e.sess = nil
			e.transition(eventDiscard, sf)

		default: // decay <= score < confirm
			e.sess.add(sf.Frame)
			e.sess.consecutive = 0
			e.checkSessionCap(sf)
		}

	case StateCooldown:
		if e.cooldownLeft > 0 {
			e.cooldownLeft--
		}
		if e.cooldownLeft == 0 {
			e.transition(eventCooled, sf)
		}
	}

	return nil
}

// tryConfirm emits a detection when enough consecutive high-score frames
// have accumulated.
func (e *Engine) tryConfirm(sf audio.ScoredFrame) *Event {
	if e.sess.consecutive < e.cfg.ConsecutiveFrames {
		return nil
	}
	ev := &Event{
		Timestamp:  sf.Timestamp,
		Score:      sf.Score,
		Audio:      e.sess.concat(),
		SampleRate: sf.Frame.Rate,
	}
	e.log.Info("wake word detected",
		zap.Float64("score", sf.Score),
		zap.Uint64("seq", sf.Frame.Seq),
		zap.Duration("audio", ev.Duration()))
	e.sess = nil
	e.cooldownLeft = e.cfg.CooldownFrames
	e.transition(eventConfirm, sf)
	if e.cooldownLeft == 0 {
		// Zero cooldown: re-arm immediately.
		e.transition(eventCooled, sf)
	}
	return ev
}

// checkSessionCap discards a session that grew to the maximum length
// without confirming.
func (e *Engine) checkSessionCap(sf audio.ScoredFrame) {
	if e.sess == nil || len(e.sess.frames) < e.cfg.MaxSessionFrames {
		return
	}
	e.log.Debug("session capped without confirmation",
		zap.Uint64("seq", sf.Frame.Seq),
		zap.Int("session_frames", len(e.sess.frames)))
	e.sess = nil
	e.transition(eventDiscard, sf)
}

// transition fires a state machine event. The guards in Process make every
// fired event valid for the current state, so a failure here is a
// programming error worth surfacing loudly in logs.
func (e *Engine) transition(event string, sf audio.ScoredFrame) {
	if err := e.fsm.Event(context.Background(), event); err != nil {
		e.log.Error("invalid engine transition",
			zap.String("event", event),
			zap.String("state", e.fsm.Current()),
			zap.Uint64("seq", sf.Frame.Seq),
			zap.Error(err))
	}
}
