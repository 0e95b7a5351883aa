// Package audio provides the game's sound collaborators.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/tomz197/reflex/internal/game"
)

const sampleRate = beep.SampleRate(44100)

// Synth plays generated tones through the system speaker.
type Synth struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	ambient     *beep.Ctrl
	muted       bool
	initialized bool
}

var _ game.Audio = (*Synth)(nil)

// NewSynth creates a synth. Call Init before it makes any sound.
func NewSynth() *Synth {
	return &Synth{mixer: &beep.Mixer{}}
}

// Init opens the speaker. Safe to call twice.
func (s *Synth) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Close silences everything.
func (s *Synth) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	s.ambient = nil
	s.initialized = false
}

// Play queues a one-shot effect.
func (s *Synth) Play(sound game.Sound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || s.muted {
		return
	}
	st := effect(sound)
	if st == nil {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// StartAmbient resumes the background pad, creating it on first use.
func (s *Synth) StartAmbient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if s.ambient == nil {
		s.ambient = &beep.Ctrl{Streamer: newPad(sampleRate)}
		s.mixer.Add(s.ambient)
	}
	s.ambient.Paused = s.muted
}

// PauseAmbient pauses the background pad.
func (s *Synth) PauseAmbient() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || s.ambient == nil {
		return
	}
	speaker.Lock()
	s.ambient.Paused = true
	speaker.Unlock()
}

// SetMuted suppresses effects and pauses the pad.
func (s *Synth) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	if !s.initialized || s.ambient == nil || !muted {
		return
	}
	speaker.Lock()
	s.ambient.Paused = true
	speaker.Unlock()
}

// Muted reports the mute flag.
func (s *Synth) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// effect builds the finite streamer for a sound.
func effect(sound game.Sound) beep.Streamer {
	switch sound {
	case game.SoundHit:
		return newTone(sampleRate, 880, 660, 0.25, 60*time.Millisecond)
	case game.SoundAchievement:
		return beep.Seq(
			newTone(sampleRate, 523.25, 523.25, 0.2, 90*time.Millisecond),
			newTone(sampleRate, 659.25, 659.25, 0.2, 90*time.Millisecond),
			newTone(sampleRate, 783.99, 783.99, 0.2, 180*time.Millisecond),
		)
	case game.SoundGameOver:
		return newTone(sampleRate, 440, 110, 0.25, 700*time.Millisecond)
	default:
		return nil
	}
}
