package audio

import "github.com/tomz197/reflex/internal/game"

// Nop returns an Audio that does nothing.
func Nop() game.Audio { return game.NopAudio{} }

// New returns an initialized Synth, or Nop if no output device is available.
func New() (game.Audio, error) {
	s := NewSynth()
	if err := s.Init(); err != nil {
		return Nop(), err
	}
	return s, nil
}
