package game

import "github.com/charmbracelet/log"

// GuardAudio wraps a so that a panicking backend is logged instead of
// taking down the caller.
func GuardAudio(a Audio, logger *log.Logger) Audio {
	if _, ok := a.(guardedAudio); ok {
		return a
	}
	return guardedAudio{audio: a, logger: logger}
}

type guardedAudio struct {
	audio  Audio
	logger *log.Logger
}

func (g guardedAudio) Play(s Sound)    { g.run("play", func() { g.audio.Play(s) }) }
func (g guardedAudio) StartAmbient()   { g.run("start ambient", g.audio.StartAmbient) }
func (g guardedAudio) PauseAmbient()   { g.run("pause ambient", g.audio.PauseAmbient) }
func (g guardedAudio) SetMuted(m bool) { g.run("set muted", func() { g.audio.SetMuted(m) }) }

func (g guardedAudio) run(op string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("audio panicked", "op", op, "panic", r)
		}
	}()
	f()
}
