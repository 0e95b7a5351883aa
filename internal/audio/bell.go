package audio

import (
	"io"
	"sync"

	"github.com/tomz197/reflex/internal/game"
)

// Bell rings the terminal bell for hits and achievements. Rings are
// buffered and flushed by the renderer through WriteTo, so Play never
// touches the connection.
type Bell struct {
	mu      sync.Mutex
	pending int
	muted   bool
}

var (
	_ game.Audio  = (*Bell)(nil)
	_ io.WriterTo = (*Bell)(nil)
)

func (b *Bell) Play(sound game.Sound) {
	if sound != game.SoundHit && sound != game.SoundAchievement {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.muted {
		b.pending++
	}
}

func (b *Bell) StartAmbient() {}
func (b *Bell) PauseAmbient() {}

func (b *Bell) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
	if muted {
		b.pending = 0
	}
}

// WriteTo writes one BEL if any ring is pending. Terminals collapse
// back-to-back bells, so several rings become one.
func (b *Bell) WriteTo(w io.Writer) (int64, error) {
	b.mu.Lock()
	ring := b.pending > 0
	b.pending = 0
	b.mu.Unlock()
	if !ring {
		return 0, nil
	}
	n, err := w.Write([]byte{'\a'})
	return int64(n), err
}

// Pending reports whether a ring is waiting.
func (b *Bell) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending > 0
}

