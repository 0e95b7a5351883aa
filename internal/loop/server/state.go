package server

import (
	"time"

	"github.com/tomz197/reflex/internal/game"
)

// LobbySnapshot is an immutable view of the hub for rendering.
type LobbySnapshot struct {
	Players   int
	TopScores []game.HighScoreEntry
	Taken     time.Time
}
