package client

// GameState represents the current screen of a client.
type GameState int

const (
	GameStateMenu       GameState = iota // Title screen with high scores
	GameStateDifficulty                  // Difficulty selection
	GameStatePlaying                     // Active session
	GameStateResults                     // Session summary
	GameStateShutdown                    // Server is shutting down
)

func (s GameState) String() string {
	switch s {
	case GameStateMenu:
		return "menu"
	case GameStateDifficulty:
		return "difficulty"
	case GameStatePlaying:
		return "playing"
	case GameStateResults:
		return "results"
	case GameStateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// settingsRow is a line of the settings overlay.
type settingsRow int

const (
	rowDifficulty settingsRow = iota
	rowSound
	rowParticles
	rowShake
	settingsRows
)

// maxLabels is how many targets get a keyboard label (1-9, then 0).
const maxLabels = 10

// labelDigit returns the key that selects the i-th labelled target.
func labelDigit(i int) int {
	return (i + 1) % 10
}

// labelIndex is the inverse of labelDigit.
func labelIndex(digit int) int {
	if digit == 0 {
		return 9
	}
	return digit - 1
}
