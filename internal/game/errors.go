package game

import "errors"

var (
	// ErrInvalidDifficulty is returned by Start for an unknown preset name.
	ErrInvalidDifficulty = errors.New("game: invalid difficulty")
	// ErrInvalidTransition is returned when an operation is not valid in the current state.
	ErrInvalidTransition = errors.New("game: invalid transition")
	// ErrLayoutUnavailable means the play area could not be measured; spawning is deferred.
	ErrLayoutUnavailable = errors.New("game: play area unavailable")
)
