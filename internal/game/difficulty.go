package game

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is a named gameplay preset. Sizes are in play-area pixels.
type Difficulty struct {
	Name           string
	MinSize        int
	MaxSize        int
	SpawnInterval  time.Duration
	GameTime       time.Duration
	PointsPerHit   int
	TargetLifetime time.Duration
	MaxTargets     int
}

// Built-in presets.
var (
	Easy = Difficulty{
		Name:           "easy",
		MinSize:        60,
		MaxSize:        80,
		SpawnInterval:  2000 * time.Millisecond,
		GameTime:       60 * time.Second,
		PointsPerHit:   10,
		TargetLifetime: 3000 * time.Millisecond,
		MaxTargets:     5,
	}
	Medium = Difficulty{
		Name:           "medium",
		MinSize:        40,
		MaxSize:        60,
		SpawnInterval:  1500 * time.Millisecond,
		GameTime:       45 * time.Second,
		PointsPerHit:   20,
		TargetLifetime: 2000 * time.Millisecond,
		MaxTargets:     7,
	}
	Hard = Difficulty{
		Name:           "hard",
		MinSize:        30,
		MaxSize:        50,
		SpawnInterval:  1000 * time.Millisecond,
		GameTime:       30 * time.Second,
		PointsPerHit:   30,
		TargetLifetime: 1500 * time.Millisecond,
		MaxTargets:     10,
	}
)

// Difficulties returns the presets in menu order.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// LookupDifficulty resolves a preset by name (case-insensitive).
func LookupDifficulty(name string) (Difficulty, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range Difficulties() {
		if d.Name == key {
			return d, nil
		}
	}
	return Difficulty{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, name)
}

// Seconds returns the session length in whole seconds.
func (d Difficulty) Seconds() int {
	return int(d.GameTime / time.Second)
}

// Validate checks the preset invariants: every value positive, MinSize <= MaxSize.
func (d Difficulty) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("difficulty name is required")
	case d.MinSize <= 0 || d.MaxSize <= 0:
		return fmt.Errorf("difficulty %s: sizes must be positive", d.Name)
	case d.MinSize > d.MaxSize:
		return fmt.Errorf("difficulty %s: min size %d exceeds max size %d", d.Name, d.MinSize, d.MaxSize)
	case d.SpawnInterval <= 0 || d.TargetLifetime <= 0:
		return fmt.Errorf("difficulty %s: intervals must be positive", d.Name)
	case d.GameTime < time.Second:
		return fmt.Errorf("difficulty %s: game time must be at least one second", d.Name)
	case d.PointsPerHit <= 0 || d.MaxTargets <= 0:
		return fmt.Errorf("difficulty %s: points and max targets must be positive", d.Name)
	}
	return nil
}
