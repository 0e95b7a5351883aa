// Package config centralizes the tunable presentation parameters.
package config

import "time"

// Render area limits in terminal cells. Larger terminals get a centered,
// bordered play area.
const (
	MaxTermWidth  = 160
	MaxTermHeight = 50
	MinTermWidth  = 40
	MinTermHeight = 16
)

// Play area layout in terminal rows.
const (
	HUDRows    = 1 // status line above the play area
	FooterRows = 1 // hint line below it
)

// Effects
const (
	ParticlesPerHit      = 14
	ParticleSpeed        = 140.0 // px/s
	ParticleLifetime     = 0.45  // seconds
	ScorePopupLifetime   = 0.8
	AchievementLifetime  = 2.0
	ShakeDuration        = 180 * time.Millisecond
	ShakeAmplitude       = 6.0  // px
	PromptBlinkFrequency = 1.67 // Hz
)

// Results screen
const (
	HighScoresShown = 5
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// SettingsSaveTimeout bounds persisting the settings overlay.
const SettingsSaveTimeout = 3 * time.Second
