package game

import (
	"time"

	"github.com/tomz197/reflex/internal/physics"
)

// ColorPair is a radial gradient: Start at the center, End at the rim. Hex RGB.
type ColorPair struct {
	Start string
	End   string
}

// Palette holds the five target colorings.
var Palette = [5]ColorPair{
	{Start: "#ff4444", End: "#ff0000"},
	{Start: "#44ff44", End: "#00ff00"},
	{Start: "#4444ff", End: "#0000ff"},
	{Start: "#ffff44", End: "#ffff00"},
	{Start: "#ff44ff", End: "#ff00ff"},
}

// Target is one clickable circle. X and Y are the top-left corner of its
// bounding box in play-area pixels.
type Target struct {
	ID        string
	Size      int
	X, Y      int
	Color     ColorPair
	CreatedAt time.Time
	VisibleAt time.Time // zero until the presenter has shown the target
	Hit       bool
}

// Visible reports whether the reaction clock has started.
func (t Target) Visible() bool {
	return !t.VisibleAt.IsZero()
}

// Center returns the circle center in play-area pixels.
func (t Target) Center() (float64, float64) {
	r := float64(t.Size) / 2
	return float64(t.X) + r, float64(t.Y) + r
}

// Contains reports whether the point lies inside the target circle.
func (t Target) Contains(px, py float64) bool {
	cx, cy := t.Center()
	return physics.PointInCircle(px, py, cx, cy, float64(t.Size)/2)
}
