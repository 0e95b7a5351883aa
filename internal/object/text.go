package object

import (
	"github.com/mattn/go-runewidth"
	"github.com/tomz197/reflex/internal/draw"
	"github.com/tomz197/reflex/internal/physics"
)

// Text is a static label at a 0-based cell.
type Text struct {
	Col   int
	Row   int
	Value string
	Color draw.Color
}

// Draw writes the text onto the canvas text layer.
func (t Text) Draw(ctx DrawContext) error {
	if t.Value == "" {
		return nil
	}
	ctx.Canvas.Text(t.Col, t.Row, t.Value, t.Color)
	return nil
}

// Update is a no-op for static text.
func (t Text) Update(ctx UpdateContext) (bool, error) {
	return false, nil
}

// FloatingText rises from a point and fades, e.g. "+20" over a hit target
// or an achievement banner.
type FloatingText struct {
	X, Y        float64 // center, play-area pixels
	Value       string
	Color       draw.Color
	Rise        float64 // px/s upward
	Lifetime    float64
	MaxLifetime float64
}

// NewFloatingText creates a label centered on (x, y).
func NewFloatingText(x, y float64, value string, color draw.Color, lifetime float64) *FloatingText {
	return &FloatingText{
		X:           x,
		Y:           y,
		Value:       value,
		Color:       color,
		Rise:        2 * physics.CellHeightPx,
		Lifetime:    lifetime,
		MaxLifetime: lifetime,
	}
}

// Update drifts the label upward.
func (f *FloatingText) Update(ctx UpdateContext) (bool, error) {
	dt := ctx.Delta.Seconds()
	f.Lifetime -= dt
	if f.Lifetime <= 0 {
		return true, nil
	}
	f.Y -= f.Rise * dt
	return false, nil
}

// Draw writes the label at its current cell, dimming as it ages.
func (f *FloatingText) Draw(ctx DrawContext) error {
	if f.MaxLifetime <= 0 {
		return nil
	}
	col, row := physics.PixelToCell(f.X+ctx.OffsetX, f.Y+ctx.OffsetY)
	col -= runewidth.StringWidth(f.Value) / 2
	color := f.Color.Scale(0.5 + 0.5*f.Lifetime/f.MaxLifetime)
	ctx.Canvas.Text(col, row, f.Value, color)
	return nil
}
