package draw

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a 24-bit RGB color. The zero value means "not set", so black is
// stored with a marker bit.
type Color uint32

const colorSet = 1 << 24

// Common colors.
var (
	White  = RGB(255, 255, 255)
	Gray   = RGB(140, 140, 140)
	Dim    = RGB(90, 90, 110)
	Cyan   = RGB(80, 220, 255)
	Yellow = RGB(255, 220, 60)
	Red    = RGB(255, 80, 80)
	Green  = RGB(90, 230, 120)
)

// RGB builds a Color from components.
func RGB(r, g, b uint8) Color {
	return Color(colorSet | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// ParseHex parses "#rrggbb".
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// MustHex is ParseHex for constants; invalid input yields White.
func MustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		return White
	}
	return c
}

// IsSet reports whether the color carries a value.
func (c Color) IsSet() bool {
	return c&colorSet != 0
}

// Components returns the 8-bit channels.
func (c Color) Components() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Blend mixes c toward other; t=0 is c, t=1 is other. Unset colors are
// returned unchanged.
func (c Color) Blend(other Color, t float64) Color {
	if !c.IsSet() || !other.IsSet() {
		return c
	}
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return other
	}
	return fromColorful(c.colorful().BlendRgb(other.colorful(), t))
}

// Scale darkens the color by factor f in [0,1].
func (c Color) Scale(f float64) Color {
	if !c.IsSet() {
		return c
	}
	return RGB(0, 0, 0).Blend(c, f)
}

func (c Color) colorful() colorful.Color {
	r, g, b := c.Components()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return RGB(r, g, b)
}

// appendSGR appends truecolor SGR parameters for fg and bg. Unset colors
// select the terminal default.
func appendSGR(dst []byte, fg, bg Color) []byte {
	dst = append(dst, "\033[0"...)
	if fg.IsSet() {
		r, g, b := fg.Components()
		dst = append(dst, ";38;2;"...)
		dst = appendRGB(dst, r, g, b)
	}
	if bg.IsSet() {
		r, g, b := bg.Components()
		dst = append(dst, ";48;2;"...)
		dst = appendRGB(dst, r, g, b)
	}
	return append(dst, 'm')
}

func appendRGB(dst []byte, r, g, b uint8) []byte {
	dst = strconv.AppendUint(dst, uint64(r), 10)
	dst = append(dst, ';')
	dst = strconv.AppendUint(dst, uint64(g), 10)
	dst = append(dst, ';')
	return strconv.AppendUint(dst, uint64(b), 10)
}
