package draw

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/tomz197/reflex/internal/physics"
)

// maxChunkSize is the maximum bytes to write at once for optimal network flow.
// 1500 bytes matches typical MTU size for smooth SSH/network transmission.
const maxChunkSize = 1400

// cell is one composed terminal cell.
type cell struct {
	ch rune // 0 marks the right half of a wide rune
	fg Color
	bg Color
}

type textCell struct {
	ch   rune
	fg   Color
	bg   Color
	wide bool // right half of a wide rune
	set  bool
}

// Canvas is a double-buffered color canvas. Each terminal cell holds two
// square sub-pixels rendered with half-block characters, plus an optional
// text layer drawn on top. Render emits only cells that changed since the
// previous frame.
type Canvas struct {
	width  int // terminal columns
	height int // terminal rows

	pixels []Color // [sub * width + col], sub = row*2 (+1 for bottom half)
	text   []textCell
	prev   []cell
	valid  bool // prev reflects what is on screen

	// Offset for centering the render area when the terminal is larger than
	// the max resolution. 0-based columns/rows to skip.
	offsetCol int
	offsetRow int

	buf []byte
}

// NewCanvas creates a canvas of width x height terminal cells.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Resize reallocates buffers when the size changes and forces a redraw.
func (c *Canvas) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if width == c.width && height == c.height && c.pixels != nil {
		return
	}
	c.width = width
	c.height = height
	c.pixels = make([]Color, width*height*2)
	c.text = make([]textCell, width*height)
	c.prev = make([]cell, width*height)
	c.valid = false
}

// SetOffset sets the column and row offset for centering the canvas.
func (c *Canvas) SetOffset(col, row int) {
	if col != c.offsetCol || row != c.offsetRow {
		c.valid = false
	}
	c.offsetCol = col
	c.offsetRow = row
}

// OffsetCol returns the column offset used for centering.
func (c *Canvas) OffsetCol() int { return c.offsetCol }

// OffsetRow returns the row offset used for centering.
func (c *Canvas) OffsetRow() int { return c.offsetRow }

// Width returns the column count.
func (c *Canvas) Width() int { return c.width }

// Height returns the row count.
func (c *Canvas) Height() int { return c.height }

// PixelSize returns the canvas size in play-area pixels.
func (c *Canvas) PixelSize() (int, int) {
	return physics.CellsToPixels(c.width, c.height)
}

// Invalidate forgets the previous frame so the next Render repaints every
// cell. Call it after the screen was cleared externally.
func (c *Canvas) Invalidate() {
	c.valid = false
}

// Clear resets pixels and text for a new frame.
func (c *Canvas) Clear() {
	clear(c.pixels)
	clear(c.text)
}

// SetSub sets the sub-pixel at column col and half-row sub.
func (c *Canvas) SetSub(col, sub int, color Color) {
	if col < 0 || col >= c.width || sub < 0 || sub >= c.height*2 {
		return
	}
	c.pixels[sub*c.width+col] = color
}

// SetPixel sets the sub-pixel containing the play-area pixel (px, py).
func (c *Canvas) SetPixel(px, py float64, color Color) {
	if px < 0 || py < 0 {
		return
	}
	col, sub := physics.PixelToSubCell(px, py)
	c.SetSub(col, sub, color)
}

// FillCircle fills a circle given in play-area pixels with a radial
// gradient from center to rim.
func (c *Canvas) FillCircle(cx, cy, r float64, center, rim Color) {
	if r <= 0 {
		return
	}
	const px = physics.SubRowPx
	colStart := int(math.Floor((cx - r) / px))
	colEnd := int(math.Ceil((cx + r) / px))
	subStart := int(math.Floor((cy - r) / px))
	subEnd := int(math.Ceil((cy + r) / px))
	drawn := false
	for sub := subStart; sub <= subEnd; sub++ {
		sy := float64(sub*px) + px/2
		for col := colStart; col <= colEnd; col++ {
			sx := float64(col*px) + px/2
			d := physics.Distance(sx, sy, cx, cy)
			if d > r {
				continue
			}
			c.SetSub(col, sub, center.Blend(rim, d/r))
			drawn = true
		}
	}
	if !drawn {
		c.SetPixel(cx, cy, center)
	}
}

// StrokeCircle draws a one sub-pixel outline of a circle.
func (c *Canvas) StrokeCircle(cx, cy, r float64, color Color) {
	if r <= 0 {
		return
	}
	const px = physics.SubRowPx
	colStart := int(math.Floor((cx - r - px) / px))
	colEnd := int(math.Ceil((cx + r + px) / px))
	subStart := int(math.Floor((cy - r - px) / px))
	subEnd := int(math.Ceil((cy + r + px) / px))
	for sub := subStart; sub <= subEnd; sub++ {
		sy := float64(sub*px) + px/2
		for col := colStart; col <= colEnd; col++ {
			sx := float64(col*px) + px/2
			d := physics.Distance(sx, sy, cx, cy)
			if math.Abs(d-r) <= px/2 {
				c.SetSub(col, sub, color)
			}
		}
	}
}

// Text writes s starting at the 0-based cell (col, row) and returns the
// number of columns used. Text is clipped at the canvas edge.
func (c *Canvas) Text(col, row int, s string, fg Color) int {
	return c.TextStyled(col, row, s, fg, 0)
}

// TextStyled is Text with a background color.
func (c *Canvas) TextStyled(col, row int, s string, fg, bg Color) int {
	if row < 0 || row >= c.height {
		return 0
	}
	x := col
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x >= 0 && x+w <= c.width {
			i := row*c.width + x
			c.text[i] = textCell{ch: r, fg: fg, bg: bg, set: true}
			if w == 2 {
				c.text[i+1] = textCell{fg: fg, bg: bg, wide: true, set: true}
			}
		}
		x += w
	}
	return x - col
}

// TextCentered writes s centered on row.
func (c *Canvas) TextCentered(row int, s string, fg Color) {
	c.Text((c.width-runewidth.StringWidth(s))/2, row, s, fg)
}

// FillRect blanks a rectangle of cells with bg, hiding pixels beneath.
func (c *Canvas) FillRect(col, row, w, h int, bg Color) {
	for y := row; y < row+h; y++ {
		if y < 0 || y >= c.height {
			continue
		}
		for x := col; x < col+w; x++ {
			if x < 0 || x >= c.width {
				continue
			}
			c.text[y*c.width+x] = textCell{ch: ' ', bg: bg, set: true}
		}
	}
}

// Box draws a single-line frame on the text layer.
func (c *Canvas) Box(col, row, w, h int, fg Color) {
	if w < 2 || h < 2 {
		return
	}
	for x := col + 1; x < col+w-1; x++ {
		c.Text(x, row, boxHorizontal, fg)
		c.Text(x, row+h-1, boxHorizontal, fg)
	}
	for y := row + 1; y < row+h-1; y++ {
		c.Text(col, y, boxVertical, fg)
		c.Text(col+w-1, y, boxVertical, fg)
	}
	c.Text(col, row, boxTopLeft, fg)
	c.Text(col+w-1, row, boxTopRight, fg)
	c.Text(col, row+h-1, boxBottomLeft, fg)
	c.Text(col+w-1, row+h-1, boxBottomRight, fg)
}

// compose merges the text and pixel layers for one cell.
func (c *Canvas) compose(col, row int) cell {
	if t := c.text[row*c.width+col]; t.set {
		if t.wide {
			return cell{fg: t.fg, bg: t.bg}
		}
		return cell{ch: t.ch, fg: t.fg, bg: t.bg}
	}
	top := c.pixels[row*2*c.width+col]
	bottom := c.pixels[(row*2+1)*c.width+col]
	switch {
	case !top.IsSet() && !bottom.IsSet():
		return cell{ch: BlockEmpty}
	case top == bottom:
		return cell{ch: BlockFull, fg: top}
	case !bottom.IsSet():
		return cell{ch: BlockUpperHalf, fg: top}
	case !top.IsSet():
		return cell{ch: BlockLowerHalf, fg: bottom}
	default:
		return cell{ch: BlockUpperHalf, fg: top, bg: bottom}
	}
}

// Render writes the cells that changed since the previous Render.
func (c *Canvas) Render(w io.Writer) error {
	buf := c.buf[:0]
	curCol, curRow := -1, -1
	var curFg, curBg Color
	styled := false

	for row := 0; row < c.height; row++ {
		for col := 0; col < c.width; col++ {
			i := row*c.width + col
			cur := c.compose(col, row)
			if c.valid && c.prev[i] == cur {
				continue
			}
			c.prev[i] = cur
			if cur.ch == 0 {
				continue
			}
			if col != curCol || row != curRow {
				buf = append(buf, "\033["...)
				buf = strconv.AppendInt(buf, int64(row+1+c.offsetRow), 10)
				buf = append(buf, ';')
				buf = strconv.AppendInt(buf, int64(col+1+c.offsetCol), 10)
				buf = append(buf, 'H')
			}
			if !styled || cur.fg != curFg || cur.bg != curBg {
				buf = appendSGR(buf, cur.fg, cur.bg)
				curFg, curBg, styled = cur.fg, cur.bg, true
			}
			buf = append(buf, string(cur.ch)...)
			curCol, curRow = col+runewidth.RuneWidth(cur.ch), row
		}
	}
	if styled {
		buf = append(buf, "\033[0m"...)
	}
	c.valid = true
	c.buf = buf

	for len(buf) > 0 {
		chunk := buf
		if len(chunk) > maxChunkSize {
			chunk = buf[:maxChunkSize]
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		buf = buf[len(chunk):]
	}
	return nil
}

// RenderBorder draws a box border around the canvas area when the terminal
// exceeds the max render resolution on either axis.
// Draws horizontal borders when there is vertical offset, vertical borders
// when there is horizontal offset, and corners when both are present.
func (c *Canvas) RenderBorder(w *ChunkWriter) {
	hasH := c.offsetCol >= 1 // Room for left/right vertical bars
	hasV := c.offsetRow >= 1 // Room for top/bottom horizontal bars

	// Border positions in absolute 1-based terminal coordinates
	left := c.offsetCol
	right := c.offsetCol + c.width + 1
	top := c.offsetRow
	bottom := c.offsetRow + c.height + 1

	line := strings.Repeat(boxHorizontal, c.width)

	if hasV {
		if hasH {
			w.WriteAbs(left, top, boxTopLeft+line+boxTopRight)
			w.WriteAbs(left, bottom, boxBottomLeft+line+boxBottomRight)
		} else {
			w.WriteAbs(c.offsetCol+1, top, line)
			w.WriteAbs(c.offsetCol+1, bottom, line)
		}
	}
	if hasH {
		for row := c.offsetRow + 1; row < c.offsetRow+c.height+1; row++ {
			w.WriteAbs(left, row, boxVertical)
			w.WriteAbs(right, row, boxVertical)
		}
	}
}

// CellAt maps an absolute 1-based terminal position (as reported by mouse
// events) to a 0-based canvas cell.
func (c *Canvas) CellAt(termCol, termRow int) (col, row int, ok bool) {
	col = termCol - 1 - c.offsetCol
	row = termRow - 1 - c.offsetRow
	if col < 0 || col >= c.width || row < 0 || row >= c.height {
		return 0, 0, false
	}
	return col, row, true
}

// Cell returns the composed content of a 0-based cell for non-ANSI
// back ends. ch is 0 for the right half of a wide rune.
func (c *Canvas) Cell(col, row int) (ch rune, fg, bg Color) {
	if col < 0 || col >= c.width || row < 0 || row >= c.height {
		return BlockEmpty, 0, 0
	}
	cl := c.compose(col, row)
	return cl.ch, cl.fg, cl.bg
}
