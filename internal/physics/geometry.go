package physics

// Terminal cell geometry in logical play-area pixels. A half-block sub-row
// is CellWidthPx square.
const (
	CellWidthPx  = 8
	CellHeightPx = 16
	SubRowPx     = CellHeightPx / 2
)

// CellsToPixels converts a terminal area in cells to play-area pixels.
func CellsToPixels(cols, rows int) (width, height int) {
	return cols * CellWidthPx, rows * CellHeightPx
}

// CellCenter returns the pixel at the center of a 0-based cell.
func CellCenter(col, row int) (float64, float64) {
	return float64(col*CellWidthPx) + CellWidthPx/2, float64(row*CellHeightPx) + CellHeightPx/2
}

// PixelToCell maps a pixel to its 0-based cell. Negative inputs clamp to zero.
func PixelToCell(px, py float64) (col, row int) {
	if px < 0 {
		px = 0
	}
	if py < 0 {
		py = 0
	}
	return int(px) / CellWidthPx, int(py) / CellHeightPx
}

// PixelToSubCell maps a pixel to its 0-based column and half-block sub-row.
func PixelToSubCell(px, py float64) (col, sub int) {
	if px < 0 {
		px = 0
	}
	if py < 0 {
		py = 0
	}
	return int(px) / CellWidthPx, int(py) / SubRowPx
}
