package locator

import (
	"encoding/binary"
	"math"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// window is a provisional decode of one candidate region
type window struct {
	vals       []float64
	rows, cols int
	fill       int
	lo, hi     float64
}

func decodeWindow(data []byte, s Shape, w int, order binary.ByteOrder, buf []float64) window {
	n := s.Rows * s.Cols
	win := window{
		vals: buf[:n],
		rows: s.Rows,
		cols: s.Cols,
		lo:   math.Inf(1),
		hi:   math.Inf(-1),
	}
	full := firmware.FullScale(w)
	for i := 0; i < n; i++ {
		raw := firmware.ReadCell(data[i*w:], w, order, false)
		if raw == 0 || raw == full {
			win.fill++
		}
		v := float64(raw)
		win.vals[i] = v
		win.lo = math.Min(win.lo, v)
		win.hi = math.Max(win.hi, v)
	}
	return win
}

func (win window) at(r, c int) float64 {
	return win.vals[r*win.cols+c]
}

func (win window) row(r int) []float64 {
	return win.vals[r*win.cols : (r+1)*win.cols]
}

// smoothness scores how gently neighbouring cells change.
func (win window) smoothness(w int) float64 {
	n := len(win.vals)
	fillShare := float64(win.fill) / float64(n)
	if fillShare > maxFillShare || win.hi-win.lo < minSpan(w) {
		return 0
	}

	limit := (win.hi - win.lo) * stepShare
	pairs, bounded := 0, 0
	for r := 0; r < win.rows; r++ {
		for c := 0; c < win.cols; c++ {
			v := win.at(r, c)
			if c+1 < win.cols {
				pairs++
				if math.Abs(win.at(r, c+1)-v) <= limit {
					bounded++
				}
			}
			if r+1 < win.rows {
				pairs++
				if math.Abs(win.at(r+1, c)-v) <= limit {
					bounded++
				}
			}
		}
	}
	if pairs == 0 {
		return 0
	}

	keep := 1 - fillShare
	return float64(bounded) / float64(pairs) * keep * keep
}

// roughness is the mean absolute neighbour step as a share of the span.
// A table read with the wrong row length picks up the jumps where its real
// rows wrap, so the true shape reads smoother.
func (win window) roughness() float64 {
	span := win.hi - win.lo
	if span <= 0 {
		return 1
	}
	sum, pairs := 0.0, 0
	for r := 0; r < win.rows; r++ {
		for c := 0; c < win.cols; c++ {
			v := win.at(r, c)
			if c+1 < win.cols {
				sum += math.Abs(win.at(r, c+1) - v)
				pairs++
			}
			if r+1 < win.rows {
				sum += math.Abs(win.at(r+1, c) - v)
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return sum / float64(pairs) / span
}

// maxRowStep is the largest change between vertically adjacent cells.
func (win window) maxRowStep() float64 {
	step := 0.0
	for r := 0; r+1 < win.rows; r++ {
		for c := 0; c < win.cols; c++ {
			step = math.Max(step, math.Abs(win.at(r+1, c)-win.at(r, c)))
		}
	}
	return step
}

// adjoining counts the data cells of the row at off and how many of them
// stay within tol of edge. Fill cells are skipped, so a row that is half
// table and half padding still counts.
func adjoining(data []byte, off int, edge []float64, w int, order binary.ByteOrder, tol float64) (cells, near int) {
	n := len(edge)
	if n == 0 || off < 0 || off+n*w > len(data) {
		return 0, 0
	}
	full := firmware.FullScale(w)
	for i, e := range edge {
		raw := firmware.ReadCell(data[off+i*w:], w, order, false)
		if raw == 0 || raw == full {
			continue
		}
		cells++
		if math.Abs(float64(raw)-e) <= tol {
			near++
		}
	}
	return cells, near
}

// carriesOn reports whether the data runs on past the edge row at off, one
// row at a time in the direction of step. The next row must hold data that
// tracks the edge. The row after that, when it holds data, must track it
// too within twice the tolerance; stored breakpoints ahead of a table break
// that pattern where a larger table does not.
func carriesOn(data []byte, off, step int, edge []float64, w int, order binary.ByteOrder, tol float64) bool {
	n := len(edge)
	cells, near := adjoining(data, off+step, edge, w, order, tol)
	if cells*4 < n || float64(near) < continueShare*float64(cells) {
		return false
	}
	cells, near = adjoining(data, off+2*step, edge, w, order, 2*tol)
	return cells*4 < n || float64(near) >= continueShare*float64(cells)
}

// bytewise reports whether the bytes inside most cells track each other.
// Byte-wide tables read as wider cells look like that: each cell holds two
// neighbouring entries. Genuine wide cells have a slow high byte and a busy
// low byte.
func bytewise(data []byte, n, w int) bool {
	if w < 2 || n == 0 {
		return false
	}
	lo, hi := data[0], data[0]
	for _, b := range data[:n*w] {
		lo = min(lo, b)
		hi = max(hi, b)
	}
	limit := float64(hi-lo) * stepShare

	tracking := 0
	for i := 0; i < n; i++ {
		cell := data[i*w : (i+1)*w]
		ok := true
		for j := 1; j < w; j++ {
			if math.Abs(float64(cell[j])-float64(cell[j-1])) > limit {
				ok = false
				break
			}
		}
		if ok {
			tracking++
		}
	}
	return float64(tracking) >= continueShare*float64(n)
}

// monotonicity checks for Cols column breakpoints followed by Rows row
// breakpoints immediately ahead of the table. Each strictly increasing axis
// adds half a point; both together mark the candidate as having axes.
func monotonicity(data []byte, c models.Candidate, order binary.ByteOrder) (float64, bool) {
	start := c.AxisOffset()
	if start < 0 {
		return 0, false
	}
	w := c.CellWidth
	colOK := increasing(data[start:], c.Cols, w, order)
	rowOK := increasing(data[start+c.Cols*w:], c.Rows, w, order)

	score := 0.0
	if colOK {
		score += 0.5
	}
	if rowOK {
		score += 0.5
	}
	return score, colOK && rowOK
}

func increasing(data []byte, n, w int, order binary.ByteOrder) bool {
	prev := firmware.ReadCell(data, w, order, false)
	for i := 1; i < n; i++ {
		v := firmware.ReadCell(data[i*w:], w, order, false)
		if v <= prev {
			return false
		}
		prev = v
	}
	return true
}

// alignment scores the offset against common ECU calibration layouts:
// tables usually start on a page, a 64 byte line or a 16 byte paragraph.
func alignment(off int) float64 {
	switch {
	case off%0x100 == 0:
		return 1
	case off%0x40 == 0:
		return 0.75
	case off%0x10 == 0:
		return 0.5
	case off%2 == 0:
		return 0.25
	default:
		return 0
	}
}
