// Package locator finds regions of a firmware image that look like 2D
// calibration tables.
//
// Every window of a set of common table shapes is slid across the image at
// the alignment stride and scored on three signals:
//
//   - monotonicity: strictly increasing column and row breakpoints stored
//     directly ahead of the table
//   - smoothness: neighbouring cells differ by at most a quarter of the
//     window span, damped by the share of 0x00/0xFF fill cells
//   - alignment: how well the offset fits page and paragraph boundaries
//
// A window whose data carries on into the row before or after it is a slice
// of a larger table. Its smoothness is halved for each open side, and bytes
// ahead of it that belong to the same table earn no axis credit. Wide cells
// whose bytes track each other are byte data read at the wrong width and
// score no smoothness.
//
// Windows scoring at or above the threshold become candidates. Locate ranks
// them and drops any that mostly overlap a better one.
package locator

import (
	"cmp"
	"encoding/binary"
	"iter"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// Shape is a table footprint in cells
type Shape struct {
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`
}

// DefaultShapes covers 8x8 through 32x32.
var DefaultShapes = []Shape{
	{8, 8},
	{8, 16},
	{12, 12},
	{16, 8},
	{16, 16},
	{16, 32},
	{24, 24},
	{32, 32},
}

const (
	weightMonotonicity = 0.3
	weightSmoothness   = 0.5
	weightAlignment    = 0.2

	// neighbours may differ by this share of the window span
	stepShare = 0.25
	// windows with more fill cells than this are not tables
	maxFillShare = 0.5
	// overlap share above which the weaker candidate is dropped
	maxOverlap = 0.5

	// share of cells that must agree for a neighbouring row to continue a
	// window, or for wide cells to count as byte pairs
	continueShare = 0.75
	// a neighbouring row continues the window when it stays within this
	// multiple of the window's largest row-to-row step
	extendTolerance = 1.5
	// applied to smoothness for each side the data carries on past
	openPenalty = 0.5
)

// Options tunes the scan
type Options struct {
	Threshold     float64          `mapstructure:"threshold"`
	Stride        int              `mapstructure:"stride"`
	Shapes        []Shape          `mapstructure:"shapes"`
	CellWidths    []int            `mapstructure:"cell_widths"`
	Order         models.ByteOrder `mapstructure:"byte_order"`
	MaxWindows    int              `mapstructure:"max_windows"`
	MaxCandidates int              `mapstructure:"max_candidates"`
}

// DefaultOptions returns the stock scan settings.
func DefaultOptions() Options {
	return Options{
		Threshold:     0.6,
		Stride:        0x10,
		Shapes:        DefaultShapes,
		CellWidths:    []int{1, 2},
		Order:         models.BigEndian,
		MaxWindows:    1 << 20,
		MaxCandidates: 64,
	}
}

// Locator scans images. It holds no per-scan state and is safe for
// concurrent use.
type Locator struct {
	opts   Options
	logger *zap.Logger
}

// New fills unset options from DefaultOptions.
func New(opts Options, logger *zap.Logger) *Locator {
	def := DefaultOptions()
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Stride <= 0 {
		opts.Stride = def.Stride
	}
	if len(opts.Shapes) == 0 {
		opts.Shapes = def.Shapes
	}
	if len(opts.CellWidths) == 0 {
		opts.CellWidths = def.CellWidths
	}
	if opts.Order == "" {
		opts.Order = def.Order
	}
	if opts.MaxWindows <= 0 {
		opts.MaxWindows = def.MaxWindows
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{opts: opts, logger: logger}
}

// Options returns the effective settings.
func (l *Locator) Options() Options {
	return l.opts
}

// Windows lazily yields every window that meets the threshold, in scan
// order, before ranking and deduplication.
func (l *Locator) Windows(img *firmware.Image) iter.Seq[models.Candidate] {
	return func(yield func(models.Candidate) bool) {
		data := img.Bytes()
		order := l.opts.Order.Binary()
		buf := make([]float64, maxCells(l.opts.Shapes))
		windows := 0

		for off := 0; off < len(data); off += l.opts.Stride {
			for _, s := range l.opts.Shapes {
				for _, w := range l.opts.CellWidths {
					if w != 1 && w != 2 && w != 4 {
						continue
					}
					if off+s.Rows*s.Cols*w > len(data) {
						continue
					}
					if windows >= l.opts.MaxWindows {
						l.logger.Debug("scan window budget exhausted",
							zap.Int("windows", windows), zap.Int("offset", off))
						return
					}
					windows++

					c := l.score(data, off, s, w, order, buf)
					if c.Confidence < l.opts.Threshold {
						continue
					}
					if !yield(c) {
						return
					}
				}
			}
		}
	}
}

// Locate yields ranked, deduplicated candidates, best first. The scan runs
// when the sequence is ranged and may be ranged any number of times.
func (l *Locator) Locate(img *firmware.Image) iter.Seq[models.Candidate] {
	return func(yield func(models.Candidate) bool) {
		hits := slices.Collect(l.Windows(img))
		slices.SortFunc(hits, Rank)

		var kept []models.Candidate
		for _, c := range hits {
			if len(kept) >= l.opts.MaxCandidates {
				break
			}
			if overlapsAny(c, kept) {
				continue
			}
			kept = append(kept, c)
		}

		l.logger.Debug("located candidates",
			zap.Int("windows_over_threshold", len(hits)),
			zap.Int("kept", len(kept)))

		for _, c := range kept {
			if !yield(c) {
				return
			}
		}
	}
}

// Candidates collects Locate into a slice.
func (l *Locator) Candidates(img *firmware.Image) []models.Candidate {
	return slices.Collect(l.Locate(img))
}

// Rank orders candidates best first: higher confidence, then the finer cell
// width, then the larger table, then the smoother reading, then the lower
// offset.
func Rank(a, b models.Candidate) int {
	if a.Confidence != b.Confidence {
		return cmp.Compare(b.Confidence, a.Confidence)
	}
	if a.CellWidth != b.CellWidth {
		return cmp.Compare(a.CellWidth, b.CellWidth)
	}
	if ac, bc := a.Rows*a.Cols, b.Rows*b.Cols; ac != bc {
		return cmp.Compare(bc, ac)
	}
	if a.Signals.Roughness != b.Signals.Roughness {
		return cmp.Compare(a.Signals.Roughness, b.Signals.Roughness)
	}
	if a.Offset != b.Offset {
		return cmp.Compare(a.Offset, b.Offset)
	}
	return cmp.Compare(a.Rows, b.Rows)
}

func overlapsAny(c models.Candidate, kept []models.Candidate) bool {
	for _, k := range kept {
		if c.Overlap(k) > maxOverlap {
			return true
		}
	}
	return false
}

func (l *Locator) score(data []byte, off int, s Shape, w int, order binary.ByteOrder, buf []float64) models.Candidate {
	c := models.Candidate{
		Offset:    off,
		Rows:      s.Rows,
		Cols:      s.Cols,
		CellWidth: w,
		Order:     l.opts.Order,
	}

	win := decodeWindow(data[off:], s, w, order, buf)
	smooth := win.smoothness(w)
	if bytewise(data[off:c.End()], s.Rows*s.Cols, w) {
		smooth = 0
	}

	tol := extendTolerance * win.maxRowStep()
	rowBytes := s.Cols * w
	before := carriesOn(data, off, -rowBytes, win.row(0), w, order, tol)
	after := carriesOn(data, c.End()-rowBytes, rowBytes, win.row(s.Rows-1), w, order, tol)
	if before {
		smooth *= openPenalty
	} else {
		c.Signals.Monotonicity, c.Axes = monotonicity(data, c, order)
	}
	if after {
		smooth *= openPenalty
	}
	c.Signals.Smoothness = smooth
	c.Signals.Alignment = alignment(off)
	c.Signals.Roughness = math.Round(win.roughness()*1e6) / 1e6

	conf := weightMonotonicity*c.Signals.Monotonicity +
		weightSmoothness*c.Signals.Smoothness +
		weightAlignment*c.Signals.Alignment
	c.Confidence = math.Round(conf*1e4) / 1e4
	return c
}

func maxCells(shapes []Shape) int {
	n := 0
	for _, s := range shapes {
		n = max(n, s.Rows*s.Cols)
	}
	return n
}

// minSpan is the smallest raw range worth calling a table.
func minSpan(width int) float64 {
	if width == 1 {
		return 10
	}
	return 100
}
