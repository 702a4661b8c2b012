// Package decoder turns a located region into a typed calibration table.
package decoder

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// Convention is the linear transform and plausible range for a map kind:
// physical = raw*Scale + Offset.
type Convention struct {
	Scale   float64
	Offset  float64
	Unit    string
	RowUnit string
	ColUnit string
	Min     float64
	Max     float64
}

var conventions = map[models.MapName]Convention{
	models.Fuel: {
		Scale: 0.01, Unit: "mg/stroke",
		RowUnit: "kPa", ColUnit: "rpm",
		Min: 0, Max: 150,
	},
	models.Boost: {
		Scale: 0.1, Unit: "kPa",
		RowUnit: "rpm", ColUnit: "%",
		Min: 0, Max: 400,
	},
	models.Ignition: {
		Scale: 0.75, Offset: -24, Unit: "deg",
		RowUnit: "kPa", ColUnit: "rpm",
		Min: -30, Max: 60,
	},
	models.Unknown: {
		Scale: 1, Unit: "raw",
		RowUnit: "index", ColUnit: "index",
		Min: math.Inf(-1), Max: math.Inf(1),
	},
}

// ConventionFor returns the stock convention for name, Unknown's when the
// name has none.
func ConventionFor(name models.MapName) Convention {
	if c, ok := conventions[name]; ok {
		return c
	}
	return conventions[models.Unknown]
}

// Encoding says how to read a candidate's cells
type Encoding struct {
	Name   models.MapName
	Label  string
	Order  models.ByteOrder
	Signed bool
	// Convention replaces the stock one for Name when set
	Convention *Convention
	Declared   bool
}

// Options tunes decoding
type Options struct {
	// Tolerance is the share of implausible cells accepted before the map
	// is flagged low-confidence
	Tolerance float64          `mapstructure:"tolerance"`
	Order     models.ByteOrder `mapstructure:"byte_order"`
}

// DefaultOptions returns a 5% tolerance and big-endian cells.
func DefaultOptions() Options {
	return Options{Tolerance: 0.05, Order: models.BigEndian}
}

// Decoder is stateless and safe for concurrent use
type Decoder struct {
	opts Options
}

// New fills unset options from DefaultOptions.
func New(opts Options) *Decoder {
	def := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Order == "" {
		opts.Order = def.Order
	}
	return &Decoder{opts: opts}
}

// DecodeError means the candidate cannot be read at all.
type DecodeError struct {
	Candidate models.Candidate
	Reason    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoder: %s at %v", e.Reason, e.Candidate)
}

// RangeError means too many decoded cells are outside the plausible range
// for the map kind. The map is still returned, flagged LowConfidence.
type RangeError struct {
	Name        models.MapName
	Implausible int
	Total       int
	Min         float64
	Max         float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("decoder: %d of %d %s cells outside [%g, %g]",
		e.Implausible, e.Total, e.Name, e.Min, e.Max)
}

// Decode reads c from img. On *RangeError the returned map is non-nil.
func (d *Decoder) Decode(img *firmware.Image, c models.Candidate, enc Encoding) (*models.CalibrationMap, error) {
	if c.Rows <= 0 || c.Cols <= 0 {
		return nil, &DecodeError{Candidate: c, Reason: "empty shape"}
	}
	if c.CellWidth != 1 && c.CellWidth != 2 && c.CellWidth != 4 {
		return nil, &DecodeError{Candidate: c, Reason: fmt.Sprintf("unsupported cell width %d", c.CellWidth)}
	}
	raw, ok := img.Slice(c.Offset, c.Size())
	if !ok {
		return nil, &DecodeError{Candidate: c, Reason: fmt.Sprintf("range exceeds image of %d bytes", img.Len())}
	}

	name := enc.Name
	if name == "" {
		name = models.Unknown
	}
	conv := ConventionFor(name)
	if enc.Convention != nil {
		conv = *enc.Convention
	}
	if math.IsNaN(conv.Scale) || math.IsInf(conv.Scale, 0) || math.IsNaN(conv.Offset) || math.IsInf(conv.Offset, 0) {
		return nil, &DecodeError{Candidate: c, Reason: "non-finite scale or offset"}
	}

	order := enc.Order
	if order == "" {
		order = d.opts.Order
	}
	bo := order.Binary()

	m := &models.CalibrationMap{
		Name:     name,
		Label:    enc.Label,
		Unit:     conv.Unit,
		RowUnit:  conv.RowUnit,
		ColUnit:  conv.ColUnit,
		Rows:     make([][]float64, c.Rows),
		Source:   c,
		Declared: enc.Declared,
	}
	m.Source.Order = order

	implausible := 0
	w := c.CellWidth
	for i := 0; i < c.Rows; i++ {
		row := make([]float64, c.Cols)
		for j := 0; j < c.Cols; j++ {
			v := float64(firmware.ReadCell(raw[(i*c.Cols+j)*w:], w, bo, enc.Signed))*conv.Scale + conv.Offset
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &DecodeError{Candidate: c, Reason: fmt.Sprintf("non-finite value at [%d,%d]", i, j)}
			}
			if v < conv.Min || v > conv.Max {
				implausible++
			}
			row[j] = v
		}
		m.Rows[i] = row
	}

	if c.Axes {
		m.ColAxis, m.RowAxis = decodeAxes(img, c, bo, enc.Signed)
	}

	total := c.Rows * c.Cols
	if float64(implausible) > d.opts.Tolerance*float64(total) {
		m.LowConfidence = true
		return m, &RangeError{
			Name:        name,
			Implausible: implausible,
			Total:       total,
			Min:         conv.Min,
			Max:         conv.Max,
		}
	}
	return m, nil
}

// decodeAxes reads raw breakpoints stored ahead of the table.
func decodeAxes(img *firmware.Image, c models.Candidate, order binary.ByteOrder, signed bool) ([]float64, []float64) {
	w := c.CellWidth
	raw, ok := img.Slice(c.AxisOffset(), (c.Rows+c.Cols)*w)
	if !ok {
		return nil, nil
	}
	cols := make([]float64, c.Cols)
	for i := range cols {
		cols[i] = float64(firmware.ReadCell(raw[i*w:], w, order, signed))
	}
	rows := make([]float64, c.Rows)
	base := c.Cols * w
	for i := range rows {
		rows[i] = float64(firmware.ReadCell(raw[base+i*w:], w, order, signed))
	}
	return cols, rows
}
