// Package testimage builds synthetic firmware images for tests and demos.
package testimage

import (
	"encoding/binary"
)

// Table is a synthetic calibration table to embed in an image
type Table struct {
	Offset int
	Rows   int
	Cols   int
	Width  int
	Order  binary.ByteOrder
	// Axes writes Cols column breakpoints then Rows row breakpoints
	// immediately ahead of Offset.
	Axes  bool
	Value func(r, c int) int64
}

// Ramp returns a smooth table surface: base + r*rowStep + c*colStep.
func Ramp(base, rowStep, colStep int64) func(r, c int) int64 {
	return func(r, c int) int64 {
		return base + int64(r)*rowStep + int64(c)*colStep
	}
}

// Build returns a zero-filled image of size bytes with tables written in.
func Build(size int, tables ...Table) []byte {
	data := make([]byte, size)
	for _, t := range tables {
		Write(data, t)
	}
	return data
}

// Write embeds t into data.
func Write(data []byte, t Table) {
	w := t.Width
	if w == 0 {
		w = 1
	}
	order := t.Order
	if order == nil {
		order = binary.BigEndian
	}

	if t.Axes {
		axis := t.Offset - (t.Rows+t.Cols)*w
		step := int64(10)
		if w > 1 {
			step = 100
		}
		for i := 0; i < t.Cols; i++ {
			put(data[axis+i*w:], w, order, int64(i+1)*step)
		}
		axis += t.Cols * w
		for i := 0; i < t.Rows; i++ {
			put(data[axis+i*w:], w, order, int64(i+1)*step/2)
		}
	}

	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			put(data[t.Offset+(r*t.Cols+c)*w:], w, order, t.Value(r, c))
		}
	}
}

func put(b []byte, w int, order binary.ByteOrder, v int64) {
	switch w {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	}
}
