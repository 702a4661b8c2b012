package decoder

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
	"github.com/tosih/ecu-tuner/pkg/testimage"
)

const tol = 1e-9

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		order  binary.ByteOrder
		enc    models.ByteOrder
		signed bool
		value  func(r, c int) int64
		conv   Convention
	}{
		{"u8_fuel_scale", 1, binary.BigEndian, models.BigEndian, false, testimage.Ramp(10, 3, 2), Convention{Scale: 0.04, Offset: 0, Min: 0, Max: 100}},
		{"u8_ignition_offset", 1, binary.BigEndian, models.BigEndian, false, testimage.Ramp(30, 2, 1), Convention{Scale: 0.75, Offset: -24, Min: -30, Max: 60}},
		{"u16_be", 2, binary.BigEndian, models.BigEndian, false, testimage.Ramp(1000, 250, 40), Convention{Scale: 0.1, Min: 0, Max: 400}},
		{"u16_le", 2, binary.LittleEndian, models.LittleEndian, false, testimage.Ramp(1000, 250, 40), Convention{Scale: 0.1, Min: 0, Max: 400}},
		{"s16_be", 2, binary.BigEndian, models.BigEndian, true, testimage.Ramp(-200, 30, 10), Convention{Scale: 0.5, Offset: 1, Min: -1000, Max: 1000}},
	}

	d := New(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const rows, cols = 8, 12
			data := testimage.Build(0x400, testimage.Table{
				Offset: 0x100, Rows: rows, Cols: cols, Width: tt.width, Order: tt.order, Value: tt.value,
			})
			c := models.Candidate{Offset: 0x100, Rows: rows, Cols: cols, CellWidth: tt.width}
			conv := tt.conv

			m, err := d.Decode(firmware.New(data), c, Encoding{
				Name: models.Fuel, Order: tt.enc, Signed: tt.signed, Convention: &conv,
			})
			if err != nil {
				t.Fatal(err)
			}
			if r, cc := m.Dims(); r != rows || cc != cols {
				t.Fatalf("dims = %dx%d", r, cc)
			}
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					want := float64(tt.value(r, c))*conv.Scale + conv.Offset
					if math.Abs(m.Rows[r][c]-want) > tol {
						t.Fatalf("[%d,%d] = %v, want %v", r, c, m.Rows[r][c], want)
					}
				}
			}
		})
	}
}

func TestDecodeDefaultsToBigEndian(t *testing.T) {
	data := []byte{0x01, 0x02}
	c := models.Candidate{Offset: 0, Rows: 1, Cols: 1, CellWidth: 2}
	m, err := New(Options{}).Decode(firmware.New(data), c, Encoding{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows[0][0] != 0x0102 {
		t.Errorf("got %v, want %v", m.Rows[0][0], 0x0102)
	}
	if m.Name != models.Unknown {
		t.Errorf("name = %v", m.Name)
	}
}

func TestDecodeErrors(t *testing.T) {
	img := firmware.New(make([]byte, 64))
	tests := []struct {
		name string
		c    models.Candidate
	}{
		{"past_end", models.Candidate{Offset: 32, Rows: 8, Cols: 8, CellWidth: 1}},
		{"negative_offset", models.Candidate{Offset: -4, Rows: 2, Cols: 2, CellWidth: 1}},
		{"zero_rows", models.Candidate{Offset: 0, Rows: 0, Cols: 8, CellWidth: 1}},
		{"bad_width", models.Candidate{Offset: 0, Rows: 2, Cols: 2, CellWidth: 3}},
	}
	d := New(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := d.Decode(img, tt.c, Encoding{Name: models.Fuel})
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if m != nil {
				t.Error("no map should be returned on a decode error")
			}
		})
	}
}

func TestDecodeNonFiniteConvention(t *testing.T) {
	conv := Convention{Scale: math.Inf(1), Min: math.Inf(-1), Max: math.Inf(1)}
	_, err := New(DefaultOptions()).Decode(firmware.New(make([]byte, 4)),
		models.Candidate{Rows: 2, Cols: 2, CellWidth: 1}, Encoding{Convention: &conv})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeRangeErrorKeepsMap(t *testing.T) {
	// 200 raw * 0.75 - 24 = 126 degrees, far past any sane advance
	data := testimage.Build(64, testimage.Table{Rows: 8, Cols: 8, Width: 1, Value: func(r, c int) int64 { return 200 }})
	c := models.Candidate{Rows: 8, Cols: 8, CellWidth: 1}

	m, err := New(DefaultOptions()).Decode(firmware.New(data), c, Encoding{Name: models.Ignition})
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if m == nil || !m.LowConfidence {
		t.Fatal("map must be returned and flagged low-confidence")
	}
	if re.Implausible != 64 || re.Total != 64 {
		t.Errorf("implausible %d/%d", re.Implausible, re.Total)
	}
}

func TestDecodeTolerance(t *testing.T) {
	// 3 of 64 cells (4.7%) implausible stays under the 5% default,
	// 4 of 64 (6.25%) does not
	build := func(bad int) []byte {
		return testimage.Build(64, testimage.Table{Rows: 8, Cols: 8, Width: 1, Value: func(r, c int) int64 {
			if r*8+c < bad {
				return 250
			}
			return 50
		}})
	}
	c := models.Candidate{Rows: 8, Cols: 8, CellWidth: 1}
	d := New(DefaultOptions())

	if m, err := d.Decode(firmware.New(build(3)), c, Encoding{Name: models.Ignition}); err != nil || m.LowConfidence {
		t.Errorf("3 bad cells: err=%v low=%v", err, m.LowConfidence)
	}
	if m, err := d.Decode(firmware.New(build(4)), c, Encoding{Name: models.Ignition}); err == nil || !m.LowConfidence {
		t.Errorf("4 bad cells: err=%v", err)
	}
}

func TestDecodeAxes(t *testing.T) {
	data := testimage.Build(0x200, testimage.Table{
		Offset: 0x100, Rows: 8, Cols: 8, Width: 1, Axes: true, Value: testimage.Ramp(20, 5, 4),
	})
	c := models.Candidate{Offset: 0x100, Rows: 8, Cols: 8, CellWidth: 1, Axes: true}
	m, err := New(DefaultOptions()).Decode(firmware.New(data), c, Encoding{Name: models.Fuel})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.ColAxis) != 8 || len(m.RowAxis) != 8 {
		t.Fatalf("axes %d/%d", len(m.ColAxis), len(m.RowAxis))
	}
	if m.ColAxis[0] != 10 || m.ColAxis[7] != 80 || m.RowAxis[0] != 5 || m.RowAxis[7] != 40 {
		t.Errorf("axes = %v / %v", m.ColAxis, m.RowAxis)
	}
	if m.RowUnit != "kPa" || m.ColUnit != "rpm" {
		t.Errorf("axis units %q/%q", m.RowUnit, m.ColUnit)
	}
}

func TestConventionForUnknownName(t *testing.T) {
	c := ConventionFor("Lambda")
	if c.Scale != 1 || !math.IsInf(c.Max, 1) {
		t.Errorf("got %+v", c)
	}
}
