package models

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// MapName identifies what a calibration table controls
type MapName string

const (
	Fuel     MapName = "Fuel"
	Boost    MapName = "Boost"
	Ignition MapName = "Ignition"
	Unknown  MapName = "Unknown"
)

// ParseMapName maps user and definition-file spellings onto a MapName.
// Anything unrecognised becomes Unknown.
func ParseMapName(s string) MapName {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fuel", "injection":
		return Fuel
	case "boost", "turbo":
		return Boost
	case "ignition", "spark", "timing":
		return Ignition
	default:
		return Unknown
	}
}

// ByteOrder is the serialisable form of a cell byte order
type ByteOrder string

const (
	BigEndian    ByteOrder = "big"
	LittleEndian ByteOrder = "little"
)

// ParseByteOrder accepts the spellings used by definition files and flags.
// An empty string means big-endian.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "big", "be", "hi_lo", "16bit_hi_lo":
		return BigEndian, nil
	case "little", "le", "lo_hi", "16bit_lo_hi":
		return LittleEndian, nil
	default:
		return "", fmt.Errorf("models: unknown byte order %q", s)
	}
}

// Binary returns the encoding/binary order. Unset means big-endian.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Signals holds the three locator heuristics for one window, each in [0,1]
type Signals struct {
	Monotonicity float64 `json:"monotonicity"`
	Smoothness   float64 `json:"smoothness"`
	Alignment    float64 `json:"alignment"`
	// Roughness is the mean neighbour step as a share of the value span.
	// It does not feed the confidence; it separates two shapes read over
	// the same bytes.
	Roughness float64 `json:"roughness"`
}

// Candidate is a region of a firmware image that looks like a 2D table
type Candidate struct {
	Offset     int       `json:"offset"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	CellWidth  int       `json:"cell_width"`
	Order      ByteOrder `json:"byte_order"`
	Confidence float64   `json:"confidence"`
	Signals    Signals   `json:"signals"`
	// Axes is set when monotonic breakpoints were found directly ahead of
	// the table: Cols column breakpoints followed by Rows row breakpoints.
	Axes bool `json:"axes"`
}

// Size is the byte footprint of the table cells.
func (c Candidate) Size() int {
	return c.Rows * c.Cols * c.CellWidth
}

// End is the offset one past the last table byte.
func (c Candidate) End() int {
	return c.Offset + c.Size()
}

// AxisOffset is where the column breakpoints start when Axes is set.
func (c Candidate) AxisOffset() int {
	return c.Offset - (c.Rows+c.Cols)*c.CellWidth
}

// Overlap returns the byte count c shares with o as a share of c's own size.
// It is not symmetric: a slice lying inside a larger region overlaps it
// fully, the larger region overlaps the slice only partly.
func (c Candidate) Overlap(o Candidate) float64 {
	size := c.Size()
	if size <= 0 {
		return 0
	}
	lo := max(c.Offset, o.Offset)
	hi := min(c.End(), o.End())
	if hi <= lo {
		return 0
	}
	return float64(hi-lo) / float64(size)
}

func (c Candidate) String() string {
	return fmt.Sprintf("0x%04X %dx%d/%dB (%.2f)", c.Offset, c.Rows, c.Cols, c.CellWidth, c.Confidence)
}

// CalibrationMap is a decoded 2D table
type CalibrationMap struct {
	Name  MapName
	Label string
	Unit  string

	// Physical units of the row and column axes
	RowUnit string
	ColUnit string
	// Breakpoints, nil when the table has no stored axes
	RowAxis []float64
	ColAxis []float64

	Rows   [][]float64
	Source Candidate

	// LowConfidence marks a map with too many physically implausible cells
	LowConfidence bool
	// Declared maps come from a definition rather than the locator
	Declared bool
}

// Dims returns the table shape.
func (m *CalibrationMap) Dims() (int, int) {
	if len(m.Rows) == 0 {
		return 0, 0
	}
	return len(m.Rows), len(m.Rows[0])
}

// Title is the label when set, otherwise the map name.
func (m *CalibrationMap) Title() string {
	if m.Label != "" {
		return m.Label
	}
	return string(m.Name)
}

// MinMax finds the minimum and maximum values in the table
func (m *CalibrationMap) MinMax() (float64, float64) {
	return FindMinMax(m.Rows)
}

// FindMinMax finds the minimum and maximum values in map data
func FindMinMax(data [][]float64) (float64, float64) {
	if len(data) == 0 || len(data[0]) == 0 {
		return 0, 0
	}
	min := data[0][0]
	max := data[0][0]

	for _, row := range data {
		for _, val := range row {
			if val < min {
				min = val
			}
			if val > max {
				max = val
			}
		}
	}

	return min, max
}

// Definition declares a known table location, like a damos/XDF entry
type Definition struct {
	Label       string    `yaml:"name" json:"name"`
	Kind        MapName   `yaml:"kind" json:"kind"`
	Offset      int       `yaml:"offset" json:"offset"`
	Rows        int       `yaml:"rows" json:"rows"`
	Cols        int       `yaml:"cols" json:"cols"`
	CellWidth   int       `yaml:"cell_width" json:"cell_width"`
	Order       ByteOrder `yaml:"byte_order" json:"byte_order"`
	Signed      bool      `yaml:"signed" json:"signed"`
	Scale       float64   `yaml:"scale" json:"scale"`
	Bias        float64   `yaml:"offset_value" json:"offset_value"`
	Unit        string    `yaml:"unit" json:"unit"`
	Description string    `yaml:"description" json:"description"`
}

// Candidate converts the definition into a fully trusted region.
func (d Definition) Candidate() Candidate {
	return Candidate{
		Offset:     d.Offset,
		Rows:       d.Rows,
		Cols:       d.Cols,
		CellWidth:  d.CellWidth,
		Order:      d.Order,
		Confidence: 1,
	}
}
