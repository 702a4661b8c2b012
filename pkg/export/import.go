package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Grid is a table read back from a CSV export
type Grid struct {
	Title   string
	ColAxis []string
	RowAxis []string
	Rows    [][]float64
}

// ReadCSV parses a file produced by WriteCSV. It only reads the table;
// writing it back into an image is out of scope.
func ReadCSV(r io.Reader) (*Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: read csv: %w", err)
	}

	g := &Grid{}
	dataStart := -1
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		if strings.HasPrefix(record[0], "#") {
			if g.Title == "" {
				g.Title = strings.TrimSpace(strings.TrimPrefix(record[0], "#"))
			}
			continue
		}
		g.ColAxis = record[1:]
		dataStart = i + 1
		break
	}
	if dataStart < 0 {
		return nil, fmt.Errorf("export: couldn't find data header")
	}

	for _, record := range records[dataStart:] {
		if len(record) != len(g.ColAxis)+1 {
			return nil, fmt.Errorf("export: row %q has %d cells, want %d", record[0], len(record)-1, len(g.ColAxis))
		}
		row := make([]float64, len(g.ColAxis))
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("export: row %q: %w", record[0], err)
			}
			row[j] = v
		}
		g.RowAxis = append(g.RowAxis, record[0])
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}
