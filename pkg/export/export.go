package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/models"
)

// ExportMapsToCSV writes every map whose title contains filter ("all"
// matches everything) to its own CSV file under exportPath, returning the
// files written.
func ExportMapsToCSV(maps []*models.CalibrationMap, exportPath, filter string) ([]string, error) {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	spinner, _ := pterm.DefaultSpinner.Start("Exporting maps to CSV...")

	var written []string
	for _, m := range Select(maps, filter) {
		csvFilename := filepath.Join(exportPath, FileName(m))
		if err := writeFile(m, csvFilename); err != nil {
			spinner.Warning(fmt.Sprintf("Failed to export %s: %v", m.Title(), err))
			continue
		}
		written = append(written, csvFilename)
	}

	spinner.Success(fmt.Sprintf("%d map(s) exported to %s", len(written), exportPath))
	return written, nil
}

// Select returns the maps whose title or name contains filter, case
// insensitively. "all" and "" select everything.
func Select(maps []*models.CalibrationMap, filter string) []*models.CalibrationMap {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == "all" {
		return maps
	}
	var out []*models.CalibrationMap
	for _, m := range maps {
		if strings.Contains(strings.ToLower(m.Title()), filter) ||
			strings.Contains(strings.ToLower(string(m.Name)), filter) {
			out = append(out, m)
		}
	}
	return out
}

// FileName is unique per map offset so two Unknown maps never collide.
func FileName(m *models.CalibrationMap) string {
	name := strings.ReplaceAll(strings.ToLower(m.Title()), " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return fmt.Sprintf("%s_0x%04x.csv", name, m.Source.Offset)
}

func writeFile(m *models.CalibrationMap, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, m)
}

// WriteCSV writes m with a comment preamble, a breakpoint header row and
// one row per table row.
func WriteCSV(w io.Writer, m *models.CalibrationMap) error {
	writer := csv.NewWriter(w)
	rows, cols := m.Dims()

	// Write metadata as comments
	writer.Write([]string{fmt.Sprintf("# %s", m.Title())})
	writer.Write([]string{fmt.Sprintf("# Offset: 0x%04X", m.Source.Offset)})
	writer.Write([]string{fmt.Sprintf("# Size: %dx%d", rows, cols)})
	writer.Write([]string{fmt.Sprintf("# Unit: %s", m.Unit)})
	writer.Write([]string{fmt.Sprintf("# Confidence: %.4f", m.Source.Confidence)})
	if m.LowConfidence {
		writer.Write([]string{"# Low confidence: implausible values"})
	}

	header := []string{fmt.Sprintf("%s\\%s", unitOr(m.RowUnit, m.RowAxis), unitOr(m.ColUnit, m.ColAxis))}
	for j := 0; j < cols; j++ {
		header = append(header, breakpoint(m.ColAxis, j))
	}
	writer.Write(header)

	for i := 0; i < rows; i++ {
		row := []string{breakpoint(m.RowAxis, i)}
		for j := 0; j < cols; j++ {
			row = append(row, strconv.FormatFloat(m.Rows[i][j], 'f', -1, 64))
		}
		writer.Write(row)
	}

	writer.Flush()
	return writer.Error()
}

func unitOr(unit string, axis []float64) string {
	if len(axis) == 0 || unit == "" {
		return "index"
	}
	return unit
}

func breakpoint(axis []float64, i int) string {
	if i < len(axis) {
		return strconv.FormatFloat(axis[i], 'f', -1, 64)
	}
	return strconv.Itoa(i)
}
