package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// Diff is the cell-by-cell change of one map between two images
type Diff struct {
	Title  string
	Unit   string
	Offset int
	// Cells holds B minus A
	Cells       [][]float64
	Changed     int
	Total       int
	Mean        float64
	MaxIncrease float64
	MaxDecrease float64
}

// Report pairs the maps of two extractions
type Report struct {
	Diffs []Diff
	// OnlyA and OnlyB list maps found in just one image
	OnlyA []*models.CalibrationMap
	OnlyB []*models.CalibrationMap
}

type key struct {
	offset, rows, cols, width int
}

func keyOf(m *models.CalibrationMap) key {
	return key{m.Source.Offset, m.Source.Rows, m.Source.Cols, m.Source.CellWidth}
}

// Compare pairs maps with the same location and shape. Maps are compared
// in A's order.
func Compare(a, b *extract.Result) Report {
	inB := make(map[key]*models.CalibrationMap, len(b.Maps))
	for _, m := range b.Maps {
		inB[keyOf(m)] = m
	}

	var r Report
	seen := make(map[key]bool, len(a.Maps))
	for _, m := range a.Maps {
		k := keyOf(m)
		seen[k] = true
		other, ok := inB[k]
		if !ok {
			r.OnlyA = append(r.OnlyA, m)
			continue
		}
		r.Diffs = append(r.Diffs, compareMaps(m, other))
	}
	for _, m := range b.Maps {
		if !seen[keyOf(m)] {
			r.OnlyB = append(r.OnlyB, m)
		}
	}
	return r
}

func compareMaps(a, b *models.CalibrationMap) Diff {
	d := Diff{
		Title:  a.Title(),
		Unit:   a.Unit,
		Offset: a.Source.Offset,
		Cells:  compareMapData(a.Rows, b.Rows),
	}

	var totalDiff float64
	for _, row := range d.Cells {
		for _, v := range row {
			d.Total++
			if v == 0 {
				continue
			}
			d.Changed++
			totalDiff += v
			d.MaxIncrease = math.Max(d.MaxIncrease, v)
			d.MaxDecrease = math.Min(d.MaxDecrease, v)
		}
	}
	if d.Changed > 0 {
		d.Mean = totalDiff / float64(d.Changed)
	}
	return d
}

func compareMapData(data1, data2 [][]float64) [][]float64 {
	diff := make([][]float64, len(data1))
	for i := range data1 {
		diff[i] = make([]float64, len(data1[i]))
		for j := range data1[i] {
			diff[i][j] = data2[i][j] - data1[i][j]
		}
	}
	return diff
}

// Display renders a report, restricted to maps whose title contains filter
func Display(r Report, filter string) {
	pterm.DefaultHeader.WithFullWidth().Println("ECU File Comparison")

	filter = strings.ToLower(filter)
	for _, d := range r.Diffs {
		if filter != "" && filter != "all" && !strings.Contains(strings.ToLower(d.Title), filter) {
			continue
		}
		pterm.Println()
		pterm.DefaultSection.Printf("Comparing: %s @ 0x%04X\n", d.Title, d.Offset)
		displayComparison(d)
	}

	for _, m := range r.OnlyA {
		pterm.Warning.Printf("Only in first image: %s\n", m.Source)
	}
	for _, m := range r.OnlyB {
		pterm.Warning.Printf("Only in second image: %s\n", m.Source)
	}
}

func displayComparison(d Diff) {
	if d.Total == 0 {
		return
	}
	pterm.Info.Printf("Changed cells: %d / %d (%.1f%%)\n",
		d.Changed, d.Total, float64(d.Changed)/float64(d.Total)*100)
	if d.Changed == 0 {
		return
	}
	pterm.Info.Printf("Average change: %.2f %s\n", d.Mean, d.Unit)
	pterm.Info.Printf("Max increase: %.2f %s\n", d.MaxIncrease, d.Unit)
	pterm.Info.Printf("Max decrease: %.2f %s\n", d.MaxDecrease, d.Unit)

	pterm.Println("\nDifference Map (File2 - File1):")
	pterm.DefaultBox.Println(visualizeDifferences(d.Cells))
}

func visualizeDifferences(diff [][]float64) string {
	var result strings.Builder

	maxAbs := 0.0
	for _, row := range diff {
		for _, v := range row {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	cols := 0
	if len(diff) > 0 {
		cols = len(diff[0])
	}
	result.WriteString("  col → |")
	for j := 0; j < cols; j++ {
		result.WriteString(fmt.Sprintf("%-3d", j))
	}
	result.WriteString("\n")
	result.WriteString("  row   |" + strings.Repeat("-", cols*3) + "\n")

	for i, row := range diff {
		result.WriteString(fmt.Sprintf("  %3d ↓ |", i))
		for _, v := range row {
			result.WriteString(getDiffSymbol(v, maxAbs))
		}
		result.WriteString("\n")
	}

	result.WriteString("\nLegend: ")
	result.WriteString(pterm.FgBlue.Sprint("▼▼") + " Large Decrease  ")
	result.WriteString(pterm.FgCyan.Sprint("▼ ") + " Small Decrease  ")
	result.WriteString(pterm.FgGray.Sprint("··") + " No Change  ")
	result.WriteString(pterm.FgYellow.Sprint("▲ ") + " Small Increase  ")
	result.WriteString(pterm.FgRed.Sprint("▲▲") + " Large Increase")

	return result.String()
}

func getDiffSymbol(val, maxAbs float64) string {
	if val == 0 || maxAbs == 0 {
		return pterm.FgGray.Sprint("·· ")
	}

	normalized := val / maxAbs

	switch {
	case normalized < -0.5:
		return pterm.FgBlue.Sprint("▼▼ ")
	case normalized < -0.1:
		return pterm.FgCyan.Sprint("▼  ")
	case normalized > 0.5:
		return pterm.FgRed.Sprint("▲▲ ")
	case normalized > 0.1:
		return pterm.FgYellow.Sprint("▲  ")
	}
	return pterm.FgGray.Sprint("·  ")
}
