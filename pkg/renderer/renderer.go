package renderer

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/models"
)

// Display modes
const (
	ModeValues  = "values"
	ModeHeatmap = "heatmap"
	ModeSymbols = "symbols"
)

// RenderMap displays a map in a titled box
func RenderMap(m *models.CalibrationMap, displayMode string) {
	min, max := m.MinMax()
	rows, cols := m.Dims()
	title := fmt.Sprintf("%s | Offset: 0x%04X | %dx%d | Range: %.2f-%.2f %s",
		m.Title(), m.Source.Offset, rows, cols, min, max, m.Unit)

	if m.LowConfidence {
		pterm.Warning.Println("Many cells are outside the plausible range for this map type")
	}
	pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Println(BuildMapString(m, displayMode, min, max))
}

// BuildMapString creates a formatted string representation of the map.
// Axis headers come from the stored breakpoints when the map has them.
func BuildMapString(m *models.CalibrationMap, displayMode string, min, max float64) string {
	var result strings.Builder
	rows, cols := m.Dims()

	cellWidth := 6
	if displayMode != ModeValues {
		cellWidth = 4
	}

	// Header
	result.WriteString(fmt.Sprintf("%8s → |", axisUnit(m.ColUnit, m.ColAxis)))
	for j := 0; j < cols; j++ {
		label := axisLabel(m.ColAxis, j)
		if displayMode == ModeValues {
			result.WriteString(fmt.Sprintf("%6s", label))
		} else {
			result.WriteString(fmt.Sprintf("%-4s", label))
		}
	}
	result.WriteString("\n")
	result.WriteString(fmt.Sprintf("%8s   |", axisUnit(m.RowUnit, m.RowAxis)) + strings.Repeat("-", cols*cellWidth) + "\n")

	// Data rows
	for i := 0; i < rows; i++ {
		result.WriteString(fmt.Sprintf("%8s ↓ |", axisLabel(m.RowAxis, i)))
		for j := 0; j < cols; j++ {
			value := m.Rows[i][j]
			switch displayMode {
			case ModeValues:
				result.WriteString(getColorStyle(value, min, max).Sprintf("%6.2f", value))
			case ModeHeatmap:
				result.WriteString(getHeatmapBlock(value, min, max))
			default:
				symbol := getSymbolForValue(value, min, max)
				result.WriteString(symbol + symbol + symbol + symbol)
			}
		}
		result.WriteString("\n")
	}

	// Legend
	switch displayMode {
	case ModeHeatmap:
		result.WriteString("\n" + getHeatmapLegend())
	case ModeSymbols:
		result.WriteString("\nLegend: ")
		result.WriteString(pterm.FgCyan.Sprint("░") + " Low  ")
		result.WriteString(pterm.FgGreen.Sprint("▒") + " Med  ")
		result.WriteString(pterm.FgYellow.Sprint("▓") + " High  ")
		result.WriteString(pterm.FgRed.Sprint("█") + " Max")
	}

	return result.String()
}

// axisLabel is the breakpoint at i, or the index when there is no axis
func axisLabel(axis []float64, i int) string {
	if i < len(axis) {
		return fmt.Sprintf("%g", axis[i])
	}
	return fmt.Sprintf("%d", i)
}

func axisUnit(unit string, axis []float64) string {
	if len(axis) == 0 || unit == "" {
		return "idx"
	}
	return unit
}

func normalize(value, min, max float64) float64 {
	return (value - min) / (max - min)
}

func getHeatmapBlock(value, min, max float64) string {
	if max == min {
		return pterm.BgGray.Sprint("  ")
	}

	switch n := normalize(value, min, max); {
	case n < 0.2:
		return pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄")
	case n < 0.4:
		return pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄")
	case n < 0.6:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄")
	case n < 0.8:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄")
	default:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄")
	}
}

func getHeatmapLegend() string {
	var result strings.Builder
	result.WriteString("Heatmap: ")
	result.WriteString(pterm.NewStyle(pterm.BgBlue, pterm.FgWhite).Sprint("▄▄") + " Very Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgCyan, pterm.FgBlack).Sprint("▄▄") + " Low  ")
	result.WriteString(pterm.NewStyle(pterm.BgGreen, pterm.FgBlack).Sprint("▄▄") + " Medium  ")
	result.WriteString(pterm.NewStyle(pterm.BgYellow, pterm.FgBlack).Sprint("▄▄") + " High  ")
	result.WriteString(pterm.NewStyle(pterm.BgRed, pterm.FgWhite).Sprint("▄▄") + " Very High")
	return result.String()
}

func getSymbolForValue(value, min, max float64) string {
	if max == min {
		return pterm.FgGray.Sprint("·")
	}

	switch n := normalize(value, min, max); {
	case n < 0.25:
		return pterm.FgCyan.Sprint("░")
	case n < 0.5:
		return pterm.FgGreen.Sprint("▒")
	case n < 0.75:
		return pterm.FgYellow.Sprint("▓")
	default:
		return pterm.FgRed.Sprint("█")
	}
}

func getColorStyle(value, min, max float64) *pterm.Style {
	if max == min {
		return pterm.NewStyle(pterm.FgGray)
	}

	switch n := normalize(value, min, max); {
	case n < 0.25:
		return pterm.NewStyle(pterm.FgCyan)
	case n < 0.5:
		return pterm.NewStyle(pterm.FgGreen)
	case n < 0.75:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgRed)
	}
}
