package scanner

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/locator"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// ScanResult holds information about a potential map location
type ScanResult struct {
	models.Candidate
	Min      float64
	Max      float64
	Variance float64
	Preview  string
}

// Scan lists raw windows over the locator threshold, before ranking and
// deduplication, capped at limit (0 for no cap).
func Scan(img *firmware.Image, loc *locator.Locator, limit int) []ScanResult {
	var results []ScanResult
	for c := range loc.Windows(img) {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, describe(img, c))
	}
	return results
}

// Ranked is Scan over the ranked, deduplicated candidates.
func Ranked(img *firmware.Image, loc *locator.Locator) []ScanResult {
	var results []ScanResult
	for c := range loc.Locate(img) {
		results = append(results, describe(img, c))
	}
	return results
}

func describe(img *firmware.Image, c models.Candidate) ScanResult {
	r := ScanResult{Candidate: c}
	raw, ok := img.Slice(c.Offset, c.Size())
	if !ok {
		return r
	}

	order := c.Order.Binary()
	values := make([]float64, c.Rows*c.Cols)
	for i := range values {
		values[i] = float64(firmware.ReadCell(raw[i*c.CellWidth:], c.CellWidth, order, false))
	}
	r.Min, r.Max, r.Variance = calculateStats(values)

	// Create preview
	var preview strings.Builder
	for i := 0; i < 8/c.CellWidth && i < len(values); i++ {
		preview.WriteString(fmt.Sprintf("%0*X ", c.CellWidth*2, int64(values[i])))
	}
	r.Preview = preview.String() + "..."
	return r
}

func calculateStats(values []float64) (float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	min := values[0]
	max := values[0]
	sum := 0.0

	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	avg := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	variance /= float64(len(values))

	return min, max, variance
}

// Display renders scan results in a table
func Display(results []ScanResult) {
	pterm.DefaultSection.Println("Potential Map Locations")

	if len(results) == 0 {
		pterm.Info.Println("No potential maps found")
		return
	}

	tableData := pterm.TableData{
		{"Offset", "Size", "Cell", "Conf", "Mono", "Smooth", "Align", "Min", "Max", "Variance", "Preview"},
	}

	for _, result := range results {
		tableData = append(tableData, []string{
			fmt.Sprintf("0x%04X", result.Offset),
			fmt.Sprintf("%dx%d", result.Rows, result.Cols),
			fmt.Sprintf("%dB %s", result.CellWidth, result.Order),
			fmt.Sprintf("%.2f", result.Confidence),
			fmt.Sprintf("%.2f", result.Signals.Monotonicity),
			fmt.Sprintf("%.2f", result.Signals.Smoothness),
			fmt.Sprintf("%.2f", result.Signals.Alignment),
			fmt.Sprintf("%.0f", result.Min),
			fmt.Sprintf("%.0f", result.Max),
			fmt.Sprintf("%.1f", result.Variance),
			result.Preview,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	pterm.Info.Printf("\nFound %d potential map(s)\n", len(results))
}
