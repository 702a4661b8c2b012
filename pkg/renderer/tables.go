package renderer

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/models"
	"github.com/tosih/ecu-tuner/pkg/safelimit"
	"github.com/tosih/ecu-tuner/pkg/strategy"
)

// ListDefinitions displays a definition set in a table
func ListDefinitions(name string, defs []models.Definition) {
	pterm.DefaultHeader.WithFullWidth().Println("Declared Maps: " + name)

	data := pterm.TableData{
		{"Name", "Kind", "Offset", "Size", "Unit", "Description"},
	}
	for _, d := range defs {
		data = append(data, []string{
			d.Label,
			string(d.Kind),
			fmt.Sprintf("0x%04X", d.Offset),
			fmt.Sprintf("%dx%d", d.Rows, d.Cols),
			d.Unit,
			d.Description,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Summary renders the checksum verdict and a table of extracted maps
func Summary(res *extract.Result) {
	switch {
	case !res.Trusted:
		pterm.Error.Printf("Integrity check failed: %v\n", res.Integrity)
		pterm.Warning.Println("Maps below are untrusted. Do not flash values derived from them.")
	case res.Checksum.Note != "":
		pterm.Warning.Printf("Checksum %s: %s\n", res.Checksum.Status, res.Checksum.Note)
	default:
		pterm.Success.Printf("Checksum %s (%s)\n", res.Checksum.Status, res.Checksum.Algorithm)
	}

	if len(res.Maps) == 0 {
		pterm.Info.Println("No calibration maps found")
		return
	}

	pterm.DefaultTable.WithHasHeader().WithData(SummaryTable(res)).Render()
	pterm.Info.Printf("Found %d map(s)", len(res.Maps))
	if res.Dropped > 0 {
		pterm.Printf(", %d candidate(s) could not be decoded", res.Dropped)
	}
	pterm.Println()
}

// SummaryTable builds the rows Summary renders
func SummaryTable(res *extract.Result) pterm.TableData {
	data := pterm.TableData{
		{"#", "Name", "Offset", "Size", "Cell", "Confidence", "Range", "Flags"},
	}
	for i, m := range res.Maps {
		rows, cols := m.Dims()
		min, max := m.MinMax()
		data = append(data, []string{
			fmt.Sprintf("%d", i),
			m.Title(),
			fmt.Sprintf("0x%04X", m.Source.Offset),
			fmt.Sprintf("%dx%d", rows, cols),
			fmt.Sprintf("%dB %s", m.Source.CellWidth, m.Source.Order),
			fmt.Sprintf("%.2f", m.Source.Confidence),
			fmt.Sprintf("%.2f-%.2f %s", min, max, m.Unit),
			flags(m),
		})
	}
	return data
}

func flags(m *models.CalibrationMap) string {
	var f []string
	if m.Declared {
		f = append(f, "declared")
	}
	if m.Source.Axes {
		f = append(f, "axes")
	}
	if m.LowConfidence {
		f = append(f, pterm.FgYellow.Sprint("low-confidence"))
	}
	return strings.Join(f, ",")
}

// ListStrategies shows each profile with the ceiling it enforces
func ListStrategies(t *strategy.Table) {
	cons := t.MostConservative()
	data := pterm.TableData{
		{"Strategy", "Risk Multiplier", "Hard Limit", ""},
	}
	for _, p := range t.Profiles() {
		note := ""
		switch {
		case p.Name == cons.Name:
			note = "fallback for unknown names"
		case p.Override:
			note = "only when chosen by name"
		}
		data = append(data, []string{
			p.Name,
			fmt.Sprintf("%.2f", p.Multiplier),
			fmt.Sprintf("%.2f", safelimit.Compute(0, p).HardLimit),
			note,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Limit renders a safe-limit verdict with a risk bar
func Limit(value float64, requested string, res safelimit.Result) {
	if res.Fallback {
		pterm.Warning.Printf("Unknown strategy %q, using %s\n", requested, res.Profile.Name)
	}

	bar := riskBar(res.RiskScore, 40)
	pterm.Printf("Strategy:   %s (x%.2f)\n", res.Profile.Name, res.Profile.Multiplier)
	pterm.Printf("Value:      %.2f\n", value)
	pterm.Printf("Hard limit: %.2f\n", res.HardLimit)
	pterm.Printf("Risk:       %s %.1f\n", bar, res.RiskScore)

	if res.IsSafe {
		pterm.Success.Println("Within the hard limit")
	} else {
		pterm.Error.Println("Exceeds the hard limit")
	}
}

func riskBar(risk float64, width int) string {
	filled := int(risk / safelimit.MaxRisk * float64(width))
	filled = max(0, min(width, filled))

	style := pterm.FgGreen
	switch {
	case risk >= 75:
		style = pterm.FgRed
	case risk >= 50:
		style = pterm.FgYellow
	}
	return style.Sprint(strings.Repeat("█", filled)) + pterm.FgGray.Sprint(strings.Repeat("░", width-filled))
}
