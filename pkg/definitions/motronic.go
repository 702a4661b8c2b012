package definitions

import "github.com/tosih/ecu-tuner/pkg/models"

// Motronic M2.1. The first three maps are confirmed across several dumps;
// the rest are scan candidates with their observed variance.
var motronicM21 = []models.Definition{
	{
		Label:       "Main Fuel Map",
		Kind:        models.Fuel,
		Offset:      0x6700,
		Rows:        8,
		Cols:        16,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.04,
		Unit:        "ms",
		Description: "Primary fuel injection duration map",
	},
	{
		Label:       "Ignition Timing Map",
		Kind:        models.Ignition,
		Offset:      0x6780,
		Rows:        8,
		Cols:        16,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.75,
		Bias:        -24.0,
		Unit:        "deg",
		Description: "Spark advance timing map",
	},
	{
		Label:       "Lambda Target Map",
		Kind:        models.Unknown,
		Offset:      0x6800,
		Rows:        8,
		Cols:        16,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.01,
		Bias:        0.5,
		Unit:        "λ",
		Description: "Target air-fuel ratio map",
	},
	{
		Label:       "Correction Table 1",
		Kind:        models.Unknown,
		Offset:      0x60C0,
		Rows:        8,
		Cols:        8,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.01,
		Unit:        "%",
		Description: "Limits/correction table (variance: 100.3)",
	},
	{
		Label:       "Fuel/Timing Trim 1",
		Kind:        models.Unknown,
		Offset:      0x6CC0,
		Rows:        8,
		Cols:        16,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.01,
		Unit:        "%",
		Description: "Fuel or timing trim table (variance: 260.9)",
	},
	{
		Label:       "Trim Table 1",
		Kind:        models.Unknown,
		Offset:      0x7140,
		Rows:        8,
		Cols:        16,
		CellWidth:   1,
		Order:       models.BigEndian,
		Scale:       0.01,
		Unit:        "%",
		Description: "Trim table (variance: 196.6)",
	},
}
