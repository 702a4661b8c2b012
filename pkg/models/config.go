package models

// Param is a single scalar calibration value, such as a limiter
type Param struct {
	Name        string
	Offset      int
	CellWidth   int
	Signed      bool
	Scale       float64
	Bias        float64
	Unit        string
	Description string
	MinValue    float64
	MaxValue    float64
}

// ParamValue is a decoded scalar with its plausibility verdict
type ParamValue struct {
	Param     Param
	Value     float64
	Raw       int64
	Plausible bool
}

// M21Params are the scalar parameters of a Motronic M2.1 image
var M21Params = []Param{
	{
		Name:        "Rev Limiter",
		Offset:      0x7000,
		CellWidth:   1,
		Scale:       50.0,
		Unit:        "RPM",
		Description: "Maximum engine RPM limit",
		MinValue:    3000,
		MaxValue:    8000,
	},
	{
		Name:        "Idle Speed Target",
		Offset:      0x7001,
		CellWidth:   1,
		Scale:       10.0,
		Unit:        "RPM",
		Description: "Target idle speed",
		MinValue:    600,
		MaxValue:    1200,
	},
	{
		Name:        "Fuel Cut RPM",
		Offset:      0x7B40,
		CellWidth:   1,
		Scale:       50.0,
		Unit:        "RPM",
		Description: "RPM for overrun fuel cutoff",
		MinValue:    1000,
		MaxValue:    2500,
	},
	{
		Name:        "Fuel Resume RPM",
		Offset:      0x7B41,
		CellWidth:   1,
		Scale:       50.0,
		Unit:        "RPM",
		Description: "RPM for fuel resume after cutoff",
		MinValue:    800,
		MaxValue:    2000,
	},
	{
		Name:        "Coolant Temp Enrichment",
		Offset:      0x7A40,
		CellWidth:   1,
		Scale:       0.01,
		Unit:        "%",
		Description: "Coolant temperature enrichment multiplier",
		MinValue:    0,
		MaxValue:    2.0,
	},
	{
		Name:        "Throttle Opening Rate",
		Offset:      0x7980,
		CellWidth:   1,
		Scale:       1.0,
		Unit:        "%/s",
		Description: "Maximum throttle opening rate",
		MinValue:    10,
		MaxValue:    100,
	},
	{
		Name:        "Boost Limit",
		Offset:      0x7940,
		CellWidth:   1,
		Scale:       0.01,
		Unit:        "bar",
		Description: "Maximum boost pressure limit",
		MinValue:    0,
		MaxValue:    2.5,
	},
}
