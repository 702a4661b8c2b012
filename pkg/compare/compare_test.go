package compare

import (
	"testing"

	"github.com/pterm/pterm"

	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/models"
)

func fuel(offset int, rows [][]float64) *models.CalibrationMap {
	return &models.CalibrationMap{
		Name:   models.Fuel,
		Unit:   "ms",
		Rows:   rows,
		Source: models.Candidate{Offset: offset, Rows: len(rows), Cols: len(rows[0]), CellWidth: 1},
	}
}

func TestCompare(t *testing.T) {
	a := &extract.Result{Maps: []*models.CalibrationMap{
		fuel(0x100, [][]float64{{1, 2}, {3, 4}}),
		fuel(0x300, [][]float64{{1}}),
	}}
	b := &extract.Result{Maps: []*models.CalibrationMap{
		fuel(0x100, [][]float64{{1, 5}, {3, 2}}),
		fuel(0x500, [][]float64{{1}}),
	}}

	r := Compare(a, b)
	if len(r.Diffs) != 1 || len(r.OnlyA) != 1 || len(r.OnlyB) != 1 {
		t.Fatalf("report = %+v", r)
	}
	d := r.Diffs[0]
	if d.Changed != 2 || d.Total != 4 {
		t.Errorf("changed %d of %d", d.Changed, d.Total)
	}
	if d.MaxIncrease != 3 || d.MaxDecrease != -2 || d.Mean != 0.5 {
		t.Errorf("stats = %+v", d)
	}
	if r.OnlyA[0].Source.Offset != 0x300 || r.OnlyB[0].Source.Offset != 0x500 {
		t.Error("unpaired maps mixed up")
	}
}

func TestIdenticalMapsHaveNoChanges(t *testing.T) {
	m := fuel(0x100, [][]float64{{1, 2}, {3, 4}})
	r := Compare(&extract.Result{Maps: []*models.CalibrationMap{m}}, &extract.Result{Maps: []*models.CalibrationMap{m}})
	d := r.Diffs[0]
	if d.Changed != 0 || d.Mean != 0 {
		t.Errorf("diff = %+v", d)
	}
}

func TestGetDiffSymbol(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	tests := []struct {
		val  float64
		want string
	}{
		{0, "·· "},
		{-10, "▼▼ "},
		{-3, "▼  "},
		{10, "▲▲ "},
		{3, "▲  "},
		{0.5, "·  "},
	}
	for _, tt := range tests {
		if got := getDiffSymbol(tt.val, 10); got != tt.want {
			t.Errorf("%v: got %q, want %q", tt.val, got, tt.want)
		}
	}
}
