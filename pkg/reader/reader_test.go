package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecu.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Len() != 3 {
		t.Errorf("len = %d", img.Len())
	}

	if _, err := Load(dir); err == nil {
		t.Error("directory should not load")
	}
	if _, err := Load(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("missing file should not load")
	}
}

func TestReadParams(t *testing.T) {
	data := make([]byte, 0x8000)
	data[0x7000] = 130 // 6500 rpm
	data[0x7001] = 200 // 2000 rpm idle, implausible
	data[0x7940] = 150 // 1.5 bar

	values := ReadParams(firmware.New(data), models.M21Params)
	if len(values) != len(models.M21Params) {
		t.Fatalf("got %d values", len(values))
	}

	byName := make(map[string]models.ParamValue)
	for _, v := range values {
		byName[v.Param.Name] = v
	}

	tests := []struct {
		name      string
		value     float64
		plausible bool
	}{
		{"Rev Limiter", 6500, true},
		{"Idle Speed Target", 2000, false},
		{"Boost Limit", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := byName[tt.name]
			if !ok {
				t.Fatal("missing")
			}
			if d := v.Value - tt.value; d > 1e-9 || d < -1e-9 {
				t.Errorf("value = %v, want %v", v.Value, tt.value)
			}
			if v.Plausible != tt.plausible {
				t.Errorf("plausible = %v", v.Plausible)
			}
		})
	}
}

func TestReadParamsShortImage(t *testing.T) {
	values := ReadParams(firmware.New(make([]byte, 0x7001)), models.M21Params)
	if len(values) != 1 || values[0].Param.Name != "Rev Limiter" {
		t.Errorf("values = %+v", values)
	}
}

func TestReadParamWide(t *testing.T) {
	p := models.Param{Name: "x", Offset: 2, CellWidth: 2, Signed: true, Scale: 1, MinValue: -10, MaxValue: 10}
	v, err := ReadParam(firmware.New([]byte{0, 0, 0xFE, 0xFF}), p)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw != -2 || !v.Plausible {
		t.Errorf("got %+v", v)
	}

	p.CellWidth = 3
	if _, err := ReadParam(firmware.New(make([]byte, 8)), p); err == nil {
		t.Error("expected width error")
	}
}
