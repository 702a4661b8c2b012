package extract

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/tosih/ecu-tuner/pkg/checksum"
	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
	"github.com/tosih/ecu-tuner/pkg/testimage"
)

var fuelTable = testimage.Table{
	Offset: 0x200,
	Rows:   16,
	Cols:   16,
	Width:  1,
	Axes:   true,
	Value:  testimage.Ramp(20, 5, 4),
}

func fuelDef(kind models.MapName, scale float64) models.Definition {
	return models.Definition{
		Label:     "Main Fuel",
		Kind:      kind,
		Offset:    0x200,
		Rows:      16,
		Cols:      16,
		CellWidth: 1,
		Order:     models.BigEndian,
		Scale:     scale,
	}
}

func TestExtractLocatesTable(t *testing.T) {
	res := New(Config{}).Extract(testimage.Build(0x1000, fuelTable))

	if !res.Trusted || res.Checksum.Status != checksum.Unverified {
		t.Errorf("trusted=%v status=%v", res.Trusted, res.Checksum.Status)
	}
	if len(res.Maps) != 1 {
		t.Fatalf("got %d maps", len(res.Maps))
	}
	m := res.Maps[0]
	if m.Source.Offset != 0x200 || m.Name != models.Unknown || m.Declared {
		t.Errorf("map = %+v", m.Source)
	}
	if r, c := m.Dims(); r != 16 || c != 16 {
		t.Errorf("dims = %dx%d", r, c)
	}
	if m.Rows[0][0] != 20 || m.Rows[15][15] != 20+75+60 {
		t.Errorf("corners = %v, %v", m.Rows[0][0], m.Rows[15][15])
	}
	if len(m.ColAxis) != 16 || m.ColAxis[0] != 10 || m.RowAxis[1] != 10 {
		t.Errorf("axes = %v / %v", m.ColAxis, m.RowAxis)
	}
}

func TestExtractPlainTableIsOneMap(t *testing.T) {
	plain := fuelTable
	plain.Axes = false
	res := New(Config{}).Extract(testimage.Build(0x1000, plain))

	if len(res.Maps) != 1 {
		for _, m := range res.Maps {
			t.Logf("map at %#x %dx%d/%dB", m.Source.Offset, m.Source.Rows, m.Source.Cols, m.Source.CellWidth)
		}
		t.Fatalf("got %d maps", len(res.Maps))
	}
	src := res.Maps[0].Source
	if src.Offset != 0x200 || src.Rows != 16 || src.Cols != 16 || src.CellWidth != 1 {
		t.Errorf("source = %+v", src)
	}
	if src.Axes || res.Maps[0].ColAxis != nil {
		t.Errorf("plain table decoded with axes")
	}
}

func TestExtractWithContainerHeader(t *testing.T) {
	data := firmware.Wrap(testimage.Build(0x1000, fuelTable), "BOSCH", 1)
	res := New(Config{}).Extract(data)

	if !res.Trusted || res.Checksum.Status != checksum.Confirmed {
		t.Fatalf("trusted=%v status=%v", res.Trusted, res.Checksum.Status)
	}
	if res.Vendor != "BOSCH" {
		t.Errorf("vendor = %q", res.Vendor)
	}
	if len(res.Maps) == 0 || res.Maps[0].Source.Offset != firmware.HeaderSize+0x200 {
		t.Errorf("maps = %v", res.Maps)
	}
}

func TestExtractTruncatedImageIsUntrusted(t *testing.T) {
	data := firmware.Wrap(testimage.Build(0x1000, fuelTable), "BOSCH", 1)
	data = data[:len(data)-0x100]

	res := New(Config{}).Extract(data)
	if res.Trusted || res.Checksum.Valid {
		t.Fatal("truncated image should not be trusted")
	}
	var ierr *checksum.IntegrityError
	if !errors.As(res.Integrity, &ierr) {
		t.Fatalf("integrity = %v", res.Integrity)
	}
	if len(res.Maps) == 0 {
		t.Error("maps should still be extracted from an untrusted image")
	}
	if w := res.Response().Warning; w == "" {
		t.Error("response should carry a warning")
	}
}

func TestExtractDigestMismatch(t *testing.T) {
	data := testimage.Build(0x1000, fuelTable)
	res := New(Config{}).ExtractVerified(data, "00")
	if res.Trusted || res.Checksum.Status != checksum.Invalid {
		t.Errorf("trusted=%v status=%v", res.Trusted, res.Checksum.Status)
	}

	res = New(Config{}).ExtractVerified(data, checksum.Digest(data))
	if !res.Trusted || res.Checksum.Status != checksum.Confirmed {
		t.Errorf("trusted=%v status=%v", res.Trusted, res.Checksum.Status)
	}
}

func TestExtractDeterministic(t *testing.T) {
	data := testimage.Build(0x2000,
		fuelTable,
		testimage.Table{Offset: 0x1000, Rows: 8, Cols: 16, Width: 2, Axes: true, Value: testimage.Ramp(1000, 300, 120)},
	)
	a := New(Config{}).Extract(data).Response()
	for _, workers := range []int{1, 2, 8} {
		b := New(Config{Workers: workers}).Extract(data).Response()
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("workers=%d: results differ", workers)
		}
	}
}

func TestDeclaredDefinitionSupersedesLocated(t *testing.T) {
	p := New(Config{Definitions: []models.Definition{fuelDef(models.Fuel, 0.01)}})
	res := p.Extract(testimage.Build(0x1000, fuelTable))

	if len(res.Maps) != 1 {
		t.Fatalf("got %d maps", len(res.Maps))
	}
	m := res.Maps[0]
	if !m.Declared || m.Name != models.Fuel || m.Label != "Main Fuel" {
		t.Errorf("map = %+v", m)
	}
	if m.Source.Confidence != 1 || m.LowConfidence {
		t.Errorf("confidence=%v low=%v", m.Source.Confidence, m.LowConfidence)
	}
	if math.Abs(m.Rows[0][0]-0.2) > 1e-9 {
		t.Errorf("cell = %v", m.Rows[0][0])
	}
}

func TestImplausibleMapIsKeptAndFlagged(t *testing.T) {
	// ignition convention: 0.75*raw - 24, so raw above 112 leaves [-30, 60]
	p := New(Config{Definitions: []models.Definition{fuelDef(models.Ignition, 0)}})
	res := p.Extract(testimage.Build(0x1000, fuelTable))

	if len(res.Maps) != 1 {
		t.Fatalf("got %d maps", len(res.Maps))
	}
	if !res.Maps[0].LowConfidence {
		t.Error("expected low confidence flag")
	}
	if !res.Response().Maps[0].LowConfidence {
		t.Error("flag lost in response")
	}
}

func TestUndecodableDefinitionIsDropped(t *testing.T) {
	def := fuelDef(models.Fuel, 0.01)
	def.Offset = 0x0F80
	p := New(Config{Definitions: []models.Definition{def}})
	res := p.Extract(testimage.Build(0x1000, fuelTable))

	if res.Dropped != 1 {
		t.Errorf("dropped = %d", res.Dropped)
	}
	for _, m := range res.Maps {
		if m.Declared {
			t.Errorf("out of range definition decoded: %+v", m.Source)
		}
	}
}

func TestExtractEmptyImage(t *testing.T) {
	res := New(Config{}).Extract(nil)
	if res.Trusted {
		t.Error("empty image trusted")
	}
	if len(res.Maps) != 0 {
		t.Errorf("maps = %v", res.Maps)
	}

	b, err := json.Marshal(res.Response())
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"checksum_valid", "checksum_status", "trusted", "maps"} {
		if _, ok := body[k]; !ok {
			t.Errorf("missing key %q in %s", k, b)
		}
	}
	if maps, ok := body["maps"].([]any); !ok || len(maps) != 0 {
		t.Errorf("maps = %v", body["maps"])
	}
}

func TestDecodeDefinition(t *testing.T) {
	p := New(Config{})
	data := testimage.Build(0x1000, fuelTable)

	m, err := p.DecodeDefinition(data, fuelDef(models.Fuel, 0.01))
	if err != nil || m == nil || !m.Declared {
		t.Fatalf("m=%v err=%v", m, err)
	}

	def := fuelDef(models.Fuel, 0.01)
	def.Offset = 0x2000
	_, err = p.DecodeDefinition(data, def)
	var derr *decoder.DecodeError
	if !errors.As(err, &derr) {
		t.Errorf("err = %v", err)
	}

	m, err = p.DecodeDefinition(data, fuelDef(models.Ignition, 0))
	var rerr *decoder.RangeError
	if !errors.As(err, &rerr) || m == nil || !m.LowConfidence {
		t.Errorf("m=%v err=%v", m, err)
	}
}
