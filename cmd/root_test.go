package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tosih/ecu-tuner/pkg/testimage"
)

func run(t *testing.T, args ...string) *bytes.Buffer {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return &out
}

func TestLimitJSON(t *testing.T) {
	out := run(t, "limit", "100", "--strategy", "Heavy Duty", "--json")

	var res map[string]any
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("bad json %q: %v", out, err)
	}
	if res["hard_limit"] != 187.5 || res["is_safe"] != true {
		t.Errorf("res = %v", res)
	}
}

func TestDefinitionsFlagResolvesBuiltin(t *testing.T) {
	run(t, "--definitions", "motronic-m21", "limit", "1", "--json")
	if len(declaredSet) != 6 {
		t.Errorf("declared = %d", len(declaredSet))
	}
}

func TestLimitRejectsNonNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	rootCmd.SetArgs([]string{"limit", "abc"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error")
	}
}

func TestExportVerify(t *testing.T) {
	img := filepath.Join(t.TempDir(), "ecu.bin")
	data := testimage.Build(0x1000, testimage.Table{
		Offset: 0x200, Rows: 16, Cols: 16, Width: 1, Axes: true,
		Value: testimage.Ramp(20, 5, 4),
	})
	if err := os.WriteFile(img, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "csv")
	run(t, "export", img, "--out", out, "--verify")

	entries, err := os.ReadDir(out)
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries = %v, err = %v", entries, err)
	}
}
