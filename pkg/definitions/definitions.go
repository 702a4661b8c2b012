// Package definitions loads declared map locations. Files are YAML; JSON
// definition files load unchanged since JSON is valid YAML.
package definitions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// File is the on-disk layout
type File struct {
	Profile string              `yaml:"profile"`
	Maps    []models.Definition `yaml:"maps"`
}

// Load reads a definition file. A bare list of maps is accepted too.
func Load(path string) ([]models.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	return Parse(raw)
}

// Parse decodes definition file contents and validates every entry.
func Parse(raw []byte) ([]models.Definition, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		var list []models.Definition
		if lerr := yaml.Unmarshal(raw, &list); lerr != nil {
			return nil, fmt.Errorf("definitions: parse: %w", err)
		}
		f.Maps = list
	}
	for i := range f.Maps {
		if err := normalise(&f.Maps[i]); err != nil {
			return nil, fmt.Errorf("definitions: entry %d: %w", i, err)
		}
	}
	return f.Maps, nil
}

func normalise(d *models.Definition) error {
	if d.Rows <= 0 || d.Cols <= 0 {
		return fmt.Errorf("%q: rows and cols must be positive", d.Label)
	}
	if d.Offset < 0 {
		return fmt.Errorf("%q: negative offset", d.Label)
	}
	if d.CellWidth == 0 {
		d.CellWidth = 1
	}
	if d.CellWidth != 1 && d.CellWidth != 2 && d.CellWidth != 4 {
		return fmt.Errorf("%q: cell width %d", d.Label, d.CellWidth)
	}
	order, err := models.ParseByteOrder(string(d.Order))
	if err != nil {
		return err
	}
	d.Order = order
	d.Kind = models.ParseMapName(string(d.Kind))
	return nil
}

// Encoding builds the decoder hint for d: the stock convention of its kind
// with the declared scale, offset and unit laid over it.
func Encoding(d models.Definition) decoder.Encoding {
	kind := d.Kind
	if kind == "" {
		kind = models.Unknown
	}
	conv := decoder.ConventionFor(kind)
	if d.Scale != 0 {
		conv.Scale = d.Scale
		conv.Offset = d.Bias
	}
	if d.Unit != "" {
		conv.Unit = d.Unit
	}
	return decoder.Encoding{
		Name:       kind,
		Label:      d.Label,
		Order:      d.Order,
		Signed:     d.Signed,
		Convention: &conv,
		Declared:   true,
	}
}

var builtin = map[string][]models.Definition{
	"motronic-m21": motronicM21,
}

// Builtin returns a named definition set shipped with the tool.
func Builtin(name string) ([]models.Definition, bool) {
	defs, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	out := make([]models.Definition, len(defs))
	copy(out, defs)
	return out, true
}

// BuiltinNames lists the shipped definition sets.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve accepts either a builtin set name or a file path.
func Resolve(ref string) ([]models.Definition, error) {
	if ref == "" {
		return nil, nil
	}
	if defs, ok := Builtin(ref); ok {
		return defs, nil
	}
	return Load(ref)
}
