package reader

import (
	"encoding/binary"
	"fmt"

	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// Motronic parameter blocks store multi-byte values low byte first
var order binary.ByteOrder = binary.LittleEndian

// ReadParam decodes a single scalar parameter from the image
func ReadParam(img *firmware.Image, p models.Param) (models.ParamValue, error) {
	width := p.CellWidth
	if width == 0 {
		width = 1
	}
	if width != 1 && width != 2 && width != 4 {
		return models.ParamValue{}, fmt.Errorf("reader: %s: unsupported cell width %d", p.Name, width)
	}

	b, ok := img.Slice(p.Offset, width)
	if !ok {
		return models.ParamValue{}, fmt.Errorf("reader: %s at 0x%04X is outside the %d byte image", p.Name, p.Offset, img.Len())
	}

	raw := firmware.ReadCell(b, width, order, p.Signed)
	value := float64(raw)*p.Scale + p.Bias

	return models.ParamValue{
		Param:     p,
		Value:     value,
		Raw:       raw,
		Plausible: value >= p.MinValue && value <= p.MaxValue,
	}, nil
}

// ReadParams reads every parameter that fits in the image. Parameters past
// the end of a short image are skipped.
func ReadParams(img *firmware.Image, params []models.Param) []models.ParamValue {
	values := make([]models.ParamValue, 0, len(params))
	for _, p := range params {
		v, err := ReadParam(img, p)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}
