package extract

import (
	"github.com/tosih/ecu-tuner/pkg/checksum"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// MapResponse is the JSON form of a decoded map
type MapResponse struct {
	Name          models.MapName `json:"name"`
	Label         string         `json:"label,omitempty"`
	Rows          [][]float64    `json:"rows"`
	Unit          string         `json:"unit"`
	Offset        int            `json:"offset"`
	CellWidth     int            `json:"cell_width"`
	Confidence    float64        `json:"confidence"`
	LowConfidence bool           `json:"low_confidence"`
	Declared      bool           `json:"declared"`
	RowAxis       []float64      `json:"row_axis,omitempty"`
	ColAxis       []float64      `json:"col_axis,omitempty"`
}

// Response is the JSON form of an extraction
type Response struct {
	ChecksumValid  bool            `json:"checksum_valid"`
	ChecksumStatus checksum.Status `json:"checksum_status"`
	Trusted        bool            `json:"trusted"`
	Warning        string          `json:"warning,omitempty"`
	Size           int             `json:"size"`
	Vendor         string          `json:"vendor,omitempty"`
	Maps           []MapResponse   `json:"maps"`
}

// Response converts r for the API. Maps is never null.
func (r *Result) Response() Response {
	out := Response{
		ChecksumValid:  r.Checksum.Valid,
		ChecksumStatus: r.Checksum.Status,
		Trusted:        r.Trusted,
		Size:           r.Size,
		Vendor:         r.Vendor,
		Maps:           make([]MapResponse, 0, len(r.Maps)),
	}
	if r.Integrity != nil {
		out.Warning = r.Integrity.Error()
	}
	for _, m := range r.Maps {
		out.Maps = append(out.Maps, MapResponse{
			Name:          m.Name,
			Label:         m.Label,
			Rows:          m.Rows,
			Unit:          m.Unit,
			Offset:        m.Source.Offset,
			CellWidth:     m.Source.CellWidth,
			Confidence:    m.Source.Confidence,
			LowConfidence: m.LowConfidence,
			Declared:      m.Declared,
			RowAxis:       m.RowAxis,
			ColAxis:       m.ColAxis,
		})
	}
	return out
}
