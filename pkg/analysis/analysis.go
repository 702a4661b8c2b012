// Package analysis is the boundary to an optional free-text advisor, such
// as a hosted language model. Its output is advisory: nothing in the
// extraction or safe-limit paths reads it.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/tosih/ecu-tuner/pkg/extract"
)

// ErrAnalysisUnavailable is returned when no advisor is configured or the
// advisor could not answer.
var ErrAnalysisUnavailable = errors.New("analysis: unavailable")

// MapSummary describes one extracted map without its cell data
type MapSummary struct {
	Name          string  `json:"name"`
	Offset        int     `json:"offset"`
	Rows          int     `json:"rows"`
	Cols          int     `json:"cols"`
	CellWidth     int     `json:"cell_width"`
	Confidence    float64 `json:"confidence"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Unit          string  `json:"unit"`
	LowConfidence bool    `json:"low_confidence"`
}

// Metadata is what an advisor gets to see
type Metadata struct {
	Size           int          `json:"size"`
	Vendor         string       `json:"vendor,omitempty"`
	ChecksumStatus string       `json:"checksum_status"`
	Maps           []MapSummary `json:"maps"`
}

// Summarizer turns extraction metadata into prose
type Summarizer interface {
	Summarize(ctx context.Context, md Metadata) (string, error)
}

// Disabled is the advisor used when none is configured.
type Disabled struct{}

// Summarize always fails with ErrAnalysisUnavailable.
func (Disabled) Summarize(context.Context, Metadata) (string, error) {
	return "", ErrAnalysisUnavailable
}

// FromResult builds advisor metadata from an extraction.
func FromResult(res *extract.Result) Metadata {
	md := Metadata{
		Size:           res.Size,
		Vendor:         res.Vendor,
		ChecksumStatus: res.Checksum.Status.String(),
		Maps:           make([]MapSummary, 0, len(res.Maps)),
	}
	for _, m := range res.Maps {
		lo, hi := m.MinMax()
		md.Maps = append(md.Maps, MapSummary{
			Name:          m.Title(),
			Offset:        m.Source.Offset,
			Rows:          m.Source.Rows,
			Cols:          m.Source.Cols,
			CellWidth:     m.Source.CellWidth,
			Confidence:    m.Source.Confidence,
			Min:           lo,
			Max:           hi,
			Unit:          m.Unit,
			LowConfidence: m.LowConfidence,
		})
	}
	return md
}

// Summarize asks s for a description and folds every failure into
// ErrAnalysisUnavailable so callers need only one check.
func Summarize(ctx context.Context, s Summarizer, md Metadata) (string, error) {
	if s == nil {
		return "", ErrAnalysisUnavailable
	}
	text, err := s.Summarize(ctx, md)
	if err != nil {
		if errors.Is(err, ErrAnalysisUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	return text, nil
}
