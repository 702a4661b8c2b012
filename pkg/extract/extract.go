// Package extract runs a firmware image through checksum validation, map
// location and decoding, and assembles the result.
package extract

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tosih/ecu-tuner/pkg/checksum"
	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/definitions"
	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/locator"
	"github.com/tosih/ecu-tuner/pkg/models"
)

// Config wires a Pipeline. Nil components get defaults.
type Config struct {
	Locator     *locator.Locator
	Decoder     *decoder.Decoder
	Definitions []models.Definition
	// Workers bounds concurrent decodes; 0 means one per candidate
	Workers int
	Logger  *zap.Logger
}

// Pipeline is safe for concurrent use. Every call works on its own image.
type Pipeline struct {
	loc     *locator.Locator
	dec     *decoder.Decoder
	defs    []models.Definition
	workers int
	logger  *zap.Logger
}

// New builds a pipeline from cfg.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Locator
	if loc == nil {
		loc = locator.New(locator.DefaultOptions(), logger)
	}
	dec := cfg.Decoder
	if dec == nil {
		dec = decoder.New(decoder.DefaultOptions())
	}
	return &Pipeline{
		loc:     loc,
		dec:     dec,
		defs:    slices.Clone(cfg.Definitions),
		workers: cfg.Workers,
		logger:  logger,
	}
}

// Result is one extraction. Maps are ordered by confidence, highest first.
type Result struct {
	Size     int
	Vendor   string
	Checksum checksum.Result
	// Trusted is false when the checksum check failed. Maps are still
	// returned but must not be flashed.
	Trusted bool
	// Integrity holds the *checksum.IntegrityError when Trusted is false
	Integrity error
	Maps      []*models.CalibrationMap
	// Dropped counts candidates that could not be decoded
	Dropped int
}

type job struct {
	cand models.Candidate
	enc  decoder.Encoding
}

// Extract runs the pipeline with no expected digest.
func (p *Pipeline) Extract(data []byte) *Result {
	return p.ExtractVerified(data, "")
}

// ExtractVerified runs the pipeline, checking the image against digest
// when one is given. It never fails: integrity problems lower trust and
// undecodable candidates are left out.
func (p *Pipeline) ExtractVerified(data []byte, digest string) *Result {
	img := firmware.New(data)
	res := &Result{Size: img.Len(), Trusted: true}
	if hdr, ok := img.Header(); ok {
		res.Vendor = hdr.Vendor
	}

	sum, err := checksum.Validate(img, digest)
	res.Checksum = sum
	if err != nil {
		res.Trusted = false
		res.Integrity = err
		p.logger.Warn("image failed integrity check, results are untrusted",
			zap.Error(err), zap.Int("size", img.Len()))
	}

	jobs := p.plan(img)
	maps := make([]*models.CalibrationMap, len(jobs))

	var g errgroup.Group
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for i, j := range jobs {
		g.Go(func() error {
			m, err := p.dec.Decode(img, j.cand, j.enc)
			var rerr *decoder.RangeError
			switch {
			case err == nil:
			case errors.As(err, &rerr):
				p.logger.Info("map flagged low confidence",
					zap.Stringer("candidate", j.cand), zap.Error(err))
			default:
				p.logger.Warn("dropping undecodable candidate",
					zap.Stringer("candidate", j.cand), zap.Error(err))
				return nil
			}
			maps[i] = m
			return nil
		})
	}
	_ = g.Wait()

	for _, m := range maps {
		if m == nil {
			res.Dropped++
			continue
		}
		res.Maps = append(res.Maps, m)
	}
	slices.SortStableFunc(res.Maps, func(a, b *models.CalibrationMap) int {
		return locator.Rank(a.Source, b.Source)
	})

	p.logger.Debug("extraction complete",
		zap.Int("maps", len(res.Maps)),
		zap.Int("dropped", res.Dropped),
		zap.Bool("trusted", res.Trusted))
	return res
}

// plan lists the declared definitions first, then located candidates that
// do not mostly cover a declared table.
func (p *Pipeline) plan(img *firmware.Image) []job {
	jobs := make([]job, 0, len(p.defs))
	declared := make([]models.Candidate, 0, len(p.defs))
	for _, d := range p.defs {
		c := d.Candidate()
		jobs = append(jobs, job{cand: c, enc: definitions.Encoding(d)})
		declared = append(declared, c)
	}

	for c := range p.loc.Locate(img) {
		if slices.ContainsFunc(declared, func(d models.Candidate) bool { return c.Overlap(d) > 0.5 }) {
			continue
		}
		jobs = append(jobs, job{
			cand: c,
			enc:  decoder.Encoding{Name: models.Unknown, Order: c.Order},
		})
	}
	return jobs
}

// DecodeDefinition reads a single declared table from data.
func (p *Pipeline) DecodeDefinition(data []byte, d models.Definition) (*models.CalibrationMap, error) {
	m, err := p.dec.Decode(firmware.New(data), d.Candidate(), definitions.Encoding(d))
	if err != nil {
		var rerr *decoder.RangeError
		if errors.As(err, &rerr) {
			return m, err
		}
		return nil, fmt.Errorf("extract: %q: %w", d.Label, err)
	}
	return m, nil
}
