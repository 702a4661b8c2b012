package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tosih/ecu-tuner/pkg/analysis"
	"github.com/tosih/ecu-tuner/pkg/checksum"
	"github.com/tosih/ecu-tuner/pkg/decoder"
	"github.com/tosih/ecu-tuner/pkg/firmware"
	"github.com/tosih/ecu-tuner/pkg/models"
	"github.com/tosih/ecu-tuner/pkg/strategy"
)

var uploadExtensions = []string{".bin", ".ori", ".mod", ".hex"}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// readUpload pulls the "file" part of a multipart form into memory.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds %d bytes", s.maxUpload)
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return "", nil, false
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: %v", err)
		return "", nil, false
	}
	return hdr.Filename, data, true
}

type uploadResponse struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	Size           int             `json:"size"`
	Status         string          `json:"status"`
	ChecksumValid  bool            `json:"checksum_valid"`
	ChecksumStatus checksum.Status `json:"checksum_status"`
	Note           string          `json:"note,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(uploadExtensions, ext) {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	res, err := checksum.Validate(firmware.New(data), r.FormValue("sha256"))
	if err != nil {
		s.loggerFrom(r.Context()).Warn("uploaded image failed integrity check",
			zap.String("filename", name), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:             w.Header().Get(RequestIDHeader),
		Filename:       name,
		Size:           len(data),
		Status:         "uploaded",
		ChecksumValid:  res.Valid,
		ChecksumStatus: res.Status,
		Note:           res.Note,
	})
}

// mapDefinition is the form field accepted by /api/extract for decoding a
// single known table
type mapDefinition struct {
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	StartAddress     int     `json:"start_address"`
	Columns          int     `json:"columns"`
	Rows             int     `json:"rows"`
	DataType         string  `json:"data_type"`
	IsSigned         bool    `json:"is_signed"`
	ConversionFactor float64 `json:"conversion_factor"`
	ValueOffset      float64 `json:"value_offset"`
	Unit             string  `json:"unit"`
}

func (d mapDefinition) definition() (models.Definition, error) {
	width, order, err := parseDataType(d.DataType)
	if err != nil {
		return models.Definition{}, err
	}
	if d.Rows <= 0 || d.Columns <= 0 {
		return models.Definition{}, fmt.Errorf("rows and columns must be positive")
	}
	kind := models.ParseMapName(d.Kind)
	if d.Kind == "" {
		kind = models.ParseMapName(d.Name)
	}
	return models.Definition{
		Label:     d.Name,
		Kind:      kind,
		Offset:    d.StartAddress,
		Rows:      d.Rows,
		Cols:      d.Columns,
		CellWidth: width,
		Order:     order,
		Signed:    d.IsSigned,
		Scale:     d.ConversionFactor,
		Bias:      d.ValueOffset,
		Unit:      d.Unit,
	}, nil
}

// parseDataType reads spellings like "8bit", "16bit_hi_lo", "32bit_lo_hi"
// and "uint16". Unqualified widths are big-endian.
func parseDataType(s string) (int, models.ByteOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		s = "16bit_hi_lo"
	case "uint8", "int8":
		return 1, models.BigEndian, nil
	case "uint16", "int16":
		return 2, models.BigEndian, nil
	case "uint32", "int32":
		return 4, models.BigEndian, nil
	}
	bits, suffix, _ := strings.Cut(s, "bit")
	width := 0
	switch bits {
	case "8":
		width = 1
	case "16":
		width = 2
	case "32":
		width = 4
	default:
		return 0, "", fmt.Errorf("unknown data type %q", s)
	}
	order, err := models.ParseByteOrder(strings.TrimPrefix(suffix, "_"))
	if err != nil {
		return 0, "", fmt.Errorf("unknown data type %q", s)
	}
	return width, order, nil
}

type definitionResponse struct {
	MapData       [][]float64 `json:"map_data"`
	Name          string      `json:"name"`
	Unit          string      `json:"unit"`
	LowConfidence bool        `json:"low_confidence"`
	Trusted       bool        `json:"trusted"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	logger := s.loggerFrom(r.Context())

	raw := r.FormValue("definition_json")
	if raw == "" {
		res := s.pipeline.ExtractVerified(data, r.FormValue("sha256"))
		logger.Info("extracted maps", zap.Int("size", len(data)),
			zap.Int("maps", len(res.Maps)), zap.Bool("trusted", res.Trusted))
		writeJSON(w, http.StatusOK, res.Response())
		return
	}

	var md mapDefinition
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		writeError(w, http.StatusBadRequest, "invalid definition_json: %v", err)
		return
	}
	def, err := md.definition()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid definition_json: %v", err)
		return
	}

	m, err := s.pipeline.DecodeDefinition(data, def)
	var rerr *decoder.RangeError
	if err != nil && !errors.As(err, &rerr) {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	_, cerr := checksum.Validate(firmware.New(data), r.FormValue("sha256"))
	writeJSON(w, http.StatusOK, definitionResponse{
		MapData:       m.Rows,
		Name:          m.Title(),
		Unit:          m.Unit,
		LowConfidence: m.LowConfidence,
		Trusted:       cerr == nil,
	})
}

func (s *Server) handleSafeLimit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("current_value"), 64)
	if err != nil || math.IsNaN(value) {
		writeError(w, http.StatusBadRequest, "current_value must be a number")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Evaluate(value, q.Get("strategy")))
}

type strategyResponse struct {
	strategy.Profile
	HardLimit    float64 `json:"hard_limit"`
	Conservative bool    `json:"conservative"`
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	table := s.engine.Table()
	cons := table.MostConservative()

	out := make([]strategyResponse, 0, len(table.Profiles()))
	for _, p := range table.Profiles() {
		out = append(out, strategyResponse{
			Profile:      p,
			HardLimit:    s.engine.Evaluate(0, p.Name).HardLimit,
			Conservative: p.Name == cons.Name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIdentifyMaps(w http.ResponseWriter, r *http.Request) {
	var md analysis.Metadata
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := json.NewDecoder(body).Decode(&md); err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata: %v", err)
		return
	}

	text, err := analysis.Summarize(r.Context(), s.advisor, md)
	if err != nil {
		s.loggerFrom(r.Context()).Warn("analysis unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "analysis unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": text})
}
