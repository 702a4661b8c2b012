package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/tosih/ecu-tuner/pkg/analysis"
	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/safelimit"
)

// Options wires the server. Nil collaborators get defaults.
type Options struct {
	Pipeline *extract.Pipeline
	Engine   *safelimit.Engine
	Advisor  analysis.Summarizer
	// MaxUpload bounds request bodies in bytes
	MaxUpload int64
	Logger    *zap.Logger
}

// Server exposes extraction and safe-limit evaluation as JSON
type Server struct {
	pipeline  *extract.Pipeline
	engine    *safelimit.Engine
	advisor   analysis.Summarizer
	maxUpload int64
	logger    *zap.Logger
	handler   http.Handler
}

func NewServer(opts Options) *Server {
	s := &Server{
		pipeline:  opts.Pipeline,
		engine:    opts.Engine,
		advisor:   opts.Advisor,
		maxUpload: opts.MaxUpload,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.pipeline == nil {
		s.pipeline = extract.New(extract.Config{Logger: s.logger})
	}
	if s.engine == nil {
		s.engine = safelimit.New(nil, s.logger)
	}
	if s.advisor == nil {
		s.advisor = analysis.Disabled{}
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/safe-limit", s.handleSafeLimit)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("POST /api/ai/identify-maps", s.handleIdentifyMaps)
	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int, open bool) error {
	addr := fmt.Sprintf(":%d", port)
	url := fmt.Sprintf("http://localhost%s/api/strategies", addr)

	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("ECU Tuning API Started")

	pterm.Info.Printf("Listening on %s\n", addr)
	pterm.Info.Println("Press Ctrl+C to stop the server")
	pterm.Println()

	if open {
		openBrowser(url)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
