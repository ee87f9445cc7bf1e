package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AcousticSync/internal/metrics"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	session *acousticsync.Session
	metrics *metrics.Metrics
	config  *ServerConfig
	log     acousticsync.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Address        string
	TempDir        string
	AllowedOrigins []string

	// Options apply to one-shot alignments.
	Options []acousticsync.Option
}

// NewServer creates a new server instance. session may be nil when no live
// sources are configured.
func NewServer(session *acousticsync.Session, m *metrics.Metrics, config *ServerConfig, log acousticsync.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		session: session,
		metrics: m,
		config:  config,
		log:     log,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "AcousticSync API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":  "GET /health",
			"metrics": "GET /metrics",
			"status":  "GET /api/status",
			"retry":   "POST /api/retry",
			"align":   "POST /api/align",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.session == nil {
		s.respondError(w, http.StatusNotFound, "No live session configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.Status())
}

// handleRetry handles POST /api/retry
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.session == nil {
		s.respondError(w, http.StatusNotFound, "No live session configured")
		return
	}
	s.session.Retry()
	s.log.Infof("Session %s restarted by client", s.session.ID())
	s.respondJSON(w, http.StatusOK, s.session.Status())
}

// handleAlign handles POST /api/align (multipart upload of local and remote)
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	var req AlignRequest
	if v := r.FormValue("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid duration")
			return
		}
		req.Duration = d
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dir := filepath.Join(s.config.TempDir, "align-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.log.Errorf("Failed to create upload dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.RemoveAll(dir)

	local, err := s.saveUpload(r, "local", dir)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	remote, err := s.saveUpload(r, "remote", dir)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := append([]acousticsync.Option{}, s.config.Options...)
	opts = append(opts, acousticsync.WithTempDir(dir), acousticsync.WithLogger(s.log))
	if req.Duration > 0 {
		opts = append(opts, acousticsync.WithManualDuration(time.Duration(req.Duration*float64(time.Second))))
	}

	start := time.Now()
	m, err := acousticsync.AlignSources(ctx,
		&audio.FileSource{Path: local, Dir: dir},
		&audio.FileSource{Path: remote, Dir: dir},
		nil, opts...)
	if err != nil {
		s.log.Errorf("Alignment misconfigured: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Server alignment configuration is invalid")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordManualAlignment(outcome(m), m.Result, time.Since(start))
	}
	if m.Phase == align.Failed {
		s.log.Warnf("Alignment failed: %v", m.Err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Alignment failed: %v", m.Err))
		return
	}

	s.log.Infof("Alignment complete: %.5fs (valid=%v)", m.Result, m.Valid())
	s.respondJSON(w, http.StatusOK, AlignResponse{
		OffsetSeconds: m.Result,
		OffsetSamples: m.OffsetSamples,
		SampleRate:    audio.AlignmentSampleRate,
		Valid:         m.Valid(),
		Peak:          m.Correlation.PeakMagnitude,
		ThresholdUp:   m.Analysis.ThresholdUp,
		Duration:      m.Duration.Seconds(),
	})
}

// saveUpload copies the multipart file field into dir and returns its path.
func (s *Server) saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		s.log.Errorf("Failed to get %s file: %v", field, err)
		return "", fmt.Errorf("%s audio file is required", field)
	}
	defer file.Close()

	path := filepath.Join(dir, field+filepath.Ext(header.Filename))
	if err := writeUpload(path, file); err != nil {
		s.log.Errorf("Failed to save %s: %v", field, err)
		return "", fmt.Errorf("failed to save %s upload", field)
	}
	return path, nil
}

func writeUpload(path string, file multipart.File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func outcome(m acousticsync.ManualAlignment) string {
	switch {
	case m.Phase == align.Failed:
		return "failed"
	case m.Valid():
		return "valid"
	default:
		return "ambiguous"
	}
}
