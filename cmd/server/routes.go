package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	// Root endpoint
	mux.HandleFunc("/", s.handleRoot)

	// Health endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Session endpoints
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/retry", s.handleRetry)

	// Alignment endpoints
	mux.HandleFunc("/api/align", s.handleAlign)

	// Wrap with CORS and logging middleware
	return s.loggingMiddleware(corsMiddleware(s.config.AllowedOrigins)(mux))
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs every request and records it in the metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		s.log.Debugf("%s %s from %s", r.Method, r.URL.Path, getClientIP(r))
		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		s.log.Infof("%s %s -> %d (%v)", r.Method, r.URL.Path, wrapped.statusCode, elapsed.Round(time.Millisecond))
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(wrapped.statusCode), elapsed)
		}
	})
}

// routeLabel keeps metric label cardinality bounded.
func routeLabel(path string) string {
	switch path {
	case "/", "/health", "/metrics", "/api/status", "/api/retry", "/api/align":
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Handler builds the full handler serving metrics from gatherer
func (s *Server) Handler(gatherer prometheus.Gatherer) http.Handler {
	return s.setupRoutes(gatherer)
}

// Start starts the HTTP server
func (s *Server) Start(gatherer prometheus.Gatherer) error {
	handler := s.setupRoutes(gatherer)

	s.log.Infof("🚀 AcousticSync server starting on %s", s.config.Address)
	s.log.Infof("   Temp Dir: %s", s.config.TempDir)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	if s.session != nil {
		s.log.Infof("   Live session: %s", s.session.ID())
	}
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health        - Health check")
	s.log.Infof("   GET    /metrics       - Prometheus metrics")
	s.log.Infof("   GET    /api/status    - Live session status")
	s.log.Infof("   POST   /api/retry     - Restart the live session")
	s.log.Infof("   POST   /api/align     - Align two uploaded recordings")

	return http.ListenAndServe(s.config.Address, handler)
}
