// Package http provides the JSON API in front of the gateway.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roelfdiedericks/floragate/internal/gateway"
	. "github.com/roelfdiedericks/floragate/internal/logging"
	. "github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// Server represents the HTTP server
type Server struct {
	server     *http.Server
	gateway    atomic.Pointer[gateway.Gateway]
	limiter    *RateLimiter
	chatSchema *jsonschema.Schema
	drawSchema *jsonschema.Schema
	wg         sync.WaitGroup
	addr       string

	maxBody         int64
	allowOrigin     string
	trustProxy      bool
	shutdownTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen            string // Address to listen on (e.g., ":3378", "127.0.0.1:3378")
	MaxBodyBytes      int64
	RequestsPerSecond float64 // per client IP, <= 0 disables
	Burst             int
	AllowOrigin       string // CORS origin, empty disables CORS headers
	TrustProxy        bool   // honor X-Forwarded-For and X-Real-IP for rate limiting
	ShutdownTimeout   time.Duration
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *ServerConfig, gw *gateway.Gateway) (*Server, error) {
	listen := cfg.Listen
	if listen == "" {
		listen = ":3378"
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 5 * time.Second
	}

	chatSchema, err := compileSchema("chat.json")
	if err != nil {
		return nil, err
	}
	drawSchema, err := compileSchema("draw.json")
	if err != nil {
		return nil, err
	}

	s := &Server{
		limiter:         NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		chatSchema:      chatSchema,
		drawSchema:      drawSchema,
		maxBody:         maxBody,
		allowOrigin:     cfg.AllowOrigin,
		trustProxy:      cfg.TrustProxy,
		shutdownTimeout: shutdown,
	}
	s.gateway.Store(gw)

	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute, // a full cascade can take several attempt timeouts
		IdleTimeout:       120 * time.Second,
	}

	L_debug("http: server created", "listen", listen, "maxBody", maxBody, "rps", cfg.RequestsPerSecond)
	return s, nil
}

// SetGateway swaps the gateway used for new requests. In-flight requests
// finish on the one they started with.
func (s *Server) SetGateway(gw *gateway.Gateway) {
	s.gateway.Store(gw)
}

func (s *Server) gw() *gateway.Gateway {
	return s.gateway.Load()
}

// Handler returns the routed handler with the middleware chain applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.rateLimit(s.handleChat))
	mux.HandleFunc("POST /api/draw", s.rateLimit(s.handleDraw))
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// logging -> request id -> strip headers -> cors -> recover -> routes
	return s.logRequest(s.requestID(s.stripHeaders(s.cors(s.recoverPanic(mux.ServeHTTP)))))
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("http: server starting", "addr", s.addr)

		err := s.server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			L_error("http: server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address after Start
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		L_error("http: shutdown error", "error", err)
		return err
	}

	s.wg.Wait()
	L_info("http: server stopped")
	return nil
}

// logRequest wraps an HTTP handler to log requests
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(lw, r)

		MetricDuration("http", r.Method+" "+r.URL.Path, time.Since(start))
		L_debug("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"request", types.RequestID(r.Context()),
			"duration", time.Since(start))
	}
}

// loggingResponseWriter wraps ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// requestID propagates a sane inbound X-Request-ID or mints a new one
func (s *Server) requestID(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !requestIDRe.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		handler(w, r.WithContext(types.WithRequestID(r.Context(), id)))
	}
}

// stripHeaders removes fingerprinting headers
func (s *Server) stripHeaders(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Server")
		w.Header().Del("X-Powered-By")

		handler(w, r)
	}
}

// cors answers preflight requests and tags responses for browser clients
func (s *Server) cors(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}
}

// recoverPanic turns a handler panic into a 500 instead of a dropped connection
func (s *Server) recoverPanic(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				L_error("http: handler panicked", "path", r.URL.Path, "request", types.RequestID(r.Context()), "panic", rec)
				MetricFailWithReason("http", "handler", "panic")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		handler(w, r)
	}
}
