package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roelfdiedericks/floragate/internal/gateway"
	"github.com/roelfdiedericks/floragate/internal/llm"
	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// handleChat handles POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !s.decode(w, r, s.chatSchema, &req) {
		return
	}

	reply, err := s.gw().Chat(r.Context(), req)
	if err != nil {
		s.gatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleDraw handles POST /api/draw
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var req types.DrawRequest
	if !s.decode(w, r, s.drawSchema, &req) {
		return
	}

	reply, err := s.gw().Draw(r.Context(), req)
	if err != nil {
		s.gatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleStatus handles GET /api/status - configured providers, never keys
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	gw := s.gw()
	status := struct {
		Status    string               `json:"status"`
		UptimeSec int64                `json:"uptimeSec"`
		Providers []llm.ProviderStatus `json:"providers"`
	}{
		Status:    "ready",
		UptimeSec: int64(gw.Uptime() / time.Second),
		Providers: gw.Registry().Status(),
	}
	writeJSON(w, http.StatusOK, status)
}

// handleMetrics handles GET /api/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.GetInstance().GetSnapshot())
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// decode reads the size-limited body, validates it against schema and
// unmarshals it into dst. It writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := validateAgainstSchema(schema, body); err != nil {
		L_debug("http: request rejected by schema", "path", r.URL.Path, "request", types.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusBadRequest, "invalid request: "+firstLine(err.Error()))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (s *Server) gatewayError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gateway.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	L_error("http: gateway failed", "path", r.URL.Path, "request", types.RequestID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		L_debug("http: failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
