// Package http is the HTTP boundary of reviewlink: the transport endpoints
// the review UI calls, the live event stream, and the MCP endpoint for agents.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/adapters/clipboard"
	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/live"
	"github.com/aretw0/reviewlink/pkg/transport"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sender is the review dispatcher as seen from HTTP.
type Sender interface {
	Send(ctx context.Context, sessionID string, ids []string) (domain.SendResult, error)
}

// Deps are the collaborators behind the handler. Service, Sender and
// Broadcaster are required; the rest are optional.
type Deps struct {
	Service     *transport.Service
	Sender      Sender
	Broadcaster *live.Broadcaster
	CopyBuffer  *clipboard.Buffer
	Gatherer    prometheus.Gatherer
	// MCPSSE and MCPMessage are mounted under /mcp when set.
	MCPSSE     http.Handler
	MCPMessage http.Handler
	Version    string
	Logger     *slog.Logger
}

// Server holds the handlers.
type Server struct {
	deps       Deps
	logger     *slog.Logger
	apiVersion string
}

// NewHandler builds the router.
func NewHandler(deps Deps) http.Handler {
	s := &Server{deps: deps, logger: deps.Logger, apiVersion: "unknown"}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if doc, err := LoadSpec(context.Background()); err == nil && doc.Info != nil {
		s.apiVersion = doc.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/transports", func(r chi.Router) {
			r.Get("/targets", s.ListTargets)
			r.Get("/status", s.GetStatus)
			r.Get("/active", s.GetActiveConfig)
			r.Put("/active", s.PutActiveConfig)
			r.Get("/clipboard", s.GetCopyBuffer)
		})
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/send", s.SendComments)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if deps.MCPSSE != nil && deps.MCPMessage != nil {
		r.Handle("/mcp/sse", deps.MCPSSE)
		r.Handle("/mcp/message", deps.MCPMessage)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":         "reviewlink",
		"version":     strings.TrimSpace(s.deps.Version),
		"api_version": s.apiVersion,
	})
}

// ListTargets handles GET /api/transports/targets. Partial discovery
// failures are part of a 200 response.
func (s *Server) ListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.deps.Service.ListAllTargets(r.Context()))
}

// GetStatus handles GET /api/transports/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.deps.Service.AllStatus(r.Context()))
}

// GetActiveConfig handles GET /api/transports/active.
func (s *Server) GetActiveConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Service.ActiveConfig(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, cfg)
}

// PutActiveConfig handles PUT /api/transports/active.
func (s *Server) PutActiveConfig(w http.ResponseWriter, r *http.Request) {
	var body domain.ActiveConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("PutActiveConfig: Invalid request body", "error", err)
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	cfg, err := s.deps.Service.SaveActiveConfig(r.Context(), body.ActiveTransport, body.LastTargetID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, cfg)
}

type copyBufferResponse struct {
	Text     string    `json:"text"`
	CopiedAt time.Time `json:"copied_at"`
}

// GetCopyBuffer handles GET /api/transports/clipboard.
func (s *Server) GetCopyBuffer(w http.ResponseWriter, r *http.Request) {
	if s.deps.CopyBuffer == nil {
		writeJSON(w, s.logger, http.StatusNotFound, errorBody{Error: "copy buffer disabled"})
		return
	}
	text, at, ok := s.deps.CopyBuffer.Latest()
	if !ok {
		writeJSON(w, s.logger, http.StatusNotFound, errorBody{Error: "nothing copied yet"})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, copyBufferResponse{Text: text, CopiedAt: at})
}

type sendRequest struct {
	CommentIDs []string `json:"comment_ids"`
}

type sendResponse struct {
	domain.SendResult
	Warning string `json:"warning,omitempty"`
}

// SendComments handles POST /api/sessions/{sessionID}/send. An empty body
// sends every draft of the session.
func (s *Server) SendComments(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("SendComments: Invalid request body", "error", err)
		writeJSON(w, s.logger, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	res, err := s.deps.Sender.Send(r.Context(), sessionID, body.CommentIDs)
	if err != nil {
		if res.Success {
			// Delivered, but bookkeeping failed. The reviewer must not resend.
			s.logger.Error("SendComments: Delivered with storage failure", "session", sessionID, "error", err)
			writeJSON(w, s.logger, http.StatusOK, sendResponse{SendResult: res, Warning: "comments delivered but their status was not updated"})
			return
		}
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, sendResponse{SendResult: res})
}

// SubscribeEvents handles GET /api/sessions/{sessionID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sink, err := newSSESink(w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)
	if err := s.deps.Broadcaster.Serve(r.Context(), sessionID, sink); err != nil {
		s.logger.Debug("SSE: Stream ended", "session_id", sessionID, "error", err)
		return
	}
	s.logger.Info("SSE: Client disconnected", "session_id", sessionID)
}
