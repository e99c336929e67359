// Package server exposes the response-assembly pipeline over HTTP.
//
// Routes:
//
//	POST /chat    — assemble an avatar response for a text query
//	GET  /voices  — list voices available from the speech provider
//	GET  /healthz — liveness probe
//	GET  /readyz  — readiness probe over external dependencies
//	GET  /metrics — Prometheus scrape endpoint
//
// Chat requests are serialized: the synthesis and viseme tools are too heavy
// to run concurrently on a single host, so a weighted semaphore admits one
// pipeline run at a time and queues the rest. Waiters respect client
// disconnects through the request context.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/profai/lectern/internal/health"
	"github.com/profai/lectern/internal/observe"
	"github.com/profai/lectern/internal/pipeline"
	"github.com/profai/lectern/pkg/provider/tts"
)

// maxChatBody bounds the /chat request body. Queries are short text; anything
// larger is rejected before JSON decoding.
const maxChatBody = 64 << 10

// Server handles the HTTP surface over a [pipeline.Pipeline].
type Server struct {
	pipeline *pipeline.Pipeline
	synth    tts.Synthesizer
	health   *health.Handler
	metrics  *observe.Metrics

	// gate admits one pipeline run at a time.
	gate *semaphore.Weighted
}

// Option is a functional option for configuring a Server during construction.
type Option func(*Server)

// WithMetrics overrides the metrics instance used by the HTTP middleware.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New constructs a Server over the given pipeline and speech provider. The
// checkers are evaluated by the readiness probe.
func New(pl *pipeline.Pipeline, synth tts.Synthesizer, checkers []health.Checker, opts ...Option) *Server {
	s := &Server{
		pipeline: pl,
		synth:    synth,
		health:   health.New(checkers...),
		metrics:  observe.DefaultMetrics(),
		gate:     semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the fully routed HTTP handler, wrapped with the tracing and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /voices", s.handleVoices)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

// chatRequest is the /chat request body.
type chatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if err := s.gate.Acquire(ctx, 1); err != nil {
		// Client went away while queued.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request cancelled while queued"})
		return
	}
	defer s.gate.Release(1)

	payload, err := s.pipeline.Respond(ctx, req.Message, req.Language)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrUpstreamUnavailable) {
			status = http.StatusBadGateway
		}
		log.Error("chat request failed", "status", status, "error", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.synth.ListVoices(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("listing voices failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("listing voices failed: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already out; nothing more can reach the client.
		slog.Error("encoding response failed", "error", err)
	}
}

// AnswerServiceChecker probes the external answer service with a HEAD request.
// Any HTTP response counts as reachable; only transport errors fail the check.
func AnswerServiceChecker(url string) health.Checker {
	client := &http.Client{}
	return health.Checker{
		Name: "answer_service",
		Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("unreachable: %w", err)
			}
			resp.Body.Close()
			return nil
		},
	}
}
