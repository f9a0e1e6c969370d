package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a RunService over HTTP.
type Server struct {
	Service ports.RunService
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the collectors of g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the service. Requests to the
// documented routes are validated against the embedded OpenAPI document.
func NewHandler(svc ports.RunService, opts ...Option) (http.Handler, error) {
	server := &Server{
		Service: svc,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams.logger = server.logger

	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(Spec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(validator.middleware)

		r.Get("/health", server.GetHealth)
		r.Get("/info", server.GetInfo)
		r.Get("/assessments", server.ListAssessments)
		r.Post("/runs", server.StartRun)
		r.Route("/runs/{runId}", func(r chi.Router) {
			r.Get("/", server.GetRun)
			r.Post("/answer", server.AnswerRun)
			r.Post("/forward", server.ForwardRun)
			r.Post("/backward", server.BackwardRun)
			r.Post("/exit", server.ExitRun)
			r.Get("/result", server.GetRunResult)
			r.Get("/events", server.SubscribeEvents)
		})
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>arbor API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type startRequest struct {
	Assessment string `json:"assessment"`
	RunID      string `json:"runId"`
}

type answerRequest struct {
	Value   any  `json:"value"`
	Advance bool `json:"advance"`
}

type exitRequest struct {
	Reason string `json:"reason"`
}

type problem struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     arbor.Version,
		"api_version": apiVersion,
	})
}

// ListAssessments handles the GET /assessments request.
func (s *Server) ListAssessments(w http.ResponseWriter, r *http.Request) {
	names, err := s.Service.Assessments(r.Context())
	if err != nil {
		s.fail(w, "ListAssessments", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// StartRun handles the POST /runs request.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if !s.decode(w, r, &body) {
		return
	}
	snap, err := s.Service.Start(r.Context(), body.Assessment, body.RunID)
	if err != nil {
		s.fail(w, "StartRun", err)
		return
	}
	s.publish(w, http.StatusCreated, snap)
}

// GetRun handles the GET /runs/{runId} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Get(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		s.fail(w, "GetRun", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// AnswerRun handles the POST /runs/{runId}/answer request.
func (s *Server) AnswerRun(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if !s.decode(w, r, &body) {
		return
	}
	runID := chi.URLParam(r, "runId")
	snap, err := s.Service.Answer(r.Context(), runID, body.Value)
	if err == nil && body.Advance {
		snap, err = s.Service.Forward(r.Context(), runID)
	}
	if err != nil {
		s.fail(w, "AnswerRun", err)
		return
	}
	s.publish(w, http.StatusOK, snap)
}

// ForwardRun handles the POST /runs/{runId}/forward request.
func (s *Server) ForwardRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Forward(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		s.fail(w, "ForwardRun", err)
		return
	}
	s.publish(w, http.StatusOK, snap)
}

// BackwardRun handles the POST /runs/{runId}/backward request.
func (s *Server) BackwardRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Service.Backward(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		s.fail(w, "BackwardRun", err)
		return
	}
	s.publish(w, http.StatusOK, snap)
}

// ExitRun handles the POST /runs/{runId}/exit request.
func (s *Server) ExitRun(w http.ResponseWriter, r *http.Request) {
	var body exitRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	reason, err := arbor.ExitReason(body.Reason)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := s.Service.Exit(r.Context(), chi.URLParam(r, "runId"), reason)
	if err != nil {
		s.fail(w, "ExitRun", err)
		return
	}
	s.publish(w, http.StatusOK, snap)
}

// GetRunResult handles the GET /runs/{runId}/result request.
func (s *Server) GetRunResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.Service.Result(r.Context(), chi.URLParam(r, "runId"))
	if err != nil {
		s.fail(w, "GetRunResult", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrResultNotFound), errors.Is(err, domain.ErrDefinitionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRunFinished):
		return http.StatusConflict, "run_finished"
	case errors.Is(err, domain.ErrBackNotAllowed):
		return http.StatusConflict, "back_not_allowed"
	case errors.Is(err, domain.ErrNotAQuestion):
		return http.StatusConflict, "not_a_question"
	case errors.Is(err, domain.ErrIncompatibleResult), errors.Is(err, domain.ErrResumeNotAllowed):
		return http.StatusConflict, "incompatible_run"
	case errors.Is(err, answer.ErrTypeMismatch):
		return http.StatusUnprocessableEntity, "type_mismatch"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "err", err)
	} else {
		s.logger.Debug("request rejected", "op", op, "status", status, "err", err)
	}
	writeProblem(w, status, code, err)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// publish writes the snapshot and forwards it to the run's subscribers.
func (s *Server) publish(w http.ResponseWriter, status int, snap *ports.RunSnapshot) {
	if data, err := json.Marshal(snap); err == nil {
		s.Streams.Broadcast(snap.RunID, string(data))
	}
	s.writeJSON(w, status, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func writeProblem(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{Error: err.Error(), Code: code})
}
