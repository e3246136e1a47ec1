// Package httpapi serves the local control API of a running controller and
// provides the client the CLI uses to delegate to it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelctl/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.ModelDescriptor
	Status(ctx context.Context) types.StatusResponse
	StartSession(ctx context.Context, req types.StartSessionRequest) (string, error)
	StopSession(ctx context.Context, id string) error
	StopAll(ctx context.Context) error
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := handlers{svc: svc}
	r.Get("/healthz", h.healthz)
	r.Get("/models", h.models)
	r.Get("/status", h.status)
	r.Post("/sessions", h.startSession)
	r.Post("/sessions/stop-all", h.stopAll)
	r.Delete("/sessions/{id}", h.stopSession)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct{ svc Service }

// healthz godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      plain
// @Success      200  {string}  string  "ok"
// @Router       /healthz [get]
func (h handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// models godoc
// @Summary      List configured models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.Models()})
}

// status godoc
// @Summary      Instance and session status
// @Description  Sessions whose process has exited are reported once and then removed.
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// startSession godoc
// @Summary      Start a model server session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body      types.StartSessionRequest  true  "Session request"
// @Success      201   {object}  types.StartSessionResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Failure      502   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /sessions [post]
func (h handlers) startSession(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Port < 0 || req.Port > 65535 {
		writeJSONError(w, http.StatusBadRequest, "port out of range")
		return
	}
	// launches outlive the request
	id, err := h.svc.StartSession(context.WithoutCancel(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.StartSessionResponse{SessionID: id})
}

// stopSession godoc
// @Summary      Stop one session
// @Tags         sessions
// @Param        id   path  string  true  "Session id"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Router       /sessions/{id} [delete]
func (h handlers) stopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StopSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stopAll godoc
// @Summary      Stop every session and shut the controller down
// @Tags         sessions
// @Success      204
// @Failure      500   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /sessions/stop-all [post]
func (h handlers) stopAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StopAll(context.WithoutCancel(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ev := zlog.Info()
	if status >= 500 {
		ev = zlog.Error()
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
	writeJSONError(w, status, err.Error())
}
