package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trvd/internal/pipeline"
	"trvd/internal/slot"
	"trvd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Execute(ctx context.Context, req types.ExecuteRequest) (*types.PipelineResult, error)
	Status() types.StatusResponse
	Roles() []types.Artifact
	Unload(ctx context.Context) error
	Ready() bool
}

// NewMux builds the router with all endpoints and middleware.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Post("/execute", func(w http.ResponseWriter, r *http.Request) { handleExecute(svc, w, r) })

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/roles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.RolesResponse{Artifacts: svc.Roles()})
	})

	r.Post("/unload", func(w http.ResponseWriter, r *http.Request) {
		joined, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Unload(joined); err != nil {
			status := http.StatusInternalServerError
			if slot.IsTooBusy(err) {
				status = http.StatusTooManyRequests
				IncrementBackpressure("unload")
			}
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func handleExecute(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo && zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Str("language", req.Language)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("execute start")
	}

	// Join the server base context with the request context so shutdown
	// cancels in-flight work too.
	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if executeTimeout > 0 {
		var tcancel context.CancelFunc
		joined, tcancel = context.WithTimeout(joined, time.Duration(executeTimeout)*time.Second)
		defer tcancel()
	}

	res, err := svc.Execute(joined, req)
	if err != nil {
		// Client disconnect or shutdown: nothing useful to write.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusForError(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("slot_busy")
		}
		writeExecuteError(w, status, err, res)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Err(err).Msg("execute end")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
	if lvl >= LevelInfo && zlog != nil {
		z := zlog.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).
			Float64("elapsed_seconds", res.ElapsedSeconds)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("execute end")
	}
}

// statusForError maps pipeline and slot errors to HTTP status codes.
func statusForError(err error) int {
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	switch pipeline.Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "role_not_found":
		return http.StatusNotFound
	case "busy":
		return http.StatusTooManyRequests
	case "out_of_memory":
		return http.StatusInsufficientStorage
	case "engine_unavailable":
		return http.StatusServiceUnavailable
	case "cancelled":
		return http.StatusServiceUnavailable
	default:
		// model_load, generation, reclaim_timeout, internal
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
