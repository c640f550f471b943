package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/engine"
	"inferd/internal/service"
	"inferd/internal/tokencount"
	"inferd/pkg/types"
)

// Service defines the completion operation required by the HTTP API layer.
type Service interface {
	Complete(ctx context.Context, req types.CompletionRequest, object string) (types.CompletionResponse, error)
}

// NewMux builds the router. apiKey is the configured bearer secret; empty
// means authentication is disabled.
func NewMux(svc Service, apiKey string) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(TelemetryMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// health godoc
	// @Summary  Liveness probe
	// @Produce  json
	// @Success  200 {object} map[string]string
	// @Router   /health [get]
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireAuth(apiKey))
		r.Post("/completions", completionHandler(svc, service.ObjectTextCompletion))
		r.Post("/chat/completions", completionHandler(svc, service.ObjectChatCompletion))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// completionHandler serves both completion endpoints; object selects the
// response tag ("text_completion" or "chat.completion") and which request
// field feeds the telemetry prompt-token count.
func completionHandler(svc Service, object string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}

		if tel := telemetryFrom(r.Context()); tel != nil {
			tel.Model = req.Model
			if object == service.ObjectChatCompletion {
				tel.PromptTokens = tokencount.CountMessages(req.Messages)
			} else if req.Prompt != nil {
				tel.PromptTokens = tokencount.Count(*req.Prompt)
			}
		}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Complete(joinedCtx, req, object)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			switch {
			case service.IsInvalidRequest(err):
				writeJSONError(w, http.StatusBadRequest, err.Error())
			case service.IsTooBusy(err):
				IncrementBackpressure("engine_queue")
				writeJSONError(w, http.StatusTooManyRequests, err.Error())
			case engine.IsUnavailable(err):
				writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			default:
				writeJSONError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		if tel := telemetryFrom(r.Context()); tel != nil {
			tel.CompletionTokens = resp.Usage.CompletionTokens
		}

		if req.Stream {
			sw := newStreamWriter(w)
			sw.writeHeaders()
			if err := sw.writeChunk(types.StreamChunk{Choices: resp.Choices, Model: resp.Model}); err != nil {
				return
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}
