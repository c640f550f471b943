package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// requestTelemetry is the per-request scoped record. It is created fresh at
// request entry, populated incrementally by the handler as pipeline stages
// complete, read once after the response is produced, then discarded. Never
// shared across requests.
type requestTelemetry struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type telemetryCtxKey struct{}

// telemetryFrom returns the record attached to ctx, or nil outside the
// telemetry middleware.
func telemetryFrom(ctx context.Context) *requestTelemetry {
	tel, _ := ctx.Value(telemetryCtxKey{}).(*requestTelemetry)
	return tel
}

// TelemetryMiddleware wraps the full request lifecycle. It records
// wall-clock latency from entry to response completion and emits one
// structured log record per request, on success and on every error or
// short-circuit path; fields a request never populated report zero values.
// It does not alter the response and never fails the request.
func TelemetryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel := &requestTelemetry{}
		ctx := context.WithValue(r.Context(), telemetryCtxKey{}, tel)
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r.WithContext(ctx))
		latency := time.Since(start)

		ObserveTokens(tel.PromptTokens, tel.CompletionTokens)
		if zlog != nil {
			z := zlog.Info().
				Str("route", r.URL.Path).
				Int("status", sr.status).
				Dur("latency_ms", latency).
				Str("model", tel.Model).
				Int("prompt_tokens", tel.PromptTokens).
				Int("completion_tokens", tel.CompletionTokens)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("request")
			return
		}
		log.Printf("request route=%s status=%d dur=%s model=%s prompt_tokens=%d completion_tokens=%d",
			r.URL.Path, sr.status, latency, tel.Model, tel.PromptTokens, tel.CompletionTokens)
	})
}
