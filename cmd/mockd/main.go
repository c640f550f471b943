// mockd is a minimal OpenAI-compatible stub used ONLY for integration-mock
// tests. It answers every completion request with a canned "pong" response.
//
// Routes:
//
//	GET  /health               -> {"status":"ok"}
//	POST /v1/chat/completions  -> canned CompletionResponse
//	POST /v1/completions       -> canned CompletionResponse
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inferd/pkg/types"
)

func cannedResponse(model string) types.CompletionResponse {
	u := uuid.New()
	return types.CompletionResponse{
		ID:      "cmpl-" + hex.EncodeToString(u[:]),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.CompletionChoice{
			{Index: 0, Message: types.ChatMessage{Role: "assistant", Content: "pong"}},
		},
		Usage: types.UsageInfo{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}
}

func completions(w http.ResponseWriter, r *http.Request) {
	var req types.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Detail: "invalid JSON body"})
		return
	}
	model := req.Model
	if model == "" {
		model = "mock"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cannedResponse(model))
}

func main() {
	addr := flag.String("addr", ":5001", "HTTP listen address")
	flag.Parse()

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Post("/v1/chat/completions", completions)
	r.Post("/v1/completions", completions)

	log.Printf("mockd listening on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
