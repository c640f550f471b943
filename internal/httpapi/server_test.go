package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inferd/internal/engine"
	"inferd/internal/service"
	"inferd/pkg/types"
)

type mockService struct {
	resp types.CompletionResponse
	err  error

	gotReq    types.CompletionRequest
	gotObject string
	calls     int
}

func (m *mockService) Complete(ctx context.Context, req types.CompletionRequest, object string) (types.CompletionResponse, error) {
	m.calls++
	m.gotReq = req
	m.gotObject = object
	if m.err != nil {
		return types.CompletionResponse{}, m.err
	}
	return m.resp, nil
}

func okResponse(model string) types.CompletionResponse {
	return types.CompletionResponse{
		ID:      "cmpl-test",
		Object:  service.ObjectChatCompletion,
		Created: 1700000000,
		Model:   model,
		Choices: []types.CompletionChoice{{Index: 0, Message: types.ChatMessage{Role: "assistant", Content: "pong"}}},
		Usage:   types.UsageInfo{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := NewMux(&mockService{}, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body=%v", body)
	}
}

func TestChatCompletion(t *testing.T) {
	svc := &mockService{resp: okResponse("test")}
	r := NewMux(svc, "")
	w := postJSON(t, r, "/v1/chat/completions", `{"model":"test","messages":[{"role":"user","content":"hi"}],"max_tokens":1}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var resp types.CompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content == "" {
		t.Fatalf("choices: %+v", resp.Choices)
	}
	if resp.Usage.TotalTokens != resp.Usage.PromptTokens+resp.Usage.CompletionTokens {
		t.Fatalf("usage invariant: %+v", resp.Usage)
	}
	if svc.gotObject != service.ObjectChatCompletion {
		t.Fatalf("object=%q", svc.gotObject)
	}
}

func TestCompletionObjectTag(t *testing.T) {
	svc := &mockService{resp: okResponse("test")}
	r := NewMux(svc, "")
	w := postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hello"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.gotObject != service.ObjectTextCompletion {
		t.Fatalf("object=%q", svc.gotObject)
	}
}

func TestStreamedCompletionFraming(t *testing.T) {
	svc := &mockService{resp: okResponse("test")}
	r := NewMux(svc, "")
	w := postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hello","stream":true}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type=%s", ct)
	}
	// Body is exactly one JSON object with the keys choices and model.
	var chunk map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &chunk); err != nil {
		t.Fatalf("chunk json: %v", err)
	}
	if len(chunk) != 2 {
		t.Fatalf("chunk keys=%d, want 2 (%s)", len(chunk), w.Body.String())
	}
	if _, ok := chunk["choices"]; !ok {
		t.Fatal("missing choices key")
	}
	if _, ok := chunk["model"]; !ok {
		t.Fatal("missing model key")
	}
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	svc := &mockService{resp: okResponse("test")}
	r := NewMux(svc, "")
	w := postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hi"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	svc := &mockService{resp: okResponse("test")}
	r := NewMux(svc, "secret")

	w := postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hi"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Detail != "Unauthorized" {
		t.Fatalf("detail=%q", body.Detail)
	}
	if svc.calls != 0 {
		t.Fatal("service must not run for rejected requests")
	}

	w = postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hi"}`, map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("mismatched secret: status=%d", w.Code)
	}
	w = postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hi"}`, map[string]string{"Authorization": "Bearer secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("exact secret: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	r := NewMux(&mockService{}, "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestBadJSON(t *testing.T) {
	r := NewMux(&mockService{}, "")
	w := postJSON(t, r, "/v1/completions", "not-json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestMissingModel(t *testing.T) {
	r := NewMux(&mockService{}, "")
	w := postJSON(t, r, "/v1/completions", `{"prompt":"hi"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestWrongContentType(t *testing.T) {
	r := NewMux(&mockService{}, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", bytes.NewBufferString(`{"model":"t","prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidRequest("either prompt or messages is required"), http.StatusBadRequest},
		{service.ErrTooBusy(), http.StatusTooManyRequests},
		{engine.ErrUnavailable("not built"), http.StatusServiceUnavailable},
		{errors.New("generation failed: boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		r := NewMux(&mockService{err: c.err}, "")
		w := postJSON(t, r, "/v1/completions", `{"model":"test","prompt":"hi"}`, nil)
		if w.Code != c.want {
			t.Fatalf("err=%v: status=%d, want %d", c.err, w.Code, c.want)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("err=%v: body json: %v", c.err, err)
		}
		if body.Detail == "" {
			t.Fatalf("err=%v: empty detail", c.err)
		}
	}
}
