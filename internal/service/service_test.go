package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

func ptr[T any](v T) *T { return &v }

type stubGenerator struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
	params  []engine.Params
	block   chan struct{} // if non-nil, Generate waits until closed
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, p engine.Params) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, p)
	block := g.block
	g.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.out, g.err
}

func newTestService(g *stubGenerator) *Service {
	return New(g, Config{MaxQueueDepth: 2, MaxWait: 50 * time.Millisecond})
}

func TestPromptTextPrecedence(t *testing.T) {
	msgs := []types.ChatMessage{{Role: "user", Content: "hello "}, {Role: "assistant", Content: "world"}}

	got, err := PromptText(types.CompletionRequest{Prompt: ptr("flat")})
	if err != nil || got != "flat" {
		t.Fatalf("prompt form: got %q, %v", got, err)
	}

	got, err = PromptText(types.CompletionRequest{Messages: msgs})
	if err != nil || got != "hello world" {
		t.Fatalf("messages form: got %q, %v", got, err)
	}

	// Prompt wins when both are present.
	got, err = PromptText(types.CompletionRequest{Prompt: ptr("flat"), Messages: msgs})
	if err != nil || got != "flat" {
		t.Fatalf("both present: got %q, %v", got, err)
	}

	// Empty message list resolves to an empty prompt.
	got, err = PromptText(types.CompletionRequest{Messages: []types.ChatMessage{}})
	if err != nil || got != "" {
		t.Fatalf("empty messages: got %q, %v", got, err)
	}

	// Neither present is rejected.
	_, err = PromptText(types.CompletionRequest{Model: "test"})
	if !IsInvalidRequest(err) {
		t.Fatalf("neither present: err=%v, want invalid request", err)
	}
}

func TestBuildParamsPassthrough(t *testing.T) {
	req := types.CompletionRequest{
		Model:       "test",
		Temperature: ptr(0.9),
		TopK:        ptr(10),
		Stop:        types.StopList{"END"},
		Seed:        ptr(int64(7)),
	}
	p := buildParams(req)
	if p.N != 1 {
		t.Fatalf("n=%d, want 1", p.N)
	}
	if *p.Temperature != 0.9 || *p.TopK != 10 || *p.Seed != 7 {
		t.Fatalf("knobs not copied: %+v", p)
	}
	if p.MaxTokens != nil || p.TopP != nil || p.RepetitionPenalty != nil ||
		p.PresencePenalty != nil || p.FrequencyPenalty != nil || p.Logprobs != nil {
		t.Fatalf("absent knobs must stay nil: %+v", p)
	}
	if len(p.Stop) != 1 || p.Stop[0] != "END" {
		t.Fatalf("stop not copied: %v", p.Stop)
	}
}

func TestCompleteAssemblesResponse(t *testing.T) {
	g := &stubGenerator{out: "pong pong"}
	s := newTestService(g)
	resp, err := s.Complete(context.Background(), types.CompletionRequest{
		Model:  "test",
		Prompt: ptr("hello world"),
	}, ObjectTextCompletion)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Object != ObjectTextCompletion || resp.Model != "test" {
		t.Fatalf("header fields: %+v", resp)
	}
	if !strings.HasPrefix(resp.ID, "cmpl-") {
		t.Fatalf("id=%q", resp.ID)
	}
	if resp.Created == 0 {
		t.Fatal("created not set")
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices=%d, want 1", len(resp.Choices))
	}
	c := resp.Choices[0]
	if c.Index != 0 || c.Message.Role != "assistant" || c.Message.Content != "pong pong" || c.FinishReason != nil {
		t.Fatalf("choice: %+v", c)
	}
	u := resp.Usage
	if u.PromptTokens != 2 || u.CompletionTokens != 2 || u.TotalTokens != 4 {
		t.Fatalf("usage: %+v", u)
	}
	if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Fatalf("usage invariant violated: %+v", u)
	}
}

func TestCompleteWrapsGenerationFailure(t *testing.T) {
	g := &stubGenerator{err: errors.New("cuda out of memory")}
	s := newTestService(g)
	_, err := s.Complete(context.Background(), types.CompletionRequest{Model: "test", Prompt: ptr("hi")}, ObjectTextCompletion)
	if !IsGenerationFailure(err) {
		t.Fatalf("err=%v, want generation failure", err)
	}
	if !strings.Contains(err.Error(), "cuda out of memory") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestCompletePassesThroughEngineUnavailable(t *testing.T) {
	g := &stubGenerator{err: engine.ErrUnavailable("not built")}
	s := newTestService(g)
	_, err := s.Complete(context.Background(), types.CompletionRequest{Model: "test", Prompt: ptr("hi")}, ObjectTextCompletion)
	if !engine.IsUnavailable(err) {
		t.Fatalf("err=%v, want engine unavailable", err)
	}
	if IsGenerationFailure(err) {
		t.Fatal("unavailable must not be wrapped as generation failure")
	}
}

func TestCompleteRejectsWhenSaturated(t *testing.T) {
	block := make(chan struct{})
	g := &stubGenerator{out: "x", block: block}
	s := New(g, Config{MaxQueueDepth: 1, MaxWait: 30 * time.Millisecond})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		_, _ = s.Complete(context.Background(), types.CompletionRequest{Model: "test", Prompt: ptr("hi")}, ObjectTextCompletion)
	}()
	<-started
	// Wait until the first request holds the in-flight slot.
	deadline := time.Now().Add(time.Second)
	for {
		if len(s.genCh) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never acquired the gen slot")
		}
		time.Sleep(time.Millisecond)
	}

	// Second request waits in the queue and times out on the gen slot.
	_, err := s.Complete(context.Background(), types.CompletionRequest{Model: "test", Prompt: ptr("hi")}, ObjectTextCompletion)
	if !IsTooBusy(err) {
		t.Fatalf("err=%v, want too busy", err)
	}

	close(block)
	<-done
}

func TestCompleteRespectsCanceledContext(t *testing.T) {
	g := &stubGenerator{out: "x"}
	s := newTestService(g)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Complete(ctx, types.CompletionRequest{Model: "test", Prompt: ptr("hi")}, ObjectTextCompletion)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if len(g.prompts) != 0 {
		t.Fatal("engine must not run for canceled requests")
	}
}
