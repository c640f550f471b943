// Package service implements the completion request pipeline: prompt
// normalization, sampling parameter construction, admission to the shared
// engine, generation, token accounting and response assembly.
package service

import (
	"context"
	"errors"
	"time"

	"inferd/internal/engine"
	"inferd/internal/tokencount"
	"inferd/pkg/types"
)

// Object tags distinguishing the two completion forms.
const (
	ObjectTextCompletion = "text_completion"
	ObjectChatCompletion = "chat.completion"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// Generator is the engine operation the service depends on.
// *engine.Handle satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, p engine.Params) (string, error)
}

// Config holds service tunables.
type Config struct {
	// MaxQueueDepth bounds requests waiting for the engine (0 = default).
	MaxQueueDepth int
	// MaxWait bounds how long a request waits for an engine slot before
	// being rejected as too busy (0 = default).
	MaxWait time.Duration
}

// Service coordinates completion requests against the single shared engine.
// Generation runs on the calling goroutine; concurrent requests serialize on
// the engine through the admission gate (one in-flight generation, bounded
// FIFO queue), so the HTTP dispatch layer itself is never blocked.
type Service struct {
	gen     Generator
	maxWait time.Duration
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
}

// New constructs a Service around the given generator.
func New(gen Generator, cfg Config) *Service {
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	wait := cfg.MaxWait
	if wait <= 0 {
		wait = defaultMaxWait
	}
	return &Service{
		gen:     gen,
		maxWait: wait,
		genCh:   make(chan struct{}, 1),
		queueCh: make(chan struct{}, depth),
	}
}

// PromptText resolves the request's prompt source. A flat prompt is returned
// verbatim and wins over messages; otherwise message contents are
// concatenated in list order with no separator. A request carrying neither
// field is rejected rather than silently treated as an empty prompt.
func PromptText(req types.CompletionRequest) (string, error) {
	if req.Prompt != nil {
		return *req.Prompt, nil
	}
	if req.Messages == nil {
		return "", invalidRequestError{msg: "either prompt or messages is required"}
	}
	var b []byte
	for _, m := range req.Messages {
		b = append(b, m.Content...)
	}
	return string(b), nil
}

// Complete runs the full pipeline for one request and returns the assembled
// response tagged with the given object type.
func (s *Service) Complete(ctx context.Context, req types.CompletionRequest, object string) (types.CompletionResponse, error) {
	prompt, err := PromptText(req)
	if err != nil {
		return types.CompletionResponse{}, err
	}
	params := buildParams(req)

	release, err := s.beginGeneration(ctx)
	if err != nil {
		return types.CompletionResponse{}, err
	}
	defer release()

	text, err := s.gen.Generate(ctx, prompt, params)
	if err != nil {
		if engine.IsUnavailable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return types.CompletionResponse{}, err
		}
		return types.CompletionResponse{}, generationError{cause: err}
	}

	promptTokens := tokencount.Count(prompt)
	completionTokens := tokencount.Count(text)
	return assemble(object, req.Model, text, promptTokens, completionTokens), nil
}
