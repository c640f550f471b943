// Package engine owns the process-lifetime handle to the inference engine.
// The engine is consumed as an opaque generate(prompt, params) -> text
// operation; model loading, quantization and token generation internals stay
// behind the Adapter interface.
package engine

import (
	"context"
	"sync"
)

// Config carries engine construction parameters, read once at process start.
type Config struct {
	// Model identifier or on-disk model path.
	Model string
	// Fraction of GPU memory the engine may claim.
	GPUMemoryUtilization float64
	// Optional quantization method name, e.g. "awq" or "gptq".
	Quantization string
	// Context window size in tokens (0 = runtime default).
	ContextLen int
	// Worker threads for generation (0 = runtime default).
	Threads int
}

// Params is the engine-facing sampling configuration. Fields map 1:1 from
// the request's generation knobs; nil means "use engine default". No bounds
// checking happens here; out-of-range values are the engine's to reject or
// clamp. N is fixed at 1: multi-sample generation is not supported.
type Params struct {
	N                 int
	MaxTokens         *int
	Temperature       *float64
	TopP              *float64
	TopK              *int
	RepetitionPenalty *float64
	PresencePenalty   *float64
	FrequencyPenalty  *float64
	Logprobs          *int
	Stop              []string
	Seed              *int64
}

// Adapter abstracts the model runtime backing the handle.
type Adapter interface {
	// Generate produces a completion for prompt. Blocking; implementations
	// must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, p Params) (string, error)
	// Close releases resources held by the adapter.
	Close() error
}

// Handle is the process-wide engine handle. The underlying adapter is
// constructed at most once, on first use, and lives for the process's
// lifetime. Construction failure is latched: it is reported to every caller
// and never retried.
type Handle struct {
	cfg  Config
	ctor func(Config) (Adapter, error)

	once    sync.Once
	adapter Adapter
	err     error
}

// NewHandle returns a handle that lazily constructs the default adapter for
// this build (llama.cpp when built with the 'llama' tag).
func NewHandle(cfg Config) *Handle {
	return &Handle{cfg: cfg, ctor: newAdapter}
}

// NewHandleWithConstructor returns a handle using a custom adapter
// constructor. Used by tests and by callers embedding their own runtime.
func NewHandleWithConstructor(cfg Config, ctor func(Config) (Adapter, error)) *Handle {
	return &Handle{cfg: cfg, ctor: ctor}
}

// ensure performs the one-time construction.
func (h *Handle) ensure() error {
	h.once.Do(func() {
		a, err := h.ctor(h.cfg)
		if err != nil {
			h.err = unavailableError{msg: err.Error()}
			return
		}
		h.adapter = a
	})
	return h.err
}

// Generate runs one blocking generation against the shared engine.
func (h *Handle) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	if err := h.ensure(); err != nil {
		return "", err
	}
	return h.adapter.Generate(ctx, prompt, p)
}

// Close releases the adapter if it was ever constructed.
func (h *Handle) Close() error {
	if h.adapter != nil {
		return h.adapter.Close()
	}
	return nil
}

// unavailableError signals that the engine could not be constructed, so no
// request can be served (503 at the HTTP layer).
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return "engine unavailable: " + e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/failed engine runtime.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
