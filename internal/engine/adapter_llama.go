//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter runs generation in-process via go-llama.cpp. The model is
// loaded once at adapter construction and reused for every request.
type llamaAdapter struct {
	model   *llama.LLama
	threads int
}

// newAdapter loads the model named by cfg.Model (a gguf path in this build).
// GPUMemoryUtilization and Quantization are engine-internal concerns that
// llama.cpp resolves from the model file itself.
func newAdapter(cfg Config) (Adapter, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{}
	if cfg.ContextLen > 0 {
		mo = append(mo, llama.SetContext(cfg.ContextLen))
	}
	m, err := llama.New(cfg.Model, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaAdapter{model: m, threads: cfg.Threads}, nil
}

func (a *llamaAdapter) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	if a.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Bridge cancellation into the token callback so Predict stops early.
	a.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := a.model.Predict(prompt, mapParamsToPredictOptions(p, a.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (a *llamaAdapter) Close() error {
	if a.model != nil {
		a.model.Free()
		a.model = nil
	}
	return nil
}

func orInt(v *int, def int) int {
	if v != nil && *v > 0 {
		return *v
	}
	return def
}

func orFloat(v *float64, def float32) float32 {
	if v != nil && *v > 0 {
		return float32(*v)
	}
	return def
}

// mapParamsToPredictOptions converts sampling params into go-llama.cpp
// options, substituting the runtime defaults for nil knobs. Presence and
// frequency penalties have no llama.cpp counterpart and are dropped here.
func mapParamsToPredictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(orInt(p.MaxTokens, 128)),
		llama.SetThreads(maxInt(1, threads)),
		llama.SetTopP(orFloat(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(orInt(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(orFloat(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(orFloat(p.RepetitionPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != nil {
		po = append(po, llama.SetSeed(int(*p.Seed)))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
