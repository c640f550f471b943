package service

import (
	"inferd/internal/engine"
	"inferd/pkg/types"
)

// buildParams copies each generation knob from the request into the matching
// sampling field. Absent/null knobs pass through as nil ("use engine
// default"); no bounds checking happens here. N is fixed at 1.
func buildParams(req types.CompletionRequest) engine.Params {
	return engine.Params{
		N:                 1,
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		TopK:              req.TopK,
		RepetitionPenalty: req.RepetitionPenalty,
		PresencePenalty:   req.PresencePenalty,
		FrequencyPenalty:  req.FrequencyPenalty,
		Logprobs:          req.Logprobs,
		Stop:              []string(req.Stop),
		Seed:              req.Seed,
	}
}
