package service

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"inferd/pkg/types"
)

// newResponseID returns a fresh completion identifier. Uniqueness is
// expected but not guaranteed by contract.
func newResponseID() string {
	u := uuid.New()
	return "cmpl-" + hex.EncodeToString(u[:])
}

// assemble builds the unified response: exactly one choice (index 0, role
// "assistant", finish reason absent) and usage totals satisfying
// total = prompt + completion.
func assemble(object, model, text string, promptTokens, completionTokens int) types.CompletionResponse {
	return types.CompletionResponse{
		ID:      newResponseID(),
		Object:  object,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.CompletionChoice{
			{Index: 0, Message: types.ChatMessage{Role: "assistant", Content: text}},
		},
		Usage: types.UsageInfo{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}
