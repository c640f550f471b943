package types

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	// Speaker role, e.g. "user" or "assistant".
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// CompletionRequest is the payload accepted by POST /v1/completions and
// POST /v1/chat/completions. Exactly one of Prompt or Messages should be
// supplied; when both are present Prompt wins. Sampling knobs are pointers so
// that absent and explicitly-null values are passed to the engine as
// "use default" rather than zero.
type CompletionRequest struct {
	// Model identifier echoed back in the response.
	// example: meta-llama/Meta-Llama-3-8B-Instruct
	Model string `json:"model" example:"meta-llama/Meta-Llama-3-8B-Instruct"`
	// Flat prompt text (plain completion form).
	Prompt *string `json:"prompt,omitempty"`
	// Ordered chat history (chat completion form).
	Messages []ChatMessage `json:"messages,omitempty"`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK *int `json:"top_k,omitempty" example:"40"`
	// Repetition penalty.
	// example: 1.1
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty" example:"1.1"`
	// Presence penalty.
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`
	// Frequency penalty.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	// Number of log probabilities to return per token.
	Logprobs *int `json:"logprobs,omitempty"`
	// Stop sequences; accepts a single string or a list.
	Stop StopList `json:"stop,omitempty"`
	// Random seed for reproducibility.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
	// If true, the response is framed as a single event-stream chunk.
	Stream bool `json:"stream,omitempty"`
}

// UsageInfo reports token accounting for one completion.
// TotalTokens is always PromptTokens + CompletionTokens.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionChoice is one generated alternative. The service is
// single-sample, so Index is always 0 and FinishReason stays unset.
type CompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// CompletionResponse is the unified response for both completion endpoints.
type CompletionResponse struct {
	// Response identifier.
	// example: cmpl-6f1c0e7c7b1b4f4e
	ID string `json:"id" example:"cmpl-6f1c0e7c7b1b4f4e"`
	// Object tag: "text_completion" or "chat.completion".
	Object string `json:"object" example:"chat.completion"`
	// Creation time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// Echoed model identifier.
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   UsageInfo          `json:"usage"`
}

// StreamChunk is the single event-stream frame emitted when stream=true.
// It carries exactly the choices and model keys.
type StreamChunk struct {
	Choices []CompletionChoice `json:"choices"`
	Model   string             `json:"model"`
}

// ErrorResponse is the JSON error body for all error statuses.
type ErrorResponse struct {
	// Human-readable failure description.
	// example: Unauthorized
	Detail string `json:"detail" example:"Unauthorized"`
}
