package dto

// ChatCompletionRequest is the request payload for OpenAI-compatible chat
// completion APIs (OpenAI, Zhipu GLM).
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the non-streaming response payload.
type ChatCompletionResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Message Message `json:"message"`
}

// ChatUsage reports token consumption.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed SSE chunk.
type ChatCompletionChunk struct {
	Choices []ChatChunkChoice `json:"choices"`
}

// ChatChunkChoice is one choice inside a streamed chunk.
type ChatChunkChoice struct {
	Delta        ChatDelta `json:"delta"`
	FinishReason string    `json:"finish_reason"`
}

// ChatDelta is the incremental content of a streamed chunk.
type ChatDelta struct {
	Content string `json:"content"`
}
