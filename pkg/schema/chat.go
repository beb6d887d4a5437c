package schema

// Role values accepted in a conversation turn.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single conversation turn as sent upstream.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the payload for POST {base_url}/v1/chat/completions.
// Optional parameters are pointers so unset values are omitted from the
// JSON body rather than sent as zeroes.
type ChatRequest struct {
	Model    string        `json:"model" binding:"required"`
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	User        string   `json:"user,omitempty"`
}

// ChatResponse mirrors the OpenAI-compatible completion response.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the provider-agnostic result handed back to the
// orchestration layer.
type Completion struct {
	Content string
	Model   string
	Usage   *Usage
}

// ModelInfo is one entry from the upstream model listing. Price is a
// best-effort aggregate derived from heterogeneous upstream pricing
// shapes; nil means the upstream published no usable price, which is a
// valid terminal state rather than an error.
type ModelInfo struct {
	ID    string   `json:"id"`
	Price *float64 `json:"price,omitempty"`
}
