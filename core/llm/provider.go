package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type RequestConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

type Provider interface {
	ID() string

	// Chat sends the full message list and returns the first choice's text.
	// Errors are wrapped with a failure.Kind.
	Chat(ctx context.Context, messages []Message, config RequestConfig) (string, error)
}
