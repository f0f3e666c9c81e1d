package core

import (
	"context"

	"aide/core/llm"
)

const (
	DefaultSystemPrompt = "You are a helpful assistant. Keep replies concise and friendly."
	DefaultModel        = "llama-3.1-8b-instant"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 512
)

// Completer turns one user message into an assistant reply using the
// user's history as context.
type Completer struct {
	LLM          llm.Provider
	History      History
	SystemPrompt string
	Request      llm.RequestConfig
}

func NewCompleter(provider llm.Provider, history History, systemPrompt string, req llm.RequestConfig) *Completer {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Completer{
		LLM:          provider,
		History:      history,
		SystemPrompt: systemPrompt,
		Request:      req,
	}
}

// Complete calls the provider and records both turns only when it succeeds.
func (c *Completer) Complete(ctx context.Context, userID UserID, text string) (string, error) {
	history := c.History.Get(userID)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: c.SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	reply, err := c.LLM.Chat(ctx, messages, c.Request)
	if err != nil {
		return "", err
	}

	c.History.Append(userID, llm.RoleUser, text)
	c.History.Append(userID, llm.RoleAssistant, reply)
	return reply, nil
}
