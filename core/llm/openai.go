package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"

	"aide/core/failure"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
// (Groq, OpenAI, DeepSeek, Ollama).
type OpenAIProvider struct {
	client *openai.Client
	id     string
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout()}

	id := cfg.Provider
	if id == "" {
		id = "openai"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		id:     id,
	}
}

func (o *OpenAIProvider) ID() string { return o.id }

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message, cfg RequestConfig) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", failure.Newf(failure.Empty, "empty response from %s", o.id)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return failure.Wrap(failure.Provider, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return failure.Wrap(failure.Transport, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return failure.Wrap(failure.Transport, err)
	}

	// Past the HTTP round trip, a decode failure means a 2xx body we could
	// not read as a completion.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return failure.Wrap(failure.Malformed, err)
	}

	return failure.Wrap(failure.Transport, err)
}
