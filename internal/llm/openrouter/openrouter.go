package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/dmalakhov/resume-ranker/internal/llm"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-4o"
)

// Completer talks to the OpenRouter chat-completions API, which mirrors the
// OpenAI wire format.
type Completer struct {
	client *resty.Client
	model  string
}

// New creates a Completer for the given API key. An empty baseURL falls back
// to the public OpenRouter endpoint.
func New(apiKey, model, baseURL string) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openrouter api key is required")
	}

	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")

	return &Completer{client: client, model: model}, nil
}

// Complete posts the chat-completions request and plucks the first choice's
// message content from the response.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("openrouter completer is not initialized")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	messages := make([]map[string]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role != llm.RoleSystem && msg.Role != llm.RoleUser {
			return "", fmt.Errorf("unsupported message role: %q", msg.Role)
		}
		messages = append(messages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	body := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		body["max_tokens"] = req.MaxOutputTokens
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", &llm.CompletionError{Provider: "openrouter", Err: err}
	}

	if resp.IsError() {
		return "", &llm.CompletionError{
			Provider: "openrouter",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())),
		}
	}

	content := gjson.Get(resp.String(), "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", &llm.CompletionError{Provider: "openrouter", Err: errors.New("empty response")}
	}

	return content, nil
}

// Model returns the default model name the completer was configured with.
func (c *Completer) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}
