package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dmalakhov/resume-ranker/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// Completer wraps the Google GenAI client behind the llm.Completer contract.
type Completer struct {
	client *genai.Client
	model  string
}

// New creates a Completer configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Completer{client: client, model: model}, nil
}

// Complete sends the request to Gemini and returns the concatenated textual
// response. System messages become the system instruction; user messages are
// sent as content parts in order.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini completer is not initialized")
	}

	system, contents, err := splitMessages(req.Messages)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", &llm.CompletionError{Provider: "gemini", Err: err}
	}

	output := collectText(resp)
	if output == "" {
		return "", &llm.CompletionError{Provider: "gemini", Err: errors.New("empty response")}
	}

	return output, nil
}

// Model returns the default model name the completer was configured with.
func (c *Completer) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func splitMessages(messages []llm.Message) (string, []*genai.Content, error) {
	var system strings.Builder
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		switch msg.Role {
		case llm.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(text)
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		default:
			return "", nil, fmt.Errorf("unsupported message role: %q", msg.Role)
		}
	}

	if len(contents) == 0 {
		return "", nil, errors.New("at least one user message is required")
	}

	return system.String(), contents, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
