package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"

	"github.com/dmalakhov/resume-ranker/internal/llm"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected an error for a blank api key")
	}
}

func TestSplitMessages(t *testing.T) {
	system, contents, err := splitMessages([]llm.Message{
		llm.System("first rule"),
		llm.System("second rule"),
		llm.User("the job text"),
		{Role: llm.RoleUser, Content: "   "},
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	if system != "first rule\nsecond rule" {
		t.Fatalf("system = %q", system)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
}

func TestSplitMessagesRejectsUnknownRoles(t *testing.T) {
	if _, _, err := splitMessages([]llm.Message{{Role: "assistant", Content: "hi"}}); err == nil {
		t.Fatal("expected an error for an unsupported role")
	}
	if _, _, err := splitMessages([]llm.Message{llm.System("only system")}); err == nil {
		t.Fatal("expected an error when no user message is present")
	}
}

func TestCollectText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "  part one  "},
				{Text: ""},
				{Text: "part two"},
			}}},
			nil,
		},
	}

	if got := collectText(resp); got != "part one\npart two" {
		t.Fatalf("collectText = %q", got)
	}

	if got := collectText(nil); got != "" {
		t.Fatalf("expected empty text for nil response, got %q", got)
	}
}
