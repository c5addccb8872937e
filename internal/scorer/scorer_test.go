package scorer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/llm"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func testSet() *criteria.Set {
	set := criteria.NewSet()
	set.Add(criteria.MustHave, "2 yrs Python", "")
	set.Add(criteria.GoodToHave, "Docker", "")
	return set
}

const scoredReply = `{
	"candidate_name": "candidate1",
	"scores": {
		"Must have": {"2 yrs Python": 8},
		"Good to have": {"Docker": 3.5}
	},
	"total_score": 11.5
}`

func TestScoreParsesFencedCompletion(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"bare object", scoredReply},
		{"json fence", "```json\n" + scoredReply + "\n```"},
		{"plain fence", "```\n" + scoredReply + "\n```"},
		{"prose around", "Here is my evaluation:\n" + scoredReply + "\nLet me know."},
	}

	for _, tc := range cases {
		stub := &stubCompleter{reply: tc.reply}

		row, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "candidate1", "resume text", testSet())
		if err != nil {
			t.Fatalf("%s: score: %v", tc.name, err)
		}

		if row.CandidateName != "candidate1" {
			t.Fatalf("%s: unexpected candidate name %q", tc.name, row.CandidateName)
		}
		if got, ok := row.Score(criteria.MustHave, "2 yrs Python"); !ok || got != 8 {
			t.Fatalf("%s: must-have score = %v, %v", tc.name, got, ok)
		}
		if got, ok := row.Score(criteria.GoodToHave, "Docker"); !ok || got != 3.5 {
			t.Fatalf("%s: good-to-have score = %v, %v", tc.name, got, ok)
		}
		if row.TotalScore != 11.5 {
			t.Fatalf("%s: total = %v, want 11.5", tc.name, row.TotalScore)
		}
	}
}

func TestScoreReportsTotalVerbatim(t *testing.T) {
	// The reported total disagrees with the leaf sum. It must come back
	// untouched; Check is the place that notices.
	reply := `{"candidate_name": "c", "scores": {"Must have": {"Go": 5}}, "total_score": 99}`
	stub := &stubCompleter{reply: reply}

	row, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "c", "resume", testSet())
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if row.TotalScore != 99 {
		t.Fatalf("expected reported total 99 kept verbatim, got %v", row.TotalScore)
	}
	if row.ComputedTotal() != 5 {
		t.Fatalf("computed total = %v, want 5", row.ComputedTotal())
	}
}

func TestScoreEmptyResumeSkipsCompletion(t *testing.T) {
	stub := &stubCompleter{reply: scoredReply}

	row, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "ghost", "   ", testSet())
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if stub.calls != 0 {
		t.Fatalf("expected no completion call for an empty resume, got %d", stub.calls)
	}
	if row.CandidateName != "ghost" {
		t.Fatalf("unexpected candidate name %q", row.CandidateName)
	}
	if row.TotalScore != 0 || len(row.Scores) != 0 {
		t.Fatalf("expected an all-zero row, got %+v", row)
	}
}

func TestScorePromptCarriesInputs(t *testing.T) {
	stub := &stubCompleter{reply: scoredReply}

	if _, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "Jane Doe", "10 years of Python", testSet()); err != nil {
		t.Fatalf("score: %v", err)
	}

	if len(stub.last.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(stub.last.Messages))
	}
	user := stub.last.Messages[1].Content
	for _, want := range []string{"Jane Doe", "10 years of Python", "2 yrs Python"} {
		if !strings.Contains(user, want) {
			t.Fatalf("prompt is missing %q", want)
		}
	}
	if strings.Contains(user, "{{") {
		t.Fatalf("prompt still contains unexpanded placeholders")
	}

	if stub.last.Temperature != 0 {
		t.Fatalf("expected scoring at temperature 0, got %v", stub.last.Temperature)
	}
}

func TestScorePropagatesCompletionError(t *testing.T) {
	boom := &llm.CompletionError{Provider: "openrouter", Err: errors.New("bad gateway")}
	stub := &stubCompleter{err: boom}

	_, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "c", "resume", testSet())

	var completionErr *llm.CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected exactly one completion call, got %d", stub.calls)
	}
}

func TestScoreInvalidShapeCarriesRaw(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"no json", "I cannot score this resume."},
		{"missing total", `{"candidate_name": "c", "scores": {}}`},
		{"string score", `{"candidate_name": "c", "scores": {"Must have": {"Go": "eight"}}, "total_score": 8}`},
		{"extra key", `{"candidate_name": "c", "scores": {}, "total_score": 0, "comment": "nice"}`},
	}

	for _, tc := range cases {
		stub := &stubCompleter{reply: tc.reply}

		_, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "c", "resume", testSet())

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("%s: expected ParseError, got %v", tc.name, err)
		}
		if parseErr.Raw != tc.reply {
			t.Fatalf("%s: expected raw completion preserved, got %q", tc.name, parseErr.Raw)
		}
	}
}

func TestScoreIgnoresUnknownTierGroups(t *testing.T) {
	reply := `{"candidate_name": "c", "scores": {"Must have": {"Go": 5}, "Bonus": {"Karaoke": 10}}, "total_score": 5}`
	stub := &stubCompleter{reply: reply}

	row, err := New(stub, Config{}, zap.NewNop()).Score(context.Background(), "c", "resume", testSet())
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if len(row.Scores) != 1 {
		t.Fatalf("expected only the known tier kept, got %v", row.Scores)
	}
	if row.ComputedTotal() != 5 {
		t.Fatalf("computed total = %v, want 5", row.ComputedTotal())
	}
}
