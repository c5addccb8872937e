package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type slowCompleter struct {
	delay time.Duration
	reply string
}

func (s *slowCompleter) Complete(ctx context.Context, _ Request) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.reply, nil
	case <-ctx.Done():
		return "", &CompletionError{Provider: "slow", Err: ctx.Err()}
	}
}

func TestWithTimeoutPassesThroughFastCalls(t *testing.T) {
	c := WithTimeout(&slowCompleter{reply: "ok"}, "slow", time.Second)

	out, err := c.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected completion: %q", out)
	}
}

func TestWithTimeoutConvertsDeadlineExceeded(t *testing.T) {
	c := WithTimeout(&slowCompleter{delay: time.Second, reply: "late"}, "slow", 10*time.Millisecond)

	_, err := c.Complete(context.Background(), Request{})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeoutErr.Provider != "slow" {
		t.Fatalf("unexpected provider: %q", timeoutErr.Provider)
	}
	if !strings.Contains(timeoutErr.Error(), "timed out") {
		t.Fatalf("unexpected message: %q", timeoutErr.Error())
	}
}

func TestWithTimeoutKeepsCallerCancellation(t *testing.T) {
	c := WithTimeout(&slowCompleter{delay: time.Second}, "slow", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected caller cancellation preserved, got %v", err)
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatalf("caller cancellation must not become a TimeoutError: %v", err)
	}
}

func TestWithTimeoutZeroIsNoop(t *testing.T) {
	next := &slowCompleter{reply: "ok"}
	if c := WithTimeout(next, "slow", 0); c != Completer(next) {
		t.Fatal("expected the completer returned unchanged for zero timeout")
	}
}

func TestMessageHelpers(t *testing.T) {
	if m := System("rules"); m.Role != RoleSystem || m.Content != "rules" {
		t.Fatalf("unexpected system message: %+v", m)
	}
	if m := User("question"); m.Role != RoleUser || m.Content != "question" {
		t.Fatalf("unexpected user message: %+v", m)
	}
}

func TestCompletionErrorWraps(t *testing.T) {
	inner := errors.New("boom")
	err := &CompletionError{Provider: "gemini", Err: inner}

	if !errors.Is(err, inner) {
		t.Fatal("expected the inner error exposed via Unwrap")
	}
	if !strings.Contains(err.Error(), "gemini") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
