package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message roles understood by every completion backend.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single role-tagged prompt message.
type Message struct {
	Role    string
	Content string
}

// Request describes one completion call. Model, Temperature and
// MaxOutputTokens are passed through to the backend as-is.
type Request struct {
	Messages        []Message
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Completer is the external language-model capability: a structured prompt in,
// a single text completion out. Implementations never retry; failures are
// terminal for the unit of work that issued the call.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// System returns a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionError reports a failed completion call (network, quota, backend
// rejection). It is surfaced to the caller without retrying.
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// TimeoutError reports a completion call that exceeded the caller-imposed
// deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s completion timed out after %s", e.Provider, e.Timeout)
}

// WithTimeout wraps a Completer so every call runs under the given deadline.
// A zero or negative timeout returns the Completer unchanged.
func WithTimeout(c Completer, provider string, timeout time.Duration) Completer {
	if timeout <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, provider: provider, timeout: timeout}
}

type timeoutCompleter struct {
	next     Completer
	provider string
	timeout  time.Duration
}

func (t *timeoutCompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Complete(ctx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
		return "", &TimeoutError{Provider: t.provider, Timeout: t.timeout}
	}
	return out, err
}
