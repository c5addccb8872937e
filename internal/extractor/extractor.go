package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/llm"
	"github.com/dmalakhov/resume-ranker/internal/logger"
)

//go:embed prompt.md
var systemPrompt string

const (
	defaultTemperature  = 0.2
	defaultMaxLogLength = 200
)

// EmptyInputError reports a job description with no usable text. It is
// user-correctable and surfaced directly.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "job description text is empty"
}

// ParseError reports a completion that could not be parsed as a criteria
// object even after literal normalization. Raw carries the full completion
// text for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse criteria from completion: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config holds per-call completion parameters for criteria extraction.
// Temperature is a pointer so an explicit 0 is distinguishable from unset.
type Config struct {
	Model           string
	Temperature     *float32
	MaxOutputTokens int32
	MaxLogLength    int
}

// Extractor turns job-description text into a tiered criteria set with a
// single completion call per invocation.
type Extractor struct {
	completer llm.Completer
	config    Config
	logger    *zap.Logger
}

// New creates an Extractor. Temperature defaults to 0.2 when unset, which
// keeps the extracted structure stable across runs.
func New(completer llm.Completer, config Config, log *zap.Logger) *Extractor {
	if config.Temperature == nil {
		temperature := float32(defaultTemperature)
		config.Temperature = &temperature
	}
	if config.MaxLogLength <= 0 {
		config.MaxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{completer: completer, config: config, logger: log}
}

// Extract sends the job text to the completion service and parses the
// response into a criteria set. Exactly one completion call is made; model
// failures propagate to the caller without retries.
func (e *Extractor) Extract(ctx context.Context, jobText string) (*criteria.Set, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, &EmptyInputError{}
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.System(systemPrompt),
			llm.User("Job Description:\n" + jobText),
		},
		Model:           e.config.Model,
		Temperature:     *e.config.Temperature,
		MaxOutputTokens: e.config.MaxOutputTokens,
	}

	e.logger.Debug("criteria extraction request",
		zap.Int("job_text_length", utf8.RuneCountInString(jobText)),
		zap.String("job_text_preview", logger.TruncateForLog(jobText, e.config.MaxLogLength)),
	)

	raw, err := e.completer.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("criteria extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.config.MaxLogLength)),
	)

	set, err := parseCriteria(raw)
	if err != nil {
		return nil, err
	}

	e.logger.Info("criteria extracted",
		zap.Int("must_have", len(set.Tier(criteria.MustHave))),
		zap.Int("good_to_have", len(set.Tier(criteria.GoodToHave))),
		zap.Int("nice_to_have", len(set.Tier(criteria.NiceToHave))),
	)

	return set, nil
}

// parseCriteria attempts a strict JSON parse first, then a second strict
// parse after rewriting language-native literal spellings (True/False/None).
// Evaluating the completion as an expression is deliberately not done.
func parseCriteria(raw string) (*criteria.Set, error) {
	cleaned := extractJSONObject(raw)

	set, err := criteria.Parse([]byte(cleaned))
	if err == nil {
		return set, nil
	}

	set, retryErr := criteria.Parse([]byte(normalizeLiterals(cleaned)))
	if retryErr == nil {
		return set, nil
	}

	return nil, &ParseError{Raw: raw, Err: err}
}

// extractJSONObject strips any decorative fence around the payload by slicing
// from the first opening brace to the last closing one. Offsets are never
// assumed constant; the fence length may vary between models.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

// normalizeLiterals rewrites Python-spelled literals to their JSON forms
// outside of string values, so a second strict parse can succeed.
func normalizeLiterals(raw string) string {
	replacements := map[string]string{
		"True":  "true",
		"False": "false",
		"None":  "null",
	}

	var out strings.Builder
	out.Grow(len(raw))

	inString := false
	escaped := false
	for i := 0; i < len(raw); {
		ch := raw[i]

		if inString {
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			i++
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			i++
			continue
		}

		replaced := false
		for literal, spelled := range replacements {
			if strings.HasPrefix(raw[i:], literal) && !isWordByte(byteAt(raw, i-1)) && !isWordByte(byteAt(raw, i+len(literal))) {
				out.WriteString(spelled)
				i += len(literal)
				replaced = true
				break
			}
		}
		if !replaced {
			out.WriteByte(ch)
			i++
		}
	}

	return out.String()
}

func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
