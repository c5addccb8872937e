package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/llm"
	"github.com/dmalakhov/resume-ranker/internal/logger"
)

//go:embed prompt.md
var promptTemplate string

//go:embed schema.json
var responseSchema string

const (
	systemPrompt = "You are an expert resume evaluator. Score candidates based on provided criteria using continuous scoring ranges."

	defaultMaxLogLength = 200
)

// ParseError reports a completion that could not be parsed into a score row.
// Raw carries the full completion text for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scores from completion: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one candidate's per-criterion scores plus the total the model
// reported. It is returned exactly as parsed: no zero-filling, no clamping,
// no recomputed total.
type Row struct {
	CandidateName string
	Scores        map[criteria.Tier]map[string]float64
	TotalScore    float64
	Raw           string
}

// Score looks up the score for a (tier, criterion) pair.
func (r *Row) Score(t criteria.Tier, name string) (float64, bool) {
	tier, ok := r.Scores[t]
	if !ok {
		return 0, false
	}
	score, ok := tier[name]
	return score, ok
}

// ComputedTotal sums all leaf scores, independent of the reported total.
func (r *Row) ComputedTotal() float64 {
	var total float64
	for _, tier := range r.Scores {
		for _, score := range tier {
			total += score
		}
	}
	return total
}

// Config holds per-call completion parameters for scoring.
type Config struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	MaxLogLength    int
}

// Evaluator scores one resume against a criteria set per completion call.
type Evaluator struct {
	completer llm.Completer
	config    Config
	logger    *zap.Logger
}

// New creates an Evaluator. Scoring runs at temperature 0 unless overridden.
func New(completer llm.Completer, config Config, log *zap.Logger) *Evaluator {
	if config.MaxLogLength <= 0 {
		config.MaxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Evaluator{completer: completer, config: config, logger: log}
}

// Score evaluates one candidate's resume against the criteria set. An empty
// resume yields an all-zero row without a completion call, so one unreadable
// document never rejects a candidate outright.
func (e *Evaluator) Score(ctx context.Context, candidateName, resumeText string, set *criteria.Set) (*Row, error) {
	if strings.TrimSpace(resumeText) == "" {
		e.logger.Warn("resume text is empty, scoring all criteria as zero",
			zap.String("candidate", candidateName),
		)
		return &Row{
			CandidateName: candidateName,
			Scores:        make(map[criteria.Tier]map[string]float64),
		}, nil
	}

	prompt, err := buildPrompt(candidateName, resumeText, set)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.System(systemPrompt),
			llm.User(prompt),
		},
		Model:           e.config.Model,
		Temperature:     e.config.Temperature,
		MaxOutputTokens: e.config.MaxOutputTokens,
	}

	e.logger.Debug("score request",
		zap.String("candidate", candidateName),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	raw, err := e.completer.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("score response",
		zap.String("candidate", candidateName),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.config.MaxLogLength)),
	)

	row, err := parseRow(raw)
	if err != nil {
		return nil, err
	}

	return row, nil
}

func buildPrompt(candidateName, resumeText string, set *criteria.Set) (string, error) {
	criteriaJSON, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal criteria payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE_NAME}}", candidateName)
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{CRITERIA_JSON}}", string(criteriaJSON))
	return prompt, nil
}

// parseRow locates the JSON payload inside the completion (models often wrap
// it in a markdown fence of varying width), validates its shape against the
// embedded schema and decodes it.
func parseRow(raw string) (*Row, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("no JSON object found in completion")}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("response shape invalid: %s", strings.Join(reasons, "; "))}
	}

	parsed := gjson.Parse(payload)
	row := &Row{
		CandidateName: parsed.Get("candidate_name").String(),
		Scores:        make(map[criteria.Tier]map[string]float64),
		TotalScore:    parsed.Get("total_score").Float(),
		Raw:           raw,
	}

	parsed.Get("scores").ForEach(func(label, group gjson.Result) bool {
		tier, ok := criteria.TierByLabel(label.String())
		if !ok {
			// Unknown tier groups are retained nowhere: columns only exist
			// for the three defined tiers.
			return true
		}
		scores := make(map[string]float64)
		group.ForEach(func(name, score gjson.Result) bool {
			scores[name.String()] = score.Float()
			return true
		})
		row.Scores[tier] = scores
		return true
	})

	return row, nil
}

// extractJSONObject slices from the first opening brace to the last closing
// one, tolerating any decorative fence around the payload. Fixed-offset
// stripping is deliberately avoided: fence width varies between models.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}
