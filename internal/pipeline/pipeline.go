package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/document"
	"github.com/dmalakhov/resume-ranker/internal/report"
	"github.com/dmalakhov/resume-ranker/internal/scorer"
)

// Resume is one submitted resume file awaiting evaluation.
type Resume struct {
	Name string
	Data []byte
	Kind document.Kind
}

// CandidateName derives the candidate identifier from the file name, minus
// its final extension.
func (r Resume) CandidateName() string {
	return strings.TrimSuffix(r.Name, filepath.Ext(r.Name))
}

// Evaluator scores one candidate's resume text against a criteria set.
type Evaluator interface {
	Score(ctx context.Context, candidateName, resumeText string, set *criteria.Set) (*scorer.Row, error)
}

// Stats summarizes a batch run.
type Stats struct {
	Total   int
	Scored  int
	Skipped int
}

// Runner drives a batch of resumes through extraction and scoring into a
// report table. Row order always equals submission order, regardless of how
// many workers run concurrently.
type Runner struct {
	source    document.Source
	evaluator Evaluator
	workers   int
	logger    *zap.Logger
}

// New creates a Runner. Workers below 2 mean sequential processing, which is
// the default: each candidate costs a full completion round trip, and
// parallelism is purely an opt-in throughput measure.
func New(source document.Source, evaluator Evaluator, workers int, log *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{source: source, evaluator: evaluator, workers: workers, logger: log}
}

// Run processes every resume in submission order and assembles the report.
// A failure extracting or scoring one resume is isolated to that candidate:
// the candidate is skipped with a logged reason and the batch continues.
// Cancelling the context stops the remaining queue; rows already produced are
// kept in the returned table alongside the context error.
func (r *Runner) Run(ctx context.Context, set *criteria.Set, resumes []Resume) (*report.Table, Stats, error) {
	rows := make([]*scorer.Row, len(resumes))

	var runErr error
	if r.workers > 1 {
		runErr = r.runConcurrent(ctx, set, resumes, rows)
	} else {
		runErr = r.runSequential(ctx, set, resumes, rows)
	}

	table := report.NewTable(set)
	stats := Stats{Total: len(resumes)}
	for _, row := range rows {
		if row == nil {
			stats.Skipped++
			continue
		}
		table.Append(row)
		stats.Scored++
	}

	r.logger.Info("batch scoring finished",
		zap.Int("total", stats.Total),
		zap.Int("scored", stats.Scored),
		zap.Int("skipped", stats.Skipped),
	)

	return table, stats, runErr
}

func (r *Runner) runSequential(ctx context.Context, set *criteria.Set, resumes []Resume, rows []*scorer.Row) error {
	for i, resume := range resumes {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("batch cancelled, keeping rows produced so far",
				zap.Int("remaining", len(resumes)-i),
			)
			return err
		}
		rows[i] = r.evaluate(ctx, set, resume)
	}
	return nil
}

func (r *Runner) runConcurrent(ctx context.Context, set *criteria.Set, resumes []Resume, rows []*scorer.Row) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for i, resume := range resumes {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Rows land in their submission slot, so output order stays
			// independent of per-call latency.
			rows[i] = r.evaluate(ctx, set, resume)
			return nil
		})
	}

	return group.Wait()
}

// evaluate runs one candidate through extraction and scoring. A nil return
// means the candidate is skipped entirely, not zero-filled.
func (r *Runner) evaluate(ctx context.Context, set *criteria.Set, resume Resume) *scorer.Row {
	candidate := resume.CandidateName()

	text, err := r.source.Extract(resume.Data, resume.Kind)
	if err != nil {
		r.logger.Warn("candidate skipped: document text extraction failed",
			zap.String("candidate", candidate),
			zap.String("file", resume.Name),
			zap.Error(err),
		)
		return nil
	}

	row, err := r.evaluator.Score(ctx, candidate, text, set)
	if err != nil {
		r.logger.Warn("candidate skipped: scoring failed",
			zap.String("candidate", candidate),
			zap.String("file", resume.Name),
			zap.Error(err),
		)
		return nil
	}

	for _, warning := range scorer.Check(row) {
		r.logger.Warn("score consistency warning",
			zap.String("candidate", candidate),
			zap.String("warning", warning.String()),
		)
	}

	r.logger.Info("candidate scored",
		zap.String("candidate", candidate),
		zap.Float64("total_score", row.TotalScore),
	)

	return row
}
