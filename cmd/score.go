package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
	"github.com/dmalakhov/resume-ranker/internal/document"
	"github.com/dmalakhov/resume-ranker/internal/llm"
	"github.com/dmalakhov/resume-ranker/internal/logger"
	"github.com/dmalakhov/resume-ranker/internal/pipeline"
	"github.com/dmalakhov/resume-ranker/internal/report"
	"github.com/dmalakhov/resume-ranker/internal/request"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume files]",
	Short: "Score resumes against ranking criteria and build a report",
	Long: `Score evaluates each resume file (pdf, docx or plain text) against a
tiered criteria set and writes a ranking table. Criteria come either from a
payload produced by the extract command (--criteria) or straight from a job
description document (--job).`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("criteria", "c", "", "criteria payload file produced by the extract command")
	scoreCmd.Flags().String("job", "", "job description file to extract criteria from before scoring")
	scoreCmd.Flags().StringP("output", "o", "", "report file. Default is stdout for csv.")
	scoreCmd.Flags().String("format", "", "report format, csv or xlsx")
	scoreCmd.Flags().IntP("workers", "w", 0, "number of resumes scored concurrently")
	scoreCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before scoring")
}

func score(cmd *cobra.Command, resumePaths []string) {
	ctx := cmd.Context()

	zlog := newLogger()
	defer func() { _ = zlog.Sync() }()

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	completer, provider, model, err := newCompleter(ctx, config.AI)
	if err != nil {
		zlog.Fatal("building a completion backend", zap.Error(err))
	}
	zlog = logger.WithProvider(zlog, provider, model)

	set, options, err := resolveCriteria(ctx, cmd, completer, config, zlog)
	if err != nil {
		zlog.Fatal("resolving criteria", zap.Error(err))
	}

	resumes, err := loadResumes(resumePaths, zlog)
	if err != nil {
		zlog.Fatal("loading resumes", zap.Error(err))
	}
	if len(resumes) == 0 {
		zlog.Info("exiting", zap.String("reason", "no readable resumes given"))
		return
	}

	if !confirmed(cmd, len(resumes), set.Len()) {
		zlog.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	workers := resolveWorkers(cmd, options, config)
	runner := pipeline.New(document.New(), newEvaluator(completer, config.AI, zlog), workers, zlog)

	table, stats, runErr := runner.Run(ctx, set, resumes)

	zlog.Info("scoring finished",
		zap.Int("total", stats.Total),
		zap.Int("scored", stats.Scored),
		zap.Int("skipped", stats.Skipped),
	)

	if table.Len() > 0 {
		if err := writeReport(cmd, table, options, config, zlog); err != nil {
			zlog.Fatal("writing the report", zap.Error(err))
		}
	}

	if runErr != nil {
		// Rows produced before the interruption are already written.
		zlog.Fatal("scoring interrupted", zap.Error(runErr))
	}
}

// resolveCriteria returns the criteria set either from a prepared payload
// file or by extracting it from a job description on the fly.
func resolveCriteria(ctx context.Context, cmd *cobra.Command, completer llm.Completer, config *Config, zlog *zap.Logger) (*criteria.Set, request.Options, error) {
	criteriaPath, _ := cmd.Flags().GetString("criteria")
	jobPath, _ := cmd.Flags().GetString("job")

	switch {
	case criteriaPath != "" && jobPath != "":
		return nil, request.Options{}, errors.New("--criteria and --job are mutually exclusive")

	case criteriaPath != "":
		data, err := os.ReadFile(criteriaPath)
		if err != nil {
			return nil, request.Options{}, err
		}

		req, err := request.Parse(data)
		if err != nil {
			return nil, request.Options{}, fmt.Errorf("%s: %w", filepath.Base(criteriaPath), err)
		}

		zlog.Info("criteria loaded", zap.String("file", criteriaPath), zap.Int("count", req.Criteria.Len()))
		return req.Criteria, req.Options, nil

	case jobPath != "":
		jobText, err := readDocument(jobPath)
		if err != nil {
			return nil, request.Options{}, err
		}

		zlog.Info("extracting criteria", zap.String("file", jobPath))

		set, err := newExtractor(completer, config.AI, zlog).Extract(ctx, jobText)
		if err != nil {
			return nil, request.Options{}, err
		}

		zlog.Info("criteria extracted", zap.Int("count", set.Len()))
		return set, request.Options{}, nil

	default:
		return nil, request.Options{}, errors.New("either --criteria or --job is required")
	}
}

// loadResumes reads resume files, skipping unsupported extensions with a
// warning so one stray file does not kill the batch.
func loadResumes(paths []string, zlog *zap.Logger) ([]pipeline.Resume, error) {
	resumes := make([]pipeline.Resume, 0, len(paths))

	for _, path := range paths {
		kind, err := document.KindForPath(path)
		if err != nil {
			zlog.Warn("skipping resume", zap.String("file", path), zap.Error(err))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		resumes = append(resumes, pipeline.Resume{
			Name: filepath.Base(path),
			Data: data,
			Kind: kind,
		})
	}

	return resumes, nil
}

func confirmed(cmd *cobra.Command, resumeCount, criteriaCount int) bool {
	if cmd.Flag("auto-approve").Value.String() == "true" {
		return true
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Score %d resume(s) against %d criteria?", resumeCount, criteriaCount),
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return false
	}

	return action == PromptYes
}

func resolveWorkers(cmd *cobra.Command, options request.Options, config *Config) int {
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		return workers
	}
	if options.Workers > 0 {
		return options.Workers
	}
	return config.Scoring.Workers
}

func writeReport(cmd *cobra.Command, table *report.Table, options request.Options, config *Config, zlog *zap.Logger) error {
	output, _ := cmd.Flags().GetString("output")

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = options.Format
	}
	if format == "" {
		format = config.Scoring.Format
	}
	if format == "" {
		format = formatCSV
	}

	switch strings.ToLower(format) {
	case formatCSV:
		if output == "" {
			return table.WriteCSV(os.Stdout)
		}

		f, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := table.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

	case formatXLSX:
		if output == "" {
			output = "scores"
		}
		if err := table.WriteXLSX(output); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported report format: %q", format)
	}

	if output != "" {
		zlog.Info("report written", zap.String("file", output), zap.String("format", format))
	}
	return nil
}
