package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/document"
	"github.com/dmalakhov/resume-ranker/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [job description file]",
	Short: "Extract tiered ranking criteria from a job description",
	Long: `Extract reads a job description document (pdf, docx or plain text),
asks the configured model for tiered ranking criteria and prints them
as a JSON payload suitable for the score command.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		extract(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "write the criteria payload to a file instead of stdout")
}

func extract(cmd *cobra.Command, jobPath string) {
	ctx := cmd.Context()

	zlog := newLogger()
	defer func() { _ = zlog.Sync() }()

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	jobText, err := readDocument(jobPath)
	if err != nil {
		zlog.Fatal("reading the job description", zap.String("file", jobPath), zap.Error(err))
	}

	completer, provider, model, err := newCompleter(ctx, config.AI)
	if err != nil {
		zlog.Fatal("building a completion backend", zap.Error(err))
	}

	zlog = logger.WithProvider(zlog, provider, model)
	zlog.Info("extracting criteria", zap.String("file", jobPath))

	set, err := newExtractor(completer, config.AI, zlog).Extract(ctx, jobText)
	if err != nil {
		zlog.Fatal("extracting criteria", zap.Error(err))
	}

	zlog.Info("criteria extracted", zap.Int("count", set.Len()))

	payload, err := json.MarshalIndent(map[string]any{"criteria": set}, "", "  ")
	if err != nil {
		zlog.Fatal("encoding criteria", zap.Error(err))
	}
	payload = append(payload, '\n')

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		fmt.Print(string(payload))
		return
	}

	if err := os.WriteFile(output, payload, 0o644); err != nil {
		zlog.Fatal("writing criteria to file", zap.String("file", output), zap.Error(err))
	}
	zlog.Info("criteria written", zap.String("file", output))
}

// readDocument loads a file and extracts its plain text by extension.
func readDocument(path string) (string, error) {
	kind, err := document.KindForPath(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return document.New().Extract(data, kind)
}
