package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dmalakhov/resume-ranker/internal/extractor"
	"github.com/dmalakhov/resume-ranker/internal/llm"
	"github.com/dmalakhov/resume-ranker/internal/llm/gemini"
	"github.com/dmalakhov/resume-ranker/internal/llm/openrouter"
	"github.com/dmalakhov/resume-ranker/internal/logger"
	"github.com/dmalakhov/resume-ranker/internal/scorer"
	"github.com/dmalakhov/resume-ranker/internal/secrets"
)

const (
	app = "resume-ranker"

	providerGemini     = "gemini"
	providerOpenRouter = "openrouter"
)

type Config struct {
	AI      *AIConfig      `mapstructure:"ai"`
	Scoring *ScoringConfig `mapstructure:"scoring"`
}

type AIConfig struct {
	Provider   string            `mapstructure:"provider"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Gemini     *GeminiConfig     `mapstructure:"gemini"`
	OpenRouter *OpenRouterConfig `mapstructure:"openrouter"`
	Extraction *CallConfig       `mapstructure:"extraction"`
	Scoring    *CallConfig       `mapstructure:"scoring"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenRouterConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

// CallConfig tunes one kind of completion call. Extraction defaults to a low
// non-zero temperature, scoring runs deterministic at zero. Temperature is a
// pointer so an explicit 0 survives config decoding.
type CallConfig struct {
	Temperature     *float32 `mapstructure:"temperature"`
	MaxOutputTokens int32    `mapstructure:"max-output-tokens"`
	MaxLogLength    int      `mapstructure:"max-log-length"`
}

type ScoringConfig struct {
	Workers int    `mapstructure:"workers"`
	Format  string `mapstructure:"format"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-ranker extracts ranking criteria from a job description and scores resumes against them",
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	if err := viper.BindEnv("gemini-api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("openrouter-api-key-file", "OPENROUTER_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENROUTER_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets and key file paths may live in a local .env file.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// An explicitly requested config file must be readable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app + ".yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults plus environment are enough to run.
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// newCompleter builds the configured completion backend wrapped with the
// configured per-call timeout. It also returns the provider and model names
// for logging.
func newCompleter(ctx context.Context, cfg *AIConfig) (llm.Completer, string, string, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = providerGemini
	}

	var (
		completer llm.Completer
		model     string
	)

	switch provider {
	case providerGemini:
		var geminiCfg GeminiConfig
		if cfg.Gemini != nil {
			geminiCfg = *cfg.Gemini
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: fallbackToViper(geminiCfg.APIKeyFile, "gemini-api-key-file"),
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
		}

		c, err := gemini.New(ctx, apiKey, geminiCfg.Model)
		if err != nil {
			return nil, "", "", err
		}
		completer, model = c, c.Model()

	case providerOpenRouter:
		var orCfg OpenRouterConfig
		if cfg.OpenRouter != nil {
			orCfg = *cfg.OpenRouter
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "openrouter api key",
			File: fallbackToViper(orCfg.APIKeyFile, "openrouter-api-key-file"),
			Env:  "OPENROUTER_API_KEY",
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("%w (set ai.openrouter.api-key-file, OPENROUTER_API_KEY_FILE or OPENROUTER_API_KEY)", err)
		}

		c, err := openrouter.New(apiKey, orCfg.Model, orCfg.BaseURL)
		if err != nil {
			return nil, "", "", err
		}
		completer, model = c, c.Model()

	default:
		return nil, "", "", fmt.Errorf("unsupported ai provider: %q", cfg.Provider)
	}

	return llm.WithTimeout(completer, provider, cfg.Timeout), provider, model, nil
}

func newExtractor(completer llm.Completer, cfg *AIConfig, log *zap.Logger) *extractor.Extractor {
	var config extractor.Config
	if cfg.Extraction != nil {
		config.Temperature = cfg.Extraction.Temperature
		config.MaxOutputTokens = cfg.Extraction.MaxOutputTokens
		config.MaxLogLength = cfg.Extraction.MaxLogLength
	}
	return extractor.New(completer, config, log)
}

func newEvaluator(completer llm.Completer, cfg *AIConfig, log *zap.Logger) *scorer.Evaluator {
	var config scorer.Config
	if cfg.Scoring != nil {
		if cfg.Scoring.Temperature != nil {
			config.Temperature = *cfg.Scoring.Temperature
		}
		config.MaxOutputTokens = cfg.Scoring.MaxOutputTokens
		config.MaxLogLength = cfg.Scoring.MaxLogLength
	}
	return scorer.New(completer, config, log)
}

func fallbackToViper(value, key string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return viper.GetString(key)
}
