// Package config loads the engine's configuration surface
// using the same Viper layering the teacher application uses: defaults,
// then an optional config file, then environment variables, then a final
// Unmarshal into a typed struct.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/review-engine/internal/logger"
)

// Config is the top-level configuration structure consumed by the core
// engine.
type Config struct {
	Orchestrator   OrchestratorConfig `mapstructure:"orchestrator"`
	ReviewCircuit  CircuitConfig      `mapstructure:"review_circuit"`
	ReviewRetry    RetryConfig        `mapstructure:"review_retry"`
	SummaryCircuit CircuitConfig      `mapstructure:"summary_circuit"`
	SummaryRetry   RetryConfig        `mapstructure:"summary_retry"`
	LocalFiles     LocalFilesConfig   `mapstructure:"local_files"`
	GHAuth         GHAuthConfig       `mapstructure:"gh_auth"`
	LLM            LLMConfig          `mapstructure:"llm"`
	Logging        logger.Config      `mapstructure:"logging"`
}

// OrchestratorConfig governs the N×K fan-out scheduling model.
type OrchestratorConfig struct {
	Parallelism                int    `mapstructure:"parallelism"`
	ReviewPasses               int    `mapstructure:"review_passes"`
	AgentTimeoutMinutes        int    `mapstructure:"agent_timeout_minutes"`
	OrchestratorTimeoutMinutes int    `mapstructure:"orchestrator_timeout_minutes"`
	IdleTimeoutMinutes         int    `mapstructure:"idle_timeout_minutes"`
	MaxRetries                 int    `mapstructure:"max_retries"`
	CheckpointDirectory        string `mapstructure:"checkpoint_directory"`
}

// CircuitConfig configures one circuit breaker instance.
type CircuitConfig struct {
	FailureThreshold    int `mapstructure:"failure_threshold"`
	OpenDurationSeconds int `mapstructure:"open_duration_seconds"`
}

// RetryConfig configures one retry executor instance.
type RetryConfig struct {
	BackoffBaseMs int `mapstructure:"backoff_base_ms"`
	BackoffMaxMs  int `mapstructure:"backoff_max_ms"`
}

// LocalFilesConfig bounds the local source collector.
type LocalFilesConfig struct {
	MaxFileSize           int64    `mapstructure:"max_file_size"`
	MaxTotalSize          int64    `mapstructure:"max_total_size"`
	IgnoredDirectories    []string `mapstructure:"ignored_directories"`
	SourceExtensions      []string `mapstructure:"source_extensions"`
	SensitiveFilePatterns []string `mapstructure:"sensitive_file_patterns"`
	SensitiveExtensions   []string `mapstructure:"sensitive_extensions"`
}

// GHAuthConfig configures the gh CLI token resolver.
type GHAuthConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CLIPathOverride string `mapstructure:"cli_path_override"` // mirrors GH_CLI_PATH env var
}

// LLMConfig selects and configures the model backend each agent session
// runs against.
type LLMConfig struct {
	Provider   string `mapstructure:"provider"` // "ollama" or "gemini"
	OllamaHost string `mapstructure:"ollama_host"`
	GeminiKey  string `mapstructure:"gemini_api_key"`
	Model      string `mapstructure:"model"`
}

// LoadConfig loads configuration using the hierarchy: flags (handled by the
// caller) > env vars > config file > defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.review-engine")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded configuration", "file", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GH_CLI_PATH is the token resolver's documented override name, distinct
	// from the automatic GH_AUTH_CLI_PATH_OVERRIDE the replacer above would
	// otherwise derive from the mapstructure key.
	if err := v.BindEnv("gh_auth.cli_path_override", "GH_CLI_PATH"); err != nil {
		return nil, fmt.Errorf("binding GH_CLI_PATH: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("orchestrator.parallelism", 4)
	v.SetDefault("orchestrator.review_passes", 1)
	v.SetDefault("orchestrator.agent_timeout_minutes", 5)
	v.SetDefault("orchestrator.orchestrator_timeout_minutes", 10)
	v.SetDefault("orchestrator.idle_timeout_minutes", 5)
	v.SetDefault("orchestrator.max_retries", 2)
	v.SetDefault("orchestrator.checkpoint_directory", "reports/.checkpoints")

	v.SetDefault("review_circuit.failure_threshold", 5)
	v.SetDefault("review_circuit.open_duration_seconds", 30)
	v.SetDefault("review_retry.backoff_base_ms", 1000)
	v.SetDefault("review_retry.backoff_max_ms", 8000)

	v.SetDefault("summary_circuit.failure_threshold", 3)
	v.SetDefault("summary_circuit.open_duration_seconds", 20)
	v.SetDefault("summary_retry.backoff_base_ms", 500)
	v.SetDefault("summary_retry.backoff_max_ms", 4000)

	v.SetDefault("local_files.max_file_size", 262144)
	v.SetDefault("local_files.max_total_size", 2097152)
	v.SetDefault("local_files.ignored_directories", []string{
		".git", "node_modules", "vendor", "dist", "build", ".idea", ".vscode",
	})
	v.SetDefault("local_files.source_extensions", []string{
		".go", ".js", ".ts", ".tsx", ".jsx", ".py", ".java", ".c", ".cpp", ".h",
		".rs", ".rb", ".php", ".md", ".json", ".yaml", ".yml",
	})
	v.SetDefault("local_files.sensitive_file_patterns", []string{
		"secret", "credential", ".env", "private_key", "id_rsa",
	})
	v.SetDefault("local_files.sensitive_extensions", []string{
		".pem", ".key", ".p12", ".pfx",
	})

	v.SetDefault("gh_auth.timeout_seconds", 10)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("llm.model", "qwen2.5-coder")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// AgentTimeout returns the per-pass deadline as a time.Duration.
func (c OrchestratorConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutMinutes) * time.Minute
}

// OrchestratorTimeout returns the whole-run deadline as a time.Duration.
func (c OrchestratorConfig) OrchestratorTimeout() time.Duration {
	return time.Duration(c.OrchestratorTimeoutMinutes) * time.Minute
}

// IdleTimeout returns the no-output streaming deadline as a time.Duration.
func (c OrchestratorConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

// OpenDuration returns the base open-duration as a time.Duration.
func (c CircuitConfig) OpenDuration() time.Duration {
	return time.Duration(c.OpenDurationSeconds) * time.Second
}
