// Copyright 2024 HealthAI Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/backend"
	"github.com/your-org/healthai-assistant/internal/catalog"
	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/feedback"
	"github.com/your-org/healthai-assistant/internal/observability"
	"github.com/your-org/healthai-assistant/internal/resilience"
)

const (
	EnvPrefix = "HEALTHAI"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// MaxBatchSize is the hard ceiling for batch.max_size
	MaxBatchSize = 50
)

// Config represents the complete application configuration
type Config struct {
	OpenAI    ProviderConfig              `mapstructure:"openai"`
	Anthropic ProviderConfig              `mapstructure:"anthropic"`
	Backend   BackendConfig               `mapstructure:"backend"`
	Sampling  map[string]backend.Sampling `mapstructure:"sampling"`
	Catalog   CatalogConfig               `mapstructure:"catalog"`
	Server    ServerConfig                `mapstructure:"server"`
	Batch     BatchConfig                 `mapstructure:"batch"`
	Logging   LoggingConfig               `mapstructure:"logging"`
	Feedback  feedback.Config             `mapstructure:"feedback"`
	Tracing   observability.TracingConfig `mapstructure:"tracing"`
}

// ProviderConfig holds credentials for one model API
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// BackendConfig selects the provider and guards calls to it
type BackendConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the provider
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// CatalogConfig contains product catalog settings
type CatalogConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port          int   `mapstructure:"port"`
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
}

// BatchConfig bounds report batches
type BatchConfig struct {
	MaxSize int           `mapstructure:"max_size"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load reads configuration from file and environment, environment winning.
// A missing file in the default locations is not an error.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: configPath, ValidateRequired: true})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("anthropic.endpoint", "https://api.anthropic.com/v1")
	v.SetDefault("anthropic.model", backend.DefaultAnthropicModel)

	v.SetDefault("backend.provider", ProviderOpenAI)
	v.SetDefault("backend.timeout", 60*time.Second)
	v.SetDefault("backend.breaker.max_failures", 5)
	v.SetDefault("backend.breaker.reset_timeout", 30*time.Second)

	for uc, s := range backend.DefaultSampling() {
		prefix := "sampling." + string(uc)
		v.SetDefault(prefix+".model", s.Model)
		v.SetDefault(prefix+".temperature", s.Temperature)
		v.SetDefault(prefix+".max_tokens", s.MaxTokens)
	}

	v.SetDefault("catalog.base_url", catalog.DefaultBaseURL)
	v.SetDefault("catalog.user_agent", catalog.DefaultUserAgent)
	v.SetDefault("catalog.timeout", 10*time.Second)
	v.SetDefault("catalog.max_retries", 2)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_image_bytes", 5<<20)

	v.SetDefault("batch.max_size", MaxBatchSize)
	v.SetDefault("batch.timeout", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("feedback.storage_type", feedback.StorageTypeFile)
	v.SetDefault("feedback.file_path", "./data/feedback.jsonl")
	v.SetDefault("feedback.db_path", "./data/feedback.db")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", observability.ExporterStdout)
	v.SetDefault("tracing.sample_ratio", observability.DefaultSampleRatio)
}

// setConfigFile prefers CONFIG_PATH, then the given path, then the default
// search locations.
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return nil
}

func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"OPENAI_API_KEY":              "openai.api_key",
		"OPENAI_ENDPOINT":             "openai.endpoint",
		"ANTHROPIC_API_KEY":           "anthropic.api_key",
		"ANTHROPIC_ENDPOINT":          "anthropic.endpoint",
		"OPENFOODFACTS_URL":           "catalog.base_url",
		"PORT":                        "server.port",
		"LOG_LEVEL":                   "logging.level",
		"LOG_FORMAT":                  "logging.format",
		"LOG_OUTPUT":                  "logging.output",
		"OTEL_ENABLED":                "tracing.enabled",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "tracing.endpoint",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

func validateConfig(config *Config) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch config.Backend.Provider {
	case ProviderOpenAI:
		if config.OpenAI.APIKey == "" {
			add("openai.api_key", "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable")
		}
	case ProviderAnthropic:
		if config.Anthropic.APIKey == "" {
			add("anthropic.api_key", "Anthropic API key is required. Set via config file or ANTHROPIC_API_KEY environment variable")
		}
	default:
		add("backend.provider", "provider must be one of: %s, %s", ProviderOpenAI, ProviderAnthropic)
	}

	if config.Backend.Timeout <= 0 {
		add("backend.timeout", "timeout must be greater than 0")
	}
	if config.Backend.Breaker.MaxFailures <= 0 {
		add("backend.breaker.max_failures", "max_failures must be greater than 0")
	}

	for name, s := range config.Sampling {
		field := "sampling." + name
		if !domain.UseCase(name).Valid() {
			add(field, "unknown use case")
			continue
		}
		if s.Model == "" {
			add(field+".model", "model is required")
		}
		if s.Temperature < 0 || s.Temperature > 2 {
			add(field+".temperature", "temperature must be between 0 and 2")
		}
		if s.MaxTokens <= 0 {
			add(field+".max_tokens", "max_tokens must be greater than 0")
		}
	}

	if config.Catalog.BaseURL == "" {
		add("catalog.base_url", "catalog base URL is required")
	}
	if config.Catalog.MaxRetries < 0 {
		add("catalog.max_retries", "max_retries must be greater than or equal to 0")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535")
	}
	if config.Server.MaxImageBytes <= 0 {
		add("server.max_image_bytes", "max_image_bytes must be greater than 0")
	}
	if config.Batch.MaxSize < 1 || config.Batch.MaxSize > MaxBatchSize {
		add("batch.max_size", "max_size must be between 1 and %d", MaxBatchSize)
	}
	if config.Batch.Timeout <= 0 {
		add("batch.timeout", "timeout must be greater than 0")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		add("logging.level", "log level must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		add("logging.format", "log format must be one of: %s", strings.Join(validLogFormats, ", "))
	}

	validStorageTypes := []string{feedback.StorageTypeFile, feedback.StorageTypeSQLite}
	if !contains(validStorageTypes, config.Feedback.StorageType) {
		add("feedback.storage_type", "storage type must be one of: %s", strings.Join(validStorageTypes, ", "))
	}

	if config.Tracing.Enabled {
		validExporters := []string{observability.ExporterStdout, observability.ExporterOTLP}
		if !contains(validExporters, config.Tracing.Exporter) {
			add("tracing.exporter", "exporter must be one of: %s", strings.Join(validExporters, ", "))
		}
	}
	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		add("tracing.sample_ratio", "sample_ratio must be between 0 and 1")
	}

	return errors.Join(errs...)
}

// SamplingByUseCase converts the sampling section to backend settings.
func (c *Config) SamplingByUseCase() map[domain.UseCase]backend.Sampling {
	out := make(map[domain.UseCase]backend.Sampling, len(c.Sampling))
	for name, s := range c.Sampling {
		out[domain.UseCase(name)] = s
	}
	return out
}

// InvokerConfig builds the backend invoker settings.
func (c *Config) InvokerConfig() backend.InvokerConfig {
	return backend.InvokerConfig{
		Sampling: c.SamplingByUseCase(),
		Timeout:  c.Backend.Timeout,
		Breaker: resilience.CircuitBreakerConfig{
			Name:         c.Backend.Provider,
			MaxFailures:  c.Backend.Breaker.MaxFailures,
			ResetTimeout: c.Backend.Breaker.ResetTimeout,
		},
	}
}

// CatalogClientConfig builds the catalog client settings.
func (c *Config) CatalogClientConfig() catalog.Config {
	backoff := resilience.DefaultBackoffConfig()
	backoff.MaxRetries = c.Catalog.MaxRetries
	return catalog.Config{
		BaseURL:   c.Catalog.BaseURL,
		UserAgent: c.Catalog.UserAgent,
		Timeout:   c.Catalog.Timeout,
		Backoff:   backoff,
	}
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c
	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Anthropic.APIKey != "" {
		masked.Anthropic.APIKey = maskValue(masked.Anthropic.APIKey)
	}
	return &masked
}

// maskValue keeps the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// WatchConfig reloads the configuration whenever the file changes and hands
// each valid result to callback. Invalid reloads are logged and skipped.
func WatchConfig(configPath string, logger *zap.Logger, callback func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()
	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

		config, err := Load(configPath)
		if err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return
		}
		callback(config)
	})
	v.WatchConfig()

	return nil
}
