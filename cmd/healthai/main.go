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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/healthai-assistant/internal/analysis"
	"github.com/your-org/healthai-assistant/internal/backend"
	"github.com/your-org/healthai-assistant/internal/catalog"
	"github.com/your-org/healthai-assistant/internal/config"
	"github.com/your-org/healthai-assistant/internal/metrics"
	internalopenai "github.com/your-org/healthai-assistant/internal/openai"
)

const serviceName = "healthai"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Health analysis assistant: barcode, food image, coaching and report generation",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")

	root.AddCommand(
		newServeCmd(opts),
		newScanCmd(opts),
		newImageCmd(opts),
		newCoachCmd(opts),
		newReportCmd(opts),
	)
	return root
}

// app is everything a command needs to run analyses.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	service *analysis.Service
	invoker *backend.Invoker
	catalog *catalog.Client
	metrics *metrics.MetricsCollector
}

func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, level, err := initializeLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("provider", masked.Backend.Provider),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
		zap.String("anthropic_api_key", masked.Anthropic.APIKey),
		zap.String("catalog_url", masked.Catalog.BaseURL),
		zap.Duration("backend_timeout", masked.Backend.Timeout))

	collector := metrics.NewMetricsCollector(logger, nil)
	invoker := backend.NewInvoker(provider, cfg.InvokerConfig(), logger)
	cat := catalog.NewClient(cfg.CatalogClientConfig(), logger)
	svc := analysis.NewService(cat, invoker, logger, analysis.WithRecorder(collector))

	return &app{
		cfg:     cfg,
		logger:  logger,
		level:   level,
		service: svc,
		invoker: invoker,
		catalog: cat,
		metrics: collector,
	}, nil
}

func newProvider(cfg *config.Config, logger *zap.Logger) (backend.Provider, error) {
	switch cfg.Backend.Provider {
	case config.ProviderAnthropic:
		p, err := backend.NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Endpoint, cfg.Anthropic.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Anthropic provider: %w", err)
		}
		return p, nil
	default:
		client, err := internalopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Endpoint, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		return backend.NewOpenAIProvider(client), nil
	}
}

// initializeLogger creates a logger based on configuration settings. The
// returned level can be changed at runtime.
func initializeLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config

	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Logging.Level))

	switch cfg.Logging.Output {
	case "", "stdout":
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	case "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{cfg.Logging.Output}
		zapConfig.ErrorOutputPaths = []string{cfg.Logging.Output}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	return logger, zapConfig.Level, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
