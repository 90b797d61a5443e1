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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/api"
	"github.com/your-org/healthai-assistant/internal/config"
	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/feedback"
	"github.com/your-org/healthai-assistant/internal/health"
	"github.com/your-org/healthai-assistant/internal/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			return serve(cmd.Context(), a, opts, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the log level when the config file changes")
	return cmd
}

func serve(ctx context.Context, a *app, opts *rootOptions, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, a.cfg.Tracing, serviceName, version, nil, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	store, err := feedback.NewLogger(a.cfg.Feedback, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize feedback storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	checks := health.NewManager(serviceName, version, a.logger)
	checks.Register("catalog", health.ExternalServiceChecker("catalog", a.catalog.Ping))
	checks.Register("backend", health.BreakerChecker(a.invoker.Breaker()))
	checks.Register("analysis", health.ErrorChecker(a.metrics.HealthCheck))

	if watch {
		err := config.WatchConfig(opts.configPath, a.logger, func(updated *config.Config) {
			a.level.SetLevel(parseLevel(updated.Logging.Level))
			a.logger.Info("Configuration reloaded", zap.String("log_level", updated.Logging.Level))
		})
		if err != nil {
			a.logger.Warn("Config watch disabled", zap.Error(err))
		}
	}

	if a.cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Dependencies{
		Analyzer: a.service,
		Feedback: store,
		Metrics:  a.metrics,
		Health:   checks.Handler(),
	}, api.Config{
		ServiceName:   serviceName,
		MaxImageBytes: a.cfg.Server.MaxImageBytes,
		MaxBatchSize:  a.cfg.Batch.MaxSize,
		BatchTimeout:  a.cfg.Batch.Timeout,
	}, a.logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting healthai service",
			zap.Int("port", a.cfg.Server.Port),
			zap.String("provider", a.cfg.Backend.Provider))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// profileFlags collects a profile from command line flags.
type profileFlags struct {
	age        int
	gender     string
	weight     float64
	height     float64
	conditions string
	diet       string
	allergies  string
	goals      string
	activity   string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&f.gender, "gender", "", "Gender")
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "Weight in kg")
	cmd.Flags().Float64Var(&f.height, "height", 0, "Height in cm")
	cmd.Flags().StringVar(&f.conditions, "conditions", "", "Health conditions")
	cmd.Flags().StringVar(&f.diet, "diet", "", "Dietary preferences")
	cmd.Flags().StringVar(&f.allergies, "allergies", "", "Allergies")
	cmd.Flags().StringVar(&f.goals, "goals", "", "Health goals")
	cmd.Flags().StringVar(&f.activity, "activity", "", "Activity level")
}

// profile returns nil when no profile flag was given.
func (f *profileFlags) profile() *domain.Profile {
	p := domain.Profile{
		Gender:             f.gender,
		HealthConditions:   f.conditions,
		DietaryPreferences: f.diet,
		Allergies:          f.allergies,
		HealthGoals:        f.goals,
		ActivityLevel:      f.activity,
	}
	if f.age > 0 {
		age := f.age
		p.Age = &age
	}
	if f.weight > 0 {
		w := f.weight
		p.Weight = &w
	}
	if f.height > 0 {
		h := f.height
		p.Height = &h
	}
	if p == (domain.Profile{}) {
		return nil
	}
	return &p
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "scan <barcode>",
		Short: "Analyse a packaged food product by barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			profile := pf.profile()
			if profile != nil && !profile.IsValid() {
				return errors.New("--age and --gender are required when a profile is given")
			}
			var result domain.BarcodeAnalysis
			if profile == nil {
				result = a.service.LookupBarcode(cmd.Context(), args[0])
			} else {
				result = a.service.AnalyzeBarcode(cmd.Context(), args[0], *profile)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	pf.register(cmd)
	return cmd
}

func newImageCmd(opts *rootOptions) *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Estimate the nutrition of a meal photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			if int64(len(data)) > a.cfg.Server.MaxImageBytes {
				return fmt.Errorf("image exceeds %d bytes", a.cfg.Server.MaxImageBytes)
			}
			result := a.service.AnalyzeImage(cmd.Context(), data, http.DetectContentType(data), pf.profile())
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	pf.register(cmd)
	return cmd
}

func newCoachCmd(opts *rootOptions) *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "coach <message>",
		Short: "Ask the health coach a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			advice := a.service.Advise(cmd.Context(), args[0], pf.profile())
			return printJSON(cmd.OutOrStdout(), advice)
		},
	}
	pf.register(cmd)
	return cmd
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		userID      string
		period      string
		metricsPath string
		batchPath   string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a health report, or a batch of them with --batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batchPath == "" && (userID == "" || period == "") {
				return errors.New("--user and --period are required unless --batch is given")
			}

			var reqs []domain.ReportRequest
			if batchPath != "" {
				if err := readJSONFile(batchPath, &reqs); err != nil {
					return err
				}
				if len(reqs) == 0 || len(reqs) > config.MaxBatchSize {
					return fmt.Errorf("batch must contain between 1 and %d requests", config.MaxBatchSize)
				}
			}

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()

			if batchPath != "" {
				return printJSON(cmd.OutOrStdout(), a.service.GenerateReports(cmd.Context(), reqs))
			}

			req := domain.ReportRequest{UserID: userID, Period: period}
			if metricsPath != "" {
				if err := readJSONFile(metricsPath, &req.Metrics); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"user_id":     userID,
				"report_type": period,
				"report":      a.service.GenerateReport(cmd.Context(), req),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&period, "period", "", "Report period, for example weekly or monthly")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "JSON file with the metrics to report on")
	cmd.Flags().StringVar(&batchPath, "batch", "", "JSON file with an array of report requests")
	return cmd
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
