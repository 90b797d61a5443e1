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

// Package batch runs independent jobs concurrently and collects one result
// per job in input order.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunFunc processes one job.
type RunFunc[J, R any] func(ctx context.Context, job J) (R, error)

// FallbackFunc builds the result substituted for a failed job.
type FallbackFunc[J, R any] func(job J) R

// Coordinator fans jobs out over a bounded number of goroutines.
type Coordinator[J, R any] struct {
	limit  int
	logger *zap.Logger
}

// NewCoordinator creates a coordinator. A limit <= 0 uses GOMAXPROCS.
func NewCoordinator[J, R any](limit int, logger *zap.Logger) *Coordinator[J, R] {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator[J, R]{limit: limit, logger: logger}
}

// Run processes every job and blocks until all have finished. The result
// has the same length and order as jobs. A job that errors or panics gets
// fallback(job); its siblings are neither cancelled nor affected.
func (c *Coordinator[J, R]) Run(ctx context.Context, jobs []J, run RunFunc[J, R], fallback FallbackFunc[J, R]) []R {
	results := make([]R, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	// A plain Group: a failing job must not cancel the others.
	var g errgroup.Group
	g.SetLimit(c.limit)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = c.runOne(ctx, i, job, run, fallback)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Coordinator[J, R]) runOne(ctx context.Context, index int, job J, run RunFunc[J, R], fallback FallbackFunc[J, R]) (result R) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Batch job panicked",
				zap.Int("index", index),
				zap.String("panic", fmt.Sprint(r)))
			result = fallback(job)
		}
	}()

	out, err := run(ctx, job)
	if err != nil {
		c.logger.Warn("Batch job failed, using fallback",
			zap.Int("index", index),
			zap.Error(err))
		return fallback(job)
	}
	return out
}
