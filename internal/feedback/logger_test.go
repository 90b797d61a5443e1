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

package feedback

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/healthai-assistant/internal/domain"
)

func newTestLogger(t *testing.T, storage string) *Logger {
	t.Helper()
	dir := t.TempDir()
	fl, err := NewLogger(Config{
		StorageType: storage,
		FilePath:    filepath.Join(dir, "nested", "feedback.jsonl"),
		DBPath:      filepath.Join(dir, "nested", "feedback.db"),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fl.Close() })
	return fl
}

func validFeedback() Feedback {
	return Feedback{
		AnalysisID: uuid.NewString(),
		UseCase:    domain.UseCaseCoaching,
		Rating:     RatingPositive,
		Comment:    "  helpful tips  ",
	}
}

func TestNewLogger_CreatesStorage(t *testing.T) {
	for _, storage := range []string{StorageTypeFile, StorageTypeSQLite} {
		t.Run(storage, func(t *testing.T) {
			fl := newTestLogger(t, storage)
			path := fl.config.FilePath
			if storage == StorageTypeSQLite {
				path = fl.config.DBPath
			}
			_, err := os.Stat(path)
			assert.NoError(t, err)
		})
	}
}

func TestNewLogger_UnsupportedStorage(t *testing.T) {
	_, err := NewLogger(Config{StorageType: "redis"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestFeedback_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Feedback)
		valid  bool
	}{
		{"valid", func(*Feedback) {}, true},
		{"negative rating", func(f *Feedback) { f.Rating = RatingNegative }, true},
		{"bad analysis id", func(f *Feedback) { f.AnalysisID = "abc" }, false},
		{"unknown use case", func(f *Feedback) { f.UseCase = "sleep" }, false},
		{"bad rating", func(f *Feedback) { f.Rating = "meh" }, false},
		{"long comment", func(f *Feedback) { f.Comment = strings.Repeat("x", MaxCommentLength+1) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFeedback()
			tt.mutate(&f)
			err := f.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidFeedback))
			}
		})
	}
}

func TestRecordAndRecent(t *testing.T) {
	for _, storage := range []string{StorageTypeFile, StorageTypeSQLite} {
		t.Run(storage, func(t *testing.T) {
			fl := newTestLogger(t, storage)
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			tick := 0
			fl.now = func() time.Time {
				tick++
				return base.Add(time.Duration(tick) * time.Minute)
			}

			first, err := fl.Record(validFeedback())
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.Equal(t, "helpful tips", first.Comment)

			second := validFeedback()
			second.UseCase = domain.UseCaseBarcode
			second.Rating = RatingNegative
			second.Comment = ""
			_, err = fl.Record(second)
			require.NoError(t, err)

			recent, err := fl.Recent(10)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, domain.UseCaseBarcode, recent[0].UseCase)
			assert.Equal(t, first.ID, recent[1].ID)
			assert.Equal(t, first.AnalysisID, recent[1].AnalysisID)

			limited, err := fl.Recent(1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			stats, err := fl.Stats()
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"coaching:positive": 1, "barcode:negative": 1}, stats)
		})
	}
}

func TestRecord_RejectsInvalid(t *testing.T) {
	fl := newTestLogger(t, StorageTypeFile)
	bad := validFeedback()
	bad.Rating = "great"

	_, err := fl.Record(bad)
	require.Error(t, err)

	recent, err := fl.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecent_SkipsMalformedLines(t *testing.T) {
	fl := newTestLogger(t, StorageTypeFile)
	_, err := fl.Record(validFeedback())
	require.NoError(t, err)

	file, err := os.OpenFile(fl.config.FilePath, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, _ = file.WriteString("not json\n\n")
	_ = file.Close()

	recent, err := fl.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRecord_Concurrent(t *testing.T) {
	fl := newTestLogger(t, StorageTypeSQLite)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fl.Record(validFeedback())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recent, err := fl.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}
