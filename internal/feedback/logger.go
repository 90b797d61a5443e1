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

// Package feedback stores user ratings of analysis results. It supports
// both JSONL file and SQLite storage.
package feedback

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
)

const (
	StorageTypeFile   = "file"
	StorageTypeSQLite = "sqlite"

	RatingPositive = "positive"
	RatingNegative = "negative"

	// MaxCommentLength caps stored free text
	MaxCommentLength = 1000
)

// ErrInvalidFeedback is returned for records that fail validation.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback is one rating of an analysis
type Feedback struct {
	ID         string         `json:"id"`
	AnalysisID string         `json:"analysis_id"`
	UseCase    domain.UseCase `json:"use_case"`
	Rating     string         `json:"rating"`
	Comment    string         `json:"comment,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Validate checks the rating, use case and analysis id.
func (f Feedback) Validate() error {
	if _, err := uuid.Parse(f.AnalysisID); err != nil {
		return fmt.Errorf("%w: analysis_id must be a uuid", ErrInvalidFeedback)
	}
	if !f.UseCase.Valid() {
		return fmt.Errorf("%w: unknown use case %q", ErrInvalidFeedback, f.UseCase)
	}
	if f.Rating != RatingPositive && f.Rating != RatingNegative {
		return fmt.Errorf("%w: rating must be %s or %s", ErrInvalidFeedback, RatingPositive, RatingNegative)
	}
	if len(f.Comment) > MaxCommentLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidFeedback, MaxCommentLength)
	}
	return nil
}

// Config holds configuration for feedback storage
type Config struct {
	StorageType string `mapstructure:"storage_type"`
	FilePath    string `mapstructure:"file_path"`
	DBPath      string `mapstructure:"db_path"`
}

// Logger persists feedback records
type Logger struct {
	config Config
	logger *zap.Logger
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
}

// NewLogger opens the configured storage, creating directories, the
// JSONL file or the sqlite table as needed.
func NewLogger(config Config, logger *zap.Logger) (*Logger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fl := &Logger{config: config, logger: logger, now: time.Now}

	switch config.StorageType {
	case StorageTypeFile:
		if err := fl.initFileStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
	case StorageTypeSQLite:
		if err := fl.initSQLiteStorage(); err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.StorageType)
	}

	return fl, nil
}

func (fl *Logger) initFileStorage() error {
	if err := os.MkdirAll(filepath.Dir(fl.config.FilePath), 0750); err != nil {
		return fmt.Errorf("failed to create feedback directory: %w", err)
	}
	file, err := os.OpenFile(fl.config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create feedback file: %w", err)
	}
	return file.Close()
}

func (fl *Logger) initSQLiteStorage() error {
	if err := os.MkdirAll(filepath.Dir(fl.config.DBPath), 0750); err != nil {
		return fmt.Errorf("failed to create feedback database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fl.config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS analysis_feedback (
			id TEXT PRIMARY KEY,
			analysis_id TEXT NOT NULL,
			use_case TEXT NOT NULL,
			rating TEXT NOT NULL,
			comment TEXT,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_feedback_use_case ON analysis_feedback(use_case);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create feedback table: %w", err)
	}

	fl.db = db
	return nil
}

// Record validates and stores a rating. ID and timestamp are assigned here.
func (fl *Logger) Record(f Feedback) (Feedback, error) {
	f.Comment = strings.TrimSpace(f.Comment)
	if err := f.Validate(); err != nil {
		return Feedback{}, err
	}
	f.ID = uuid.NewString()
	f.Timestamp = fl.now().UTC()

	fl.mu.Lock()
	defer fl.mu.Unlock()

	var err error
	switch fl.config.StorageType {
	case StorageTypeFile:
		err = fl.appendToFile(f)
	case StorageTypeSQLite:
		err = fl.insertSQLite(f)
	default:
		err = fmt.Errorf("unsupported storage type: %s", fl.config.StorageType)
	}
	if err != nil {
		return Feedback{}, err
	}

	fl.logger.Info("Feedback recorded",
		zap.String("id", f.ID),
		zap.String("analysis_id", f.AnalysisID),
		zap.String("use_case", string(f.UseCase)),
		zap.String("rating", f.Rating))
	return f, nil
}

func (fl *Logger) appendToFile(f Feedback) error {
	file, err := os.OpenFile(fl.config.FilePath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer func() { _ = file.Close() }()

	line, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write feedback to file: %w", err)
	}
	return nil
}

func (fl *Logger) insertSQLite(f Feedback) error {
	if fl.db == nil {
		return fmt.Errorf("SQLite database not initialized")
	}
	_, err := fl.db.Exec(`
		INSERT INTO analysis_feedback (id, analysis_id, use_case, rating, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ID, f.AnalysisID, string(f.UseCase), f.Rating, f.Comment, f.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert feedback into SQLite: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit of zero or
// less returns everything.
func (fl *Logger) Recent(limit int) ([]Feedback, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	if fl.config.StorageType == StorageTypeFile {
		all, err := fl.readFile()
		if err != nil {
			return nil, err
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
		if limit > 0 && len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	if fl.db == nil {
		return nil, fmt.Errorf("SQLite database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := fl.db.Query(`
		SELECT id, analysis_id, use_case, rating, comment, timestamp
		FROM analysis_feedback
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var useCase string
		var comment sql.NullString
		if err := rows.Scan(&f.ID, &f.AnalysisID, &useCase, &f.Rating, &comment, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		f.UseCase = domain.UseCase(useCase)
		f.Comment = comment.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}
	return out, nil
}

func (fl *Logger) readFile() ([]Feedback, error) {
	file, err := os.Open(fl.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var out []Feedback
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var f Feedback
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			fl.logger.Warn("Skipping malformed feedback line", zap.Error(err))
			continue
		}
		out = append(out, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback file: %w", err)
	}
	return out, nil
}

// Stats counts ratings per use case, keyed "<use_case>:<rating>".
func (fl *Logger) Stats() (map[string]int, error) {
	var records []Feedback
	var err error
	if fl.config.StorageType == StorageTypeSQLite {
		records, err = fl.sqliteStats()
	} else {
		records, err = fl.Recent(0)
	}
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int)
	for _, r := range records {
		stats[string(r.UseCase)+":"+r.Rating]++
	}
	return stats, nil
}

func (fl *Logger) sqliteStats() ([]Feedback, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	if fl.db == nil {
		return nil, fmt.Errorf("SQLite database not initialized")
	}
	rows, err := fl.db.Query(`SELECT use_case, rating FROM analysis_feedback`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Feedback
	for rows.Next() {
		var useCase, rating string
		if err := rows.Scan(&useCase, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan feedback stats row: %w", err)
		}
		out = append(out, Feedback{UseCase: domain.UseCase(useCase), Rating: rating})
	}
	return out, rows.Err()
}

// Close closes the feedback logger and any open resources
func (fl *Logger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.db != nil {
		return fl.db.Close()
	}
	return nil
}
