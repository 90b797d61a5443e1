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

// Package extract turns raw backend replies into typed analysis results.
// Extraction never returns an error to its caller: a failed parse is
// reported through Outcome and resolved with the use case's fallback.
package extract

import (
	"errors"

	"github.com/your-org/healthai-assistant/internal/domain"
)

// Strategy is the parsing style applied to a use case's reply.
type Strategy int

const (
	// Narrative keeps the reply as free markdown.
	Narrative Strategy = iota
	// StructuredJSON decodes a JSON document, optionally fenced.
	StructuredJSON
	// SectionedText scans label-prefixed, blank-line separated sections.
	SectionedText
)

func (s Strategy) String() string {
	switch s {
	case StructuredJSON:
		return "structured_json"
	case SectionedText:
		return "sectioned_text"
	default:
		return "narrative"
	}
}

// StrategyFor selects the parsing strategy of a use case.
func StrategyFor(uc domain.UseCase) Strategy {
	switch uc {
	case domain.UseCaseFoodImage:
		return StructuredJSON
	case domain.UseCaseCoaching:
		return SectionedText
	default:
		return Narrative
	}
}

// ErrEmptyReply is reported when the backend answered with nothing usable.
var ErrEmptyReply = errors.New("empty reply")

// Outcome is either a parsed value or a marker that the fallback must be used.
type Outcome[T any] struct {
	Value T
	Err   error
}

func ok[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

func useFallback[T any](err error) Outcome[T] { return Outcome[T]{Err: err} }

// UseFallback reports whether extraction failed.
func (o Outcome[T]) UseFallback() bool { return o.Err != nil }

// OrElse returns the parsed value, or fallback() when extraction failed.
// The bool is true when the fallback was used.
func (o Outcome[T]) OrElse(fallback func() T) (T, bool) {
	if o.Err != nil {
		return fallback(), true
	}
	return o.Value, false
}
