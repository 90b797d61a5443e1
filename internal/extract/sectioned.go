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

package extract

import (
	"strings"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/prompt"
)

// Defaults for coaching sections the reply left out.
const (
	DefaultSummary = "Based on your description, here's some general health guidance."
	DefaultCause   = "Various lifestyle factors could contribute to your symptoms"
)

// DefaultTips fill an empty tips section.
var DefaultTips = []string{
	"Consider consulting with a healthcare professional",
	"Maintain a balanced diet and regular exercise",
	"Ensure adequate sleep and manage stress",
}

const listMarker = "- "

// Coaching parses a label-sectioned coaching reply. Sections are separated
// by a blank line and matched by exact, case-sensitive label prefix; list
// items must start with "- ". Anything else is ignored.
func Coaching(reply string) Outcome[domain.CoachingAdvice] {
	if strings.TrimSpace(reply) == "" {
		return useFallback[domain.CoachingAdvice](ErrEmptyReply)
	}

	var advice domain.CoachingAdvice
	for _, section := range strings.Split(reply, "\n\n") {
		section = strings.TrimSpace(section)
		switch {
		case strings.HasPrefix(section, prompt.LabelSummary):
			advice.Summary = strings.TrimSpace(strings.TrimPrefix(section, prompt.LabelSummary))
		case strings.HasPrefix(section, prompt.LabelCauses):
			advice.PossibleCauses = listItems(strings.TrimPrefix(section, prompt.LabelCauses))
		case strings.HasPrefix(section, prompt.LabelTips):
			advice.Tips = listItems(strings.TrimPrefix(section, prompt.LabelTips))
		case strings.HasPrefix(section, prompt.LabelUrgency):
			advice.Urgency = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(section, prompt.LabelUrgency)))
		}
	}

	if advice.Summary == "" {
		advice.Summary = DefaultSummary
	}
	if len(advice.PossibleCauses) == 0 {
		advice.PossibleCauses = []string{DefaultCause}
	}
	if len(advice.Tips) == 0 {
		advice.Tips = append([]string(nil), DefaultTips...)
	}
	if advice.Urgency == "" {
		advice.Urgency = domain.UrgencyMedium
	}
	return ok(advice)
}

func listItems(body string) []string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if !strings.HasPrefix(line, listMarker) {
			continue
		}
		if item := strings.TrimSpace(strings.TrimPrefix(line, listMarker)); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Text accepts any non-blank reply as markdown.
func Text(reply string) Outcome[string] {
	text := strings.TrimSpace(reply)
	if text == "" {
		return useFallback[string](ErrEmptyReply)
	}
	return ok(text)
}
