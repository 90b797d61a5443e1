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

package domain

import (
	"strconv"
	"strings"
)

// Display defaults used when a profile field is absent.
const (
	DefaultConditions = "None"
	DefaultDietary    = "No specific preference"
	DefaultAllergies  = "None"
	DefaultGoals      = "maintain health"
	DefaultActivity   = "moderate"
	NotSpecified      = "Not specified"
)

// Profile describes the requester an analysis is personalised for.
// A Profile is treated as immutable once handed to the pipeline.
type Profile struct {
	Age                *int     `json:"age,omitempty"`
	Gender             string   `json:"gender,omitempty"`
	Weight             *float64 `json:"weight,omitempty"`
	Height             *float64 `json:"height,omitempty"`
	HealthConditions   string   `json:"health_conditions,omitempty"`
	DietaryPreferences string   `json:"dietary_preferences,omitempty"`
	Allergies          string   `json:"allergies,omitempty"`
	HealthGoals        string   `json:"health_goals,omitempty"`
	ActivityLevel      string   `json:"activity_level,omitempty"`
}

// BasicProfile is the synthetic profile used when a caller supplies none.
func BasicProfile() Profile {
	age := 30
	return Profile{
		Age:         &age,
		Gender:      "unspecified",
		HealthGoals: "General health",
	}
}

// IsValid reports whether the profile carries enough to personalise a prompt.
func (p Profile) IsValid() bool {
	return p.Age != nil && *p.Age > 0 && strings.TrimSpace(p.Gender) != ""
}

func (p Profile) SafeAge() string {
	if p.Age == nil || *p.Age <= 0 {
		return NotSpecified
	}
	return strconv.Itoa(*p.Age)
}

func (p Profile) SafeGender() string {
	return orDefault(p.Gender, NotSpecified)
}

func (p Profile) SafeHealthConditions() string {
	return orDefault(p.HealthConditions, DefaultConditions)
}

func (p Profile) SafeDietaryPreferences() string {
	return orDefault(p.DietaryPreferences, DefaultDietary)
}

func (p Profile) SafeAllergies() string {
	return orDefault(p.Allergies, DefaultAllergies)
}

func (p Profile) SafeHealthGoals() string {
	return orDefault(p.HealthGoals, DefaultGoals)
}

func (p Profile) SafeActivityLevel() string {
	return orDefault(p.ActivityLevel, DefaultActivity)
}

// BodyMeasurements returns weight and height formatted for display. ok is
// false unless both are present and positive.
func (p Profile) BodyMeasurements() (weight, height string, ok bool) {
	if p.Weight == nil || p.Height == nil || *p.Weight <= 0 || *p.Height <= 0 {
		return "", "", false
	}
	return FormatNumber(*p.Weight), FormatNumber(*p.Height), true
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
