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
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestProfile_SafeAccessorsDefaults(t *testing.T) {
	var p Profile

	assert.Equal(t, NotSpecified, p.SafeAge())
	assert.Equal(t, NotSpecified, p.SafeGender())
	assert.Equal(t, "None", p.SafeHealthConditions())
	assert.Equal(t, "No specific preference", p.SafeDietaryPreferences())
	assert.Equal(t, "None", p.SafeAllergies())
	assert.Equal(t, "maintain health", p.SafeHealthGoals())
	assert.Equal(t, "moderate", p.SafeActivityLevel())
}

func TestProfile_SafeAccessorsKeepPresentValues(t *testing.T) {
	p := Profile{
		Age:                intPtr(42),
		Gender:             "female",
		HealthConditions:   "type 2 diabetes",
		DietaryPreferences: "vegetarian",
		Allergies:          "peanuts",
		HealthGoals:        "lose weight",
		ActivityLevel:      "high",
	}

	assert.Equal(t, "42", p.SafeAge())
	assert.Equal(t, "female", p.SafeGender())
	assert.Equal(t, "type 2 diabetes", p.SafeHealthConditions())
	assert.Equal(t, "vegetarian", p.SafeDietaryPreferences())
	assert.Equal(t, "peanuts", p.SafeAllergies())
	assert.Equal(t, "lose weight", p.SafeHealthGoals())
	assert.Equal(t, "high", p.SafeActivityLevel())
}

func TestProfile_BlankFieldsUseDefaults(t *testing.T) {
	p := Profile{Gender: "   ", Allergies: "\t", Age: intPtr(0)}

	assert.Equal(t, NotSpecified, p.SafeGender())
	assert.Equal(t, "None", p.SafeAllergies())
	assert.Equal(t, NotSpecified, p.SafeAge())
}

func TestProfile_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"complete", Profile{Age: intPtr(30), Gender: "male"}, true},
		{"missing age", Profile{Gender: "male"}, false},
		{"zero age", Profile{Age: intPtr(0), Gender: "male"}, false},
		{"negative age", Profile{Age: intPtr(-3), Gender: "male"}, false},
		{"blank gender", Profile{Age: intPtr(30), Gender: "  "}, false},
		{"basic profile", BasicProfile(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.IsValid())
		})
	}
}

func TestProfile_BodyMeasurements(t *testing.T) {
	w, h, ok := Profile{Weight: floatPtr(72.5), Height: floatPtr(180)}.BodyMeasurements()
	assert.True(t, ok)
	assert.Equal(t, "72.5", w)
	assert.Equal(t, "180", h)

	_, _, ok = Profile{Weight: floatPtr(72.5)}.BodyMeasurements()
	assert.False(t, ok)
}

func TestUseCase_Valid(t *testing.T) {
	for _, uc := range UseCases {
		assert.True(t, uc.Valid(), uc)
	}
	assert.False(t, UseCase("horoscope").Valid())
}
