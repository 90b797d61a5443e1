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

package api

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/resilience"
)

// MaxMessageLength caps coaching messages, in characters.
const MaxMessageLength = 1000

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

func validateBarcode(barcode string) error {
	if !barcodePattern.MatchString(barcode) {
		return resilience.NewBadRequestError("barcode must be 8 to 14 digits", nil).
			WithContext("barcode", barcode)
	}
	return nil
}

func validateProfile(profile *domain.Profile, required bool) error {
	if profile == nil {
		if required {
			return resilience.NewBadRequestError("profile is required", nil)
		}
		return nil
	}
	if !profile.IsValid() {
		return resilience.NewBadRequestError("profile requires a positive age and a gender", nil)
	}
	return nil
}

func validateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return resilience.NewBadRequestError("message cannot be empty", nil)
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLength {
		return resilience.NewBadRequestError(fmt.Sprintf("message is too long (max %d characters)", MaxMessageLength), nil).
			WithContext("length", n)
	}
	return nil
}

func validateReportRequest(req domain.ReportRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return resilience.NewBadRequestError("user_id is required", nil)
	}
	if strings.TrimSpace(req.Period) == "" {
		return resilience.NewBadRequestError("report_type is required", nil)
	}
	return validateProfile(req.Profile, false)
}

func validateImage(contentType string, size, limit int64) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return resilience.NewUnsupportedMediaTypeError("file must be an image").
			WithContext("content_type", contentType)
	}
	if size > limit {
		return resilience.NewPayloadTooLargeError(fmt.Sprintf("image exceeds %d bytes", limit)).
			WithContext("size", size)
	}
	return nil
}
