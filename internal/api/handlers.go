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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/feedback"
	"github.com/your-org/healthai-assistant/internal/resilience"
)

// BarcodeScanRequest is the body of POST /barcode/scan
type BarcodeScanRequest struct {
	Barcode string          `json:"barcode"`
	Profile *domain.Profile `json:"profile"`
}

// CoachRequest is the body of POST /coach/advice
type CoachRequest struct {
	Message string          `json:"message"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

// ReportResponse wraps a generated report
type ReportResponse struct {
	UserID     string `json:"user_id"`
	ReportType string `json:"report_type"`
	Report     string `json:"report"`
}

// BatchReportRequest is the body of POST /reports/batch
type BatchReportRequest struct {
	Requests []domain.ReportRequest `json:"requests"`
}

// BatchReportResponse keeps the order of the request list
type BatchReportResponse struct {
	Reports []ReportResponse `json:"reports"`
	Count   int              `json:"count"`
}

// FeedbackRequest is the body of POST /feedback
type FeedbackRequest struct {
	AnalysisID string         `json:"analysis_id"`
	UseCase    domain.UseCase `json:"use_case"`
	Rating     string         `json:"rating"`
	Comment    string         `json:"comment,omitempty"`
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return resilience.NewBadRequestError("invalid request format", err).WithContext("details", err.Error())
	}
	return nil
}

func (s *Server) scanBarcode(c *gin.Context) {
	var req BarcodeScanRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	req.Barcode = strings.TrimSpace(req.Barcode)
	if err := validateBarcode(req.Barcode); err != nil {
		s.respondError(c, err)
		return
	}
	if err := validateProfile(req.Profile, true); err != nil {
		s.respondError(c, err)
		return
	}

	result := s.deps.Analyzer.AnalyzeBarcode(c.Request.Context(), req.Barcode, *req.Profile)
	newAnalysisID(c)
	c.JSON(http.StatusOK, result)
}

func (s *Server) lookupBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	if err := validateBarcode(barcode); err != nil {
		s.respondError(c, err)
		return
	}

	result := s.deps.Analyzer.LookupBarcode(c.Request.Context(), barcode)
	newAnalysisID(c)
	c.JSON(http.StatusOK, result)
}

func (s *Server) analyzeFood(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		s.respondError(c, resilience.NewBadRequestError("multipart field 'image' is required", err))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if err := validateImage(contentType, fh.Size, s.cfg.MaxImageBytes); err != nil {
		s.respondError(c, err)
		return
	}

	var profile *domain.Profile
	if raw := strings.TrimSpace(c.PostForm("profile")); raw != "" {
		profile = &domain.Profile{}
		if err := json.Unmarshal([]byte(raw), profile); err != nil {
			s.respondError(c, resilience.NewBadRequestError("profile must be a JSON object", err))
			return
		}
		if err := validateProfile(profile, false); err != nil {
			s.respondError(c, err)
			return
		}
	}

	file, err := fh.Open()
	if err != nil {
		s.respondError(c, resilience.NewInternalError("failed to read upload", err))
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		s.respondError(c, resilience.NewInternalError("failed to read upload", err))
		return
	}
	if int64(len(image)) > s.cfg.MaxImageBytes {
		s.respondError(c, resilience.NewPayloadTooLargeError(fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxImageBytes)))
		return
	}
	if len(image) == 0 {
		s.respondError(c, resilience.NewBadRequestError("image is empty", nil))
		return
	}

	result := s.deps.Analyzer.AnalyzeImage(c.Request.Context(), image, contentType, profile)
	newAnalysisID(c)
	c.JSON(http.StatusOK, result)
}

func (s *Server) coachAdvice(c *gin.Context) {
	var req CoachRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if err := validateMessage(req.Message); err != nil {
		s.respondError(c, err)
		return
	}
	if err := validateProfile(req.Profile, false); err != nil {
		s.respondError(c, err)
		return
	}

	advice := s.deps.Analyzer.Advise(c.Request.Context(), strings.TrimSpace(req.Message), req.Profile)
	newAnalysisID(c)
	c.JSON(http.StatusOK, advice)
}

func (s *Server) generateReport(c *gin.Context) {
	var req domain.ReportRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if err := validateReportRequest(req); err != nil {
		s.respondError(c, err)
		return
	}

	report := s.deps.Analyzer.GenerateReport(c.Request.Context(), req)
	newAnalysisID(c)
	c.JSON(http.StatusOK, ReportResponse{UserID: req.UserID, ReportType: req.Period, Report: report})
}

func (s *Server) generateReports(c *gin.Context) {
	var req BatchReportRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	if n := len(req.Requests); n == 0 || n > s.cfg.MaxBatchSize {
		s.respondError(c, resilience.NewBadRequestError(
			fmt.Sprintf("batch must contain between 1 and %d requests", s.cfg.MaxBatchSize), nil).
			WithContext("count", n))
		return
	}
	for i, r := range req.Requests {
		if err := validateReportRequest(r); err != nil {
			s.respondError(c, resilience.AsServiceError(err).WithContext("index", i))
			return
		}
	}

	var reports []string
	err := resilience.WithTimeout(c.Request.Context(), s.cfg.BatchTimeout, s.logger, func(ctx context.Context) error {
		reports = s.deps.Analyzer.GenerateReports(ctx, req.Requests)
		return nil
	})
	if err != nil {
		var serr *resilience.ServiceError
		if errors.As(err, &serr) && serr.Code == resilience.ErrorCodeTimeout {
			s.logger.Warn("Report batch abandoned", zap.Int("count", len(req.Requests)))
		}
		s.respondError(c, err)
		return
	}

	out := BatchReportResponse{Reports: make([]ReportResponse, len(reports)), Count: len(reports)}
	for i, report := range reports {
		out.Reports[i] = ReportResponse{
			UserID:     req.Requests[i].UserID,
			ReportType: req.Requests[i].Period,
			Report:     report,
		}
	}
	newAnalysisID(c)
	c.JSON(http.StatusOK, out)
}

func (s *Server) recordFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	record, err := s.deps.Feedback.Record(feedback.Feedback{
		AnalysisID: req.AnalysisID,
		UseCase:    req.UseCase,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if errors.Is(err, feedback.ErrInvalidFeedback) {
		s.respondError(c, resilience.NewBadRequestError(err.Error(), err))
		return
	}
	if err != nil {
		s.respondError(c, resilience.NewInternalError("failed to record feedback", err))
		return
	}
	c.JSON(http.StatusCreated, record)
}
