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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/resilience"
)

const requestIDKey = "request_id"

// requestID reuses a caller supplied X-Request-ID or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)))
	}
}

// newAnalysisID tags a response so feedback can refer back to it.
func newAnalysisID(c *gin.Context) string {
	id := uuid.NewString()
	c.Header(HeaderAnalysisID, id)
	return id
}

// respondError renders err as an ErrorResponse with its mapped status.
func (s *Server) respondError(c *gin.Context, err error) {
	serr := resilience.AsServiceError(err)
	if serr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", string(serr.Code)),
			zap.Error(errors.Unwrap(serr)))
	} else {
		s.logger.Debug("Request rejected",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", string(serr.Code)),
			zap.String("message", serr.Message))
	}
	c.AbortWithStatusJSON(serr.StatusCode, serr.ToErrorResponse(c.GetString(requestIDKey)))
}
