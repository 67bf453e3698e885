// internal/middleware/logging.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

// ActivityRecorder is satisfied by services.AdminService.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, entry services.ActivityEntry) error
}

// RequestLogger emits one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		userID, _ := utils.GetUserIDFromContext(c)
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"request_id": c.GetString(utils.ContextRequestID),
			"user_id":    userID,
		})

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request processed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}

// ActivityLog records every authenticated state-changing request in the
// caller's activity trail. Writes happen after the response, detached from
// the request context.
func ActivityLog(recorder ActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		c.Next()

		userID, ok := utils.GetUserIDFromContext(c)
		if !ok {
			return
		}

		entry := services.ActivityEntry{
			UserID:     userID,
			Action:     activityAction(c),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}

		go func() {
			if err := recorder.RecordActivity(context.Background(), entry); err != nil {
				logrus.WithError(err).WithField("user_id", entry.UserID).Error("Failed to record user activity")
			}
		}()
	}
}

// activityAction names the request by its route template, e.g.
// "POST /api/eco/:id/approve".
func activityAction(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.TrimSpace(c.Request.Method + " " + route)
}
