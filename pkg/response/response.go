// Package response writes the JSON envelope every endpoint answers with:
// {"success": bool, "data": ..., "error": {"code", "message"}}.
package response

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/logger"
)

// Response is the envelope shared by success and error replies.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo is the client visible part of an AppError.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data under the success envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// Error writes the error envelope for err. Only the code and message reach the
// client. Server side failures are logged with their internal cause, and a
// Retry-After header is set when the error carries a retry hint.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		appErr = appErrors.ErrInternalServer
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logServerError(c, appErr, err)
	}
	if appErr.RetryAfter > 0 {
		seconds := int(math.Ceil(appErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
	}

	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}

func logServerError(c *gin.Context, appErr *appErrors.AppError, cause error) {
	fields := []zap.Field{zap.String("code", appErr.Code)}
	if c.Request != nil {
		fields = append(fields, zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	logger.WithModule("http").Error("request failed", fields...)
}
