// internal/interfaces/http/handlers/response.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInsufficientStock, apperror.KindDuplicateCode,
		apperror.KindInvalidTransition, apperror.KindCodeInUse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {"error", "code"} body for err. Admin responses
// also carry the raw error chain.
func respondError(c *gin.Context, err error, withDetails bool) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	body := gin.H{
		"error": apperror.MessageOf(err),
		"code":  kind,
	}
	if withDetails {
		body["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// respondBindError reports a malformed request body
func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    apperror.KindValidation,
		"details": err.Error(),
	})
}

// respond writes the success envelope
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}

// parseIDParam parses a positive numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
			"code":  apperror.KindValidation,
		})
		return 0, false
	}
	return uint(id), true
}
