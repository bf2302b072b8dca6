package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// sendError logs err with the request path and writes a JSON error body.
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("request_id", c.GetString(requestIDKey)),
	)
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: message})
}
