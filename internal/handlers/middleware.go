package handlers

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// Header names.
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderWebhookToken = "X-Webhook-Token"
)

const requestIDKey = "request_id"

// ErrInvalidWebhookToken is logged for rejected webhook calls.
var ErrInvalidWebhookToken = errors.New("invalid webhook token")

// RequestID propagates the caller's request id or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// LogRequest logs every request body at debug level.
func LogRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		bodyBytes, err := getRequestBody(c)
		if err != nil {
			logger.Error("Failed to read request body", zap.Error(err))
			c.Next()
			return
		}

		logger.Debug("Request received",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("body", string(bodyBytes)),
		)
		c.Next()
	}
}

// WebhookAuth rejects requests whose X-Webhook-Token does not match token.
// An empty token disables the check.
func WebhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderWebhookToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			sendError(c, http.StatusUnauthorized, "unauthorized", ErrInvalidWebhookToken)
			return
		}
		c.Next()
	}
}

// getRequestBody reads the body and puts it back for the next handler.
func getRequestBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return bodyBytes, nil
}
