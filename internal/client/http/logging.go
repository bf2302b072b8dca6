package http

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// secretParams never reach the logs.
var secretParams = []string{"api_token", "apiKey", "token"}

// RedactURL renders u with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	found := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			found = true
		}
	}
	if !found {
		return u.String()
	}
	clone := *u
	clone.RawQuery = q.Encode()
	return clone.String()
}

// LoggingMiddleware logs every round trip, retries included, at debug level.
func LoggingMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			target := RedactURL(req.URL)
			logger.Debug("HTTP request started", zap.String("method", req.Method), zap.String("url", target))

			resp, err := next.RoundTrip(req)
			if err != nil {
				logger.Debug("HTTP round trip failed",
					zap.String("method", req.Method),
					zap.String("url", target),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err))
				return resp, err
			}
			logger.Debug("HTTP response received",
				zap.String("method", req.Method),
				zap.String("url", target),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", time.Since(start)))
			return resp, nil
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
