package httpclient

import (
	"net/http"
	"regexp"
	"time"

	"resi-tracker/internal/core/logger"

	"go.uber.org/zap"
)

// botTokenPattern matches the credential segment of Bot API URLs.
var botTokenPattern = regexp.MustCompile(`/bot[^/]+/`)

// RedactURL hides bot tokens embedded in a request URL.
func RedactURL(raw string) string {
	return botTokenPattern.ReplaceAllString(raw, "/bot<redacted>/")
}

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	target := RedactURL(req.URL.String())

	logger.Get().Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", target),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Get().Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.String("error", RedactURL(err.Error())),
		)
		return nil, err
	}

	logger.Get().Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
		},
		Timeout: timeout,
	}
}
