package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"jse_extractor/pkg/models"
)

// ClassifyBackendError maps a backend failure onto a pipeline error kind.
// Rate limits, server-side failures and timeouts are transient and worth
// retrying; authentication, quota-exhausted and malformed-request failures
// are permanent.
func ClassifyBackendError(err error) models.ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrBackendTransient
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyStatus(gErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrBackendTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection reset"):
		return models.ErrBackendTransient
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "invalid argument"):
		return models.ErrBackendPermanent
	}
	// Unknown failures are retried once rather than dead-lettered outright.
	return models.ErrBackendTransient
}

func classifyStatus(code int) models.ErrorKind {
	switch {
	case code == 429, code >= 500:
		return models.ErrBackendTransient
	case code >= 400:
		return models.ErrBackendPermanent
	default:
		return models.ErrBackendTransient
	}
}
