// Package publisher is the only boundary that talks to the external
// platform posting APIs. Responses are converted to a typed Result or a
// models.DeliveryError immediately after the call; nothing outside this
// package inspects raw provider JSON.
package publisher

import (
	"context"
	"errors"
	"net/http"
	"time"

	config "postpilot/configs"
	"postpilot/internal/models"
)

// Request carries the post fields a delivery call may use.
type Request struct {
	Content  string
	Title    string
	ImageURL string
}

// Result is the success variant of a delivery call.
type Result struct {
	RemoteID string
	URL      string
}

type Publisher interface {
	Platform() string
	Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error)
}

// NewRegistry builds one publisher per supported platform.
func NewRegistry(cfg config.Config) map[string]Publisher {
	client := &http.Client{Timeout: 30 * time.Second}
	return map[string]Publisher{
		models.PlatformTwitter:   NewTwitterPublisher(cfg, client),
		models.PlatformLinkedin:  NewLinkedinPublisher(cfg, client),
		models.PlatformInstagram: NewInstagramPublisher(cfg, client),
		models.PlatformFacebook:  NewFacebookPublisher(cfg, client),
		models.PlatformReddit:    NewRedditPublisher(cfg, client),
	}
}

// transportError wraps a failed round trip. Timeouts and network errors
// are retryable; the platform never saw or definitively rejected the post.
func transportError(platform string, err error) *models.DeliveryError {
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "request timed out"
	}
	return &models.DeliveryError{Platform: platform, Reason: reason, Retryable: true}
}

// apiError classifies a non-2xx provider response. Rate limits and server
// errors are retryable; everything else is a definitive rejection.
func apiError(platform string, statusCode int, message string) *models.DeliveryError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &models.DeliveryError{
		Platform:  platform,
		Reason:    message,
		Retryable: statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}
}
