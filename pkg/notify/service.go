package notify

import (
	"context"
	"log/slog"
	"time"
)

// Service handles operational alert delivery. Nil-safe: every method is
// a no-op when the Service itself is nil, mirroring the teacher's Slack
// service so callers can construct it unconditionally at startup.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService builds a Service from a webhook URL. Returns nil if
// webhookURL is empty, so the worker pool can hold a *Service field and
// call it without a separate enabled check.
func NewService(webhookURL string) *Service {
	if webhookURL == "" {
		return nil
	}
	return &Service{
		client: NewClient(webhookURL),
		logger: slog.Default().With("component", "notify-service"),
	}
}

// NotifyPoolStarted announces worker pool startup. Fail-open: errors
// are logged, never returned, so a broken webhook never blocks startup.
func (s *Service) NotifyPoolStarted(ctx context.Context, workers, batchSize int) {
	if s == nil {
		return
	}
	blocks := BuildPoolStartedMessage(workers, batchSize)
	if err := s.client.Post(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Warn("failed to send pool-started notification", "error", err)
	}
}

// NotifyPoolStopped announces graceful worker pool shutdown.
func (s *Service) NotifyPoolStopped(ctx context.Context, reason string) {
	if s == nil {
		return
	}
	blocks := BuildPoolStoppedMessage(reason)
	if err := s.client.Post(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Warn("failed to send pool-stopped notification", "error", err)
	}
}

// NotifyBackpressure warns of sustained queue depth. Callers are
// expected to debounce (only call once the threshold has been crossed
// for the configured number of consecutive samples); Service performs
// no debouncing of its own.
func (s *Service) NotifyBackpressure(ctx context.Context, depth, threshold, consecutiveSamples int) {
	if s == nil {
		return
	}
	blocks := BuildBackpressureMessage(depth, threshold, consecutiveSamples)
	if err := s.client.Post(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Warn("failed to send backpressure notification", "error", err)
	}
}
