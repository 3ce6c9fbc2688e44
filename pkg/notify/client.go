// Package notify implements the optional Slack operational alerting
// channel (§4.11, domain addition): worker pool lifecycle events and
// sustained queue back-pressure. Every exported method is nil-safe so
// callers can wire a *Service unconditionally and simply leave it nil
// when SLACK_WEBHOOK_URL is unset.
package notify

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

// Client is a thin wrapper around the slack-go SDK's incoming-webhook
// call, the right primitive for a fire-and-forget alert channel that
// doesn't need to read channel history or thread replies.
type Client struct {
	webhookURL string
}

// NewClient constructs a Client posting to webhookURL.
func NewClient(webhookURL string) *Client {
	return &Client{webhookURL: webhookURL}
}

// Post sends a message built from blocks, bounded by timeout.
func (c *Client) Post(ctx context.Context, blocks []goslack.Block, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := goslack.WebhookMessage{Blocks: &goslack.Blocks{BlockSet: blocks}}
	if err := goslack.PostWebhookContext(ctx, c.webhookURL, &msg); err != nil {
		return fmt.Errorf("slack webhook post failed: %w", err)
	}
	return nil
}
