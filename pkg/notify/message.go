package notify

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

// BuildPoolStartedMessage announces a worker pool coming online.
func BuildPoolStartedMessage(workers, batchSize int) []goslack.Block {
	text := fmt.Sprintf(":rocket: Worker pool started — %d workers, batch size %d", workers, batchSize)
	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}
}

// BuildPoolStoppedMessage announces a graceful worker pool shutdown.
func BuildPoolStoppedMessage(reason string) []goslack.Block {
	text := fmt.Sprintf(":octagonal_sign: Worker pool shutting down (%s)", reason)
	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}
}

// BuildBackpressureMessage warns that the request queue has stayed at
// or above threshold for consecutive statistics samples.
func BuildBackpressureMessage(depth, threshold, consecutiveSamples int) []goslack.Block {
	text := fmt.Sprintf(
		":warning: Request queue depth %d at/above threshold %d for %d consecutive samples",
		depth, threshold, consecutiveSamples,
	)
	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}
}
