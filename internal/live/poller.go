package live

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/lightning-rounds/internal/question"
)

// SummaryPoller periodically recomputes the summary and notifies when it
// changed, so edits made outside this process (another instance without
// Redis, a reseed, the database console) still reach viewers.
type SummaryPoller struct {
	summaries summarizer
	notifier  question.Notifier
	interval  time.Duration
	logger    zerolog.Logger

	lastHash [sha256.Size]byte
	primed   bool
}

func NewSummaryPoller(summaries summarizer, notifier question.Notifier, interval time.Duration, logger zerolog.Logger) *SummaryPoller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SummaryPoller{
		summaries: summaries,
		notifier:  notifier,
		interval:  interval,
		logger:    logger.With().Str("component", "summary_poller").Logger(),
	}
}

// Run blocks until context cancellation.
func (p *SummaryPoller) Run(ctx context.Context) error {
	if p.summaries == nil || p.notifier == nil {
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// prime immediately so the first tick only fires on a real change
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *SummaryPoller) tick(ctx context.Context) {
	summary, err := p.summaries.Summarize(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("summary poll failed")
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		p.logger.Warn().Err(err).Msg("summary encode failed")
		return
	}
	hash := sha256.Sum256(data)

	if !p.primed {
		p.lastHash = hash
		p.primed = true
		return
	}
	if hash == p.lastHash {
		return
	}

	if err := p.notifier.SummaryChanged(ctx, summary); err != nil {
		p.logger.Warn().Err(err).Msg("summary change notification failed")
		return
	}
	p.lastHash = hash
	p.logger.Debug().Int("remaining", summary.TotalRemaining).Msg("external summary change published")
}
