package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type staleNormalizer interface {
	NormalizeStale(ctx context.Context) (int, error)
}

// NormalizerConfig tunes the background anchor normalizer.
type NormalizerConfig struct {
	Enabled  bool
	Schedule string
}

// Normalizer periodically rolls stale recurring event anchors forward so
// stored schedules stay close to the present day.
type Normalizer struct {
	schedules staleNormalizer
	config    NormalizerConfig
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewNormalizer constructs a Normalizer. Call Start to begin scheduling.
func NewNormalizer(schedules staleNormalizer, config NormalizerConfig, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Schedule == "" {
		config.Schedule = "0 3 * * *"
	}
	return &Normalizer{schedules: schedules, config: config, logger: logger}
}

// Start runs one normalization pass immediately and then registers the cron
// schedule. It is a no-op when the job is disabled.
func (n *Normalizer) Start(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("schedule normalizer disabled")
		return nil
	}

	n.runOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(n.config.Schedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n.runOnce(runCtx)
	}); err != nil {
		return err
	}
	c.Start()
	n.cron = c

	n.logger.Info("schedule normalizer started", zap.String("schedule", n.config.Schedule))
	return nil
}

// Stop halts the cron scheduler and waits for a running pass to finish.
func (n *Normalizer) Stop() {
	if n.cron == nil {
		return
	}
	<-n.cron.Stop().Done()
}

func (n *Normalizer) runOnce(ctx context.Context) {
	start := time.Now()
	updated, err := n.schedules.NormalizeStale(ctx)
	if err != nil {
		n.logger.Error("schedule normalization failed", zap.Error(err))
		return
	}
	n.logger.Info("schedule normalization complete",
		zap.Int("events_updated", updated),
		zap.Duration("took", time.Since(start)))
}
