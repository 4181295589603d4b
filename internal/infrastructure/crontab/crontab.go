package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"

	"glowchat/internal/config"
	"glowchat/internal/domain/conversation"
	"glowchat/internal/infrastructure/logger"
	"glowchat/internal/infrastructure/metrics"
	"glowchat/internal/utils/platformerrors"
)

const (
	// CronJobTimeout bounds each scheduled job execution.
	CronJobTimeout = 10 * time.Minute
)

// Crontab owns the scheduled background jobs, currently the retention
// sweep that removes deleted conversations past the configured window.
type Crontab struct {
	ctab                *crontab.Crontab
	conversationService *conversation.ConversationService
}

func NewCrontab(conversationService *conversation.ConversationService) *Crontab {
	return &Crontab{
		ctab:                crontab.New(),
		conversationService: conversationService,
	}
}

// Run schedules the jobs and blocks until ctx is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	cfg := config.GetGlobal()
	if cfg != nil && cfg.RetentionDays > 0 {
		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour

		if err := c.ctab.AddJob(cfg.RetentionSchedule, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			c.sweepDeletedConversations(jobCtx, retention)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add retention sweep job")
		}

		log := logger.GetLogger()
		log.Info().
			Str("schedule", cfg.RetentionSchedule).
			Int("retention_days", cfg.RetentionDays).
			Msg("Retention sweep scheduled")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweepDeletedConversations(ctx context.Context, retention time.Duration) {
	log := logger.GetLogger()

	purged, err := c.conversationService.PurgeDeleted(ctx, retention)
	if err != nil {
		log.Error().Err(err).Msg("Retention sweep failed")
		return
	}

	if purged > 0 {
		metrics.ConversationsPurgedTotal.Add(float64(purged))
		log.Info().Int64("purged", purged).Msg("Retention sweep removed conversations")
	}
}
