package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"loginsight-backend/config"
	"loginsight-backend/internal/metadata"
)

// NewScheduler runs the periodic catalog refresh so index definitions and
// connection profiles edited out-of-band show up without a restart.
func NewScheduler(lc fx.Lifecycle, cfg *config.Config, catalog *metadata.CachedGateway) *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	schedule := cfg.Scheduler.CatalogRefreshSchedule
	_, err := c.AddFunc(schedule, func() {
		if err := catalog.Refresh(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error during scheduled catalog refresh")
		}
	})

	if err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled catalog refresh job")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})

	return c
}
