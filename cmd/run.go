package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"heatscore/config"
	"heatscore/database"
	"heatscore/domain/interfaces"
	"heatscore/domain/services"
	"heatscore/infrastructure"
	"heatscore/infrastructure/observability"
	"heatscore/repository"
	"heatscore/scheduler"
)

// Run initializes the scoring worker and blocks until ctx is cancelled.
// When backfillAsOf is non-zero a single run is executed for that time
// instead of starting the scheduler.
func Run(ctx context.Context, backfillAsOf time.Time) error {
	cfg := config.Get()

	log.WithField("environment", cfg.Environment).Info("starting heat score worker")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to shut down metrics provider")
		}
	}()

	blocks := infrastructure.NewBlockscanClient(cfg.BlockscanURL, cfg.BlockscanAPIKey)
	indexer := infrastructure.NewIndexerClient(cfg.IndexerURL, cfg.ChainSlug)
	events := infrastructure.NewEventGateway(
		indexer,
		blocks,
		common.HexToAddress(cfg.GameContractAddress),
		common.HexToAddress(cfg.InvitationContractAddress),
	)

	games, err := infrastructure.NewGameCardReader(cfg.ChainRPCURL, common.HexToAddress(cfg.GameContractAddress))
	if err != nil {
		return fmt.Errorf("failed to create game card reader: %w", err)
	}
	defer games.Close()

	var publisher interfaces.ScoringEventPublisher
	natsPublisher, err := infrastructure.NewNATSPublisher(cfg.NATSServers)
	if err != nil {
		// Scoring still works without the event stream; downstream consumers
		// just miss the completion notice.
		log.WithError(err).Warn("NATS unavailable, continuing without event publishing")
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	vips := make([]common.Address, 0, len(cfg.VIPExclusions))
	for _, addr := range cfg.VIPExclusions {
		vips = append(vips, common.HexToAddress(addr))
	}

	heatScores := repository.NewHeatScoreRepository(db)
	scoringSvc := services.NewScoringService(
		blocks,
		events,
		services.NewReferralDedupService(vips),
		services.NewWarScoreService(games),
		services.NewReferralScoreService(cfg.LaunchDate),
		heatScores,
		publisher,
		metrics,
		cfg.LaunchDate,
	)

	notifier := infrastructure.NewWebhookNotifier(cfg.ErrorHookURL)
	sched, err := scheduler.New(cfg.CronExpression, scoringSvc, notifier, metrics)
	if err != nil {
		return err
	}

	if !backfillAsOf.IsZero() {
		log.WithField("asOf", backfillAsOf.Format(time.RFC3339)).Info("running one-off backfill")
		return sched.RunOnce(ctx, backfillAsOf)
	}

	if !cfg.ScoringEnabled {
		log.Warn("scoring disabled, worker idle")
		<-ctx.Done()
		return nil
	}

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
