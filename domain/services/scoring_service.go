package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"heatscore/domain/entities"
	"heatscore/domain/interfaces"
)

const (
	battleLookbackDays   = 3
	referralLookbackDays = 14

	scoreDecimalPlaces = 10
)

// ScoringService runs the heat-score pipeline for one as-of date. It is a
// pure function of (asOf, fetched logs): the caller (scheduler adapter or a
// manual backfill) decides when it runs and for which date.
type ScoringService struct {
	blocks     interfaces.BlockResolver
	events     interfaces.EventFetcher
	dedup      *ReferralDedupService
	war        *WarScoreService
	referral   *ReferralScoreService
	heatScores interfaces.HeatScoreRepository
	publisher  interfaces.ScoringEventPublisher // optional
	metrics    interfaces.RunMetrics            // optional

	launchFloor time.Time
}

// NewScoringService wires the scoring pipeline. publisher and metrics may be
// nil.
func NewScoringService(
	blocks interfaces.BlockResolver,
	events interfaces.EventFetcher,
	dedup *ReferralDedupService,
	war *WarScoreService,
	referral *ReferralScoreService,
	heatScores interfaces.HeatScoreRepository,
	publisher interfaces.ScoringEventPublisher,
	metrics interfaces.RunMetrics,
	launchFloor time.Time,
) *ScoringService {
	return &ScoringService{
		blocks:      blocks,
		events:      events,
		dedup:       dedup,
		war:         war,
		referral:    referral,
		heatScores:  heatScores,
		publisher:   publisher,
		metrics:     metrics,
		launchFloor: launchFloor,
	}
}

// ExecuteScoring computes and persists heat scores as of asOf. The first
// failed external call aborts the run; nothing is persisted before the final
// aggregation step, so a failed run leaves no partial rows and the next
// trigger restarts from scratch. Re-running for an already-scored date is a
// no-op per address.
func (s *ScoringService) ExecuteScoring(ctx context.Context, asOf time.Time) error {
	asOf = asOf.UTC()
	baseDate := asOf.Truncate(24 * time.Hour)
	start := time.Now()

	log.WithFields(log.Fields{
		"asOf":     asOf.Format(time.RFC3339),
		"baseDate": baseDate.Format("2006-01-02"),
	}).Info("starting heat score run")

	battleStart := asOf.AddDate(0, 0, -battleLookbackDays)
	referralStart := asOf.AddDate(0, 0, -referralLookbackDays)
	if referralStart.Before(s.launchFloor) {
		referralStart = s.launchFloor
	}

	s.countExternalCall(ctx, "indexer")
	battles, err := s.events.FetchBattleOutcomes(ctx, battleStart.Unix(), asOf.Unix())
	if err != nil {
		return fmt.Errorf("failed to fetch battle outcomes: %w", err)
	}

	s.countExternalCall(ctx, "indexer")
	rawReferrals, err := s.events.FetchReferralTransfers(ctx, referralStart.Unix(), asOf.Unix())
	if err != nil {
		return fmt.Errorf("failed to fetch referral transfers: %w", err)
	}

	s.countExternalCall(ctx, "blockscan")
	ranges, err := s.blocks.DayBlockRanges(ctx, referralStart.Unix(), asOf.Unix())
	if err != nil {
		return fmt.Errorf("failed to resolve day block ranges: %w", err)
	}

	// Activations are recomputed over the full look-back window each run,
	// so there is no persisted prior set to merge in.
	activations := s.dedup.Dedup(nil, rawReferrals)

	warScores, err := s.war.CalcWarScores(ctx, asOf, battles)
	if err != nil {
		return fmt.Errorf("failed to calculate war scores: %w", err)
	}

	referralScores := s.referral.CalcReferralScores(asOf, activations, battles, ranges)

	entries := FilterPositive(SumScores(warScores, referralScores))

	persisted, err := s.persist(ctx, baseDate, entries)
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordPersisted(ctx, persisted)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishScoringCompleted(ctx, baseDate, persisted); err != nil {
			log.WithError(err).Warn("failed to publish scoring completed event")
		}
	}

	log.WithFields(log.Fields{
		"baseDate":    baseDate.Format("2006-01-02"),
		"battles":     len(battles),
		"activations": len(activations),
		"scored":      len(entries),
		"persisted":   persisted,
		"duration":    time.Since(start).String(),
	}).Info("heat score run completed")

	return nil
}

func (s *ScoringService) countExternalCall(ctx context.Context, target string) {
	if s.metrics != nil {
		s.metrics.RecordExternalCall(ctx, target)
	}
}

// persist writes one record per entry, skipping addresses already scored for
// baseDate. The existence check is the pipeline's only idempotency guarantee;
// a previously persisted score is never corrected in place.
func (s *ScoringService) persist(ctx context.Context, baseDate time.Time, entries []entities.ScoreEntry) (int, error) {
	persisted := 0
	for _, entry := range entries {
		exists, err := s.heatScores.ExistsForDate(ctx, entry.Address, baseDate)
		if err != nil {
			return persisted, fmt.Errorf("failed to check existing score for %s: %w", entry.Address, err)
		}
		if exists {
			log.WithFields(log.Fields{
				"address": entry.Address,
				"date":    baseDate.Format("2006-01-02"),
			}).Debug("score already recorded, skipping")
			continue
		}

		record := &entities.HeatScore{
			Address: entry.Address,
			Score:   decimal.NewFromFloat(entry.Score).Round(scoreDecimalPlaces),
			Date:    baseDate,
		}
		if err := s.heatScores.Create(ctx, record); err != nil {
			return persisted, fmt.Errorf("failed to persist score for %s: %w", entry.Address, err)
		}
		persisted++
	}
	return persisted, nil
}
