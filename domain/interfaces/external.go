package interfaces

import (
	"context"
	"time"

	"heatscore/domain/entities"
)

// BlockResolver maps Unix timestamps onto chain block numbers via an
// external block-explorer API.
type BlockResolver interface {
	// BlockNumberAtTime returns the closest block at or after the given
	// Unix timestamp.
	BlockNumberAtTime(ctx context.Context, unixSeconds int64) (uint64, error)

	// DayBlockRanges partitions [startUnix, endUnix] into UTC calendar days
	// and resolves the first and last block of each day.
	DayBlockRanges(ctx context.Context, startUnix, endUnix int64) (entities.DayBlockRanges, error)
}

// EventFetcher retrieves decoded contract event logs from the external
// indexing service for a Unix-time window.
type EventFetcher interface {
	FetchBattleOutcomes(ctx context.Context, startUnix, endUnix int64) ([]entities.BattleOutcome, error)
	FetchReferralTransfers(ctx context.Context, startUnix, endUnix int64) ([]entities.ReferralTransfer, error)
}

// GameReader reads per-game data from the game contract.
type GameReader interface {
	// NumOfCards returns the number of cards used in the given match.
	NumOfCards(ctx context.Context, gameID uint64) (int, error)
}

// ScoringEventPublisher announces completed scoring runs to downstream
// services. Publish failures must never fail the run.
type ScoringEventPublisher interface {
	PublishScoringCompleted(ctx context.Context, baseDate time.Time, addressCount int) error
}

// AlertNotifier forwards fatal run errors to an external channel.
type AlertNotifier interface {
	NotifyError(ctx context.Context, jobName string, jobErr error)
}

// RunMetrics records operational metrics for scoring runs. Implementations
// must tolerate being called before initialization.
type RunMetrics interface {
	RecordRun(ctx context.Context, success bool, duration time.Duration)
	RecordPersisted(ctx context.Context, count int)
	RecordExternalCall(ctx context.Context, target string)
}
