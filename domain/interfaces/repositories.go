package interfaces

import (
	"context"
	"time"

	"heatscore/domain/entities"
)

// HeatScoreRepository persists computed heat scores.
type HeatScoreRepository interface {
	// ExistsForDate reports whether a score is already recorded for the
	// address on the given date.
	ExistsForDate(ctx context.Context, address string, date time.Time) (bool, error)

	// Create inserts a new heat score record and fills in ID and CreatedAt.
	Create(ctx context.Context, score *entities.HeatScore) error

	// GetTopByLatestDate returns the highest scores for the most recent
	// scoring date, ordered by score descending.
	GetTopByLatestDate(ctx context.Context, limit int) ([]*entities.HeatScore, error)

	// GetByAddressLatest returns the record for the address on the most
	// recent scoring date, or nil when the address was not scored.
	GetByAddressLatest(ctx context.Context, address string) (*entities.HeatScore, error)
}
