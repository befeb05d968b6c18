package repository

import (
	"context"
	"fmt"
	"time"

	"heatscore/database"
	"heatscore/domain/entities"
	"heatscore/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// heatScoreDB is a local struct for database mapping. The score column is
// NUMERIC(30,10); it travels as text so no precision is lost in transit.
type heatScoreDB struct {
	ID        int64     `db:"id"`
	Address   string    `db:"address"`
	Score     string    `db:"score"`
	Date      time.Time `db:"date"`
	CreatedAt time.Time `db:"created_at"`
}

// toDomain converts the database struct to the domain model
func (h *heatScoreDB) toDomain() (*entities.HeatScore, error) {
	score, err := decimal.NewFromString(h.Score)
	if err != nil {
		return nil, fmt.Errorf("invalid score value %q: %w", h.Score, err)
	}

	return &entities.HeatScore{
		ID:        h.ID,
		Address:   h.Address,
		Score:     score,
		Date:      h.Date,
		CreatedAt: h.CreatedAt,
	}, nil
}

// heatScoreRepository implements interfaces.HeatScoreRepository
type heatScoreRepository struct {
	q Queryable
}

// NewHeatScoreRepository creates a new heat score repository
func NewHeatScoreRepository(db *database.DB) interfaces.HeatScoreRepository {
	return &heatScoreRepository{q: db.Pool}
}

// NewHeatScoreRepositoryWithQueryable creates a repository over an existing
// transaction or pool
func NewHeatScoreRepositoryWithQueryable(q Queryable) interfaces.HeatScoreRepository {
	return &heatScoreRepository{q: q}
}

// ExistsForDate reports whether a score row already exists for the address on
// the given date. Runs decide idempotency with this check before inserting.
func (r *heatScoreRepository) ExistsForDate(ctx context.Context, address string, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM heat_scores
			WHERE address = $1 AND date = $2
		)`

	var exists bool
	err := r.q.QueryRow(ctx, query, address, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check heat score existence: %w", err)
	}

	return exists, nil
}

// Create inserts a new heat score record
func (r *heatScoreRepository) Create(ctx context.Context, score *entities.HeatScore) error {
	query := `
		INSERT INTO heat_scores (address, score, date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		score.Address,
		score.Score.String(),
		score.Date,
	).Scan(&score.ID, &score.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create heat score: %w", err)
	}

	return nil
}

// GetTopByLatestDate returns the highest scores from the most recent scoring
// date, ordered by score descending with address as tie-break.
func (r *heatScoreRepository) GetTopByLatestDate(ctx context.Context, limit int) ([]*entities.HeatScore, error) {
	query := `
		SELECT id, address, score::text, date, created_at
		FROM heat_scores
		WHERE date = (SELECT MAX(date) FROM heat_scores)
		ORDER BY score DESC, address ASC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top heat scores: %w", err)
	}
	defer rows.Close()

	var scores []*entities.HeatScore
	for rows.Next() {
		var dbScore heatScoreDB
		err := rows.Scan(
			&dbScore.ID,
			&dbScore.Address,
			&dbScore.Score,
			&dbScore.Date,
			&dbScore.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan heat score: %w", err)
		}

		score, err := dbScore.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to convert heat score: %w", err)
		}
		scores = append(scores, score)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating heat scores: %w", err)
	}

	return scores, nil
}

// GetByAddressLatest returns the most recent score for an address, or nil
// when the address has never been scored.
func (r *heatScoreRepository) GetByAddressLatest(ctx context.Context, address string) (*entities.HeatScore, error) {
	query := `
		SELECT id, address, score::text, date, created_at
		FROM heat_scores
		WHERE address = $1
		ORDER BY date DESC
		LIMIT 1`

	var dbScore heatScoreDB
	err := r.q.QueryRow(ctx, query, address).Scan(
		&dbScore.ID,
		&dbScore.Address,
		&dbScore.Score,
		&dbScore.Date,
		&dbScore.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest heat score: %w", err)
	}

	return dbScore.toDomain()
}
