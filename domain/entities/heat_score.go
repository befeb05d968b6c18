package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoreEntry is a transient per-address score produced by a calculator.
// Entries for the same address from different calculators are summed before
// persistence. Address is always lower-cased hex.
type ScoreEntry struct {
	Address string
	Score   float64
}

// HeatScore is the persisted per-address, per-date contribution record.
// At most one row exists per (address, date); the repository enforces this
// with an existence check before insert rather than a uniqueness constraint.
type HeatScore struct {
	ID        int64
	Address   string
	Score     decimal.Decimal
	Date      time.Time
	CreatedAt time.Time
}
