package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"heatscore/domain/entities"
	"heatscore/domain/interfaces"
)

const (
	// Matches are scored in fixed-size chunks with a pause in between so the
	// per-game contract reads stay under the RPC provider's rate limit.
	// Chunk boundaries have no effect on the result.
	warScoreChunkSize  = 10
	warScoreChunkDelay = time.Second

	warDecayDailyRate = 0.25
	winnerMakerBonus  = 1.5
	winMultiplier     = 3.0
	lossMultiplier    = 0.3
)

// matchContribution is one match's share of an address's battle score,
// before the match-count and diversity multipliers are applied.
type matchContribution struct {
	points   float64
	opponent common.Address
}

// WarScoreService converts battle outcomes into per-address battle scores.
type WarScoreService struct {
	games interfaces.GameReader

	chunkSize  int
	chunkDelay time.Duration
}

// NewWarScoreService creates a war score calculator reading card counts
// through the given game reader.
func NewWarScoreService(games interfaces.GameReader) *WarScoreService {
	return &WarScoreService{
		games:      games,
		chunkSize:  warScoreChunkSize,
		chunkDelay: warScoreChunkDelay,
	}
}

// CalcWarScores computes the battle score of every address appearing as
// maker or challenger in battles, as of baseTime. All matches of an address
// are accumulated before the match-count and diversity multipliers are
// applied; both depend on the full match set.
func (s *WarScoreService) CalcWarScores(ctx context.Context, baseTime time.Time, battles []entities.BattleOutcome) (map[string]float64, error) {
	contributions := make(map[common.Address][]matchContribution)
	cardCache := make(map[uint64]int)

	for start := 0; start < len(battles); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(battles) {
			end = len(battles)
		}
		for _, battle := range battles[start:end] {
			numCards, cached := cardCache[battle.GameID]
			if !cached {
				var err error
				numCards, err = s.games.NumOfCards(ctx, battle.GameID)
				if err != nil {
					return nil, fmt.Errorf("failed to read card count for game %d: %w", battle.GameID, err)
				}
				cardCache[battle.GameID] = numCards
			}

			decay := warDecayMultiplier(daysElapsed(baseTime, battle.Date))
			for _, participant := range []common.Address{battle.Maker, battle.Challenger} {
				points := roleMultiplier(battle, participant) *
					resultMultiplier(battle, participant) *
					decay *
					float64(numCards)
				contributions[participant] = append(contributions[participant], matchContribution{
					points:   points,
					opponent: battle.Opponent(participant),
				})
			}
		}

		if end < len(battles) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.chunkDelay):
			}
		}
	}

	scores := make(map[string]float64, len(contributions))
	for addr, matches := range contributions {
		var sum float64
		opponents := make(map[common.Address]struct{})
		for _, m := range matches {
			sum += m.points
			opponents[m.opponent] = struct{}{}
		}
		scores[NormalizeAddress(addr)] = sum *
			matchCountMultiplier(len(matches)) *
			diversityMultiplier(len(opponents))
	}

	log.WithFields(log.Fields{
		"battles":   len(battles),
		"addresses": len(scores),
		"games":     len(cardCache),
	}).Debug("war scores computed")

	return scores, nil
}

// roleMultiplier rewards the privileged role: 1.5 when the address won the
// match as its maker, 1.0 otherwise.
func roleMultiplier(b entities.BattleOutcome, addr common.Address) float64 {
	if b.Winner == addr && b.Maker == addr {
		return winnerMakerBonus
	}
	return 1.0
}

func resultMultiplier(b entities.BattleOutcome, addr common.Address) float64 {
	switch {
	case b.IsDraw():
		return 1.0
	case b.Winner == addr:
		return winMultiplier
	default:
		return lossMultiplier
	}
}

// warDecayMultiplier fades a match's contribution by 25% per elapsed day,
// reaching zero at day 5.
func warDecayMultiplier(days int64) float64 {
	return math.Max(0, 1-warDecayDailyRate*float64(days-1))
}

// matchCountMultiplier rewards volume. The 50/35 breakpoint asymmetry is a
// deliberate tuning choice and must not be smoothed out.
func matchCountMultiplier(totalMatches int) float64 {
	if totalMatches <= 50 {
		return 1 + float64(totalMatches)/50/4
	}
	return math.Min(1+float64(totalMatches-35)/50, 2)
}

// diversityMultiplier rewards facing distinct opponents: flat below 5,
// linear up to 50, capped at 5x beyond.
func diversityMultiplier(uniqueOpponents int) float64 {
	switch {
	case uniqueOpponents < 5:
		return 1.0
	case uniqueOpponents <= 50:
		return 1 + float64(uniqueOpponents-5)*4/45
	default:
		return 5.0
	}
}

// daysElapsed returns floor((baseTime - eventTime) / 1 day).
func daysElapsed(baseTime, eventTime time.Time) int64 {
	return int64(math.Floor(baseTime.Sub(eventTime).Seconds() / 86400))
}
