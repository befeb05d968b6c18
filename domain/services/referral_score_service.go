package services

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"heatscore/domain/entities"
)

const (
	referralDecayMaxDays = 14
	referralDecayRate    = 0.1
	playCountBonusPivot  = 20
)

// ReferralScoreService converts deduplicated referral activations into
// per-inviter scores. An invitee only earns its inviter points by actually
// playing; the bonus curve saturates so sustained engagement beats raw
// invite volume.
type ReferralScoreService struct {
	launchFloor time.Time
}

// NewReferralScoreService creates a referral score calculator. Event dates
// earlier than launchFloor (pre-launch test traffic) are clamped to it.
func NewReferralScoreService(launchFloor time.Time) *ReferralScoreService {
	return &ReferralScoreService{launchFloor: launchFloor}
}

// CalcReferralScores computes each inviter's referral score as of baseTime.
// battles is the battle-log window used to measure invitee engagement;
// ranges attributes each activation's block to a calendar day.
func (s *ReferralScoreService) CalcReferralScores(
	baseTime time.Time,
	referrals []entities.ReferralTransfer,
	battles []entities.BattleOutcome,
	ranges entities.DayBlockRanges,
) map[string]float64 {
	playCounts := countPlays(battles)

	scores := make(map[string]float64)
	for _, referral := range referrals {
		if referral.IsSelfReferral() {
			continue
		}

		bonus := playCountBonus(playCounts[referral.To])
		decay := referralDecayMultiplier(daysElapsed(baseTime, s.eventDate(referral, ranges)))
		scores[NormalizeAddress(referral.From)] += bonus * decay
	}

	log.WithFields(log.Fields{
		"activations": len(referrals),
		"inviters":    len(scores),
	}).Debug("referral scores computed")

	return scores
}

// eventDate attributes an activation to the calendar day its block was mined
// in, clamped to the platform launch floor. Blocks that predate the scan
// window fall back to the floor as well.
func (s *ReferralScoreService) eventDate(r entities.ReferralTransfer, ranges entities.DayBlockRanges) time.Time {
	date, ok := ranges.DateForBlock(r.BlockNumber)
	if !ok || date.Before(s.launchFloor) {
		return s.launchFloor
	}
	return date
}

func countPlays(battles []entities.BattleOutcome) map[common.Address]int {
	counts := make(map[common.Address]int)
	for _, b := range battles {
		counts[b.Maker]++
		counts[b.Challenger]++
	}
	return counts
}

// playCountBonus rewards an invitee's engagement. Zero plays earn nothing;
// up to 20 plays the bonus grows slightly superlinearly; beyond 20 it
// saturates toward 3x per play.
func playCountBonus(playCount int) float64 {
	n := float64(playCount)
	switch {
	case playCount == 0:
		return 0
	case playCount <= playCountBonusPivot:
		return n * (1 + (n/playCountBonusPivot)*0.25)
	default:
		return n * (1.25 + 1.75*(1-math.Exp(-0.1*(n-playCountBonusPivot))))
	}
}

// referralDecayMultiplier decays exponentially and cuts off entirely past
// the 14-day window.
func referralDecayMultiplier(days int64) float64 {
	if days > referralDecayMaxDays {
		return 0
	}
	return math.Exp(-referralDecayRate * float64(days))
}
