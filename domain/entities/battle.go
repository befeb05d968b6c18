package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BattleOutcome represents the decoded result of a single card battle.
// Winner is the zero address when the match ended in a draw.
type BattleOutcome struct {
	GameID      uint64
	Maker       common.Address
	Challenger  common.Address
	Winner      common.Address
	Date        time.Time // UTC day bucket the match was played in
	BlockNumber uint64
}

// IsDraw reports whether the match ended without a winner.
func (b BattleOutcome) IsDraw() bool {
	return b.Winner == (common.Address{})
}

// Involves reports whether addr participated in the match.
func (b BattleOutcome) Involves(addr common.Address) bool {
	return b.Maker == addr || b.Challenger == addr
}

// Opponent returns the other participant of the match. The result is only
// meaningful when addr is one of the participants.
func (b BattleOutcome) Opponent(addr common.Address) common.Address {
	if b.Maker == addr {
		return b.Challenger
	}
	return b.Maker
}
