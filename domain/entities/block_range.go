package entities

import "time"

// DayBlockRange maps one UTC calendar day of a scan window onto the chain
// blocks mined during that day.
type DayBlockRange struct {
	Date       time.Time // UTC start of the day
	StartBlock uint64
	EndBlock   uint64
}

// DayBlockRanges is an ordered (ascending by block) list of day ranges
// covering a scan window.
type DayBlockRanges []DayBlockRange

// DateForBlock attributes a block number to the calendar day it was mined in.
// Blocks falling between two ranges are attributed to the earlier day; blocks
// outside the window entirely return ok=false.
func (rs DayBlockRanges) DateForBlock(block uint64) (time.Time, bool) {
	for i := len(rs) - 1; i >= 0; i-- {
		if block >= rs[i].StartBlock {
			return rs[i].Date, true
		}
	}
	return time.Time{}, false
}
