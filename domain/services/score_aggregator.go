package services

import (
	"sort"

	"heatscore/domain/entities"
)

// SumScores merges per-calculator score maps by summing values per address.
// Addresses absent from a map contribute zero from that map. The result is
// ordered by score descending (address ascending on ties) so downstream
// logging and persistence are deterministic.
func SumScores(scoreMaps ...map[string]float64) []entities.ScoreEntry {
	totals := make(map[string]float64)
	for _, m := range scoreMaps {
		for address, score := range m {
			totals[address] += score
		}
	}

	entries := make([]entities.ScoreEntry, 0, len(totals))
	for address, score := range totals {
		entries = append(entries, entities.ScoreEntry{Address: address, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Address < entries[j].Address
	})
	return entries
}

// FilterPositive drops entries whose score is not strictly positive. A
// calculator can legitimately produce an exact zero (for example an invitee
// who never played); such entries are never persisted.
func FilterPositive(entries []entities.ScoreEntry) []entities.ScoreEntry {
	filtered := make([]entities.ScoreEntry, 0, len(entries))
	for _, e := range entries {
		if e.Score > 0 {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
