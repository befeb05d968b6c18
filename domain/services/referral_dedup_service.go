package services

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"heatscore/domain/entities"
)

// ReferralDedupService collapses raw invitation-token transfers into one
// canonical "first activation" per recipient. A token can only activate one
// referral, and a recipient can only be activated once.
type ReferralDedupService struct {
	vipExclusions map[common.Address]struct{}
}

// NewReferralDedupService creates a dedup service. Addresses on the VIP
// exclusion list never count as referral recipients.
func NewReferralDedupService(vipExclusions []common.Address) *ReferralDedupService {
	excluded := make(map[common.Address]struct{}, len(vipExclusions))
	for _, addr := range vipExclusions {
		excluded[addr] = struct{}{}
	}
	return &ReferralDedupService{vipExclusions: excluded}
}

// Dedup merges the previous run's accepted activations with newly fetched
// transfers and applies the activation rules in order:
//
//  1. Transfers touching the zero address are token mints/burns, not referrals.
//  2. Per token, only the earliest-by-block transfer can activate a referral.
//  3. VIP-excluded recipients are dropped. This happens after the per-token
//     resolution: a token whose earliest transfer went to a VIP activates
//     nobody, it is not re-awarded to a later non-VIP holder.
//  4. After sorting by block ascending, each recipient keeps only its first
//     activation. Known activations carry lower block numbers than anything
//     newly fetched, so an existing recipient is never overwritten.
func (s *ReferralDedupService) Dedup(known, fetched []entities.ReferralTransfer) []entities.ReferralTransfer {
	merged := make([]entities.ReferralTransfer, 0, len(known)+len(fetched))
	merged = append(merged, known...)
	merged = append(merged, fetched...)

	earliestByToken := make(map[uint64]entities.ReferralTransfer)
	for _, t := range merged {
		if t.IsMintOrBurn() {
			continue
		}
		current, seen := earliestByToken[t.TokenID]
		if !seen || t.BlockNumber < current.BlockNumber {
			earliestByToken[t.TokenID] = t
		}
	}

	candidates := make([]entities.ReferralTransfer, 0, len(earliestByToken))
	for _, t := range earliestByToken {
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].BlockNumber != candidates[j].BlockNumber {
			return candidates[i].BlockNumber < candidates[j].BlockNumber
		}
		// Equal blocks are possible within one transaction batch; fall back
		// to token id so the result is deterministic.
		return candidates[i].TokenID < candidates[j].TokenID
	})

	seenRecipients := make(map[common.Address]struct{}, len(candidates))
	activations := make([]entities.ReferralTransfer, 0, len(candidates))
	for _, t := range candidates {
		if _, excluded := s.vipExclusions[t.To]; excluded {
			continue
		}
		if _, seen := seenRecipients[t.To]; seen {
			continue
		}
		seenRecipients[t.To] = struct{}{}
		activations = append(activations, t)
	}
	return activations
}

// NormalizeAddress lower-cases an address for use as a score map key.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
