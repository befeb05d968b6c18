package services

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatscore/domain/entities"
)

func addr(n byte) common.Address {
	var a common.Address
	a[common.AddressLength-1] = n
	return a
}

func TestReferralDedupService_Dedup(t *testing.T) {
	inviter := addr(1)
	invitee := addr(2)
	otherInvitee := addr(3)

	t.Run("drops mint and burn transfers", func(t *testing.T) {
		svc := NewReferralDedupService(nil)

		result := svc.Dedup(nil, []entities.ReferralTransfer{
			{From: common.Address{}, To: invitee, TokenID: 1, BlockNumber: 100},
			{From: inviter, To: common.Address{}, TokenID: 2, BlockNumber: 110},
			{From: inviter, To: invitee, TokenID: 3, BlockNumber: 120},
		})

		require.Len(t, result, 1)
		assert.Equal(t, uint64(3), result[0].TokenID)
	})

	t.Run("keeps only the earliest transfer per token regardless of input order", func(t *testing.T) {
		svc := NewReferralDedupService(nil)

		first := entities.ReferralTransfer{From: inviter, To: invitee, TokenID: 7, BlockNumber: 100}
		second := entities.ReferralTransfer{From: inviter, To: otherInvitee, TokenID: 7, BlockNumber: 200}

		for _, input := range [][]entities.ReferralTransfer{
			{first, second},
			{second, first},
		} {
			result := svc.Dedup(nil, input)
			require.Len(t, result, 1)
			assert.Equal(t, uint64(100), result[0].BlockNumber)
			assert.Equal(t, invitee, result[0].To)
		}
	})

	t.Run("each recipient appears at most once, first activation wins", func(t *testing.T) {
		svc := NewReferralDedupService(nil)

		result := svc.Dedup(nil, []entities.ReferralTransfer{
			{From: inviter, To: invitee, TokenID: 2, BlockNumber: 150},
			{From: addr(9), To: invitee, TokenID: 1, BlockNumber: 100},
		})

		require.Len(t, result, 1)
		assert.Equal(t, uint64(1), result[0].TokenID)
		assert.Equal(t, addr(9), result[0].From)
	})

	t.Run("known activations are never overwritten by new transfers", func(t *testing.T) {
		svc := NewReferralDedupService(nil)

		known := []entities.ReferralTransfer{
			{From: inviter, To: invitee, TokenID: 1, BlockNumber: 50},
		}
		fetched := []entities.ReferralTransfer{
			{From: addr(9), To: invitee, TokenID: 2, BlockNumber: 500},
		}

		result := svc.Dedup(known, fetched)
		require.Len(t, result, 1)
		assert.Equal(t, uint64(1), result[0].TokenID)
		assert.Equal(t, inviter, result[0].From)
	})

	t.Run("vip excluded recipients are dropped entirely", func(t *testing.T) {
		svc := NewReferralDedupService([]common.Address{invitee})

		result := svc.Dedup(nil, []entities.ReferralTransfer{
			{From: inviter, To: invitee, TokenID: 1, BlockNumber: 100},
			{From: inviter, To: otherInvitee, TokenID: 2, BlockNumber: 110},
		})

		require.Len(t, result, 1)
		assert.Equal(t, otherInvitee, result[0].To)
	})

	t.Run("a token whose earliest transfer went to a vip activates nobody", func(t *testing.T) {
		vip := invitee
		svc := NewReferralDedupService([]common.Address{vip})

		// The VIP exclusion applies after per-token resolution: token 7 is
		// spent on its earliest transfer, so the later non-VIP holder does
		// not inherit the activation.
		result := svc.Dedup(nil, []entities.ReferralTransfer{
			{From: inviter, To: vip, TokenID: 7, BlockNumber: 100},
			{From: inviter, To: otherInvitee, TokenID: 7, BlockNumber: 200},
		})

		assert.Empty(t, result)
	})

	t.Run("output never contains duplicate recipients or tokens", func(t *testing.T) {
		svc := NewReferralDedupService(nil)

		input := []entities.ReferralTransfer{
			{From: addr(1), To: addr(10), TokenID: 1, BlockNumber: 100},
			{From: addr(2), To: addr(10), TokenID: 2, BlockNumber: 90},
			{From: addr(3), To: addr(11), TokenID: 1, BlockNumber: 80},
			{From: addr(4), To: addr(12), TokenID: 3, BlockNumber: 120},
			{From: addr(5), To: addr(12), TokenID: 3, BlockNumber: 110},
		}

		result := svc.Dedup(nil, input)

		seenRecipients := make(map[common.Address]bool)
		seenTokens := make(map[uint64]bool)
		for _, r := range result {
			assert.False(t, seenRecipients[r.To], "duplicate recipient %s", r.To.Hex())
			assert.False(t, seenTokens[r.TokenID], "duplicate token %d", r.TokenID)
			seenRecipients[r.To] = true
			seenTokens[r.TokenID] = true
		}
	})
}
