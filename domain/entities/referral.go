package entities

import (
	"github.com/ethereum/go-ethereum/common"
)

// ReferralTransfer represents a transfer of an invitation token. A transfer
// from inviter to invitee is the on-chain footprint of a successful referral.
type ReferralTransfer struct {
	From        common.Address // inviter
	To          common.Address // invitee
	TokenID     uint64
	BlockNumber uint64
}

// IsMintOrBurn reports whether either side of the transfer is the zero
// address. Such transfers are token lifecycle events, not referrals.
func (r ReferralTransfer) IsMintOrBurn() bool {
	zero := common.Address{}
	return r.From == zero || r.To == zero
}

// IsSelfReferral reports whether the inviter and invitee are the same address.
func (r ReferralTransfer) IsSelfReferral() bool {
	return r.From == r.To
}
