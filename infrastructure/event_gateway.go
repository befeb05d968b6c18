package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"heatscore/domain/entities"
	"heatscore/domain/interfaces"
)

// Event names as emitted by the platform contracts.
const (
	BattleResolvedEvent   = "BattleResolved"
	InvitationTransferred = "Transfer"
)

// EventGateway turns Unix-time windows into typed event logs: it resolves
// the window to a block range and decodes the indexer's raw records into
// domain entities. It implements interfaces.EventFetcher.
type EventGateway struct {
	indexer *IndexerClient
	blocks  interfaces.BlockResolver

	gameContract       common.Address
	invitationContract common.Address
}

// NewEventGateway creates an event gateway over the given indexer and
// block resolver.
func NewEventGateway(indexer *IndexerClient, blocks interfaces.BlockResolver, gameContract, invitationContract common.Address) *EventGateway {
	return &EventGateway{
		indexer:            indexer,
		blocks:             blocks,
		gameContract:       gameContract,
		invitationContract: invitationContract,
	}
}

// FetchBattleOutcomes returns the battle results emitted in the window.
func (g *EventGateway) FetchBattleOutcomes(ctx context.Context, startUnix, endUnix int64) ([]entities.BattleOutcome, error) {
	raw, err := g.fetchWindow(ctx, g.gameContract, BattleResolvedEvent, startUnix, endUnix)
	if err != nil {
		return nil, err
	}

	outcomes := make([]entities.BattleOutcome, 0, len(raw))
	for _, ev := range raw {
		gameID, err := eventUint64(ev.Data, "gameId")
		if err != nil {
			return nil, fmt.Errorf("malformed battle event: %w", err)
		}
		date, err := eventUint64(ev.Data, "date")
		if err != nil {
			return nil, fmt.Errorf("malformed battle event: %w", err)
		}
		maker, err := eventAddress(ev.Data, "maker")
		if err != nil {
			return nil, fmt.Errorf("malformed battle event: %w", err)
		}
		challenger, err := eventAddress(ev.Data, "challenger")
		if err != nil {
			return nil, fmt.Errorf("malformed battle event: %w", err)
		}
		winner, err := eventAddress(ev.Data, "winner")
		if err != nil {
			return nil, fmt.Errorf("malformed battle event: %w", err)
		}
		outcomes = append(outcomes, entities.BattleOutcome{
			GameID:      gameID,
			Maker:       maker,
			Challenger:  challenger,
			Winner:      winner,
			Date:        time.Unix(int64(date), 0).UTC().Truncate(24 * time.Hour),
			BlockNumber: ev.Transaction.BlockNumber,
		})
	}
	return outcomes, nil
}

// FetchReferralTransfers returns the invitation-token transfers emitted in
// the window, including mints; the dedup stage filters those out.
func (g *EventGateway) FetchReferralTransfers(ctx context.Context, startUnix, endUnix int64) ([]entities.ReferralTransfer, error) {
	raw, err := g.fetchWindow(ctx, g.invitationContract, InvitationTransferred, startUnix, endUnix)
	if err != nil {
		return nil, err
	}

	transfers := make([]entities.ReferralTransfer, 0, len(raw))
	for _, ev := range raw {
		tokenID, err := eventUint64(ev.Data, "tokenId")
		if err != nil {
			return nil, fmt.Errorf("malformed transfer event: %w", err)
		}
		from, err := eventAddress(ev.Data, "from")
		if err != nil {
			return nil, fmt.Errorf("malformed transfer event: %w", err)
		}
		to, err := eventAddress(ev.Data, "to")
		if err != nil {
			return nil, fmt.Errorf("malformed transfer event: %w", err)
		}
		transfers = append(transfers, entities.ReferralTransfer{
			From:        from,
			To:          to,
			TokenID:     tokenID,
			BlockNumber: ev.Transaction.BlockNumber,
		})
	}
	return transfers, nil
}

func (g *EventGateway) fetchWindow(ctx context.Context, contract common.Address, eventName string, startUnix, endUnix int64) ([]RawEvent, error) {
	fromBlock, err := g.blocks.BlockNumberAtTime(ctx, startUnix)
	if err != nil {
		return nil, err
	}
	toBlock, err := g.blocks.BlockNumberAtTime(ctx, endUnix)
	if err != nil {
		return nil, err
	}
	return g.indexer.FetchEvents(ctx, contract, eventName, fromBlock, toBlock)
}

// eventUint64 reads a numeric payload field. Indexers serialize uint256
// values either as JSON numbers or as decimal strings.
func eventUint64(data map[string]any, key string) (uint64, error) {
	switch v := data[key].(type) {
	case float64:
		return uint64(v), nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return n, nil
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q missing or not numeric", key)
	}
}

// eventAddress reads an address payload field. The zero address is a
// legitimate value (burns, draws), so a missing or non-hex field must be an
// error rather than a silent zero that would skew scoring.
func eventAddress(data map[string]any, key string) (common.Address, error) {
	s, ok := data[key].(string)
	if !ok {
		return common.Address{}, fmt.Errorf("field %q missing or not a string", key)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("field %q is not a hex address: %q", key, s)
	}
	return common.HexToAddress(s), nil
}
