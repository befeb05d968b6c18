package infrastructure

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal ABI fragment for the game contract read the scoring pipeline needs.
const gameContractABI = `[{"inputs":[{"name":"gameId","type":"uint256"}],"name":"numOfCards","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// GameCardReader reads per-game card counts directly from the game contract.
// It implements interfaces.GameReader.
type GameCardReader struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
}

// NewGameCardReader connects to the chain RPC endpoint and prepares the
// contract ABI.
func NewGameCardReader(rpcURL string, contract common.Address) (*GameCardReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(gameContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse game contract ABI: %w", err)
	}

	return &GameCardReader{
		client:   client,
		contract: contract,
		abi:      parsed,
	}, nil
}

// NumOfCards returns the number of cards used in the given match.
func (r *GameCardReader) NumOfCards(ctx context.Context, gameID uint64) (int, error) {
	input, err := r.abi.Pack("numOfCards", new(big.Int).SetUint64(gameID))
	if err != nil {
		return 0, fmt.Errorf("failed to pack numOfCards call: %w", err)
	}

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: input,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("numOfCards call failed for game %d: %w", gameID, err)
	}

	values, err := r.abi.Unpack("numOfCards", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack numOfCards result: %w", err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("unexpected numOfCards result arity %d", len(values))
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected numOfCards result type %T", values[0])
	}
	return int(count.Int64()), nil
}

// Close releases the underlying RPC connection.
func (r *GameCardReader) Close() {
	r.client.Close()
}
