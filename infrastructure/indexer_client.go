package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

const indexerMaxRetries = 3

// RawEvent is one decoded contract event as returned by the indexing
// service: the decoded payload plus the transaction it was emitted from.
type RawEvent struct {
	Data        map[string]any `json:"data"`
	Transaction struct {
		BlockNumber uint64 `json:"blockNumber"`
	} `json:"transaction"`
}

type fetchEventsRequest struct {
	EventName string `json:"eventName"`
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`
}

type fetchEventsResponse struct {
	Result []RawEvent `json:"result"`
}

// IndexerClient retrieves decoded contract event logs from the external
// indexing service.
type IndexerClient struct {
	baseURL    string
	chain      string
	httpClient *http.Client
}

// NewIndexerClient creates an indexer client for the given chain slug.
func NewIndexerClient(baseURL, chain string) *IndexerClient {
	return &IndexerClient{
		baseURL:    baseURL,
		chain:      chain,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchEvents returns all events of eventName emitted by the contract within
// [fromBlock, toBlock]. The indexer is queried in a single call; if it
// truncates large result sets the tail is lost (accepted risk, the scan
// windows are short).
func (c *IndexerClient) FetchEvents(ctx context.Context, contract common.Address, eventName string, fromBlock, toBlock uint64) ([]RawEvent, error) {
	var events []RawEvent

	operation := func() error {
		result, err := c.postEvents(ctx, contract, eventName, fromBlock, toBlock)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"event":     eventName,
				"fromBlock": fromBlock,
				"toBlock":   toBlock,
			}).Warn("event fetch failed, retrying")
			return err
		}
		events = result
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), indexerMaxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch %s events: %w", eventName, err)
	}
	return events, nil
}

func (c *IndexerClient) postEvents(ctx context.Context, contract common.Address, eventName string, fromBlock, toBlock uint64) ([]RawEvent, error) {
	payload, err := json.Marshal(fetchEventsRequest{
		EventName: eventName,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events", c.baseURL, c.chain, contract.Hex())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer returned status %d", resp.StatusCode)
	}

	var body fetchEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode indexer response: %w", err)
	}
	return body.Result, nil
}
