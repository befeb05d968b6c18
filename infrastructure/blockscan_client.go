package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"heatscore/domain/entities"
)

const (
	secondsPerDay = 86400

	// The final partial day of a window is truncated slightly behind the
	// wall clock so the explorer has indexed the blocks we ask about.
	windowClockSkew = 60 * time.Second

	blockscanMaxRetries = 3
)

// BlockscanClient resolves Unix timestamps to block numbers through a
// block-explorer style HTTP API. It implements interfaces.BlockResolver.
type BlockscanClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// now is injectable for tests.
	now func() time.Time
}

// NewBlockscanClient creates a block resolver against the given explorer
// endpoint. apiKey may be empty for unauthenticated endpoints.
func NewBlockscanClient(baseURL, apiKey string) *BlockscanClient {
	return &BlockscanClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

type blockNumberResponse struct {
	Result struct {
		BlockNumber json.Number `json:"blockNumber"`
	} `json:"result"`
}

// BlockNumberAtTime returns the closest block at or after the timestamp.
// Transient failures are retried with exponential backoff; once retries are
// exhausted the error propagates and the scoring run aborts.
func (c *BlockscanClient) BlockNumberAtTime(ctx context.Context, unixSeconds int64) (uint64, error) {
	var blockNumber uint64

	operation := func() error {
		n, err := c.fetchBlockNumber(ctx, unixSeconds)
		if err != nil {
			log.WithError(err).WithField("timestamp", unixSeconds).Warn("block number lookup failed, retrying")
			return err
		}
		blockNumber = n
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), blockscanMaxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return 0, fmt.Errorf("failed to resolve block number at %d: %w", unixSeconds, err)
	}
	return blockNumber, nil
}

func (c *BlockscanClient) fetchBlockNumber(ctx context.Context, unixSeconds int64) (uint64, error) {
	query := url.Values{}
	query.Set("timestamp", strconv.FormatInt(unixSeconds, 10))
	query.Set("closest", "after")
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var body blockNumberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	blockNumber, err := strconv.ParseUint(body.Result.BlockNumber.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed block number %q: %w", body.Result.BlockNumber, err)
	}
	return blockNumber, nil
}

// DayBlockRanges partitions [startUnix, endUnix] into UTC calendar days and
// resolves the first and last block of each day concurrently. The last day
// is truncated to now-60s when it is still in progress.
func (c *BlockscanClient) DayBlockRanges(ctx context.Context, startUnix, endUnix int64) (entities.DayBlockRanges, error) {
	cutoff := c.now().Add(-windowClockSkew).Unix()

	type daySpan struct {
		start int64
		end   int64
	}
	var days []daySpan
	for t := startUnix; t < endUnix; t += secondsPerDay {
		dayEnd := t + secondsPerDay - 1
		if dayEnd > endUnix {
			dayEnd = endUnix
		}
		if dayEnd > cutoff {
			dayEnd = cutoff
		}
		if dayEnd <= t {
			break
		}
		days = append(days, daySpan{start: t, end: dayEnd})
	}

	ranges := make(entities.DayBlockRanges, len(days))
	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		g.Go(func() error {
			startBlock, err := c.BlockNumberAtTime(gctx, day.start)
			if err != nil {
				return err
			}
			endBlock, err := c.BlockNumberAtTime(gctx, day.end)
			if err != nil {
				return err
			}
			ranges[i] = entities.DayBlockRange{
				Date:       time.Unix(day.start, 0).UTC(),
				StartBlock: startBlock,
				EndBlock:   endBlock,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ranges, nil
}
