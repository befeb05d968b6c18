package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"heatscore/domain/testhelpers"
)

func TestEventGateway(t *testing.T) {
	ctx := context.Background()
	gameContract := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	inviteContract := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	maker := common.HexToAddress("0x0000000000000000000000000000000000000001")
	challenger := common.HexToAddress("0x0000000000000000000000000000000000000002")

	newGateway := func(serverURL string) (*EventGateway, *testhelpers.MockBlockResolver) {
		blocks := new(testhelpers.MockBlockResolver)
		blocks.On("BlockNumberAtTime", mock.Anything, int64(1000)).Return(uint64(100), nil)
		blocks.On("BlockNumberAtTime", mock.Anything, int64(2000)).Return(uint64(200), nil)
		gateway := NewEventGateway(NewIndexerClient(serverURL, "testchain"), blocks, gameContract, inviteContract)
		return gateway, blocks
	}

	t.Run("decodes battle outcomes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, gameContract.Hex())
			fmt.Fprint(w, `{"result":[{
				"data":{
					"gameId":"7",
					"maker":"0x0000000000000000000000000000000000000001",
					"challenger":"0x0000000000000000000000000000000000000002",
					"winner":"0x0000000000000000000000000000000000000001",
					"date":1756166400
				},
				"transaction":{"blockNumber":150}
			}]}`)
		}))
		defer server.Close()

		gateway, blocks := newGateway(server.URL)
		outcomes, err := gateway.FetchBattleOutcomes(ctx, 1000, 2000)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		out := outcomes[0]
		assert.Equal(t, uint64(7), out.GameID)
		assert.Equal(t, maker, out.Maker)
		assert.Equal(t, challenger, out.Challenger)
		assert.Equal(t, maker, out.Winner)
		assert.False(t, out.IsDraw())
		assert.Equal(t, time.Unix(1756166400, 0).UTC().Truncate(24*time.Hour), out.Date)
		assert.Equal(t, uint64(150), out.BlockNumber)
		blocks.AssertExpectations(t)
	})

	t.Run("decodes referral transfers including mints", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, inviteContract.Hex())
			fmt.Fprint(w, `{"result":[
				{"data":{"from":"0x0000000000000000000000000000000000000000","to":"0x0000000000000000000000000000000000000001","tokenId":1},"transaction":{"blockNumber":110}},
				{"data":{"from":"0x0000000000000000000000000000000000000001","to":"0x0000000000000000000000000000000000000002","tokenId":"2"},"transaction":{"blockNumber":120}}
			]}`)
		}))
		defer server.Close()

		gateway, _ := newGateway(server.URL)
		transfers, err := gateway.FetchReferralTransfers(ctx, 1000, 2000)
		require.NoError(t, err)
		require.Len(t, transfers, 2)
		assert.True(t, transfers[0].IsMintOrBurn())
		assert.Equal(t, uint64(2), transfers[1].TokenID)
		assert.Equal(t, uint64(120), transfers[1].BlockNumber)
	})

	t.Run("malformed payload fields fail loudly", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":[{"data":{"gameId":true},"transaction":{"blockNumber":1}}]}`)
		}))
		defer server.Close()

		gateway, _ := newGateway(server.URL)
		_, err := gateway.FetchBattleOutcomes(ctx, 1000, 2000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed battle event")
	})

	t.Run("missing winner field is an error, not a draw", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":[{
				"data":{
					"gameId":"7",
					"maker":"0x0000000000000000000000000000000000000001",
					"challenger":"0x0000000000000000000000000000000000000002",
					"date":1756166400
				},
				"transaction":{"blockNumber":150}
			}]}`)
		}))
		defer server.Close()

		gateway, _ := newGateway(server.URL)
		_, err := gateway.FetchBattleOutcomes(ctx, 1000, 2000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed battle event")
		assert.Contains(t, err.Error(), `field "winner"`)
	})

	t.Run("garbled transfer recipient is an error, not a burn", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":[{
				"data":{"from":"0x0000000000000000000000000000000000000001","to":"0xnot-an-address","tokenId":1},
				"transaction":{"blockNumber":110}
			}]}`)
		}))
		defer server.Close()

		gateway, _ := newGateway(server.URL)
		_, err := gateway.FetchReferralTransfers(ctx, 1000, 2000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed transfer event")
		assert.Contains(t, err.Error(), `field "to"`)
	})
}
