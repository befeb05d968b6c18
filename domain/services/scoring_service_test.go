package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"heatscore/domain/entities"
	"heatscore/domain/testhelpers"
)

type scoringFixture struct {
	blocks    *testhelpers.MockBlockResolver
	events    *testhelpers.MockEventFetcher
	games     *testhelpers.MockGameReader
	repo      *testhelpers.MockHeatScoreRepository
	publisher *testhelpers.MockScoringEventPublisher
	svc       *ScoringService
}

func newScoringFixture(launchFloor time.Time) *scoringFixture {
	f := &scoringFixture{
		blocks:    new(testhelpers.MockBlockResolver),
		events:    new(testhelpers.MockEventFetcher),
		games:     new(testhelpers.MockGameReader),
		repo:      new(testhelpers.MockHeatScoreRepository),
		publisher: new(testhelpers.MockScoringEventPublisher),
	}
	war := NewWarScoreService(f.games)
	war.chunkDelay = 0
	f.svc = NewScoringService(
		f.blocks,
		f.events,
		NewReferralDedupService(nil),
		war,
		NewReferralScoreService(launchFloor),
		f.repo,
		f.publisher,
		nil,
		launchFloor,
	)
	return f
}

func TestScoringService_ExecuteScoring(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	baseDate := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	launchFloor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maker := addr(1)
	challenger := addr(2)

	battle := entities.BattleOutcome{
		GameID: 1, Maker: maker, Challenger: challenger, Winner: maker,
		Date: baseDate, BlockNumber: 1500,
	}
	ranges := entities.DayBlockRanges{{Date: baseDate, StartBlock: 1000, EndBlock: 1999}}

	stubFetches := func(f *scoringFixture, battles []entities.BattleOutcome) {
		f.events.On("FetchBattleOutcomes", mock.Anything, mock.Anything, mock.Anything).Return(battles, nil)
		f.events.On("FetchReferralTransfers", mock.Anything, mock.Anything, mock.Anything).Return([]entities.ReferralTransfer{}, nil)
		f.blocks.On("DayBlockRanges", mock.Anything, mock.Anything, mock.Anything).Return(ranges, nil)
	}

	t.Run("persists one record per positively scored address", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		stubFetches(f, []entities.BattleOutcome{battle})
		f.games.On("NumOfCards", mock.Anything, uint64(1)).Return(2, nil)
		f.repo.On("ExistsForDate", mock.Anything, mock.Anything, baseDate).Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.publisher.On("PublishScoringCompleted", mock.Anything, baseDate, 2).Return(nil)

		err := f.svc.ExecuteScoring(ctx, asOf)
		require.NoError(t, err)

		f.repo.AssertNumberOfCalls(t, "Create", 2)
		f.publisher.AssertExpectations(t)
	})

	t.Run("re-run for the same date is a no-op for scored addresses", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		stubFetches(f, []entities.BattleOutcome{battle})
		f.games.On("NumOfCards", mock.Anything, uint64(1)).Return(2, nil)
		f.repo.On("ExistsForDate", mock.Anything, mock.Anything, baseDate).Return(true, nil)
		f.publisher.On("PublishScoringCompleted", mock.Anything, baseDate, 0).Return(nil)

		err := f.svc.ExecuteScoring(ctx, asOf)
		require.NoError(t, err)

		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("persisted scores carry the normalized address and base date", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		stubFetches(f, []entities.BattleOutcome{battle})
		f.games.On("NumOfCards", mock.Anything, uint64(1)).Return(2, nil)
		f.repo.On("ExistsForDate", mock.Anything, mock.Anything, baseDate).Return(false, nil)

		var created []*entities.HeatScore
		f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*entities.HeatScore))
		}).Return(nil)
		f.publisher.On("PublishScoringCompleted", mock.Anything, baseDate, 2).Return(nil)

		require.NoError(t, f.svc.ExecuteScoring(ctx, asOf))
		require.Len(t, created, 2)
		for _, hs := range created {
			assert.Equal(t, baseDate, hs.Date)
			assert.Contains(t, []string{NormalizeAddress(maker), NormalizeAddress(challenger)}, hs.Address)
			assert.True(t, hs.Score.IsPositive())
		}
		// Deterministic ordering: highest score first.
		assert.Equal(t, NormalizeAddress(maker), created[0].Address)
	})

	t.Run("fetch failure aborts the run before anything is persisted", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		f.events.On("FetchBattleOutcomes", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

		err := f.svc.ExecuteScoring(ctx, asOf)
		require.Error(t, err)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail the run", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		stubFetches(f, []entities.BattleOutcome{battle})
		f.games.On("NumOfCards", mock.Anything, uint64(1)).Return(2, nil)
		f.repo.On("ExistsForDate", mock.Anything, mock.Anything, baseDate).Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.publisher.On("PublishScoringCompleted", mock.Anything, baseDate, 2).Return(assert.AnError)

		assert.NoError(t, f.svc.ExecuteScoring(ctx, asOf))
	})

	t.Run("no battles and no referrals persists nothing", func(t *testing.T) {
		f := newScoringFixture(launchFloor)
		stubFetches(f, []entities.BattleOutcome{})
		f.publisher.On("PublishScoringCompleted", mock.Anything, baseDate, 0).Return(nil)

		require.NoError(t, f.svc.ExecuteScoring(ctx, asOf))
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("referral look-back start is clamped to the launch floor", func(t *testing.T) {
		floor := asOf.AddDate(0, 0, -5)
		f := newScoringFixture(floor)
		f.events.On("FetchBattleOutcomes", mock.Anything, mock.Anything, mock.Anything).Return([]entities.BattleOutcome{}, nil)
		f.events.On("FetchReferralTransfers", mock.Anything, floor.Unix(), asOf.Unix()).Return([]entities.ReferralTransfer{}, nil)
		f.blocks.On("DayBlockRanges", mock.Anything, floor.Unix(), asOf.Unix()).Return(ranges, nil)
		f.publisher.On("PublishScoringCompleted", mock.Anything, mock.Anything, 0).Return(nil)

		require.NoError(t, f.svc.ExecuteScoring(ctx, asOf))
		f.events.AssertExpectations(t)
		f.blocks.AssertExpectations(t)
	})
}
