package testhelpers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"heatscore/domain/entities"
)

// MockBlockResolver is a mock implementation of interfaces.BlockResolver
type MockBlockResolver struct {
	mock.Mock
}

func (m *MockBlockResolver) BlockNumberAtTime(ctx context.Context, unixSeconds int64) (uint64, error) {
	args := m.Called(ctx, unixSeconds)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockBlockResolver) DayBlockRanges(ctx context.Context, startUnix, endUnix int64) (entities.DayBlockRanges, error) {
	args := m.Called(ctx, startUnix, endUnix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.DayBlockRanges), args.Error(1)
}

// MockEventFetcher is a mock implementation of interfaces.EventFetcher
type MockEventFetcher struct {
	mock.Mock
}

func (m *MockEventFetcher) FetchBattleOutcomes(ctx context.Context, startUnix, endUnix int64) ([]entities.BattleOutcome, error) {
	args := m.Called(ctx, startUnix, endUnix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.BattleOutcome), args.Error(1)
}

func (m *MockEventFetcher) FetchReferralTransfers(ctx context.Context, startUnix, endUnix int64) ([]entities.ReferralTransfer, error) {
	args := m.Called(ctx, startUnix, endUnix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ReferralTransfer), args.Error(1)
}

// MockGameReader is a mock implementation of interfaces.GameReader
type MockGameReader struct {
	mock.Mock
}

func (m *MockGameReader) NumOfCards(ctx context.Context, gameID uint64) (int, error) {
	args := m.Called(ctx, gameID)
	return args.Int(0), args.Error(1)
}

// MockHeatScoreRepository is a mock implementation of interfaces.HeatScoreRepository
type MockHeatScoreRepository struct {
	mock.Mock
}

func (m *MockHeatScoreRepository) ExistsForDate(ctx context.Context, address string, date time.Time) (bool, error) {
	args := m.Called(ctx, address, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockHeatScoreRepository) Create(ctx context.Context, score *entities.HeatScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockHeatScoreRepository) GetTopByLatestDate(ctx context.Context, limit int) ([]*entities.HeatScore, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HeatScore), args.Error(1)
}

func (m *MockHeatScoreRepository) GetByAddressLatest(ctx context.Context, address string) (*entities.HeatScore, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.HeatScore), args.Error(1)
}

// MockScoringEventPublisher is a mock implementation of interfaces.ScoringEventPublisher
type MockScoringEventPublisher struct {
	mock.Mock
}

func (m *MockScoringEventPublisher) PublishScoringCompleted(ctx context.Context, baseDate time.Time, addressCount int) error {
	args := m.Called(ctx, baseDate, addressCount)
	return args.Error(0)
}

// MockAlertNotifier is a mock implementation of interfaces.AlertNotifier
type MockAlertNotifier struct {
	mock.Mock
}

func (m *MockAlertNotifier) NotifyError(ctx context.Context, jobName string, jobErr error) {
	m.Called(ctx, jobName, jobErr)
}

// MockRunMetrics is a mock implementation of interfaces.RunMetrics
type MockRunMetrics struct {
	mock.Mock
}

func (m *MockRunMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	m.Called(ctx, success, duration)
}

func (m *MockRunMetrics) RecordPersisted(ctx context.Context, count int) {
	m.Called(ctx, count)
}

func (m *MockRunMetrics) RecordExternalCall(ctx context.Context, target string) {
	m.Called(ctx, target)
}
