package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"heatscore/domain/testhelpers"
)

type fakeRunner struct {
	asOf time.Time
	err  error
	runs int
}

func (f *fakeRunner) ExecuteScoring(ctx context.Context, asOf time.Time) error {
	f.asOf = asOf
	f.runs++
	return f.err
}

func newTestScheduler(t *testing.T, expr string, runner ScoringRunner, notifier *testhelpers.MockAlertNotifier, metrics *testhelpers.MockRunMetrics) *Scheduler {
	t.Helper()
	s, err := New(expr, runner, nil, nil)
	require.NoError(t, err)
	// Assign the concrete mocks directly; passing a typed nil pointer through
	// the interface parameters would defeat the nil checks in execute.
	if notifier != nil {
		s.notifier = notifier
	}
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

func TestNew_InvalidExpression(t *testing.T) {
	_, err := New("not a cron", &fakeRunner{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestPrevOccurrence(t *testing.T) {
	s := newTestScheduler(t, "0 1 * * *", &fakeRunner{}, nil, nil)

	t.Run("after today's occurrence", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		prev, ok := s.PrevOccurrence(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC), prev)
	})

	t.Run("before today's occurrence", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 0, 30, 0, 0, time.UTC)
		prev, ok := s.PrevOccurrence(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 14, 1, 0, 0, 0, time.UTC), prev)
	})

	t.Run("exactly at the occurrence resolves to the previous one", func(t *testing.T) {
		now := time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC)
		prev, ok := s.PrevOccurrence(now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 6, 14, 1, 0, 0, 0, time.UTC), prev)
	})
}

func TestPrevOccurrence_Monthly(t *testing.T) {
	s := newTestScheduler(t, "0 1 1 * *", &fakeRunner{}, nil, nil)

	now := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	prev, ok := s.PrevOccurrence(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC), prev)
}

func TestRunOnce_PassesAsOfThrough(t *testing.T) {
	runner := &fakeRunner{}
	metrics := new(testhelpers.MockRunMetrics)
	metrics.On("RecordRun", mock.Anything, true, mock.Anything).Once()
	s := newTestScheduler(t, "0 1 * * *", runner, nil, metrics)

	asOf := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	err := s.RunOnce(context.Background(), asOf)

	require.NoError(t, err)
	assert.Equal(t, 1, runner.runs)
	assert.Equal(t, asOf, runner.asOf)
	metrics.AssertExpectations(t)
}

func TestRunOnce_FailureNotifies(t *testing.T) {
	runErr := errors.New("indexer unreachable")
	runner := &fakeRunner{err: runErr}
	notifier := new(testhelpers.MockAlertNotifier)
	notifier.On("NotifyError", mock.Anything, "heat-score", runErr).Once()
	metrics := new(testhelpers.MockRunMetrics)
	metrics.On("RecordRun", mock.Anything, false, mock.Anything).Once()
	s := newTestScheduler(t, "0 1 * * *", runner, notifier, metrics)

	err := s.RunOnce(context.Background(), time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC))

	require.ErrorIs(t, err, runErr)
	notifier.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestRunLatest_UsesPrevOccurrence(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(t, "0 1 * * *", runner, nil, nil)
	s.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }

	err := s.RunLatest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC), runner.asOf)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(t, "0 1 * * *", runner, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
	assert.Equal(t, 0, runner.runs)
}
