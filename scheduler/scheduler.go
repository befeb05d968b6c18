package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"heatscore/domain/interfaces"
)

// prevSeekDays bounds the backward walk in PrevOccurrence. Standard 5-field
// cron expressions fire at least monthly, so 35 days always contains an
// occurrence.
const prevSeekDays = 35

// jobName identifies the scoring job in alerts and logs.
const jobName = "heat-score"

// ScoringRunner runs one scoring pass for an explicit as-of time.
type ScoringRunner interface {
	ExecuteScoring(ctx context.Context, asOf time.Time) error
}

// Scheduler fires the scoring runner at each occurrence of a cron schedule.
// The as-of time handed to the runner is the schedule occurrence itself, not
// the wall clock at execution, so a delayed trigger still scores the intended
// date.
type Scheduler struct {
	sched    cron.Schedule
	spec     string
	runner   ScoringRunner
	notifier interfaces.AlertNotifier
	metrics  interfaces.RunMetrics

	now func() time.Time // injectable for tests
}

// New parses a standard 5-field cron expression, interpreted in UTC.
// notifier and metrics may be nil.
func New(cronExpr string, runner ScoringRunner, notifier interfaces.AlertNotifier, metrics interfaces.RunMetrics) (*Scheduler, error) {
	sched, err := cron.ParseStandard("CRON_TZ=UTC " + cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return &Scheduler{
		sched:    sched,
		spec:     cronExpr,
		runner:   runner,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// Start blocks until ctx is cancelled, executing the runner at every schedule
// occurrence. A failed run is reported and the scheduler keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	log.WithField("cron", s.spec).Info("scheduler started")

	for {
		now := s.now()
		next := s.sched.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.execute(ctx, next)
		}
	}
}

// RunOnce executes a single run for an explicit as-of time. Used for manual
// backfills.
func (s *Scheduler) RunOnce(ctx context.Context, asOf time.Time) error {
	return s.execute(ctx, asOf)
}

// RunLatest executes a single run for the most recently elapsed schedule
// occurrence.
func (s *Scheduler) RunLatest(ctx context.Context) error {
	asOf, ok := s.PrevOccurrence(s.now())
	if !ok {
		return fmt.Errorf("no elapsed occurrence of %q within %d days", s.spec, prevSeekDays)
	}
	return s.execute(ctx, asOf)
}

// PrevOccurrence returns the latest schedule occurrence strictly before t.
// cron.Schedule only exposes Next, so walk forward from a bounded seed.
func (s *Scheduler) PrevOccurrence(t time.Time) (time.Time, bool) {
	seed := t.AddDate(0, 0, -prevSeekDays)
	var prev time.Time
	for occ := s.sched.Next(seed); occ.Before(t); occ = s.sched.Next(occ) {
		prev = occ
	}
	return prev, !prev.IsZero()
}

func (s *Scheduler) execute(ctx context.Context, asOf time.Time) error {
	start := s.now()
	err := s.runner.ExecuteScoring(ctx, asOf)
	duration := s.now().Sub(start)

	if s.metrics != nil {
		s.metrics.RecordRun(ctx, err == nil, duration)
	}

	if err != nil {
		log.WithError(err).WithField("asOf", asOf.Format(time.RFC3339)).Error("scoring run failed")
		if s.notifier != nil {
			s.notifier.NotifyError(ctx, jobName, err)
		}
		return err
	}
	return nil
}
