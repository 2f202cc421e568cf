// Package scheduler runs the sample and report cycle on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/network"
	"github.com/ericogr/greenhouse-node/pkg/report"
	"github.com/ericogr/greenhouse-node/pkg/sample"
)

type Composer interface {
	Compose() sample.MeasurementRecord
}

type Reporter interface {
	Report(ctx context.Context, rec sample.MeasurementRecord) report.Outcome
}

// CycleState is owned by one Scheduler and only changes when it fires.
type CycleState struct {
	ReadingCount uint64
	LastUpdate   time.Time
}

type Options struct {
	Interval     time.Duration
	PollInterval time.Duration
	// Attempts and AttemptDelay bound a single re-association.
	Attempts     int
	AttemptDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Interval:     2 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Attempts:     20,
		AttemptDelay: 500 * time.Millisecond,
	}
}

type Scheduler struct {
	composer Composer
	reporter Reporter
	network  network.Associator
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	state CycleState
}

// New starts the interval clock immediately: the first cycle fires one
// interval after construction.
func New(composer Composer, reporter Reporter, assoc network.Associator, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		composer: composer,
		reporter: reporter,
		network:  assoc,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	s.state.LastUpdate = s.now()
	return s
}

func (s *Scheduler) State() CycleState { return s.state }

// Due reports whether a full interval has elapsed since the last fire.
// Both times should carry a monotonic reading, as time.Now does.
func (s *Scheduler) Due(now time.Time) bool {
	return now.Sub(s.state.LastUpdate) >= s.opts.Interval
}

// Check fires at most one cycle. A cycle that overran the interval leads to
// one immediate fire, never a burst of missed ones.
func (s *Scheduler) Check(ctx context.Context, now time.Time) bool {
	if !s.Due(now) {
		return false
	}
	s.Fire(ctx, now)
	return true
}

// Fire runs one cycle unconditionally. It never panics and never returns an
// error; whatever goes wrong is logged and the next cycle starts clean.
func (s *Scheduler) Fire(ctx context.Context, now time.Time) report.Outcome {
	s.state.LastUpdate = now
	s.state.ReadingCount++
	n := s.state.ReadingCount

	outcome := report.OutcomeSkipped
	err := safeRun(func() error {
		outcome = s.cycle(ctx, n)
		return nil
	})
	if err != nil {
		s.logger.Error("cycle aborted", "reading", n, "error", err)
		return report.OutcomeSkipped
	}
	return outcome
}

func (s *Scheduler) cycle(ctx context.Context, n uint64) report.Outcome {
	rec := s.composer.Compose()
	s.logger.Info("sensor readings",
		"reading", n,
		"temperature_f", rec.Temperature,
		"humidity_pct", rec.Humidity,
		"soil_moisture_pct", rec.SoilMoisture,
		"light_level_lux", rec.LightLevel,
		"co2_ppm", rec.CO2PPM,
	)

	if s.network.IsAssociated() {
		outcome := s.reporter.Report(ctx, rec)
		s.logger.Debug("cycle complete", "reading", n, "outcome", outcome.String())
		return outcome
	}

	s.logger.Warn("network disconnected, attempting to reconnect", "reading", n)
	if s.network.Associate(ctx, s.opts.Attempts, s.opts.AttemptDelay) {
		s.logger.Info("network associated", "reading", n)
	} else {
		s.logger.Error("network association failed",
			"reading", n,
			"attempts", s.opts.Attempts,
			"attempt_delay", s.opts.AttemptDelay,
		)
	}
	return report.OutcomeSkipped
}

// Run polls Check until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Check(ctx, s.now())
		}
	}
}

func safeRun(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
