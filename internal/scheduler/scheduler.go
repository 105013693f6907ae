// Package scheduler runs the periodic billing jobs: the auto-bill sweep that
// picks up qualified and not-yet-evaluated pending calls, and retention
// cleanup for published billing events.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	calldomain "github.com/ringbill/ringbill/internal/call/domain"
	callrepository "github.com/ringbill/ringbill/internal/call/repository"
	"github.com/ringbill/ringbill/internal/clock"
	"github.com/ringbill/ringbill/internal/config"
	ratingdomain "github.com/ringbill/ringbill/internal/rating/domain"
)

const (
	jobSweep     = "auto_bill_sweep"
	jobRetention = "event_retention"
)

type Scheduler struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	callRepo  calldomain.Repository
	ratingSvc ratingdomain.Service

	interval      time.Duration
	batchSize     int
	retentionDays int

	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	RatingSvc ratingdomain.Service
}

func NewScheduler(p SchedulerParam) *Scheduler {
	interval := p.Config.Billing.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batch := p.Config.Billing.SweepBatchSize
	if batch <= 0 {
		batch = 200
	}
	retention := p.Config.Billing.EventRetentionDays
	if retention <= 0 {
		retention = 90
	}
	return &Scheduler{
		db:  p.DB,
		log: p.Log.Named("scheduler"),

		genID:     p.GenID,
		clock:     p.Clock,
		callRepo:  callrepository.Provide(),
		ratingSvc: p.RatingSvc,

		interval:      interval,
		batchSize:     batch,
		retentionDays: retention,
	}
}

// Start launches the ticker loop. One sweep runs immediately so a restarted
// worker does not wait a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.runOnce(runCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.runOnce(runCtx)
			}
		}
	}()
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.runJob(ctx, jobSweep, s.sweep)
	s.runJob(ctx, jobRetention, s.pruneEvents)
}

func (s *Scheduler) runJob(ctx context.Context, name string, job func(context.Context) (int, error)) {
	runID := s.genID.Generate()
	startedAt := s.clock.Now(ctx)
	if err := s.db.WithContext(ctx).Exec(
		`INSERT INTO scheduler_job_runs (id, job_name, started_at) VALUES (?, ?, ?)`,
		runID, name, startedAt,
	).Error; err != nil {
		s.log.Error("job run bookkeeping failed", zap.String("job", name), zap.Error(err))
	}

	processed, err := job(ctx)

	finishedAt := s.clock.Now(ctx)
	var lastError *string
	if err != nil {
		msg := err.Error()
		lastError = &msg
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
	} else if processed > 0 {
		s.log.Info("job finished",
			zap.String("job", name),
			zap.Int("processed", processed),
			zap.Duration("took", finishedAt.Sub(startedAt)),
		)
	}

	if err := s.db.WithContext(ctx).Exec(
		`UPDATE scheduler_job_runs SET finished_at = ?, processed = ?, last_error = ? WHERE id = ?`,
		finishedAt, processed, lastError, runID,
	).Error; err != nil {
		s.log.Error("job run bookkeeping failed", zap.String("job", name), zap.Error(err))
	}
}

// sweep processes pending calls for every organization: calls already
// qualified get billed, calls never evaluated get qualified first. Calls whose
// settings keep auto-billing off stay pending; the rating service makes that
// decision per call.
func (s *Scheduler) sweep(ctx context.Context) (int, error) {
	var orgIDs []snowflake.ID
	err := s.db.WithContext(ctx).
		Table("billing_settings").
		Where("auto_bill_enabled = ?", true).
		Distinct("org_id").
		Pluck("org_id", &orgIDs).Error
	if err != nil {
		return 0, err
	}

	billed := 0
	for _, orgID := range orgIDs {
		ids, err := s.callRepo.ListSweepCandidateIDs(ctx, s.db, orgID, s.batchSize)
		if err != nil {
			return billed, err
		}
		for _, callID := range ids {
			if ctx.Err() != nil {
				return billed, ctx.Err()
			}
			result, err := s.ratingSvc.ProcessCall(ctx, orgID, callID, ratingdomain.TriggerAuto, false)
			if err != nil {
				s.log.Warn("sweep skipped call",
					zap.String("org_id", orgID.String()),
					zap.String("call_id", callID.String()),
					zap.Error(err),
				)
				continue
			}
			if result.Status == calldomain.BillingStatusBilled && !result.AlreadyProcessed {
				billed++
			}
		}
	}
	return billed, nil
}

func (s *Scheduler) pruneEvents(ctx context.Context) (int, error) {
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -s.retentionDays)
	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM billing_events WHERE published = true AND created_at < ?`,
		cutoff,
	)
	return int(result.RowsAffected), result.Error
}

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: s.Start,
			OnStop:  s.Stop,
		})
	}),
)
