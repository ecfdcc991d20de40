package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"CoinDash/internal/logger"
	"CoinDash/internal/model"
	"CoinDash/internal/recorder"
)

// ErrSuperseded is returned by a dashboard pass that a newer pass cancelled.
var ErrSuperseded = errors.New("refresh superseded by a newer pass")

// DashboardBuilder runs one dashboard pass.
type DashboardBuilder interface {
	BuildDashboard(ctx context.Context) model.Dashboard
}

// CatalogRefresher reloads the symbol catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
	Len() int
}

// Scheduler runs dashboard and catalog refreshes on cron and on demand,
// and holds the latest finished dashboard.
type Scheduler struct {
	Cron        *cron.Cron
	Builder     DashboardBuilder
	Catalog     CatalogRefresher
	Recorder    recorder.Recorder
	PassTimeout time.Duration
	Ctx         context.Context

	mu       sync.Mutex
	latest   *model.Dashboard
	inflight uint64
	cancel   context.CancelFunc
}

// NewScheduler creates a new Scheduler. A zero passTimeout means 45 seconds.
func NewScheduler(ctx context.Context, b DashboardBuilder, c CatalogRefresher, rec recorder.Recorder, passTimeout time.Duration) *Scheduler {
	if passTimeout <= 0 {
		passTimeout = 45 * time.Second
	}
	cronLog := cron.PrintfLogger(logger.With("cron"))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Builder:     b,
		Catalog:     c,
		Recorder:    rec,
		PassTimeout: passTimeout,
		Ctx:         ctx,
	}
}

// RegisterAll registers the dashboard and catalog refresh tasks.
func (s *Scheduler) RegisterAll(refreshCron, catalogCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(catalogCron, s.catalogTask); err != nil {
		return fmt.Errorf("register catalog task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.With("scheduler").Info("scheduler started")
}

// Stop stops the cron scheduler, cancels any pass in flight and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.Cron.Stop().Done()
	logger.With("scheduler").Info("scheduler stopped")
}

// Latest returns the most recent finished dashboard, if any.
func (s *Scheduler) Latest() (model.Dashboard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return model.Dashboard{}, false
	}
	return *s.latest, true
}

// RefreshNow runs a dashboard pass immediately. A pass already in flight is
// cancelled and returns ErrSuperseded; only the newest pass is published.
// A pass whose ctx is cancelled by the caller is not published and returns ctx.Err().
// A pass that runs out of PassTimeout is published with the unfinished assets dropped.
func (s *Scheduler) RefreshNow(ctx context.Context) (model.Dashboard, error) {
	passCtx, cancel := context.WithTimeout(ctx, s.PassTimeout)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.inflight++
	id := s.inflight
	s.cancel = cancel
	s.mu.Unlock()

	start := time.Now()
	d := s.Builder.BuildDashboard(passCtx)

	s.mu.Lock()
	superseded := id != s.inflight
	cancelErr := ctx.Err()
	if !superseded {
		if cancelErr == nil {
			s.latest = &d
		}
		s.cancel = nil
	}
	s.mu.Unlock()

	evt := &recorder.RefreshEvent{
		RunID:    d.RunID,
		Kind:     recorder.KindDashboard,
		Rows:     len(d.Changes.Rows),
		Failed:   d.Changes.Failed,
		Duration: time.Since(start),
	}
	switch {
	case superseded:
		evt.Err = ErrSuperseded
	case cancelErr != nil:
		evt.Err = cancelErr
	}
	s.record(evt)

	switch {
	case superseded:
		logger.With("scheduler").WithField("run_id", d.RunID).Info("dashboard pass superseded")
		return d, ErrSuperseded
	case cancelErr != nil:
		logger.With("scheduler").WithField("run_id", d.RunID).WithError(cancelErr).Info("dashboard pass cancelled by caller")
		return d, cancelErr
	}
	return d, nil
}

// RefreshCatalog reloads the symbol catalog.
func (s *Scheduler) RefreshCatalog(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.PassTimeout)
	defer cancel()

	start := time.Now()
	err := s.Catalog.Refresh(ctx)
	s.record(&recorder.RefreshEvent{
		RunID:    uuid.NewString(),
		Kind:     recorder.KindCatalog,
		Rows:     s.Catalog.Len(),
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

func (s *Scheduler) refreshTask() {
	if _, err := s.RefreshNow(s.Ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		logger.With("scheduler").WithError(err).Error("scheduled refresh failed")
	}
}

func (s *Scheduler) catalogTask() {
	if err := s.RefreshCatalog(s.Ctx); err != nil {
		logger.With("scheduler").WithError(err).Error("scheduled catalog refresh failed")
	}
}

func (s *Scheduler) record(evt *recorder.RefreshEvent) {
	if err := s.Recorder.RecordRefresh(evt); err != nil {
		logger.With("scheduler").WithError(err).Error("record refresh")
	}
}
