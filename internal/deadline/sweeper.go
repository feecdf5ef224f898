// Package deadline wires up the cron job that periodically flags work items
// stuck in a stage past the stage's deadline.
package deadline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"talentflow/pipeline-service/internal/pipeline"
)

// Store is the overdue scan the sweeper needs, implemented by the work-item
// repository.
type Store interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]pipeline.OverdueWorkItem, error)
}

// Publisher emits one event per overdue work item.
type Publisher interface {
	PublishDeadlineMissed(ctx context.Context, item pipeline.OverdueWorkItem) error
}

// Sweeper wraps robfig/cron and manages the sweep loop.
type Sweeper struct {
	cron  *cron.Cron
	store Store
	pub   Publisher
	spec  string // cron spec, e.g. "@every 24h"
}

// New creates a Sweeper that fires every intervalHours hours.
func New(store Store, pub Publisher, intervalHours int) *Sweeper {
	return &Sweeper{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		store: store,
		pub:   pub,
		spec:  fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so overdue items surface without waiting for the first tick.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("deadline sweeper started", "spec", s.spec)

	// Run immediately on startup (non-blocking)
	go s.Run(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	slog.Info("deadline sweeper stopped")
}

// Run executes one sweep. Publish failures are logged per item; the sweep
// continues, the next tick retries everything still overdue.
func (s *Sweeper) Run(ctx context.Context) {
	items, err := s.store.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		slog.Warn("deadline sweep: overdue scan failed", "err", err)
		return
	}
	if len(items) == 0 {
		return
	}

	published := 0
	for _, item := range items {
		if err := s.pub.PublishDeadlineMissed(ctx, item); err != nil {
			slog.Warn("deadline sweep: publish failed",
				"workItemId", item.WorkItemID, "stageId", item.StageID, "err", err)
			continue
		}
		published++
	}
	slog.Info("deadline sweep done", "overdue", len(items), "published", published)
}
