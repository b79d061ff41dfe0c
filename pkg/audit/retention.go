package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
)

// Pruner enforces retention limits on stored audit records. Pruning runs in
// two phases: age-based (delete records older than RetentionDays) then
// count-based (trim to MaxRecords, oldest first). Either phase is skipped
// when its limit is zero.
type Pruner struct {
	store   Store
	cfg     config.AuditConfig
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(store Store, cfg config.AuditConfig) *Pruner {
	return &Pruner{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.retention"),
	}
}

// Prune runs one pruning cycle and returns the total records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.cfg.RetentionDays)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.cfg.MaxRecords > 0 {
		deleted, err := p.store.TrimTo(ctx, p.cfg.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("audit pruning completed",
			"deleted_count", total,
			"retention_days", p.cfg.RetentionDays,
			"max_records", p.cfg.MaxRecords,
		)
	} else {
		p.logger.Debug("audit pruning completed, nothing to delete")
	}

	return total, nil
}

// Start schedules pruning on the configured cron expression. An empty
// schedule disables automatic pruning.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.PruneSchedule == "" {
		p.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.cfg.PruneSchedule, err)
	}

	_, err := p.cron.AddFunc(p.cfg.PruneSchedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("retention scheduler started",
		"schedule", p.cfg.PruneSchedule,
		"retention_days", p.cfg.RetentionDays,
		"max_records", p.cfg.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("retention scheduler stopped")
	}
}
