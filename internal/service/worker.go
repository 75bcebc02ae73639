package service

import (
	"context"
	"fmt"
	"time"

	"leaguebet/internal/logger"
)

// SettlementWorker periodically resolves due matches from their stored seeds
// and settles every betslip whose legs have all resolved.
type SettlementWorker struct {
	ctx        context.Context
	cancel     context.CancelFunc
	ticker     *time.Ticker
	interval   time.Duration
	settlement *SettlementService
}

// NewSettlementWorker creates a worker that ticks at the given interval.
func NewSettlementWorker(settlement *SettlementService, interval time.Duration) *SettlementWorker {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = time.Minute
	}
	return &SettlementWorker{
		ctx:        ctx,
		cancel:     cancel,
		ticker:     time.NewTicker(interval),
		interval:   interval,
		settlement: settlement,
	}
}

// Start begins the background worker
func (w *SettlementWorker) Start() {
	logger.Debug("", "settlement_worker_started", fmt.Sprintf("interval=%v", w.interval))

	// Run immediately on start
	w.runOnce()

	// Then run on ticker
	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.runOnce()
			case <-w.ctx.Done():
				logger.Debug("", "settlement_worker_stopped", "")
				return
			}
		}
	}()
}

// Stop stops the background worker
func (w *SettlementWorker) Stop() {
	w.ticker.Stop()
	w.cancel()
}

func (w *SettlementWorker) runOnce() {
	resolved, err := ResolveDueMatches(w.settlement.notifier)
	if err != nil {
		logger.Debug("", "settlement_worker_resolve_failed", fmt.Sprintf("error=%s", err.Error()))
		return
	}
	if resolved > 0 {
		logger.Debug("", "settlement_worker_resolved_matches", fmt.Sprintf("count=%d", resolved))
	}

	settled, err := w.settlement.SettleDueBetslips(w.ctx)
	if err != nil {
		logger.Debug("", "settlement_worker_settle_failed", fmt.Sprintf("error=%s", err.Error()))
		return
	}
	if settled > 0 {
		logger.Debug("", "settlement_worker_settled_slips", fmt.Sprintf("count=%d", settled))
	}
}
