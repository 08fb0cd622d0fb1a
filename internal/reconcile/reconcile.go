// Package reconcile lazily refreshes the status of triggered builds.
package reconcile

import (
	"context"

	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/internal/ledger"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

// Engine reconciles ledger records against the Jenkins server. It is
// only invoked on listing; no background polling happens.
type Engine struct {
	gw     gateway.Gateway
	store  *ledger.Store
	logger *logger.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(gw gateway.Gateway, store *ledger.Store, log *logger.Logger) *Engine {
	return &Engine{gw: gw, store: store, logger: log}
}

// SyncAll returns all ledger records newest first, refreshing each
// non-terminal record against the server and persisting any change
// before returning. Records already in a terminal status are returned
// as-is without touching the server. A gateway failure on one record
// keeps its prior persisted status and never aborts the batch.
func (e *Engine) SyncAll(ctx context.Context) []ledger.Record {
	records := e.store.List()
	out := make([]ledger.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, e.syncRecord(ctx, rec))
	}
	return out
}

// syncRecord reconciles a single record. A QUEUED record whose queue
// item now has an executable picks up its build number and is checked
// against build info in the same pass.
func (e *Engine) syncRecord(ctx context.Context, rec ledger.Record) ledger.Record {
	if rec.Status.Terminal() {
		return rec
	}

	updated := rec
	changed := false

	if updated.Status == ledger.StatusQueued {
		item, err := e.gw.QueueItem(ctx, updated.QueueID)
		if err != nil {
			e.logger.Warn("reconcile: queue item query failed",
				"job", updated.JobName,
				"queue_id", updated.QueueID,
				"error", err)
			return rec
		}
		if item.Executable == nil {
			return rec
		}
		number := item.Executable.Number
		updated.BuildNumber = &number
		updated.Status = ledger.StatusRunning
		changed = true
		e.logger.Info("reconcile: queued build resolved",
			"job", updated.JobName,
			"queue_id", updated.QueueID,
			"build_number", number)
	}

	if updated.BuildNumber != nil {
		info, err := e.gw.BuildInfo(ctx, updated.JobName, *updated.BuildNumber)
		if err != nil {
			e.logger.Warn("reconcile: build info query failed",
				"job", updated.JobName,
				"build_number", *updated.BuildNumber,
				"error", err)
		} else if !info.Building && info.Result != "" {
			updated.Status = ledger.Status(info.Result)
			changed = true
			e.logger.Info("reconcile: build finished",
				"job", updated.JobName,
				"build_number", *updated.BuildNumber,
				"status", updated.Status)
		}
		// Finished builds with no result string stay RUNNING; Jenkins
		// reports this transiently for interrupted builds.
	}

	if changed {
		if err := e.store.Update(updated.QueueID, updated.BuildNumber, updated.Status); err != nil {
			e.logger.Error("reconcile: persist failed",
				"queue_id", updated.QueueID,
				"error", err)
		}
	}
	return updated
}
