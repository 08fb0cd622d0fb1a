// Package trigger starts builds and resolves their build numbers.
package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lei/jenkins-gateway/internal/gateway"
	"github.com/lei/jenkins-gateway/internal/ledger"
	"github.com/lei/jenkins-gateway/pkg/logger"
)

const (
	// DefaultQueueAttempts bounds the queue-resolution polling loop.
	DefaultQueueAttempts = 10
	// DefaultQueueDelay separates consecutive polling attempts.
	DefaultQueueDelay = time.Second
)

// Result is the outcome of a successful trigger. BuildNumber is nil
// when the queue item did not resolve within the attempt budget; the
// caller must poll status later.
type Result struct {
	QueueID     int64
	BuildNumber *int64
	Message     string
}

// Orchestrator triggers builds via the gateway and records every
// successful trigger in the ledger, exactly once.
type Orchestrator struct {
	gw       gateway.Gateway
	store    *ledger.Store
	logger   *logger.Logger
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator with the given polling
// budget. Non-positive attempts or delay fall back to the defaults.
func NewOrchestrator(gw gateway.Gateway, store *ledger.Store, log *logger.Logger, attempts int, delay time.Duration) *Orchestrator {
	if attempts <= 0 {
		attempts = DefaultQueueAttempts
	}
	if delay <= 0 {
		delay = DefaultQueueDelay
	}
	return &Orchestrator{
		gw:       gw,
		store:    store,
		logger:   log,
		attempts: attempts,
		delay:    delay,
		sleep:    sleepContext,
	}
}

// sleepContext waits for d or until ctx is done, whichever is first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Trigger enqueues a build and polls the queue item until Jenkins
// assigns a build number or the attempt budget runs out. Either way
// one ledger record is written; if the enqueue call itself fails,
// nothing is written and the error is returned as-is.
func (o *Orchestrator) Trigger(ctx context.Context, jobName string, parameters map[string]string) (*Result, error) {
	if strings.TrimSpace(jobName) == "" {
		return nil, fmt.Errorf("job_name must not be empty")
	}

	o.logger.Debug("trigger: enqueueing build",
		"job", jobName,
		"param_count", len(parameters))

	queueID, err := o.gw.EnqueueBuild(ctx, jobName, parameters)
	if err != nil {
		o.logger.Error("trigger: enqueue failed", "job", jobName, "error", err)
		return nil, err
	}

	o.logger.Info("trigger: build enqueued", "job", jobName, "queue_id", queueID)

	buildNumber := o.resolveBuildNumber(ctx, queueID)

	if _, err := o.store.Add(jobName, parameters, queueID, buildNumber); err != nil {
		return nil, fmt.Errorf("record trigger: %w", err)
	}

	result := &Result{QueueID: queueID, BuildNumber: buildNumber}
	if buildNumber != nil {
		result.Message = fmt.Sprintf(
			"Job '%s' has been triggered. Queue ID: %d. Build number: %d.",
			jobName, queueID, *buildNumber)
	} else {
		result.Message = fmt.Sprintf(
			"Job '%s' has been triggered. Queue ID: %d. Build number is not yet available; check status later.",
			jobName, queueID)
	}
	return result, nil
}

// resolveBuildNumber polls the queue item with a bounded retry loop.
// Transient gateway errors count as attempts and do not abort the
// loop; only ctx cancellation ends it early. Returns nil when the
// queue item never resolved.
func (o *Orchestrator) resolveBuildNumber(ctx context.Context, queueID int64) *int64 {
	for attempt := 1; attempt <= o.attempts; attempt++ {
		item, err := o.gw.QueueItem(ctx, queueID)
		if err != nil {
			o.logger.Debug("trigger: queue poll failed",
				"queue_id", queueID,
				"attempt", attempt,
				"error", err)
		} else if item.Executable != nil {
			number := item.Executable.Number
			o.logger.Info("trigger: build number resolved",
				"queue_id", queueID,
				"build_number", number,
				"attempts", attempt)
			return &number
		}

		if attempt == o.attempts {
			break
		}
		if err := o.sleep(ctx, o.delay); err != nil {
			o.logger.Debug("trigger: queue polling cancelled", "queue_id", queueID)
			return nil
		}
	}

	o.logger.Info("trigger: build number not resolved within budget",
		"queue_id", queueID,
		"attempts", o.attempts)
	return nil
}
