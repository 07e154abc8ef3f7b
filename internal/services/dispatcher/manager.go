// Package dispatcher runs the durable, priority-ordered job queue: a pool of
// worker goroutines per slot that dequeue, execute, and commit jobs, waking
// any long-poll status waiters as state changes land.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/metrics"
	"github.com/bobmcallan/lancet/internal/models"
)

// Dispatcher owns the worker pool that drains the job queue. One slot maps
// to one job kind family; each slot gets its own configured worker count so
// a burst of target_queue jobs cannot starve compute_claims jobs.
type Dispatcher struct {
	store    interfaces.Store
	notifier interfaces.Notifier
	logger   *common.Logger
	config   common.DispatcherConfig
	actions  map[string]interfaces.Action
	metrics  *metrics.Registry
	eventBus interfaces.EventBroadcaster

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Dispatcher. Register actions with RegisterAction before
// calling Start.
func New(store interfaces.Store, notifier interfaces.Notifier, logger *common.Logger, config common.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		logger:   logger,
		config:   config,
		actions:  make(map[string]interfaces.Action),
	}
}

// WithMetrics attaches a metrics.Registry so queue depth, job outcomes, and
// action duration get recorded. Optional: a Dispatcher with no registry
// attached simply skips instrumentation. It also sets the package-level
// registry EnqueueTarget/EnqueueReferenceCandidate record against, since
// those are package functions rather than Dispatcher methods.
func (d *Dispatcher) WithMetrics(reg *metrics.Registry) *Dispatcher {
	d.metrics = reg
	metricsRegistry = reg
	return d
}

// metricsRegistry is optionally set via Dispatcher.WithMetrics so the
// package-level enqueue helpers in queue.go can record job counts without
// threading a registry through every call site.
var metricsRegistry *metrics.Registry

// WithEventBus attaches an admin-facing job event broadcaster (e.g.
// adminws.Hub). Optional: a Dispatcher with no bus attached simply skips
// broadcasting.
func (d *Dispatcher) WithEventBus(bus interfaces.EventBroadcaster) *Dispatcher {
	d.eventBus = bus
	return d
}

// broadcastEvent fans a job lifecycle event out to the admin feed, if one
// is attached.
func (d *Dispatcher) broadcastEvent(eventType string, job *models.Job) {
	if d.eventBus == nil {
		return
	}
	d.eventBus.Broadcast(models.JobEvent{
		Type:      eventType,
		TaskID:    job.TaskID,
		Job:       job,
		Timestamp: time.Now(),
	})
}

// RegisterAction binds a job kind to the action collaborator that executes it.
func (d *Dispatcher) RegisterAction(kind string, action interfaces.Action) {
	d.actions[kind] = action
}

// safeGo launches a goroutine with panic recovery, mirroring the cooperative
// worker-pool shutdown pattern: a panicking worker logs and exits instead of
// crashing the whole dispatcher.
func (d *Dispatcher) safeGo(name string, fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in dispatcher goroutine")
			}
		}()
		fn()
	}()
}

// Start launches one worker pool per configured slot. Safe to call once;
// call Stop before a second Start.
func (d *Dispatcher) Start() {
	if d.cancel != nil {
		d.Stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if count, err := d.store.Jobs().ResetRunningJobs(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("failed to reset orphaned running jobs")
	} else if count > 0 {
		d.logger.Info().Int("count", count).Msg("reset orphaned running jobs to pending")
	}

	// target_queue and search_queue share one worker pool and one config
	// slot: search_queue is a historical alias, not a distinct job family.
	slotGroups := map[string][]string{
		models.JobKindTargetQueue:    {models.JobKindTargetQueue, models.JobKindSearchQueue},
		models.JobKindComputeClaims:  {models.JobKindComputeClaims},
		models.JobKindReferenceQueue: {models.JobKindReferenceQueue},
	}
	for slot, kinds := range slotGroups {
		workers := d.config.GetWorkersForSlot(slot)
		for i := 0; i < workers; i++ {
			kindsCopy := kinds
			name := fmt.Sprintf("dispatcher-%s-%d", slot, i)
			d.safeGo(name, func() { d.processLoop(ctx, kindsCopy) })
		}
	}

	d.logger.Info().Msg("dispatcher started")
}

// Stop cancels all worker loops and waits for them to drain.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.logger.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) processLoop(ctx context.Context, slots []string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := d.store.Jobs().FetchNext(ctx, slots)
		if err != nil {
			d.logger.Warn().Err(err).Msg("dispatcher: fetch error")
			if !sleepOrDone(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepOrDone(ctx, time.Second) {
				return
			}
			continue
		}

		d.notifier.Notify(job.TaskID)
		d.broadcastEvent("job_started", job)

		start := time.Now()
		execErr := d.execute(ctx, job)
		durationMS := time.Since(start).Milliseconds()
		if d.metrics != nil {
			d.metrics.ObserveAction(job.Kind, start)
		}

		if execErr != nil {
			d.logger.Warn().
				Str("job_id", job.ID).Str("kind", job.Kind).Str("task_id", job.TaskID).
				Int64("duration_ms", durationMS).Err(execErr).Msg("job failed")

			if job.Attempts < job.MaxAttempts {
				job.Status = models.JobStatusPending
				job.Error = ""
				if err := d.store.Jobs().Enqueue(ctx, job); err == nil {
					d.notifier.Notify(job.TaskID)
					d.broadcastEvent("job_retry", job)
					continue
				}
				d.logger.Warn().Str("job_id", job.ID).Err(err).Msg("failed to re-enqueue job")
			}
		} else {
			d.logger.Debug().
				Str("job_id", job.ID).Str("kind", job.Kind).Str("task_id", job.TaskID).
				Int64("duration_ms", durationMS).Msg("job completed")
		}

		if err := d.store.Jobs().Complete(ctx, job.ID, execErr, durationMS); err != nil {
			d.logger.Warn().Str("job_id", job.ID).Err(err).Msg("failed to commit job completion")
		}
		if d.metrics != nil {
			outcome := "success"
			if execErr != nil {
				outcome = "failed"
			}
			d.metrics.RecordJobOutcome(job.Kind, outcome)
		}
		d.notifier.Notify(job.TaskID)
		eventType := "job_completed"
		if execErr != nil {
			eventType = "job_failed"
		}
		d.broadcastEvent(eventType, job)
	}
}

func (d *Dispatcher) execute(ctx context.Context, job *models.Job) error {
	action, ok := d.actions[job.Kind]
	if !ok {
		mErr := mcperr.InternalErr(fmt.Errorf("no action registered for job kind %q", job.Kind))
		d.logger.Error().Str("error_id", mErr.ErrorID).Str("job_id", job.ID).Str("kind", job.Kind).Msg("no action registered for job kind")
		return mErr
	}
	return action.Run(ctx, job)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
