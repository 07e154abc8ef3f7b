package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/mcptargets"
	"github.com/bobmcallan/lancet/internal/models"
)

// EnqueueTarget validates and deduplicates a single target descriptor, then
// enqueues a target_queue job for it. Returns false (no error) when the
// target was skipped as an in-flight duplicate.
func EnqueueTarget(ctx context.Context, store interfaces.Store, notifier interfaces.Notifier, taskID string, t models.Target) (bool, *mcperr.Error) {
	if mErr := mcptargets.Validate(&t); mErr != nil {
		return false, mErr
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return false, mcperr.InternalErr(fmt.Errorf("failed to marshal target: %w", err))
	}

	job := &models.Job{
		TaskID:    taskID,
		Kind:      models.JobKindTargetQueue,
		DedupKey:  mcptargets.DedupKey(taskID, t),
		InputJSON: string(payload),
		Priority:  models.PriorityForLabel(t.Priority),
	}

	enqueued, err := store.Jobs().EnqueueDeduped(ctx, job)
	if err != nil {
		return false, mcperr.InternalErr(fmt.Errorf("failed to enqueue target: %w", err))
	}
	if enqueued {
		if incErr := store.Exploration().IncrementCounters(ctx, taskID, map[string]int{"targets_queued": 1}); incErr != nil {
			return enqueued, mcperr.InternalErr(fmt.Errorf("failed to update exploration counters: %w", incErr))
		}
		if t.Kind == models.TargetKindQuery {
			search := &models.SearchSubState{SearchID: job.DedupKey, Query: t.Query, Status: models.SearchStatusPending}
			if sErr := store.Exploration().UpsertSearch(ctx, taskID, search); sErr != nil {
				return enqueued, mcperr.InternalErr(fmt.Errorf("failed to record search sub-state: %w", sErr))
			}
		}
		if metricsRegistry != nil {
			metricsRegistry.JobsEnqueued.WithLabelValues(job.Kind).Inc()
		}
		notifier.Notify(taskID)
	}
	return enqueued, nil
}

// EnqueueReferenceCandidate validates and deduplicates a citation-chased
// reference candidate, then enqueues a reference_queue job carrying its
// source page for provenance.
func EnqueueReferenceCandidate(ctx context.Context, store interfaces.Store, notifier interfaces.Notifier, taskID string, rc models.ReferenceCandidate) (bool, *mcperr.Error) {
	rc.Target.Reason = models.TargetReasonCitationChase
	if mErr := mcptargets.Validate(&rc.Target); mErr != nil {
		return false, mErr
	}

	payload, err := json.Marshal(rc)
	if err != nil {
		return false, mcperr.InternalErr(fmt.Errorf("failed to marshal reference candidate: %w", err))
	}

	job := &models.Job{
		TaskID:    taskID,
		Kind:      models.JobKindReferenceQueue,
		DedupKey:  mcptargets.DedupKey(taskID, rc.Target),
		InputJSON: string(payload),
		Priority:  models.PriorityForLabel(rc.Target.Priority),
	}

	enqueued, err := store.Jobs().EnqueueDeduped(ctx, job)
	if err != nil {
		return false, mcperr.InternalErr(fmt.Errorf("failed to enqueue reference candidate: %w", err))
	}
	if enqueued {
		if incErr := store.Exploration().IncrementCounters(ctx, taskID, map[string]int{"targets_queued": 1}); incErr != nil {
			return enqueued, mcperr.InternalErr(fmt.Errorf("failed to update exploration counters: %w", incErr))
		}
		if metricsRegistry != nil {
			metricsRegistry.JobsEnqueued.WithLabelValues(job.Kind).Inc()
		}
		notifier.Notify(taskID)
	}
	return enqueued, nil
}
