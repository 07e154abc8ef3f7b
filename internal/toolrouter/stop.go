package toolrouter

import (
	"context"
	"fmt"

	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/models"
)

func (r *Router) stopTask(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return nil, mcperr.InvalidParamsf("task_id must be a non-empty string")
	}
	mode := stringArg(args, "mode")
	if mode == "" {
		mode = "graceful"
	}
	if mode != "graceful" && mode != "immediate" {
		return nil, mcperr.InvalidParamsf("mode must be one of graceful|immediate, got %q", mode)
	}
	reason := stringArg(args, "reason")

	task, err := r.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load task: %w", err))
	}
	if task == nil {
		return nil, mcperr.TaskNotFoundErr(taskID)
	}

	if !task.IsTerminal() {
		if mode == "immediate" {
			if _, cErr := r.store.Jobs().CancelByTask(ctx, taskID); cErr != nil {
				return nil, mcperr.InternalErr(fmt.Errorf("failed to cancel jobs: %w", cErr))
			}
		} else {
			if _, cErr := r.store.Jobs().CancelPendingByTask(ctx, taskID); cErr != nil {
				return nil, mcperr.InternalErr(fmt.Errorf("failed to cancel pending jobs: %w", cErr))
			}
		}

		if task.Status == models.TaskStatusCreated || task.Status == models.TaskStatusExploring || task.Status == models.TaskStatusPaused {
			if tErr := task.Transition(models.TaskStatusStopping); tErr != nil {
				return nil, mcperr.InternalErr(tErr)
			}
		}
		if tErr := task.Transition(models.TaskStatusDone); tErr != nil {
			return nil, mcperr.InternalErr(tErr)
		}
		task.StopReason = reason
		if err := r.store.Tasks().Update(ctx, task); err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to update task: %w", err))
		}
		r.notifier.Notify(taskID)
	}

	exploration, err := r.store.Exploration().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load exploration state: %w", err))
	}
	if exploration == nil {
		exploration = &models.ExplorationState{TaskID: taskID}
	}

	claims, err := r.store.Materials().ListClaims(ctx, taskID, false)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list claims: %w", err))
	}
	pages, err := r.store.Materials().ListPages(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list pages: %w", err))
	}

	primaryRatio := 0.0
	if len(pages) > 0 {
		primary := 0
		for _, p := range pages {
			if p.SourceDepth == 0 {
				primary++
			}
		}
		primaryRatio = float64(primary) / float64(len(pages))
	}

	return map[string]any{
		"total_searches":        exploration.TargetsQueued,
		"satisfied_searches":    exploration.TargetsSucceeded,
		"total_claims":          len(claims),
		"primary_source_ratio":  primaryRatio,
		"mode":                  mode,
	}, nil
}
