package toolrouter

import (
	"context"
	"fmt"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/mcptargets"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/bobmcallan/lancet/internal/services/dispatcher"
	"github.com/google/uuid"
)

func (r *Router) createTask(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, mcperr.InvalidParamsf("query must be a non-empty string")
	}

	budgetPages, maxSeconds, vErr := resolveBudget(args)
	if vErr != nil {
		return nil, vErr
	}

	task := &models.Task{
		ID:          "task_" + uuid.New().String()[:12],
		Goal:        query,
		Status:      models.TaskStatusCreated,
		BudgetPages: budgetPages,
		MaxSeconds:  maxSeconds,
	}
	if err := r.store.Tasks().Create(ctx, task); err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to create task: %w", err))
	}

	return map[string]any{
		"task_id": task.ID,
		"status":  task.Status,
		"budget":  map[string]any{"budget_pages": task.BudgetPages, "max_seconds": task.MaxSeconds},
	}, nil
}

// resolveBudget validates config.budget, rejecting the legacy
// budget.max_pages key explicitly (the schema already blocks it; this is
// the defense-in-depth path for callers that bypass schema validation).
func resolveBudget(args map[string]any) (budgetPages, maxSeconds int, _ *mcperr.Error) {
	defaults := common.NewDefaultConfig().Budgets
	budgetPages, maxSeconds = defaults.DefaultBudgetPages, defaults.DefaultMaxSeconds

	config, _ := args["config"].(map[string]any)
	if config == nil {
		return budgetPages, maxSeconds, nil
	}
	budget, _ := config["budget"].(map[string]any)
	if budget == nil {
		return budgetPages, maxSeconds, nil
	}
	if _, legacy := budget["max_pages"]; legacy {
		return 0, 0, mcperr.InvalidParamsf("budget.max_pages is no longer supported, use budget.budget_pages")
	}
	if v, ok := budget["budget_pages"].(float64); ok && v > 0 {
		budgetPages = int(v)
	}
	if v, ok := budget["max_seconds"].(float64); ok && v > 0 {
		maxSeconds = int(v)
	}
	return budgetPages, maxSeconds, nil
}

func (r *Router) queueTargets(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return nil, mcperr.InvalidParamsf("task_id must be a non-empty string")
	}
	rawTargets, _ := args["targets"].([]any)
	if len(rawTargets) == 0 {
		return nil, mcperr.InvalidParamsf("targets must be a non-empty array")
	}

	task, err := r.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load task: %w", err))
	}
	if task == nil {
		return nil, mcperr.TaskNotFoundErr(taskID)
	}
	if task.IsTerminal() {
		return nil, mcperr.InvalidParamsf("task %q is in terminal status %q and cannot accept new targets", taskID, task.Status)
	}

	taskResumed := false
	if task.Status == models.TaskStatusPaused {
		if err := task.Transition(models.TaskStatusExploring); err != nil {
			return nil, mcperr.InternalErr(err)
		}
		if err := r.store.Tasks().Update(ctx, task); err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to resume task: %w", err))
		}
		taskResumed = true
	}

	var targetIDs []string
	queued, skipped := 0, 0
	for _, raw := range rawTargets {
		m, _ := raw.(map[string]any)
		t := models.Target{
			Kind:     stringArg(m, "kind"),
			Query:    stringArg(m, "query"),
			URL:      stringArg(m, "url"),
			DOI:      stringArg(m, "doi"),
			Priority: stringArg(m, "priority"),
		}
		enqueued, qErr := dispatcher.EnqueueTarget(ctx, r.store, r.notifier, taskID, t)
		if qErr != nil {
			return nil, qErr
		}
		if enqueued {
			queued++
			targetIDs = append(targetIDs, mcptargets.DedupKey(taskID, t))
		} else {
			skipped++
		}
	}

	return map[string]any{
		"queued_count":  queued,
		"skipped_count": skipped,
		"target_ids":    targetIDs,
		"task_resumed":  taskResumed,
		"message":       fmt.Sprintf("%d targets queued (%d duplicates skipped). Use get_status(wait=...) to monitor progress.", queued, skipped),
	}, nil
}
