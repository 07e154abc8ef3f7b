package toolrouter

import (
	"context"
	"fmt"

	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/models"
)

func (r *Router) getAuthQueue(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	taskID := stringArg(args, "task_id")
	groupBy := stringArg(args, "group_by")
	if groupBy == "" {
		groupBy = "none"
	}
	priorityFilter := stringArg(args, "priority_filter")

	items, err := r.store.Intervention().ListPending(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list pending interventions: %w", err))
	}
	if priorityFilter != "" {
		var filtered []*models.InterventionQueueItem
		for _, it := range items {
			if it.Priority == priorityFilter {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	out := map[string]any{"total_count": len(items)}
	switch groupBy {
	case "domain":
		groups := map[string][]*models.InterventionQueueItem{}
		for _, it := range items {
			key := it.Domain
			groups[key] = append(groups[key], it)
		}
		out["groups"] = groups
	case "type":
		groups := map[string][]*models.InterventionQueueItem{}
		for _, it := range items {
			groups[it.Kind] = append(groups[it.Kind], it)
		}
		out["groups"] = groups
	default:
		out["items"] = items
	}
	return out, nil
}

func (r *Router) resolveAuth(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	target := stringArg(args, "target")
	action := stringArg(args, "action")
	if action != "complete" && action != "skip" {
		return nil, mcperr.InvalidParamsf("action must be one of complete|skip, got %q", action)
	}

	resolution := action
	if action == "complete" {
		if success, ok := args["success"].(bool); ok && !success {
			resolution = "failed"
		}
	}

	switch target {
	case "item":
		queueID := stringArg(args, "queue_id")
		if queueID == "" {
			return nil, mcperr.InvalidParamsf("queue_id is required when target=item")
		}
		item, err := r.store.Intervention().Get(ctx, queueID)
		if err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to load intervention item: %w", err))
		}
		if item == nil {
			return nil, mcperr.InvalidParamsf("no intervention item with id %q", queueID)
		}
		if err := r.store.Intervention().Resolve(ctx, queueID, resolution); err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to resolve intervention item: %w", err))
		}
		r.notifier.Notify(item.TaskID)
		return map[string]any{"target": "item", "queue_id": queueID, "resolution": resolution}, nil

	case "domain":
		domain := stringArg(args, "domain")
		if domain == "" {
			return nil, mcperr.InvalidParamsf("domain is required when target=domain")
		}
		items, err := r.store.Intervention().ListPending(ctx, "")
		if err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to list pending interventions: %w", err))
		}
		resolved := 0
		for _, it := range items {
			if it.Domain != domain {
				continue
			}
			if err := r.store.Intervention().Resolve(ctx, it.ID, resolution); err != nil {
				return nil, mcperr.InternalErr(fmt.Errorf("failed to resolve intervention item: %w", err))
			}
			r.notifier.Notify(it.TaskID)
			resolved++
		}
		return map[string]any{"target": "domain", "domain": domain, "resolution": resolution, "resolved_count": resolved}, nil

	default:
		return nil, mcperr.InvalidParamsf("target must be one of item|domain, got %q", target)
	}
}
