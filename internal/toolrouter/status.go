package toolrouter

import (
	"context"

	"github.com/bobmcallan/lancet/internal/mcperr"
)

func (r *Router) getStatus(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return nil, mcperr.InvalidParamsf("task_id must be a non-empty string")
	}
	wait := intArg(args, "wait", 0)
	detail := stringArg(args, "detail") == "full"

	report, err := r.status.GetStatus(ctx, taskID, wait, detail)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"ok":              report.OK,
		"task_id":         report.TaskID,
		"status":          report.Status,
		"query":           report.Query,
		"searches":        report.Searches,
		"metrics":         report.Metrics,
		"budget":          report.Budget,
		"auth_queue":      report.AuthQueue,
		"warnings":        report.Warnings,
		"blocked_domains": report.BlockedDomains,
		"idle_seconds":    report.IdleSeconds,
		"progress":        report.Progress,
	}
	return out, nil
}
