package toolrouter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/bobmcallan/lancet/internal/services/dispatcher"
)

var doiURLPattern = regexp.MustCompile(`(?i)^https?://(?:dx\.)?doi\.org/(10\.\d{4,}/\S+)$`)

// extractDOI returns the bare DOI encoded in a doi.org/dx.doi.org URL, or
// "" if url does not match that form.
func extractDOI(url string) string {
	m := doiURLPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

func (r *Router) queueReferenceCandidates(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return nil, mcperr.InvalidParamsf("task_id must be a non-empty string")
	}

	task, err := r.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load task: %w", err))
	}
	if task == nil {
		return nil, mcperr.TaskNotFoundErr(taskID)
	}
	if task.IsTerminal() {
		return nil, mcperr.InvalidParamsf("task %q is in terminal status %q and cannot accept new reference candidates", taskID, task.Status)
	}

	includeIDs, _ := args["include_ids"].([]any)
	excludeIDs, _ := args["exclude_ids"].([]any)
	if len(includeIDs) > 0 && len(excludeIDs) > 0 {
		return nil, mcperr.InvalidParamsf("include_ids and exclude_ids cannot both be set")
	}
	include := toStringSet(includeIDs)
	exclude := toStringSet(excludeIDs)

	limit := intArg(args, "limit", 0)
	dryRun := boolArg(args, "dry_run")

	edges, err := r.store.Materials().ListEdges(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list citation edges: %w", err))
	}

	var candidates []models.ReferenceCandidate
	for _, e := range edges {
		if e.Relationship != "cites" {
			continue
		}
		if len(include) > 0 && !include[e.ToPageID] {
			continue
		}
		if exclude[e.ToPageID] {
			continue
		}
		pages, pErr := r.store.Materials().ListPages(ctx, taskID)
		if pErr != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to list pages: %w", pErr))
		}
		url := ""
		for _, p := range pages {
			if p.ID == e.ToPageID {
				url = p.URL
				break
			}
		}
		if url == "" {
			continue
		}
		target := models.Target{Kind: models.TargetKindURL, URL: url, Reason: models.TargetReasonCitationChase}
		if doi := extractDOI(url); doi != "" {
			target = models.Target{Kind: models.TargetKindDOI, DOI: doi, Reason: models.TargetReasonCitationChase}
		}
		candidates = append(candidates, models.ReferenceCandidate{Target: target, SourcePageID: e.FromPageID})
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}

	if dryRun {
		raw := make([]map[string]any, 0, len(candidates))
		for _, c := range candidates {
			raw = append(raw, map[string]any{"target": c.Target, "source_page_id": c.SourcePageID})
		}
		return map[string]any{"candidates": raw, "dry_run": true}, nil
	}

	queued, skipped := 0, 0
	for _, c := range candidates {
		enqueued, qErr := dispatcher.EnqueueReferenceCandidate(ctx, r.store, r.notifier, taskID, c)
		if qErr != nil {
			return nil, qErr
		}
		if enqueued {
			queued++
		} else {
			skipped++
		}
	}

	return map[string]any{"queued_count": queued, "skipped_count": skipped}, nil
}

func toStringSet(raw []any) map[string]bool {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}
