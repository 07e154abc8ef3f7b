package toolrouter

import (
	"context"
	"fmt"

	"github.com/bobmcallan/lancet/internal/mcperr"
)

func (r *Router) getMaterials(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
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

	claims, err := r.store.Materials().ListClaims(ctx, taskID, true)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list claims: %w", err))
	}
	pages, err := r.store.Materials().ListPages(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list pages: %w", err))
	}
	fragments, err := r.store.Materials().ListFragments(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list fragments: %w", err))
	}

	accepted := 0
	for _, c := range claims {
		if !c.Rejected {
			accepted++
		}
	}

	out := map[string]any{
		"claims":    claims,
		"fragments": fragments,
		"summary": map[string]any{
			"total_claims":    len(claims),
			"accepted_claims": accepted,
			"rejected_claims": len(claims) - accepted,
			"total_pages":     len(pages),
			"total_fragments": len(fragments),
		},
	}

	if boolArg(args, "include_graph") || boolArg(args, "include_citations") {
		edges, eErr := r.store.Materials().ListEdges(ctx, taskID)
		if eErr != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to list edges: %w", eErr))
		}
		out["evidence_graph"] = buildEvidenceGraph(pages, claims, edges)
	}
	if boolArg(args, "include_citations") {
		edges, eErr := r.store.Materials().ListEdges(ctx, taskID)
		if eErr != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to list edges: %w", eErr))
		}
		out["citation_network"] = buildCitationNetwork(edges)
	}

	return out, nil
}
