package toolrouter

import (
	"context"

	"github.com/bobmcallan/lancet/internal/mcperr"
)

// feedbackTool dispatches the feedback surface's six named actions onto
// feedback.Handler, forwarding every argument but "action" as its params.
func (r *Router) feedbackTool(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	action := stringArg(args, "action")

	// The feedback handler's params map shares the naming of either
	// "domain" or the legacy "pattern" key used in scenario tests; normalize
	// pattern -> domain so both spellings work uniformly.
	params := make(map[string]any, len(args))
	for k, v := range args {
		if k == "action" {
			continue
		}
		params[k] = v
	}
	if pattern, ok := params["pattern"]; ok {
		if _, hasDomain := params["domain"]; !hasDomain {
			params["domain"] = pattern
		}
	}

	if err := r.feedback.Apply(ctx, action, params); err != nil {
		return nil, err
	}
	return map[string]any{"action": action}, nil
}
