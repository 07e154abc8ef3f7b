package toolrouter

import (
	"context"

	"github.com/bobmcallan/lancet/internal/mcperr"
)

// notifyUser sends a best-effort notification through the external
// intervention transport. This core has no outbound transport of its own
// (spec Non-goal: the transport is external); success is reported with a
// diagnostic flag instead of failing the call, per spec.md's notify_user contract.
func (r *Router) notifyUser(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	event := stringArg(args, "event")
	payload, _ := args["payload"].(map[string]any)

	r.logger.Info().Str("event", event).Msg("notify_user")

	return map[string]any{
		"event":          event,
		"payload":        payload,
		"sink_available": false,
	}, nil
}

// waitForUser returns immediately; the actual wait is delegated to the
// external intervention transport, per spec.md's wait_for_user contract.
func (r *Router) waitForUser(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	prompt := stringArg(args, "prompt")
	if prompt == "" {
		return nil, mcperr.InvalidParamsf("prompt must be a non-empty string")
	}
	timeout := intArg(args, "timeout_seconds", 300)

	return map[string]any{
		"status":          "notification_sent",
		"timeout_seconds": timeout,
		"prompt":          prompt,
	}, nil
}
