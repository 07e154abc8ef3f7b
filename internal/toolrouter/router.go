// Package toolrouter implements the tool-dispatch boundary: validates every
// incoming call against its SchemaRegistry contract, invokes the matching
// business handler, and converts the result (or any *mcperr.Error, or a
// recovered panic) into the {ok:true,...}/{ok:false,...} envelope every tool
// call returns, exactly once, at this single seam.
package toolrouter

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/metrics"
	"github.com/bobmcallan/lancet/internal/schema"
	"github.com/bobmcallan/lancet/internal/services/feedback"
	"github.com/bobmcallan/lancet/internal/services/status"
)

// Router wires the schema registry and the business services behind the
// eleven MCP tools (plus the feedback surface) into a single dispatch point.
type Router struct {
	store    interfaces.Store
	notifier interfaces.Notifier
	status   *status.Service
	feedback *feedback.Handler
	schema   *schema.Registry
	logger   *common.Logger
	metrics  *metrics.Registry
}

// New creates a new Router.
func New(store interfaces.Store, notifier interfaces.Notifier, statusSvc *status.Service, feedbackHandler *feedback.Handler, registry *schema.Registry, logger *common.Logger) *Router {
	return &Router{
		store:    store,
		notifier: notifier,
		status:   statusSvc,
		feedback: feedbackHandler,
		schema:   registry,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics.Registry so every Dispatch call is counted
// by tool and outcome. Optional.
func (r *Router) WithMetrics(reg *metrics.Registry) *Router {
	r.metrics = reg
	return r
}

type handlerFunc func(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error)

func (r *Router) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"create_task":                 r.createTask,
		"queue_targets":               r.queueTargets,
		"queue_reference_candidates":  r.queueReferenceCandidates,
		"get_status":                  r.getStatus,
		"stop_task":                   r.stopTask,
		"get_materials":               r.getMaterials,
		"calibration_metrics":         r.calibrationMetrics,
		"calibration_rollback":        r.calibrationRollback,
		"get_auth_queue":              r.getAuthQueue,
		"resolve_auth":                r.resolveAuth,
		"notify_user":                 r.notifyUser,
		"wait_for_user":               r.waitForUser,
		"feedback":                    r.feedbackTool,
	}
}

// Dispatch is the single tool-boundary seam: schema validation, handler
// invocation, panic recovery, and envelope conversion all happen here so no
// individual handler needs to repeat that plumbing.
func (r *Router) Dispatch(ctx context.Context, tool string, args map[string]any) (env map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("tool", tool).Str("stack", string(debug.Stack())).Msgf("panic in tool handler: %v", rec)
			env = mcperr.InternalErr(fmt.Errorf("panic: %v", rec)).Envelope()
		}
		if r.metrics != nil {
			ok, _ := env["ok"].(bool)
			r.metrics.RecordToolCall(tool, ok)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	if err := r.schema.ValidateInput(tool, args); err != nil {
		return mcperr.InvalidParamsf("%v", err).Envelope()
	}

	h, ok := r.handlers()[tool]
	if !ok {
		return mcperr.InvalidParamsf("unknown tool %q", tool).Envelope()
	}

	result, mErr := h(ctx, args)
	if mErr != nil {
		return mErr.Envelope()
	}
	if result == nil {
		result = map[string]any{}
	}
	result["ok"] = true
	return result
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
