package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition. This tool
// is answered directly by the HTTP server, not routed through the tool
// dispatcher, so agents can verify connectivity before a task exists.
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Lancet research core version and status. Use this to verify connectivity."),
	)
}

func createCreateTaskTool() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription("Start a new research task for a natural-language query. Returns a task_id to pass to every other tool."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The research question to investigate."),
		),
		mcp.WithObject("config",
			mcp.Description("Optional budget overrides: {\"budget\":{\"budget_pages\":N,\"max_seconds\":N}}."),
		),
	)
}

func createQueueTargetsTool() mcp.Tool {
	return mcp.NewTool("queue_targets",
		mcp.WithDescription("Queue one or more research targets (search queries, URLs, or DOIs) against a task for the dispatcher to fetch."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task to queue targets against.")),
		mcp.WithArray("targets",
			mcp.Required(),
			mcp.Description("Array of {kind: query|url|doi, query|url|doi, priority: high|medium|low}."),
		),
		mcp.WithObject("options",
			mcp.Description("Optional defaults applied to every target, e.g. {\"priority\":\"high\"}."),
		),
	)
}

func createQueueReferenceCandidatesTool() mcp.Tool {
	return mcp.NewTool("queue_reference_candidates",
		mcp.WithDescription("Promote citation-chased reference candidates discovered while fetching a task's pages into real queued targets."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task whose reference candidates should be queued.")),
		mcp.WithArray("include_ids", mcp.WithStringItems(), mcp.Description("Only queue these candidate IDs (mutually exclusive with exclude_ids).")),
		mcp.WithArray("exclude_ids", mcp.WithStringItems(), mcp.Description("Queue all candidates except these IDs (mutually exclusive with include_ids).")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of candidates to queue.")),
		mcp.WithBoolean("dry_run", mcp.Description("If true, report what would be queued without enqueuing jobs.")),
	)
}

func createGetStatusTool() mcp.Tool {
	return mcp.NewTool("get_status",
		mcp.WithDescription("Check a task's progress. Optionally long-polls, blocking until new progress lands or the wait expires."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task to check.")),
		mcp.WithNumber("wait", mcp.Description("Seconds to long-poll for new progress before returning (0-60).")),
		mcp.WithString("detail", mcp.Description("summary (default) or full.")),
	)
}

func createStopTaskTool() mcp.Tool {
	return mcp.NewTool("stop_task",
		mcp.WithDescription("Stop a running task, gracefully draining in-flight jobs or halting immediately."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task to stop.")),
		mcp.WithString("mode", mcp.Description("graceful (default, finishes in-flight jobs) or immediate.")),
		mcp.WithString("reason", mcp.Description("Why the task is being stopped.")),
	)
}

func createGetMaterialsTool() mcp.Tool {
	return mcp.NewTool("get_materials",
		mcp.WithDescription("Fetch the pages, fragments, and extracted claims collected so far for a task."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("The task to fetch materials for.")),
		mcp.WithBoolean("include_graph", mcp.Description("Include the claim support/refute edge graph.")),
		mcp.WithBoolean("include_citations", mcp.Description("Include per-claim source citations.")),
	)
}

func createCalibrationMetricsTool() mcp.Tool {
	return mcp.NewTool("calibration_metrics",
		mcp.WithDescription("Inspect confidence-calibration statistics or evaluation history for a claim-confidence source."),
		mcp.WithString("action", mcp.Required(), mcp.Description("get_stats or get_evaluations.")),
		mcp.WithString("source", mcp.Description("The calibration source to inspect.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of evaluations to return.")),
	)
}

func createCalibrationRollbackTool() mcp.Tool {
	return mcp.NewTool("calibration_rollback",
		mcp.WithDescription("Roll a calibration source back to a prior version after a bad calibration update."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The calibration source to roll back.")),
		mcp.WithNumber("version", mcp.Description("The version to roll back to (defaults to the prior version).")),
		mcp.WithString("reason", mcp.Description("Why the rollback is happening.")),
	)
}

func createGetAuthQueueTool() mcp.Tool {
	return mcp.NewTool("get_auth_queue",
		mcp.WithDescription("List targets blocked on authentication or manual intervention, optionally grouped by domain or type."),
		mcp.WithString("task_id", mcp.Description("Filter to a single task. Omit for all tasks.")),
		mcp.WithString("priority_filter", mcp.Description("Filter by priority label.")),
		mcp.WithString("group_by", mcp.Description("none (default), domain, or type.")),
	)
}

func createResolveAuthTool() mcp.Tool {
	return mcp.NewTool("resolve_auth",
		mcp.WithDescription("Resolve an authentication-queue item or an entire blocked domain as complete or skipped."),
		mcp.WithString("target", mcp.Required(), mcp.Description("item or domain.")),
		mcp.WithString("queue_id", mcp.Description("Required when target is item.")),
		mcp.WithString("domain", mcp.Description("Required when target is domain.")),
		mcp.WithString("action", mcp.Required(), mcp.Description("complete or skip.")),
		mcp.WithBoolean("success", mcp.Description("Whether resolution succeeded.")),
	)
}

func createNotifyUserTool() mcp.Tool {
	return mcp.NewTool("notify_user",
		mcp.WithDescription("Surface an event to the operator: auth required, task progress, task complete, error, or info."),
		mcp.WithString("event", mcp.Required(), mcp.Description("auth_required, task_progress, task_complete, error, or info.")),
		mcp.WithObject("payload", mcp.Description("Event-specific details to display.")),
	)
}

func createWaitForUserTool() mcp.Tool {
	return mcp.NewTool("wait_for_user",
		mcp.WithDescription("Pause and prompt the operator for input, optionally with a fixed set of options, before continuing."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question to ask the operator.")),
		mcp.WithNumber("timeout_seconds", mcp.Description("How long to wait before giving up.")),
		mcp.WithArray("options", mcp.WithStringItems(), mcp.Description("A fixed set of acceptable answers, if any.")),
	)
}

func createFeedbackTool() mcp.Tool {
	return mcp.NewTool("feedback",
		mcp.WithDescription("Apply operator feedback: block/unblock a domain, reject/restore a claim, or correct a claim edge."),
		mcp.WithString("action", mcp.Required(), mcp.Description("domain_block, domain_unblock, domain_clear_override, claim_reject, claim_restore, or edge_correct.")),
		mcp.WithString("domain", mcp.Description("Required for domain_block/domain_unblock/domain_clear_override.")),
		mcp.WithString("pattern", mcp.Description("Alias for domain (a domain or scoped glob such as *.example.com); used only when domain is omitted.")),
		mcp.WithString("reason", mcp.Description("Why the feedback is being applied.")),
		mcp.WithString("claim_id", mcp.Description("Required for claim_reject/claim_restore.")),
		mcp.WithString("task_id", mcp.Description("Required for edge_correct.")),
		mcp.WithString("edge_id", mcp.Description("Required for edge_correct.")),
		mcp.WithString("correction", mcp.Description("The corrected edge relation for edge_correct.")),
	)
}
