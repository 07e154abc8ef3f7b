package models

import "time"

// Search sub-state status buckets. A query-kind target's sub-state moves
// from pending to exactly one of the other three once its job completes;
// these four values are also the four metrics.*_count buckets get_status
// reports.
const (
	SearchStatusPending   = "pending"
	SearchStatusSatisfied = "satisfied"
	SearchStatusPartial   = "partial"
	SearchStatusExhausted = "exhausted"
)

// SearchSubState tracks one query-kind target's own progress, independent of
// the cumulative task-level counters, so get_status can report a per-search
// breakdown instead of only aggregate totals.
type SearchSubState struct {
	SearchID           string  `json:"search_id"`
	Query              string  `json:"query"`
	Status             string  `json:"status"`
	PagesFetched       int     `json:"pages_fetched"`
	FragmentsKept      int     `json:"fragments_kept"`
	IndependentSources int     `json:"independent_sources"`
	PrimarySource      bool    `json:"primary_source"`
	SatisfactionScore  float64 `json:"satisfaction_score"`
	HarvestRate        float64 `json:"harvest_rate"`
}

// ExplorationState is the live counters view of a task's progress, updated
// by the dispatcher after every job commit and read by get_status/get_materials.
type ExplorationState struct {
	TaskID           string                     `json:"task_id"`
	TargetsQueued    int                        `json:"targets_queued"`
	TargetsRunning   int                        `json:"targets_running"`
	TargetsSucceeded int                        `json:"targets_succeeded"`
	TargetsFailed    int                        `json:"targets_failed"`
	PagesFetched     int                        `json:"pages_fetched"`
	FragmentsFound   int                        `json:"fragments_found"`
	ClaimsExtracted  int                        `json:"claims_extracted"`
	ClaimsRejected   int                        `json:"claims_rejected"`
	Searches         map[string]*SearchSubState `json:"searches,omitempty"`
	LastUpdatedAt    time.Time                  `json:"last_updated_at"`
}
