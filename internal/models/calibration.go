package models

import "time"

// CalibrationVersion is a named snapshot of the claim-confidence calibration
// mapping. calibration_metrics reports against the active version;
// calibration_rollback switches the active pointer to a prior version.
type CalibrationVersion struct {
	Tag         string    `json:"tag"`
	CreatedAt   time.Time `json:"created_at"`
	Active      bool      `json:"active"`
	SampleCount int       `json:"sample_count"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	BrierScore  float64   `json:"brier_score"`
	Notes       string    `json:"notes,omitempty"`
}

// InterventionQueueItem represents a human-auth or human-decision request
// raised by the pipeline (e.g. a site requiring login, a CAPTCHA, an
// ambiguous disambiguation) and surfaced via get_auth_queue/resolve_auth.
type InterventionQueueItem struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	URL        string    `json:"url,omitempty"`
	Kind       string    `json:"kind"` // e.g. "auth_required", "captcha", "disambiguation"
	Domain     string    `json:"domain,omitempty"`
	Priority   string    `json:"priority,omitempty"` // high | medium | low
	Prompt     string    `json:"prompt"`
	CreatedAt  time.Time `json:"created_at"`
	Resolved   bool      `json:"resolved"`
	Resolution string    `json:"resolution,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// DomainRule is a feedback-managed per-domain override: blocked domains are
// skipped by the fetch action before any network call is attempted.
type DomainRule struct {
	Domain    string    `json:"domain"`
	Blocked   bool      `json:"blocked"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
