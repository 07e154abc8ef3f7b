package status

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/metrics"
	"github.com/bobmcallan/lancet/internal/models"
)

// SearchSummary is one query-kind target's reported progress.
type SearchSummary struct {
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

// Metrics aggregates the task's searches and cumulative harvest counters.
type Metrics struct {
	SatisfiedCount int     `json:"satisfied_count"`
	PartialCount   int     `json:"partial_count"`
	PendingCount   int     `json:"pending_count"`
	ExhaustedCount int     `json:"exhausted_count"`
	TotalPages     int     `json:"total_pages"`
	TotalFragments int     `json:"total_fragments"`
	TotalClaims    int     `json:"total_claims"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Budget reports consumption against the task's page and time ceilings.
type Budget struct {
	PagesUsed        int     `json:"pages_used"`
	PagesLimit       int     `json:"pages_limit"`
	TimeUsedSeconds  float64 `json:"time_used_seconds"`
	TimeLimitSeconds int     `json:"time_limit_seconds"`
	RemainingPercent float64 `json:"remaining_percent"`
}

// QueueProgress reports the job queue's current shape. Items is populated
// only in full detail mode.
type QueueProgress struct {
	Depth   int           `json:"depth"`
	Running int           `json:"running"`
	Items   []*models.Job `json:"items,omitempty"`
}

// Progress wraps the sub-objects get_status reports under "progress".
type Progress struct {
	Queue QueueProgress `json:"queue"`
}

// AuthQueueSummary reports the pending human-intervention queue. Items is
// populated only in full detail mode.
type AuthQueueSummary struct {
	PendingCount int                             `json:"pending_count"`
	Items        []*models.InterventionQueueItem `json:"items,omitempty"`
}

// Report is the get_status response envelope.
type Report struct {
	OK             bool              `json:"ok"`
	TaskID         string            `json:"task_id"`
	Status         string            `json:"status"`
	Query          string            `json:"query"`
	Searches       []SearchSummary   `json:"searches"`
	Metrics        Metrics           `json:"metrics"`
	Budget         Budget            `json:"budget"`
	AuthQueue      *AuthQueueSummary `json:"auth_queue,omitempty"`
	Warnings       []string          `json:"warnings"`
	BlockedDomains []string          `json:"blocked_domains"`
	IdleSeconds    int               `json:"idle_seconds"`
	Progress       Progress          `json:"progress"`
	Woke           bool              `json:"woke"`
}

// Service implements the bounded long-poll get_status operation.
type Service struct {
	store   interfaces.Store
	hub     *TaskHub
	logger  *common.Logger
	config  common.StatusConfig
	metrics *metrics.Registry
}

// NewService creates a new status Service.
func NewService(store interfaces.Store, hub *TaskHub, logger *common.Logger, config common.StatusConfig) *Service {
	return &Service{store: store, hub: hub, logger: logger, config: config}
}

// WithMetrics attaches a metrics.Registry so long-poll wake latency and
// pending queue depth get recorded. Optional.
func (s *Service) WithMetrics(reg *metrics.Registry) *Service {
	s.metrics = reg
	return s
}

// GetStatus blocks up to waitSeconds (clamped to the configured ceiling) for
// a state change on taskID, then returns the current report. If the task is
// already terminal, or waitSeconds is 0, it returns immediately. It never
// busy-polls: a single channel wait stands in for the whole duration.
func (s *Service) GetStatus(ctx context.Context, taskID string, waitSeconds int, includeDetail bool) (*Report, *mcperr.Error) {
	task, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load task: %w", err))
	}
	if task == nil {
		return nil, mcperr.TaskNotFoundErr(taskID)
	}

	woke := false
	maxWait := s.config.GetMaxWait()
	if waitSeconds > maxWait {
		waitSeconds = maxWait
	}

	if waitSeconds > 0 && !task.IsTerminal() {
		waitStart := time.Now()
		waitCh := s.hub.Wait(taskID)
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()

		select {
		case <-waitCh:
			woke = true
			if s.metrics != nil {
				s.metrics.WakeLatency.Observe(time.Since(waitStart).Seconds())
			}
		case <-timer.C:
			s.hub.CancelWait(taskID, waitCh)
		case <-ctx.Done():
			s.hub.CancelWait(taskID, waitCh)
			return nil, mcperr.InternalErr(fmt.Errorf("status wait cancelled: %w", ctx.Err()))
		}

		task, err = s.store.Tasks().Get(ctx, taskID)
		if err != nil {
			return nil, mcperr.InternalErr(fmt.Errorf("failed to reload task: %w", err))
		}
		if task == nil {
			return nil, mcperr.TaskNotFoundErr(taskID)
		}
	}

	exploration, err := s.store.Exploration().Get(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load exploration state: %w", err))
	}
	if exploration == nil {
		exploration = &models.ExplorationState{TaskID: taskID}
	}

	jobs, err := s.store.Jobs().ListByTask(ctx, taskID, 0)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list jobs: %w", err))
	}
	depth, running := 0, 0
	for _, j := range jobs {
		switch j.Status {
		case models.JobStatusPending:
			depth++
		case models.JobStatusRunning:
			running++
		}
	}
	if s.metrics != nil {
		s.metrics.QueueDepth.WithLabelValues("task:" + taskID).Set(float64(depth))
	}

	idleSeconds := int(time.Since(task.LastActivityAt).Seconds())
	idleWarning := !task.IsTerminal() && idleSeconds > s.config.GetIdleWarning()

	rules, err := s.store.Feedback().ListRules(ctx)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list domain rules: %w", err))
	}
	var blocked []string
	for _, r := range rules {
		if r.Blocked {
			blocked = append(blocked, r.Domain)
		}
	}

	searches, searchMetrics := buildSearches(exploration)
	elapsedSeconds := time.Since(task.CreatedAt).Seconds()
	searchMetrics.TotalPages = exploration.PagesFetched
	searchMetrics.TotalFragments = exploration.FragmentsFound
	searchMetrics.TotalClaims = exploration.ClaimsExtracted
	searchMetrics.ElapsedSeconds = elapsedSeconds

	budget := buildBudget(task, elapsedSeconds)

	items, err := s.store.Intervention().ListPending(ctx, taskID)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list pending interventions: %w", err))
	}
	authQueue := &AuthQueueSummary{PendingCount: len(items)}
	if includeDetail {
		authQueue.Items = items
	}

	warnings := buildWarnings(budget, idleWarning, searchMetrics, depth)

	report := &Report{
		OK:             true,
		TaskID:         task.ID,
		Status:         task.Status,
		Query:          task.Goal,
		Searches:       searches,
		Metrics:        searchMetrics,
		Budget:         budget,
		AuthQueue:      authQueue,
		Warnings:       warnings,
		BlockedDomains: blocked,
		IdleSeconds:    idleSeconds,
		Progress:       Progress{Queue: QueueProgress{Depth: depth, Running: running}},
		Woke:           woke,
	}
	if includeDetail {
		report.Progress.Queue.Items = jobs
	}

	return report, nil
}

// buildSearches maps the per-search_id sub-state into the output searches[]
// list (sorted by search_id for a stable response) and tallies the four
// metrics.*_count buckets.
func buildSearches(exploration *models.ExplorationState) ([]SearchSummary, Metrics) {
	var m Metrics
	ids := make([]string, 0, len(exploration.Searches))
	for id := range exploration.Searches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	searches := make([]SearchSummary, 0, len(ids))
	for _, id := range ids {
		sub := exploration.Searches[id]
		switch sub.Status {
		case models.SearchStatusSatisfied:
			m.SatisfiedCount++
		case models.SearchStatusPartial:
			m.PartialCount++
		case models.SearchStatusExhausted:
			m.ExhaustedCount++
		default:
			m.PendingCount++
		}
		searches = append(searches, SearchSummary{
			SearchID:           sub.SearchID,
			Query:              sub.Query,
			Status:             sub.Status,
			PagesFetched:       sub.PagesFetched,
			FragmentsKept:      sub.FragmentsKept,
			IndependentSources: sub.IndependentSources,
			PrimarySource:      sub.PrimarySource,
			SatisfactionScore:  sub.SatisfactionScore,
			HarvestRate:        sub.HarvestRate,
		})
	}
	return searches, m
}

// buildBudget reports consumption against the task's page and time ceilings.
// remaining_percent is the more constrained of the two dimensions; a zero
// limit means that dimension is unbounded and is excluded from the minimum.
func buildBudget(task *models.Task, elapsedSeconds float64) Budget {
	b := Budget{
		PagesUsed:        task.PagesFetched,
		PagesLimit:       task.BudgetPages,
		TimeUsedSeconds:  elapsedSeconds,
		TimeLimitSeconds: task.MaxSeconds,
	}

	remaining := 100.0
	bounded := false
	if b.PagesLimit > 0 {
		pct := 100.0 * (1 - float64(b.PagesUsed)/float64(b.PagesLimit))
		remaining = clampPercent(pct)
		bounded = true
	}
	if b.TimeLimitSeconds > 0 {
		pct := clampPercent(100.0 * (1 - b.TimeUsedSeconds/float64(b.TimeLimitSeconds)))
		if !bounded || pct < remaining {
			remaining = pct
		}
		bounded = true
	}
	if !bounded {
		remaining = 100.0
	}
	b.RemainingPercent = remaining
	return b
}

func clampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// buildWarnings computes advisory warnings from the current state. Warnings
// are informational only; clients decide how to react.
func buildWarnings(budget Budget, idleWarning bool, m Metrics, queueDepth int) []string {
	var warnings []string
	if budget.RemainingPercent < 20 {
		warnings = append(warnings, "budget_low")
	}
	if idleWarning {
		warnings = append(warnings, "idle_timeout")
	}
	finished := m.SatisfiedCount + m.PartialCount + m.ExhaustedCount
	if queueDepth == 0 && finished > 0 && m.SatisfiedCount == 0 {
		warnings = append(warnings, "diminishing_returns")
	}
	return warnings
}
