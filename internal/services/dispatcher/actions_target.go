package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcptargets"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/sony/gobreaker"
)

// SearchEngine is the external action collaborator that actually talks to a
// SERP or academic API. The dispatcher never implements search itself — it
// only decides when to call one, with what retry/circuit-breaker policy.
type SearchEngine interface {
	Name() string
	Search(ctx context.Context, query string) ([]SearchHit, error)
}

// SearchHit is one result surfaced by a SearchEngine, queued as a reference
// candidate rather than fetched directly, so the budget accounting and dedup
// pass through the same path as citation-chased URLs.
type SearchHit struct {
	URL   string
	Title string
}

// Fetcher is the external action collaborator that retrieves a URL's raw
// content and resolves DOIs to a landing-page URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (contentType string, body []byte, err error)
	ResolveDOI(ctx context.Context, doi string) (url string, err error)
}

// TargetAction executes the target_queue/search_queue job kind: dispatches a
// query to its configured search engines, or fetches a url/doi target and
// persists the resulting page.
type TargetAction struct {
	store    interfaces.Store
	notifier interfaces.Notifier
	logger   *common.Logger
	engines  map[string]SearchEngine
	breakers map[string]*gobreaker.CircuitBreaker
	fetcher  Fetcher
}

// NewTargetAction creates a new TargetAction. breakerCooldown configures how
// long a tripped engine's circuit stays open before a half-open retry.
func NewTargetAction(store interfaces.Store, notifier interfaces.Notifier, logger *common.Logger, engines []SearchEngine, fetcher Fetcher, breakerCooldown time.Duration) *TargetAction {
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(engines))
	enginesByName := make(map[string]SearchEngine, len(engines))
	for _, e := range engines {
		enginesByName[e.Name()] = e
		breakers[e.Name()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    e.Name(),
			Timeout: breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return &TargetAction{store: store, notifier: notifier, logger: logger, engines: enginesByName, breakers: breakers, fetcher: fetcher}
}

func (a *TargetAction) Run(ctx context.Context, job *models.Job) error {
	var t models.Target
	if err := json.Unmarshal([]byte(job.InputJSON), &t); err != nil {
		return fmt.Errorf("failed to decode target payload: %w", err)
	}

	switch t.Kind {
	case models.TargetKindQuery:
		return a.runQuery(ctx, job, t)
	case models.TargetKindURL:
		return a.runFetch(ctx, job, t.URL, t)
	case models.TargetKindDOI:
		url, err := a.fetcher.ResolveDOI(ctx, t.DOI)
		if err != nil {
			return fmt.Errorf("doi resolution failed: %w", err)
		}
		return a.runFetch(ctx, job, url, t)
	default:
		return fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func (a *TargetAction) runQuery(ctx context.Context, job *models.Job, t models.Target) error {
	var lastErr error
	var attempted int
	for name, engine := range a.engines {
		attempted++
		breaker := a.breakers[name]
		result, err := breaker.Execute(func() (any, error) {
			return engine.Search(ctx, t.Query)
		})
		if err != nil {
			lastErr = err
			a.logger.Warn().Str("engine", name).Str("query", t.Query).Err(err).Msg("search engine failed")
			continue
		}

		hits, _ := result.([]SearchHit)
		domains := map[string]bool{}
		for _, hit := range hits {
			domains[hostOf(hit.URL)] = true
			rc := models.ReferenceCandidate{
				Target:       models.Target{Kind: models.TargetKindURL, URL: hit.URL, Priority: t.Priority, Depth: t.Depth + 1, Reason: models.TargetReasonManual},
				SourcePageID: "",
			}
			if _, enqErr := EnqueueReferenceCandidate(ctx, a.store, a.notifier, job.TaskID, rc); enqErr != nil {
				a.logger.Warn().Str("url", hit.URL).Str("error", enqErr.Message).Msg("failed to enqueue search hit")
			}
		}
		if incErr := a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_succeeded": 1}); incErr != nil {
			return incErr
		}
		a.recordSearchOutcome(ctx, job, len(hits), len(domains))
		return nil
	}
	if attempted == 0 {
		return fmt.Errorf("no search engines configured")
	}
	_ = a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_failed": 1})
	a.recordSearchOutcome(ctx, job, 0, 0)
	return fmt.Errorf("all configured search engines failed: %w", lastErr)
}

// recordSearchOutcome classifies a completed query-kind search into one of
// the four status buckets get_status reports, preserving the query text
// recorded when the search was first queued.
func (a *TargetAction) recordSearchOutcome(ctx context.Context, job *models.Job, hits, independentSources int) {
	status := models.SearchStatusExhausted
	harvest := 0.0
	if hits > 0 {
		status = models.SearchStatusSatisfied
		harvest = 1.0
	} else if independentSources > 0 {
		status = models.SearchStatusPartial
	}
	search := &models.SearchSubState{
		SearchID:           job.DedupKey,
		Status:             status,
		IndependentSources: independentSources,
		HarvestRate:        harvest,
	}
	if existing, err := a.store.Exploration().Get(ctx, job.TaskID); err == nil && existing != nil {
		if prior, ok := existing.Searches[job.DedupKey]; ok {
			search.Query = prior.Query
			search.PrimarySource = prior.PrimarySource
		}
	}
	if err := a.store.Exploration().UpsertSearch(ctx, job.TaskID, search); err != nil {
		a.logger.Warn().Str("search_id", job.DedupKey).Err(err).Msg("failed to record search outcome")
	}
}

func (a *TargetAction) runFetch(ctx context.Context, job *models.Job, url string, t models.Target) error {
	blocked, err := a.store.Feedback().IsBlocked(ctx, hostOf(url))
	if err != nil {
		return fmt.Errorf("failed to check domain block: %w", err)
	}
	if blocked {
		_ = a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_failed": 1})
		return fmt.Errorf("domain %q is blocked by feedback policy", hostOf(url))
	}

	key := mcptargets.DedupKey(job.TaskID, models.Target{Kind: models.TargetKindURL, URL: url})
	if existing, lookupErr := a.store.ResourceIndex().Lookup(ctx, key); lookupErr == nil && existing != nil {
		_ = a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_succeeded": 1})
		return nil
	}

	contentType, body, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		_ = a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_failed": 1})
		return fmt.Errorf("fetch failed: %w", err)
	}

	text, err := ExtractText(contentType, body)
	if err != nil {
		_ = a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_failed": 1})
		return fmt.Errorf("text extraction failed: %w", err)
	}

	page := &models.Page{
		TaskID:      job.TaskID,
		URL:         url,
		DOI:         t.DOI,
		ContentHash: ContentHash(body),
		SourceDepth: t.Depth,
	}
	if err := a.store.Materials().SavePage(ctx, page); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	if err := a.store.ResourceIndex().Upsert(ctx, &models.ResourceIndexEntry{Key: key, PageID: page.ID, ContentHash: page.ContentHash}); err != nil {
		a.logger.Warn().Err(err).Msg("failed to upsert resource index")
	}

	fragment := &models.Fragment{PageID: page.ID, TaskID: job.TaskID, Text: text}
	if err := a.store.Materials().SaveFragment(ctx, fragment); err != nil {
		return fmt.Errorf("failed to save fragment: %w", err)
	}

	if err := a.store.Tasks().IncrementPagesFetched(ctx, job.TaskID, 1); err != nil {
		return fmt.Errorf("failed to increment pages fetched: %w", err)
	}
	if err := a.store.Exploration().IncrementCounters(ctx, job.TaskID, map[string]int{"targets_succeeded": 1, "pages_fetched": 1, "fragments_found": 1}); err != nil {
		return err
	}

	extractJob := &models.Job{
		TaskID:    job.TaskID,
		Kind:      models.JobKindComputeClaims,
		DedupKey:  fmt.Sprintf("%s|compute_claims|%s", job.TaskID, fragment.ID),
		InputJSON: fragment.ID,
		Priority:  models.PriorityForLabel("medium"),
	}
	if _, err := a.store.Jobs().EnqueueDeduped(ctx, extractJob); err != nil {
		a.logger.Warn().Err(err).Msg("failed to enqueue claim extraction job")
	} else {
		a.notifier.Notify(job.TaskID)
	}

	return nil
}
