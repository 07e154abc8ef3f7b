package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/google/uuid"
)

// FakeStore is an in-memory interfaces.Store for unit tests that don't need
// a live SurrealDB instance. It is not safe for use across goroutines beyond
// what its internal mutex protects at the method-call granularity.
type FakeStore struct {
	mu sync.Mutex

	tasks        map[string]*models.Task
	jobs         map[string]*models.Job
	exploration  map[string]*models.ExplorationState
	pages        map[string]*models.Page
	fragments    map[string]*models.Fragment
	claims       map[string]*models.Claim
	edges        map[string]*models.Edge
	calibrations map[string]*models.CalibrationVersion
	interventions map[string]*models.InterventionQueueItem
	domainRules  map[string]*models.DomainRule
	resourceIdx  map[string]*models.ResourceIndexEntry
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		tasks:         map[string]*models.Task{},
		jobs:          map[string]*models.Job{},
		exploration:   map[string]*models.ExplorationState{},
		pages:         map[string]*models.Page{},
		fragments:     map[string]*models.Fragment{},
		claims:        map[string]*models.Claim{},
		edges:         map[string]*models.Edge{},
		calibrations:  map[string]*models.CalibrationVersion{},
		interventions: map[string]*models.InterventionQueueItem{},
		domainRules:   map[string]*models.DomainRule{},
		resourceIdx:   map[string]*models.ResourceIndexEntry{},
	}
}

func (f *FakeStore) Tasks() interfaces.TaskStore             { return fakeTaskStore{f} }
func (f *FakeStore) Jobs() interfaces.JobQueueStore           { return fakeJobStore{f} }
func (f *FakeStore) Exploration() interfaces.ExplorationStore { return fakeExplorationStore{f} }
func (f *FakeStore) Materials() interfaces.MaterialStore      { return fakeMaterialStore{f} }
func (f *FakeStore) Calibration() interfaces.CalibrationStore { return fakeCalibrationStore{f} }
func (f *FakeStore) Intervention() interfaces.InterventionStore {
	return fakeInterventionStore{f}
}
func (f *FakeStore) Feedback() interfaces.FeedbackStore           { return fakeFeedbackStore{f} }
func (f *FakeStore) ResourceIndex() interfaces.ResourceIndexStore { return fakeResourceIndexStore{f} }
func (f *FakeStore) WriteRaw(_, _ string, _ []byte) error         { return nil }
func (f *FakeStore) Close() error                                 { return nil }

var _ interfaces.Store = (*FakeStore)(nil)

// --- tasks ---

type fakeTaskStore struct{ f *FakeStore }

func (s fakeTaskStore) Create(_ context.Context, t *models.Task) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if t.ID == "" {
		t.ID = "task_" + uuid.New().String()[:12]
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt, t.LastActivityAt = now, now, now
	cp := *t
	s.f.tasks[t.ID] = &cp
	return nil
}

func (s fakeTaskStore) Get(_ context.Context, id string) (*models.Task, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	t, ok := s.f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s fakeTaskStore) Update(_ context.Context, t *models.Task) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if _, ok := s.f.tasks[t.ID]; !ok {
		return fmt.Errorf("task %q not found", t.ID)
	}
	t.UpdatedAt = time.Now()
	cp := *t
	s.f.tasks[t.ID] = &cp
	return nil
}

func (s fakeTaskStore) CompareAndTransition(_ context.Context, id, from, to string) (bool, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	t, ok := s.f.tasks[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	return true, nil
}

func (s fakeTaskStore) IncrementPagesFetched(_ context.Context, id string, delta int) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	t, ok := s.f.tasks[id]
	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	t.PagesFetched += delta
	t.LastActivityAt = time.Now()
	return nil
}

func (s fakeTaskStore) TouchActivity(_ context.Context, id string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	t, ok := s.f.tasks[id]
	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	t.LastActivityAt = time.Now()
	return nil
}

func (s fakeTaskStore) List(_ context.Context, limit int) ([]*models.Task, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Task
	for _, t := range s.f.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- jobs ---

type fakeJobStore struct{ f *FakeStore }

func (s fakeJobStore) Enqueue(_ context.Context, job *models.Job) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.New().String()[:12]
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = 3
	}
	cp := *job
	s.f.jobs[job.ID] = &cp
	return nil
}

func (s fakeJobStore) EnqueueDeduped(ctx context.Context, job *models.Job) (bool, error) {
	s.f.mu.Lock()
	for _, existing := range s.f.jobs {
		if existing.DedupKey == job.DedupKey && (existing.Status == models.JobStatusPending || existing.Status == models.JobStatusRunning) {
			s.f.mu.Unlock()
			return false, nil
		}
	}
	s.f.mu.Unlock()
	if err := s.Enqueue(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

func (s fakeJobStore) FetchNext(_ context.Context, slots []string) (*models.Job, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	allowed := map[string]bool{}
	for _, k := range slots {
		allowed[k] = true
	}
	var best *models.Job
	for _, j := range s.f.jobs {
		if j.Status != models.JobStatusPending {
			continue
		}
		if len(allowed) > 0 && !allowed[j.Kind] {
			continue
		}
		if best == nil || j.Priority < best.Priority || (j.Priority == best.Priority && j.CreatedAt.Before(best.CreatedAt)) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = models.JobStatusRunning
	best.StartedAt = time.Now()
	best.Attempts++
	cp := *best
	return &cp, nil
}

func (s fakeJobStore) Complete(_ context.Context, id string, jobErr error, durationMS int64) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	j, ok := s.f.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	j.CompletedAt = time.Now()
	j.DurationMS = durationMS
	if jobErr != nil {
		j.Status = models.JobStatusFailed
		j.Error = jobErr.Error()
	} else {
		j.Status = models.JobStatusCompleted
	}
	return nil
}

func (s fakeJobStore) Cancel(_ context.Context, id string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	j, ok := s.f.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	if j.Status == models.JobStatusPending || j.Status == models.JobStatusRunning {
		j.Status = models.JobStatusCancelled
	}
	return nil
}

func (s fakeJobStore) CancelByTask(_ context.Context, taskID string) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	n := 0
	for _, j := range s.f.jobs {
		if j.TaskID == taskID && (j.Status == models.JobStatusPending || j.Status == models.JobStatusRunning) {
			j.Status = models.JobStatusCancelled
			n++
		}
	}
	return n, nil
}

func (s fakeJobStore) CancelPendingByTask(_ context.Context, taskID string) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	n := 0
	for _, j := range s.f.jobs {
		if j.TaskID == taskID && j.Status == models.JobStatusPending {
			j.Status = models.JobStatusCancelled
			n++
		}
	}
	return n, nil
}

func (s fakeJobStore) CountPendingByTask(_ context.Context, taskID string) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	n := 0
	for _, j := range s.f.jobs {
		if j.TaskID == taskID && (j.Status == models.JobStatusPending || j.Status == models.JobStatusRunning) {
			n++
		}
	}
	return n, nil
}

func (s fakeJobStore) ListByTask(_ context.Context, taskID string, limit int) ([]*models.Job, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Job
	for _, j := range s.f.jobs {
		if j.TaskID == taskID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s fakeJobStore) ResetRunningJobs(_ context.Context) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	n := 0
	for _, j := range s.f.jobs {
		if j.Status == models.JobStatusRunning {
			j.Status = models.JobStatusPending
			n++
		}
	}
	return n, nil
}

func (s fakeJobStore) PurgeCompleted(_ context.Context, olderThan time.Time) (int, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	n := 0
	for id, j := range s.f.jobs {
		terminal := j.Status == models.JobStatusCompleted || j.Status == models.JobStatusFailed || j.Status == models.JobStatusCancelled
		if terminal && j.CompletedAt.Before(olderThan) {
			delete(s.f.jobs, id)
			n++
		}
	}
	return n, nil
}

// --- exploration ---

type fakeExplorationStore struct{ f *FakeStore }

func (s fakeExplorationStore) Get(_ context.Context, taskID string) (*models.ExplorationState, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	e, ok := s.f.exploration[taskID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s fakeExplorationStore) Upsert(_ context.Context, state *models.ExplorationState) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	state.LastUpdatedAt = time.Now()
	cp := *state
	s.f.exploration[state.TaskID] = &cp
	return nil
}

func (s fakeExplorationStore) IncrementCounters(ctx context.Context, taskID string, deltas map[string]int) error {
	existing, _ := s.Get(ctx, taskID)
	if existing == nil {
		existing = &models.ExplorationState{TaskID: taskID}
	}
	for field, delta := range deltas {
		switch field {
		case "targets_queued":
			existing.TargetsQueued += delta
		case "targets_running":
			existing.TargetsRunning += delta
		case "targets_succeeded":
			existing.TargetsSucceeded += delta
		case "targets_failed":
			existing.TargetsFailed += delta
		case "pages_fetched":
			existing.PagesFetched += delta
		case "fragments_found":
			existing.FragmentsFound += delta
		case "claims_extracted":
			existing.ClaimsExtracted += delta
		case "claims_rejected":
			existing.ClaimsRejected += delta
		}
	}
	return s.Upsert(ctx, existing)
}

func (s fakeExplorationStore) UpsertSearch(ctx context.Context, taskID string, search *models.SearchSubState) error {
	existing, _ := s.Get(ctx, taskID)
	if existing == nil {
		existing = &models.ExplorationState{TaskID: taskID}
	}
	searches := make(map[string]*models.SearchSubState, len(existing.Searches)+1)
	for k, v := range existing.Searches {
		searches[k] = v
	}
	searches[search.SearchID] = search
	existing.Searches = searches
	return s.Upsert(ctx, existing)
}

// --- materials ---

type fakeMaterialStore struct{ f *FakeStore }

func (s fakeMaterialStore) SavePage(_ context.Context, p *models.Page) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()[:12]
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now()
	}
	cp := *p
	s.f.pages[p.ID] = &cp
	return nil
}

func (s fakeMaterialStore) SaveFragment(_ context.Context, fr *models.Fragment) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if fr.ID == "" {
		fr.ID = uuid.New().String()[:12]
	}
	cp := *fr
	s.f.fragments[fr.ID] = &cp
	return nil
}

func (s fakeMaterialStore) GetFragment(_ context.Context, id string) (*models.Fragment, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	fr, ok := s.f.fragments[id]
	if !ok {
		return nil, nil
	}
	cp := *fr
	return &cp, nil
}

func (s fakeMaterialStore) ListFragments(_ context.Context, taskID string) ([]*models.Fragment, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Fragment
	for _, fr := range s.f.fragments {
		if fr.TaskID == taskID {
			cp := *fr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s fakeMaterialStore) SaveClaim(_ context.Context, c *models.Claim) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()[:12]
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c
	s.f.claims[c.ID] = &cp
	return nil
}

func (s fakeMaterialStore) SaveEdge(_ context.Context, e *models.Edge) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()[:12]
	}
	cp := *e
	s.f.edges[e.ID] = &cp
	return nil
}

func (s fakeMaterialStore) RejectClaim(_ context.Context, claimID, reason string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	c, ok := s.f.claims[claimID]
	if !ok {
		return fmt.Errorf("claim %q not found", claimID)
	}
	c.Rejected = true
	c.RejectedReason = reason
	return nil
}

func (s fakeMaterialStore) RestoreClaim(_ context.Context, claimID string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	c, ok := s.f.claims[claimID]
	if !ok {
		return fmt.Errorf("claim %q not found", claimID)
	}
	c.Rejected = false
	c.RejectedReason = ""
	return nil
}

func (s fakeMaterialStore) ListPages(_ context.Context, taskID string) ([]*models.Page, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Page
	for _, p := range s.f.pages {
		if p.TaskID == taskID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return out, nil
}

func (s fakeMaterialStore) ListClaims(_ context.Context, taskID string, includeRejected bool) ([]*models.Claim, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Claim
	for _, c := range s.f.claims {
		if taskID != "" && c.TaskID != taskID {
			continue
		}
		if !includeRejected && c.Rejected {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s fakeMaterialStore) ListEdges(_ context.Context, taskID string) ([]*models.Edge, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.Edge
	for _, e := range s.f.edges {
		if e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- calibration ---

type fakeCalibrationStore struct{ f *FakeStore }

func (s fakeCalibrationStore) Active(_ context.Context) (*models.CalibrationVersion, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	for _, v := range s.f.calibrations {
		if v.Active {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s fakeCalibrationStore) Get(_ context.Context, tag string) (*models.CalibrationVersion, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	v, ok := s.f.calibrations[tag]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (s fakeCalibrationStore) List(_ context.Context) ([]*models.CalibrationVersion, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.CalibrationVersion
	for _, v := range s.f.calibrations {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s fakeCalibrationStore) Save(_ context.Context, v *models.CalibrationVersion) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	s.f.calibrations[v.Tag] = &cp
	return nil
}

func (s fakeCalibrationStore) SetActive(_ context.Context, tag string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if _, ok := s.f.calibrations[tag]; !ok {
		return fmt.Errorf("calibration version %q not found", tag)
	}
	for _, v := range s.f.calibrations {
		v.Active = false
	}
	s.f.calibrations[tag].Active = true
	return nil
}

// --- intervention ---

type fakeInterventionStore struct{ f *FakeStore }

func (s fakeInterventionStore) Create(_ context.Context, item *models.InterventionQueueItem) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()[:12]
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	cp := *item
	s.f.interventions[item.ID] = &cp
	return nil
}

func (s fakeInterventionStore) ListPending(_ context.Context, taskID string) ([]*models.InterventionQueueItem, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.InterventionQueueItem
	for _, it := range s.f.interventions {
		if it.Resolved {
			continue
		}
		if taskID != "" && it.TaskID != taskID {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s fakeInterventionStore) Resolve(_ context.Context, id, resolution string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	it, ok := s.f.interventions[id]
	if !ok {
		return fmt.Errorf("intervention item %q not found", id)
	}
	it.Resolved = true
	it.Resolution = resolution
	it.ResolvedAt = time.Now()
	return nil
}

func (s fakeInterventionStore) Get(_ context.Context, id string) (*models.InterventionQueueItem, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	it, ok := s.f.interventions[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

// --- feedback ---

type fakeFeedbackStore struct{ f *FakeStore }

func (s fakeFeedbackStore) BlockDomain(_ context.Context, domain, reason string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.domainRules[domain] = &models.DomainRule{Domain: domain, Blocked: true, Reason: reason, UpdatedAt: time.Now()}
	return nil
}

func (s fakeFeedbackStore) UnblockDomain(_ context.Context, domain string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.domainRules[domain] = &models.DomainRule{Domain: domain, Blocked: false, UpdatedAt: time.Now()}
	return nil
}

func (s fakeFeedbackStore) ClearOverride(_ context.Context, domain string) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.domainRules, domain)
	return nil
}

func (s fakeFeedbackStore) IsBlocked(_ context.Context, domain string) (bool, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	r, ok := s.f.domainRules[domain]
	return ok && r.Blocked, nil
}

func (s fakeFeedbackStore) ListRules(_ context.Context) ([]*models.DomainRule, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	var out []*models.DomainRule
	for _, r := range s.f.domainRules {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s fakeFeedbackStore) LogEdgeCorrection(_ context.Context, taskID, edgeID, correction string) error {
	return nil
}

// --- resource index ---

type fakeResourceIndexStore struct{ f *FakeStore }

func (s fakeResourceIndexStore) Lookup(_ context.Context, key string) (*models.ResourceIndexEntry, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	e, ok := s.f.resourceIdx[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s fakeResourceIndexStore) Upsert(_ context.Context, entry *models.ResourceIndexEntry) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	entry.UpdatedAt = time.Now()
	cp := *entry
	s.f.resourceIdx[entry.Key] = &cp
	return nil
}
