package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcptargets"
	"github.com/bobmcallan/lancet/internal/models"
)

// ReferenceAction executes the reference_queue job kind: fetches a
// citation-chased candidate and records the citing edge between the source
// page and the new page.
type ReferenceAction struct {
	store    interfaces.Store
	notifier interfaces.Notifier
	logger   *common.Logger
	target   *TargetAction
}

// NewReferenceAction creates a new ReferenceAction, delegating the actual
// fetch/extract work to the shared TargetAction fetch path.
func NewReferenceAction(store interfaces.Store, notifier interfaces.Notifier, logger *common.Logger, target *TargetAction) *ReferenceAction {
	return &ReferenceAction{store: store, notifier: notifier, logger: logger, target: target}
}

func (a *ReferenceAction) Run(ctx context.Context, job *models.Job) error {
	var rc models.ReferenceCandidate
	if err := json.Unmarshal([]byte(job.InputJSON), &rc); err != nil {
		return fmt.Errorf("failed to decode reference candidate payload: %w", err)
	}

	url := rc.Target.URL
	if rc.Target.Kind == models.TargetKindDOI {
		resolved, err := a.target.fetcher.ResolveDOI(ctx, rc.Target.DOI)
		if err != nil {
			return fmt.Errorf("doi resolution failed: %w", err)
		}
		url = resolved
	}

	key := mcptargets.DedupKey(job.TaskID, models.Target{Kind: models.TargetKindURL, URL: url})
	beforeEntry, _ := a.store.ResourceIndex().Lookup(ctx, key)

	if err := a.target.runFetch(ctx, job, url, rc.Target); err != nil {
		return err
	}

	if rc.SourcePageID != "" && beforeEntry == nil {
		afterEntry, err := a.store.ResourceIndex().Lookup(ctx, key)
		if err == nil && afterEntry != nil {
			edge := &models.Edge{TaskID: job.TaskID, FromPageID: rc.SourcePageID, ToPageID: afterEntry.PageID, Relationship: "cites"}
			if err := a.store.Materials().SaveEdge(ctx, edge); err != nil {
				a.logger.Warn().Err(err).Msg("failed to save citation edge")
			}
		}
	}

	return nil
}
