// Package feedback implements the FeedbackHandler: the six corrective
// actions an operator or calling agent can take against the pipeline's
// accumulated state — domain blocking, claim rejection review, and
// citation-edge correction.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/mcperr"
)

// Action names accepted by Handler.Apply.
const (
	ActionDomainBlock         = "domain_block"
	ActionDomainUnblock       = "domain_unblock"
	ActionDomainClearOverride = "domain_clear_override"
	ActionClaimReject         = "claim_reject"
	ActionClaimRestore        = "claim_restore"
	ActionEdgeCorrect         = "edge_correct"
)

// forbiddenDomainPatterns can never be blocked even by an explicit
// domain_block request: blocking a bare wildcard or a public suffix would
// silently starve the whole pipeline instead of one bad source.
var forbiddenDomainPatterns = map[string]bool{
	"*": true, "**": true,
	"*.com": true, "*.co.jp": true, "*.org": true, "*.net": true, "*.gov": true, "*.edu": true,
}

// Handler applies the six feedback actions against the durable store.
type Handler struct {
	store  interfaces.Store
	logger *common.Logger
}

// NewHandler creates a new feedback Handler.
func NewHandler(store interfaces.Store, logger *common.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Apply dispatches one feedback action by name.
func (h *Handler) Apply(ctx context.Context, action string, params map[string]any) *mcperr.Error {
	switch action {
	case ActionDomainBlock:
		return h.domainBlock(ctx, params)
	case ActionDomainUnblock:
		return h.domainUnblock(ctx, params)
	case ActionDomainClearOverride:
		return h.clearOverride(ctx, params)
	case ActionClaimReject:
		return h.claimReject(ctx, params)
	case ActionClaimRestore:
		return h.claimRestore(ctx, params)
	case ActionEdgeCorrect:
		return h.edgeCorrect(ctx, params)
	default:
		return mcperr.InvalidParamsf("unknown feedback action %q", action)
	}
}

func (h *Handler) domainBlock(ctx context.Context, params map[string]any) *mcperr.Error {
	domain, ok := stringParam(params, "domain")
	if !ok {
		return mcperr.InvalidParamsf("domain_block requires a non-empty domain")
	}
	if isForbiddenDomain(domain) {
		return mcperr.InvalidParamsf("domain %q matches a forbidden pattern and cannot be blocked", domain)
	}
	reason, _ := stringParam(params, "reason")
	if err := h.store.Feedback().BlockDomain(ctx, normalizeDomain(domain), reason); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to block domain: %w", err))
	}
	return nil
}

func (h *Handler) domainUnblock(ctx context.Context, params map[string]any) *mcperr.Error {
	domain, ok := stringParam(params, "domain")
	if !ok {
		return mcperr.InvalidParamsf("domain_unblock requires a non-empty domain")
	}
	if err := h.store.Feedback().UnblockDomain(ctx, normalizeDomain(domain)); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to unblock domain: %w", err))
	}
	return nil
}

func (h *Handler) clearOverride(ctx context.Context, params map[string]any) *mcperr.Error {
	domain, ok := stringParam(params, "domain")
	if !ok {
		return mcperr.InvalidParamsf("domain_clear_override requires a non-empty domain")
	}
	if err := h.store.Feedback().ClearOverride(ctx, normalizeDomain(domain)); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to clear domain override: %w", err))
	}
	return nil
}

func (h *Handler) claimReject(ctx context.Context, params map[string]any) *mcperr.Error {
	claimID, ok := stringParam(params, "claim_id")
	if !ok {
		return mcperr.InvalidParamsf("claim_reject requires a non-empty claim_id")
	}
	reason, _ := stringParam(params, "reason")
	if err := h.store.Materials().RejectClaim(ctx, claimID, reason); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to reject claim: %w", err))
	}
	return nil
}

func (h *Handler) claimRestore(ctx context.Context, params map[string]any) *mcperr.Error {
	claimID, ok := stringParam(params, "claim_id")
	if !ok {
		return mcperr.InvalidParamsf("claim_restore requires a non-empty claim_id")
	}
	if err := h.store.Materials().RestoreClaim(ctx, claimID); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to restore claim: %w", err))
	}
	return nil
}

func (h *Handler) edgeCorrect(ctx context.Context, params map[string]any) *mcperr.Error {
	taskID, ok := stringParam(params, "task_id")
	if !ok {
		return mcperr.InvalidParamsf("edge_correct requires a non-empty task_id")
	}
	edgeID, ok := stringParam(params, "edge_id")
	if !ok {
		return mcperr.InvalidParamsf("edge_correct requires a non-empty edge_id")
	}
	correction, ok := stringParam(params, "correction")
	if !ok {
		return mcperr.InvalidParamsf("edge_correct requires a non-empty correction")
	}
	if err := h.store.Feedback().LogEdgeCorrection(ctx, taskID, edgeID, correction); err != nil {
		return mcperr.InternalErr(fmt.Errorf("failed to log edge correction: %w", err))
	}
	return nil
}

func isForbiddenDomain(domain string) bool {
	return forbiddenDomainPatterns[normalizeDomain(domain)]
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
