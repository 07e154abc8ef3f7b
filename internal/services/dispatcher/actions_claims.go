package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/models"
)

// ClaimAction executes the compute_claims job kind: extracts candidate
// claims from a fragment's text via the Gemini claim-extraction model, tags
// each claim with the active calibration version (or "uncalibrated"), and
// marks claims below a fixed 0.5 confidence as rejected.
type ClaimAction struct {
	store         interfaces.Store
	notifier      interfaces.Notifier
	logger        *common.Logger
	extractor     interfaces.ClaimExtractor
	minConfidence float64
}

// NewClaimAction creates a new ClaimAction.
func NewClaimAction(store interfaces.Store, notifier interfaces.Notifier, logger *common.Logger, extractor interfaces.ClaimExtractor) *ClaimAction {
	return &ClaimAction{store: store, notifier: notifier, logger: logger, extractor: extractor, minConfidence: 0.5}
}

func (a *ClaimAction) Run(ctx context.Context, job *models.Job) error {
	fragmentID := job.InputJSON

	calibration, err := a.store.Calibration().Active(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active calibration: %w", err)
	}
	calibrationTag := "uncalibrated"
	if calibration != nil {
		calibrationTag = calibration.Tag
	}

	texts, err := a.fragmentText(ctx, job.TaskID, fragmentID)
	if err != nil {
		return err
	}
	if texts == "" {
		return nil
	}

	candidates, err := a.extractClaims(ctx, texts)
	if err != nil {
		return fmt.Errorf("claim extraction failed: %w", err)
	}

	extracted, rejected := 0, 0
	for _, c := range candidates {
		claim := &models.Claim{
			TaskID:         job.TaskID,
			FragmentID:     fragmentID,
			Text:           c.text,
			Confidence:     c.confidence,
			CalibrationTag: calibrationTag,
		}
		if c.confidence < a.minConfidence {
			claim.Rejected = true
			claim.RejectedReason = "below_calibration_threshold"
			rejected++
		} else {
			extracted++
		}
		if err := a.store.Materials().SaveClaim(ctx, claim); err != nil {
			return fmt.Errorf("failed to save claim: %w", err)
		}
	}

	deltas := map[string]int{}
	if extracted > 0 {
		deltas["claims_extracted"] = extracted
	}
	if rejected > 0 {
		deltas["claims_rejected"] = rejected
	}
	if len(deltas) > 0 {
		if err := a.store.Exploration().IncrementCounters(ctx, job.TaskID, deltas); err != nil {
			return err
		}
	}
	return nil
}

func (a *ClaimAction) fragmentText(ctx context.Context, taskID, fragmentID string) (string, error) {
	fragment, err := a.store.Materials().GetFragment(ctx, fragmentID)
	if err != nil {
		return "", fmt.Errorf("failed to load fragment %q: %w", fragmentID, err)
	}
	if fragment == nil {
		return "", nil
	}
	return fragment.Text, nil
}

type claimCandidate struct {
	text       string
	confidence float64
}

// extractClaims calls the Gemini model to pull out discrete factual
// assertions from a block of text, one per line of its response, each
// prefixed with a 0.0-1.0 confidence score.
func (a *ClaimAction) extractClaims(ctx context.Context, text string) ([]claimCandidate, error) {
	if a.extractor == nil {
		return nil, fmt.Errorf("claim extraction model is not configured")
	}

	prompt := "Extract the discrete factual claims from the following text. " +
		"Respond with one claim per line, formatted as \"<confidence 0-1> | <claim text>\".\n\n" + text

	respText, err := a.extractor.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var out []claimCandidate
	for _, line := range strings.Split(respText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		var confidence float64
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%f", &confidence); err != nil {
			confidence = 0.5
		}
		out = append(out, claimCandidate{text: strings.TrimSpace(parts[1]), confidence: confidence})
	}
	return out, nil
}
