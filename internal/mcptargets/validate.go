// Package mcptargets validates and normalizes the Target tagged union
// submitted to queue_targets / queue_reference_candidates, and computes the
// dedup key the job queue uses to reject duplicate in-flight targets.
package mcptargets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/models"
)

var doiPattern = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

var validReasons = map[string]bool{
	models.TargetReasonCitationChase: true,
	models.TargetReasonManual:        true,
}

// Validate checks one target descriptor and normalizes its fields (priority
// default, url/doi trimming). Returns an INVALID_PARAMS mcperr.Error on failure.
func Validate(t *models.Target) *mcperr.Error {
	if t.Priority == "" {
		t.Priority = "medium"
	}
	switch t.Priority {
	case "high", "medium", "low":
	default:
		return mcperr.InvalidParamsf("target priority must be one of high|medium|low, got %q", t.Priority)
	}

	switch t.Kind {
	case models.TargetKindQuery:
		return validateQuery(t)
	case models.TargetKindURL:
		return validateURL(t)
	case models.TargetKindDOI:
		return validateDOI(t)
	default:
		return mcperr.InvalidParamsf("target kind must be one of query|url|doi, got %q", t.Kind)
	}
}

func validateQuery(t *models.Target) *mcperr.Error {
	t.Query = strings.TrimSpace(t.Query)
	if t.Query == "" {
		return mcperr.InvalidParamsf("query target requires a non-empty query string")
	}
	return nil
}

func validateURL(t *models.Target) *mcperr.Error {
	t.URL = strings.TrimSpace(t.URL)
	if t.URL == "" {
		return mcperr.InvalidParamsf("url target requires a non-empty url")
	}
	parsed, err := url.Parse(t.URL)
	if err != nil {
		return mcperr.InvalidParamsf("url target has an unparseable url: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return mcperr.InvalidParamsf("url target scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return mcperr.InvalidParamsf("url target must include a host")
	}
	if t.Depth < 0 {
		return mcperr.InvalidParamsf("url target depth must be >= 0, got %d", t.Depth)
	}
	if t.Reason == "" {
		t.Reason = models.TargetReasonManual
	}
	if !validReasons[t.Reason] {
		return mcperr.InvalidParamsf("url target reason must be one of citation_chase|manual, got %q", t.Reason)
	}
	return nil
}

func validateDOI(t *models.Target) *mcperr.Error {
	t.DOI = strings.TrimSpace(t.DOI)
	if !doiPattern.MatchString(t.DOI) {
		return mcperr.InvalidParamsf("doi target must match ^10\\.\\d{4,}/\\S+$, got %q", t.DOI)
	}
	if t.Depth < 0 {
		return mcperr.InvalidParamsf("doi target depth must be >= 0, got %d", t.Depth)
	}
	if t.Reason == "" {
		t.Reason = models.TargetReasonManual
	}
	if !validReasons[t.Reason] {
		return mcperr.InvalidParamsf("doi target reason must be one of citation_chase|manual, got %q", t.Reason)
	}
	return nil
}

// IDPrefix returns the operator-facing job ID prefix for a target kind.
func IDPrefix(kind string) string {
	switch kind {
	case models.TargetKindQuery:
		return "tq_"
	case models.TargetKindURL:
		return "tu_"
	case models.TargetKindDOI:
		return "td_"
	default:
		return "t_"
	}
}

// DedupKey computes the (task_id, kind, normalized_field) key used by the
// job queue to skip a target that is already queued or running for this task.
func DedupKey(taskID string, t models.Target) string {
	var field string
	switch t.Kind {
	case models.TargetKindQuery:
		field = strings.ToLower(strings.TrimSpace(t.Query))
	case models.TargetKindURL:
		field = normalizeURL(t.URL)
	case models.TargetKindDOI:
		field = strings.ToLower(t.DOI)
	}
	return fmt.Sprintf("%s|%s|%s", taskID, t.Kind, field)
}

// normalizeURL lowercases scheme+host, strips a trailing slash and fragment,
// matching the normalization the original fetch pipeline applies before
// writing to resource_index.
func normalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	s := parsed.String()
	return strings.TrimSuffix(s, "/")
}
