package mcptargets

import (
	"github.com/bobmcallan/lancet/internal/mcperr"
)

var validSerpEngines = map[string]bool{"google": true, "bing": true, "duckduckgo": true}
var validAcademicAPIs = map[string]bool{"semantic_scholar": true, "openalex": true}

// QueueOptions holds queue_targets' optional engine/API restriction lists,
// recovered from the original source's options handling (dropped by the
// distilled spec, not excluded by any Non-goal).
type QueueOptions struct {
	SerpEngines  []string `json:"serp_engines,omitempty"`
	AcademicAPIs []string `json:"academic_apis,omitempty"`
}

// ValidateOptions checks that any provided engine/API restriction names are
// drawn from the configured set.
func ValidateOptions(o QueueOptions) *mcperr.Error {
	if len(o.SerpEngines) == 0 && len(o.AcademicAPIs) == 0 {
		return nil
	}
	for _, e := range o.SerpEngines {
		if !validSerpEngines[e] {
			return mcperr.InvalidParamsf("unknown serp engine %q", e)
		}
	}
	for _, a := range o.AcademicAPIs {
		if !validAcademicAPIs[a] {
			return mcperr.InvalidParamsf("unknown academic api %q", a)
		}
	}
	return nil
}
