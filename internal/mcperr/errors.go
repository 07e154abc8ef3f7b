// Package mcperr implements the tool-boundary error taxonomy: a fixed set of
// machine-readable codes, a structured envelope, and correlation IDs for
// cross-referencing log lines with a specific failed call.
package mcperr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Code is one of the fourteen error codes an agent can receive from a tool call.
type Code string

const (
	InvalidParams       Code = "INVALID_PARAMS"
	TaskNotFound        Code = "TASK_NOT_FOUND"
	BudgetExhausted     Code = "BUDGET_EXHAUSTED"
	AuthRequired        Code = "AUTH_REQUIRED"
	AllEnginesBlocked   Code = "ALL_ENGINES_BLOCKED"
	ChromeNotReady      Code = "CHROME_NOT_READY"
	PipelineError       Code = "PIPELINE_ERROR"
	CalibrationError    Code = "CALIBRATION_ERROR"
	Timeout             Code = "TIMEOUT"
	PipelineTimeout     Code = "PIPELINE_TIMEOUT"
	ParserNotAvailable  Code = "PARSER_NOT_AVAILABLE"
	SerpSearchFailed    Code = "SERP_SEARCH_FAILED"
	AllFetchesFailed    Code = "ALL_FETCHES_FAILED"
	Internal            Code = "INTERNAL_ERROR"
)

// Error is the single structured error type that crosses the tool boundary.
// Every non-INVALID_PARAMS error carries an ErrorID so an operator can grep
// the log for the matching entry (see common.Logger.WithCorrelationId).
type Error struct {
	Code    Code           `json:"error_code"`
	Message string         `json:"error"`
	ErrorID string         `json:"error_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewErrorID generates a correlation ID in the form err_ + 12 hex chars.
func NewErrorID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "err_000000000000"
	}
	return "err_" + hex.EncodeToString(b)
}

// New builds an Error, attaching a fresh correlation ID for every code except
// INVALID_PARAMS (client mistakes need no server-side log correlation).
func New(code Code, message string, details map[string]any) *Error {
	e := &Error{Code: code, Message: message, Details: details}
	if code != InvalidParams {
		e.ErrorID = NewErrorID()
	}
	return e
}

// Envelope returns the {ok:false,...} map the tool boundary serializes.
func (e *Error) Envelope() map[string]any {
	env := map[string]any{
		"ok":         false,
		"error_code": string(e.Code),
		"error":      e.Message,
	}
	if e.ErrorID != "" {
		env["error_id"] = e.ErrorID
	}
	if len(e.Details) > 0 {
		env["details"] = e.Details
	}
	return env
}

// Constructors mirroring the original exception hierarchy's per-code detail shape.

func InvalidParamsf(format string, args ...any) *Error {
	return New(InvalidParams, fmt.Sprintf(format, args...), nil)
}

func TaskNotFoundErr(taskID string) *Error {
	return New(TaskNotFound, fmt.Sprintf("task %q not found", taskID), map[string]any{"task_id": taskID})
}

func BudgetExhaustedErr(taskID string, budget, fetched int) *Error {
	return New(BudgetExhausted, fmt.Sprintf("task %q has exhausted its page budget", taskID), map[string]any{
		"task_id": taskID, "budget_pages": budget, "pages_fetched": fetched,
	})
}

func AuthRequiredErr(domain string, itemID string) *Error {
	return New(AuthRequired, fmt.Sprintf("domain %q requires human authentication", domain), map[string]any{
		"domain": domain, "intervention_id": itemID,
	})
}

func AllEnginesBlockedErr(engines []string) *Error {
	return New(AllEnginesBlocked, "all configured search engines are in cooldown", map[string]any{"engines": engines})
}

func ChromeNotReadyErr(reason string) *Error {
	return New(ChromeNotReady, "browser automation backend is not ready: "+reason, nil)
}

func PipelineErrorErr(stage string, cause error) *Error {
	details := map[string]any{"stage": stage}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return New(PipelineError, fmt.Sprintf("pipeline stage %q failed", stage), details)
}

func CalibrationErrorErr(reason string) *Error {
	return New(CalibrationError, "calibration operation failed: "+reason, nil)
}

func TimeoutErr(op string, seconds int) *Error {
	return New(Timeout, fmt.Sprintf("%s timed out after %ds", op, seconds), map[string]any{"op": op, "seconds": seconds})
}

func PipelineTimeoutErr(taskID string, seconds int) *Error {
	return New(PipelineTimeout, fmt.Sprintf("task %q exceeded max_seconds=%d", taskID, seconds), map[string]any{
		"task_id": taskID, "max_seconds": seconds,
	})
}

func ParserNotAvailableErr(contentType string) *Error {
	return New(ParserNotAvailable, fmt.Sprintf("no parser available for content type %q", contentType), map[string]any{"content_type": contentType})
}

func SerpSearchFailedErr(engine string, cause error) *Error {
	details := map[string]any{"engine": engine}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return New(SerpSearchFailed, fmt.Sprintf("search engine %q failed", engine), details)
}

func AllFetchesFailedErr(attempted int) *Error {
	return New(AllFetchesFailed, "all fetch attempts failed", map[string]any{"attempted": attempted})
}

func InternalErr(cause error) *Error {
	details := map[string]any{}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return New(Internal, "internal error", details)
}
