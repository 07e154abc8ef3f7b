package mcperr

import (
	"fmt"
	"strings"
	"testing"
)

func TestInvalidParamsfCarriesNoErrorID(t *testing.T) {
	err := InvalidParamsf("field %q is required", "query")
	if err.Code != InvalidParams {
		t.Errorf("expected code %q, got %q", InvalidParams, err.Code)
	}
	if err.ErrorID != "" {
		t.Errorf("expected INVALID_PARAMS to carry no correlation ID, got %q", err.ErrorID)
	}
	if !strings.Contains(err.Message, "query") {
		t.Errorf("expected formatted message to contain %q, got %q", "query", err.Message)
	}
}

func TestNonInvalidParamsErrorsCarryErrorID(t *testing.T) {
	cases := []*Error{
		TaskNotFoundErr("task_1"),
		BudgetExhaustedErr("task_1", 10, 10),
		AuthRequiredErr("example.com", "item_1"),
		AllEnginesBlockedErr([]string{"google"}),
		ChromeNotReadyErr("not launched"),
		PipelineErrorErr("fetch", fmt.Errorf("boom")),
		CalibrationErrorErr("no active version"),
		TimeoutErr("get_status", 30),
		PipelineTimeoutErr("task_1", 3600),
		ParserNotAvailableErr("application/zip"),
		SerpSearchFailedErr("google", fmt.Errorf("timeout")),
		AllFetchesFailedErr(3),
		InternalErr(fmt.Errorf("unexpected")),
	}
	for _, err := range cases {
		if err.ErrorID == "" {
			t.Errorf("expected %s to carry a correlation ID", err.Code)
		}
		if !strings.HasPrefix(err.ErrorID, "err_") {
			t.Errorf("expected correlation ID to have err_ prefix, got %q", err.ErrorID)
		}
	}
}

func TestNewErrorIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewErrorID()
		if seen[id] {
			t.Fatalf("generated duplicate error ID %q", id)
		}
		seen[id] = true
	}
}

func TestEnvelopeOmitsEmptyDetailsAndErrorID(t *testing.T) {
	err := InvalidParamsf("missing field")
	env := err.Envelope()

	if env["ok"] != false {
		t.Errorf("expected ok=false, got %v", env["ok"])
	}
	if env["error_code"] != string(InvalidParams) {
		t.Errorf("expected error_code %q, got %v", InvalidParams, env["error_code"])
	}
	if _, present := env["error_id"]; present {
		t.Error("expected no error_id key for INVALID_PARAMS")
	}
	if _, present := env["details"]; present {
		t.Error("expected no details key when no details were given")
	}
}

func TestEnvelopeIncludesErrorIDAndDetailsWhenPresent(t *testing.T) {
	err := TaskNotFoundErr("task_42")
	env := err.Envelope()

	if env["error_id"] != err.ErrorID {
		t.Errorf("expected envelope error_id to match %q, got %v", err.ErrorID, env["error_id"])
	}
	details, ok := env["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details to be a map, got %T", env["details"])
	}
	if details["task_id"] != "task_42" {
		t.Errorf("expected details.task_id=task_42, got %v", details["task_id"])
	}
}

func TestErrorSatisfiesStdlibErrorInterface(t *testing.T) {
	var err error = InvalidParamsf("bad input")
	if !strings.Contains(err.Error(), "INVALID_PARAMS") {
		t.Errorf("expected Error() to mention the code, got %q", err.Error())
	}
}

func TestPipelineErrorErrOmitsCauseWhenNil(t *testing.T) {
	err := PipelineErrorErr("fetch", nil)
	if _, present := err.Details["cause"]; present {
		t.Error("expected no cause key when cause is nil")
	}
}
