package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/lancet/internal/app"
	"github.com/bobmcallan/lancet/internal/testsupport"
)

// taskIDFromEnvelope extracts task_id from a create_task tool response body.
func taskIDFromEnvelope(t *testing.T, body string) string {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("failed to parse create_task envelope: %v", err)
	}
	taskID, _ := env["task_id"].(string)
	if taskID == "" {
		t.Fatalf("create_task envelope missing task_id: %s", body)
	}
	return taskID
}

// testHarness provides an in-process MCP client connected to a fully wired
// App backed by a disposable SurrealDB container.
type testHarness struct {
	t      *testing.T
	client *client.Client
	app    *app.App
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	sc := testsupport.StartSurrealDB(t)
	dir := t.TempDir()
	config := `
[storage]
address = "` + sc.Address() + `"
username = "root"
password = "root"
namespace = "lancet_test"
database = "server_test"
data_path = "` + filepath.Join(dir, "data") + `"

[logging]
level = "error"
format = "json"
outputs = ["console"]

[dispatcher]
max_attempts = 3

[dispatcher.slots]
target_queue = 1
compute_claims = 1
reference_queue = 1

[engines]
names = ["google"]

[statusservice]
max_wait_seconds = 1
`
	configPath := filepath.Join(dir, "lancet.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	mcpServer := buildMCPServer(a)

	c, err := client.NewInProcessClient(mcpServer)
	if err != nil {
		a.Close()
		t.Fatalf("Failed to create in-process client: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		a.Close()
		t.Fatalf("Failed to start client: %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "lancet-test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		a.Close()
		t.Fatalf("Failed to initialize MCP: %v", err)
	}

	h := &testHarness{t: t, client: c, app: a}
	t.Cleanup(h.close)
	return h
}

func (h *testHarness) callTool(name string, args map[string]any) (*mcp.CallToolResult, error) {
	h.t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h.client.CallTool(context.Background(), req)
}

func (h *testHarness) getTextContent(result *mcp.CallToolResult, index int) string {
	h.t.Helper()
	if index >= len(result.Content) {
		h.t.Fatalf("Content index %d out of range (have %d blocks)", index, len(result.Content))
	}
	tc, ok := result.Content[index].(mcp.TextContent)
	if !ok {
		h.t.Fatalf("Content[%d] is %T, not TextContent", index, result.Content[index])
	}
	return tc.Text
}

func (h *testHarness) close() {
	if h.client != nil {
		h.client.Close()
	}
	if h.app != nil {
		h.app.Close()
	}
}

func TestMCP_GetVersion(t *testing.T) {
	h := newTestHarness(t)

	result, err := h.callTool("get_version", nil)
	if err != nil {
		t.Fatalf("get_version failed: %v", err)
	}

	text := h.getTextContent(result, 0)
	if !strings.Contains(text, "Lancet Research Core") {
		t.Errorf("expected version output to contain 'Lancet Research Core', got: %s", text)
	}
}

func TestMCP_ListTools(t *testing.T) {
	h := newTestHarness(t)

	ctx := context.Background()
	toolsResult, err := h.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	toolNames := make(map[string]bool)
	for _, tool := range toolsResult.Tools {
		toolNames[tool.Name] = true
	}

	expected := []string{
		"get_version", "create_task", "queue_targets", "queue_reference_candidates",
		"get_status", "stop_task", "get_materials", "calibration_metrics",
		"calibration_rollback", "get_auth_queue", "resolve_auth", "notify_user",
		"wait_for_user", "feedback",
	}
	for _, name := range expected {
		if !toolNames[name] {
			t.Errorf("expected tool %q not found in ListTools response", name)
		}
	}
}

func TestMCP_CreateTaskThenGetStatus(t *testing.T) {
	h := newTestHarness(t)

	createResult, err := h.callTool("create_task", map[string]any{
		"query": "does intermittent fasting affect resting metabolic rate",
	})
	if err != nil {
		t.Fatalf("create_task failed: %v", err)
	}
	if createResult.IsError {
		t.Fatalf("create_task returned an error envelope: %s", h.getTextContent(createResult, 0))
	}

	statusResult, err := h.callTool("get_status", map[string]any{
		"task_id": taskIDFromEnvelope(t, h.getTextContent(createResult, 0)),
	})
	if err != nil {
		t.Fatalf("get_status failed: %v", err)
	}
	if statusResult.IsError {
		t.Fatalf("get_status returned an error envelope: %s", h.getTextContent(statusResult, 0))
	}
}

func TestMCP_MissingRequiredArgReturnsErrorEnvelope(t *testing.T) {
	h := newTestHarness(t)

	result, err := h.callTool("get_status", map[string]any{})
	if err != nil {
		t.Fatalf("get_status transport failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected an error envelope for get_status called without task_id")
	}
}
