package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/lancet/internal/testsupport"
)

// writeTestConfig starts a disposable SurrealDB container and writes a
// config.toml pointing at it. No Gemini API key is configured — the claim
// extractor will be nil, which NewApp tolerates.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	sc := testsupport.StartSurrealDB(t)
	dir := t.TempDir()

	config := `
[storage]
address = "` + sc.Address() + `"
username = "root"
password = "root"
namespace = "lancet_test"
database = "app_test"
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
	return configPath
}

func TestNewAppInitializesAllServices(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config == nil {
		t.Error("Config is nil")
	}
	if a.Logger == nil {
		t.Error("Logger is nil")
	}
	if a.Store == nil {
		t.Error("Store is nil")
	}
	if a.Dispatcher == nil {
		t.Error("Dispatcher is nil")
	}
	if a.StatusService == nil {
		t.Error("StatusService is nil")
	}
	if a.FeedbackHandler == nil {
		t.Error("FeedbackHandler is nil")
	}
	if a.SchemaRegistry == nil {
		t.Error("SchemaRegistry is nil")
	}
	if a.ToolRouter == nil {
		t.Error("ToolRouter is nil")
	}
	if a.Metrics == nil {
		t.Error("Metrics is nil")
	}
	if a.AdminWSHub == nil {
		t.Error("AdminWSHub is nil")
	}
	if a.ClaimExtractor != nil {
		t.Error("ClaimExtractor should be nil with no Gemini API key configured")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
}

func TestNewAppToolRouterCreatesTask(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	env := a.ToolRouter.Dispatch(context.Background(), "create_task", map[string]any{
		"query": "does caffeine improve reaction time",
	})
	if ok, _ := env["ok"].(bool); !ok {
		t.Fatalf("create_task dispatch failed: %+v", env)
	}
}

func TestNewAppDispatcherStartStop(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	a.StartDispatcher()
	a.Dispatcher.Stop()
}

func TestNewAppCloseIsIdempotent(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	a.Close()
	a.Close()
}

func TestNewAppInvalidConfigReturnsError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(configPath, []byte("{{{{invalid toml"), 0644); err != nil {
		t.Fatalf("failed to write bad config: %v", err)
	}

	if _, err := NewApp(configPath); err == nil {
		t.Fatal("expected error for invalid config content, got nil")
	}
}
