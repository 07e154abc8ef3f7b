package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/lancet/internal/app"
	"github.com/bobmcallan/lancet/internal/common"
)

func main() {
	configPath := os.Getenv("LANCET_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	a.StartDispatcher()

	mcpServer := buildMCPServer(a)
	httpMCP := server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true))
	mux := buildMux(a, httpMCP)

	host := a.Config.Server.Host
	port := a.Config.Server.Port

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		a.Logger.Info().Int("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", port)).
		Str("mcp", fmt.Sprintf("http://localhost:%d/mcp", port)).
		Msg("Server ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Close()
	a.Logger.Info().Msg("Server stopped")
}

// buildMCPServer registers all 13 research-core tools against the
// tool-dispatch boundary. get_version answers directly; every other tool
// shares the generic dispatch adapter since schema validation and business
// dispatch are already centralized in the tool router.
func buildMCPServer(a *app.App) *server.MCPServer {
	mcpServer := server.NewMCPServer("lancet", common.GetVersion(), server.WithToolCapabilities(true))

	mcpServer.AddTool(createGetVersionTool(), handleGetVersion())
	mcpServer.AddTool(createCreateTaskTool(), dispatchHandler(a.ToolRouter, "create_task"))
	mcpServer.AddTool(createQueueTargetsTool(), dispatchHandler(a.ToolRouter, "queue_targets"))
	mcpServer.AddTool(createQueueReferenceCandidatesTool(), dispatchHandler(a.ToolRouter, "queue_reference_candidates"))
	mcpServer.AddTool(createGetStatusTool(), dispatchHandler(a.ToolRouter, "get_status"))
	mcpServer.AddTool(createStopTaskTool(), dispatchHandler(a.ToolRouter, "stop_task"))
	mcpServer.AddTool(createGetMaterialsTool(), dispatchHandler(a.ToolRouter, "get_materials"))
	mcpServer.AddTool(createCalibrationMetricsTool(), dispatchHandler(a.ToolRouter, "calibration_metrics"))
	mcpServer.AddTool(createCalibrationRollbackTool(), dispatchHandler(a.ToolRouter, "calibration_rollback"))
	mcpServer.AddTool(createGetAuthQueueTool(), dispatchHandler(a.ToolRouter, "get_auth_queue"))
	mcpServer.AddTool(createResolveAuthTool(), dispatchHandler(a.ToolRouter, "resolve_auth"))
	mcpServer.AddTool(createNotifyUserTool(), dispatchHandler(a.ToolRouter, "notify_user"))
	mcpServer.AddTool(createWaitForUserTool(), dispatchHandler(a.ToolRouter, "wait_for_user"))
	mcpServer.AddTool(createFeedbackTool(), dispatchHandler(a.ToolRouter, "feedback"))

	return mcpServer
}
