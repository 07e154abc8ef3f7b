package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/toolrouter"
)

// handleGetVersion implements the get_version tool directly: it answers
// before a task exists, so it bypasses the tool-dispatch boundary.
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Lancet Research Core\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// dispatchHandler builds a server.ToolHandlerFunc that forwards a tool
// call's arguments to the router's single dispatch boundary and marshals
// the resulting envelope (always {ok:true,...} or {ok:false,...}, never a
// Go error) back as the tool's JSON text content.
func dispatchHandler(router *toolrouter.Router, tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := router.Dispatch(ctx, tool, request.GetArguments())

		body, err := json.Marshal(env)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to encode %s result: %v", tool, err)), nil
		}

		if ok, _ := env["ok"].(bool); !ok {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(string(body))},
				IsError: true,
			}, nil
		}
		return textResult(string(body)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}
