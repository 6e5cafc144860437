package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vistalabs/vista/internal/app"
	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

type handlers struct {
	app *app.App
}

func (h *handlers) getVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (h *handlers) askAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := &models.AskRequest{
		UserID:         request.GetString("user_id", "default"),
		ConversationID: request.GetString("conversation_id", ""),
		Message:        message,
		UserLevel:      request.GetString("user_level", ""),
		Simulate:       request.GetBool("simulate", false),
	}

	resp, err := h.app.Assistant.Ask(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return jsonResult(resp)
}

func (h *handlers) getContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := h.app.Store.Get(ctx,
		request.GetString("user_id", "default"),
		request.GetString("conversation_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load context: %v", err)), nil
	}
	return jsonResult(state)
}

func (h *handlers) clearContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := request.GetString("user_id", "default")
	conversationID := request.GetString("conversation_id", "")

	if err := h.app.Store.Delete(ctx, userID, conversationID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete context: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "deleted"})
}

func (h *handlers) listIntents(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"intents": catalog.Intents()})
}

func (h *handlers) cacheStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.app.Cache.Stats(ctx))
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
