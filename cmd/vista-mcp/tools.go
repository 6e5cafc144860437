package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vistalabs/vista/internal/app"
)

// registerTools declares the MCP tool surface and binds handlers.
func registerTools(s *server.MCPServer, application *app.App) {
	h := &handlers{app: application}

	s.AddTool(mcp.NewTool("get_version",
		mcp.WithDescription("Return the Vista server version and build information"),
	), h.getVersion)

	s.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Ask the ETF research assistant a question in Portuguese or English. "+
			"Handles comparisons, screening, fund details, portfolio building and analysis, rankings, news and concept explanations."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's question or request"),
		),
		mcp.WithString("user_id",
			mcp.Description("User identifier for conversation scoping (default: 'default')"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation identifier; omit to use the user's default conversation"),
		),
		mcp.WithString("user_level",
			mcp.Description("Experience level: beginner, intermediate or advanced"),
		),
		mcp.WithBoolean("simulate",
			mcp.Description("Run tools in simulation mode without side effects"),
		),
	), h.askAssistant)

	s.AddTool(mcp.NewTool("get_context",
		mcp.WithDescription("Return the accumulated conversation state: history, extracted fields and last intent"),
		mcp.WithString("user_id",
			mcp.Description("User identifier (default: 'default')"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation identifier"),
		),
	), h.getContext)

	s.AddTool(mcp.NewTool("clear_context",
		mcp.WithDescription("Delete a conversation's accumulated state"),
		mcp.WithString("user_id",
			mcp.Description("User identifier (default: 'default')"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation identifier"),
		),
	), h.clearContext)

	s.AddTool(mcp.NewTool("list_intents",
		mcp.WithDescription("List the assistant's supported intents with their required fields"),
	), h.listIntents)

	s.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Return response cache statistics"),
	), h.cacheStats)
}
