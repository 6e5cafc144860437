// Command vista-mcp exposes the assistant over the Model Context Protocol
// on stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/vistalabs/vista/internal/app"
	"github.com/vistalabs/vista/internal/common"
)

func main() {
	configPath := flag.String("config", "config/vista.toml", "path to the TOML configuration file")
	localConfig := flag.String("local-config", "config/vista.local.toml", "path to the local override file")
	flag.Parse()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(*configPath, *localConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Stdio transport owns stdout, so log level noise goes to the file side
	// of the configured logger only when explicitly raised.
	logger := common.NewLogger(config.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("Application close reported an error")
		}
	}()

	application.StartSweepers()

	mcpServer := server.NewMCPServer(
		"Vista",
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	registerTools(mcpServer, application)

	logger.Info().Str("version", common.GetVersion()).Msg("MCP server starting on stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server stopped")
		os.Exit(1)
	}
}
