// Command vista-server runs the Vista HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vistalabs/vista/internal/app"
	"github.com/vistalabs/vista/internal/common"
)

func main() {
	configPath := flag.String("config", "config/vista.toml", "path to the TOML configuration file")
	localConfig := flag.String("local-config", "config/vista.local.toml", "path to the local override file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Println(common.GetFullVersion())
		return
	}

	config, err := common.LoadConfig(*configPath, *localConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	common.PrintBanner(config, logger)

	application.StartSweepers()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Signal received")
	case <-application.Server.ShutdownRequested():
		logger.Info().Msg("Shutdown requested via API")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}

	common.PrintShutdownBanner(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}
	if err := application.Close(); err != nil {
		logger.Warn().Err(err).Msg("Application close reported an error")
	}
}
