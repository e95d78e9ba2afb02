package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func serveCmd(state *cliState) *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates over HTTP, with a JSON management API under /api/",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				state.config.Server.ServerAddr = addr
			}
			if cmd.Flags().Changed("watch") {
				state.config.Server.WatchTemplates = watch
			}
			return serve(cmd.Context(), state)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload templates when files change (overrides watch_templates)")
	return cmd
}

// serve runs server cycles until a shutdown is requested. A restart
// reloads the config file and rebuilds the template manager.
func serve(ctx context.Context, state *cliState) error {
	if ctx == nil {
		ctx = context.Background()
	}
	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		state.logger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	config := state.config
	for {
		action, err := run(ctx, state, config, actionChan)
		if err != nil {
			state.logger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}
		if action != actionRestart {
			break
		}
		state.logger.Info("--- Server Restarting ---")
		if config, err = LoadConfig(state.configPath); err != nil {
			return fmt.Errorf("failed to reload configuration: %w", err)
		}
		state.logger = newLogger(os.Stderr, config.Server.LogLevel)
	}

	state.logger.Info("philterz has shut down.")
	return nil
}

// run hosts one server cycle and returns whenever the server is shut down
// or restarted.
func run(ctx context.Context, state *cliState, config *Config, actionChan chan string) (string, error) {
	logger := state.logger
	logger.Info("Starting server cycle...")

	app, err := NewApp(config, logger)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	cm := NewConfigManager(config, state.configPath)
	cm.SetTemplateManager(app.tm)
	server := NewServer(cm, app, logger, actionChan)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if config.Server.WatchTemplates {
		go func() {
			if err := app.tm.Watch(watchCtx); err != nil {
				logger.Error("Template watcher stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              config.Server.ServerAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting philterz server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			actionChan <- actionShutdown
		}
	}()

	var action string
	select {
	case action = <-actionChan:
	case <-ctx.Done():
		action = actionShutdown
	}

	logger.Info("Stopping server for " + action + "...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")
	return action, nil
}
