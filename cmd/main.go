package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AegisGuard-sahil/AegisGuard/internal/bootstrap"
	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
)

func main() {
	fmt.Println("Starting AegisGuard")

	cfg := config.LoadOrDefault("config.json")
	if cfg.Bot.Token == "" {
		fmt.Println("No bot token configured; set DISCORD_TOKEN or bot.token in config.json")
		os.Exit(1)
	}

	if err := initializeLogging(cfg); err != nil {
		panic(err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		panic(err)
	}

	app, err := bootstrap.Wire(cfg)
	if err != nil {
		logging.Critical("wiring failed: %v", err)
		os.Exit(1)
	}

	if err := app.StartAll(); err != nil {
		logging.Critical("startup failed: %v", err)
		app.Shutdown()
		os.Exit(1)
	}

	waitForShutdown()
	app.Shutdown()
}

func initializeLogging(cfg *config.Config) error {
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0755); err != nil {
			return err
		}
	}
	return logging.InitGlobalLogger(logging.LevelInfo, cfg.LogPath)
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
