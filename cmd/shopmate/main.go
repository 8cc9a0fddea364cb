package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shopmate"
	"shopmate/config"
	"shopmate/log"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	log.Init(cfg.Production)
	log.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := shopmate.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Log.Errorf("Failed to start: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Log.Infof("Received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Log.Errorf("Server stopped: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Log.Errorf("Shutdown error: %v", err)
		os.Exit(1)
	}
}
