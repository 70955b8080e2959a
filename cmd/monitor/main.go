package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetmon/internal/app"
	"fleetmon/internal/config"
	"fleetmon/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	a := app.New(cfg)

	go func() {
		if err := a.Run(ctx); err != nil {
			logger.WithComponent("main").Error().Err(err).Msg("service exited")
			cancel()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		logger.WithComponent("main").Info().Msg("shutting down")
		cancel()
	case <-ctx.Done():
	}

	// give graceful shutdown some time
	time.Sleep(500 * time.Millisecond)
}
