package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/config"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/engine"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/eth"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/handler"
	"github.com/Eccentric-Reach/reachswap-dex-sub000/internal/output"
)

const statsInterval = 60 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := output.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := eth.NewClient(cfg.RPC)
	if err != nil {
		return fmt.Errorf("connect to node: %w", err)
	}
	defer client.Close()

	eng, err := engine.New(cfg, client, logger)
	if err != nil {
		return err
	}

	primary, secondary := cfg.Venues()
	log.Info().
		Str("primary", primary.Name).
		Str("secondary", secondary.Name).
		Bool("executionEnabled", eng.CanExecute()).
		Str("addr", cfg.API.Addr).
		Msg("Starting swap engine")

	app := fiber.New()
	app.Get("/quote", handler.NewQuoteHandler(eng).Handle())
	app.Post("/execute", handler.NewExecuteHandler(eng).Handle())
	app.Get("/status", handler.NewStatusHandler(eng).Handle())

	if cfg.Monitor.Enabled {
		go eng.DivergenceMonitor(cfg.Monitor).Run(ctx)
	}
	go logStats(ctx, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.API.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err := <-errCh:
		if err != nil {
			_ = app.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Forced shutdown")
	}
	logger.LogStats()
	return nil
}

func logStats(ctx context.Context, logger *output.Logger) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.LogStats()
		}
	}
}
