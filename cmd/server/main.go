package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"presidoo/internal/chat"
	"presidoo/internal/server"
)

func main() {
	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	server.SetConfig(cfg)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	registry := chat.NewRegistry()
	rooms := chat.NewRooms()
	history := chat.NewHistory()

	hub := server.NewHub(logger)
	router := chat.NewRouter(hub, registry, rooms, history, logger)
	hub.SetRouter(router)
	go hub.Run()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub))

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case s := <-sig:
			logger.Info("shutdown signal received", "signal", s.String())
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
			return err
		}
		return hub.Shutdown(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server exiting")
}
