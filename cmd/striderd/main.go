package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strider/internal/server"
	"strider/internal/server/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configPath := flag.String("config", "", "path to YAML config")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var st store.Store
	switch cfg.Storage.Backend {
	case "neo4j":
		neo, err := store.NewNeo4j(cfg.Storage.Neo4j.URI, cfg.Storage.Neo4j.Username, cfg.Storage.Neo4j.Password)
		if err != nil {
			return err
		}
		defer neo.Close(context.Background())
		st = neo
		logger.Info("using neo4j storage", "uri", cfg.Storage.Neo4j.URI)
	default:
		mem, err := store.NewMem(cfg.Storage.Snapshot)
		if err != nil {
			return err
		}
		st = mem
		logger.Info("using in-memory storage", "snapshot", cfg.Storage.Snapshot)
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(st, logger, cfg.AppName, cfg.StaticDir).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "sig", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
