// Command store runs the single-listener document service backing both
// lobby tiers: four open-map collections persisted to one JSON file.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/marnhollow/arcadehost/internal/config"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadStore()
	if err != nil {
		return err
	}

	log, err := obs.NewLogger("store", getenv("LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer log.Sync()

	tracer, err := obs.StartTracer(context.Background(), "store")
	if err != nil {
		return err
	}

	metrics := obs.NewMetrics("store")

	engine, err := store.NewEngine(cfg.DataPath, log)
	if err != nil {
		return err
	}
	srv := &store.Server{Engine: engine, Logger: log, Tracer: tracer}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go obs.ServeAdmin(ctx, cfg.AdminAddr, metrics)

	wireSrv := &wire.Server{Name: "store", Handler: srv.ConnHandler, Logger: log}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	log.Info("store starting", zap.String("addr", addr))

	err = wireSrv.Run(ctx, addr)
	_ = tracer.Shutdown(context.Background())
	return err
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
