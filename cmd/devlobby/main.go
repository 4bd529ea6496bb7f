// Command devlobby runs the developer-tier lobby listener: auth plus
// game-asset management, fronting the store over internal/store.Client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marnhollow/arcadehost/internal/config"
	"github.com/marnhollow/arcadehost/internal/devlobby"
	"github.com/marnhollow/arcadehost/internal/lobbycore"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/ratelimit"
	"github.com/marnhollow/arcadehost/internal/session"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "devlobby:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadDeveloperLobby()
	if err != nil {
		return err
	}

	log, err := obs.NewLogger("devlobby", getenv("LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer log.Sync()

	tracer, err := obs.StartTracer(context.Background(), "devlobby")
	if err != nil {
		return err
	}
	metrics := obs.NewMetrics("devlobby")

	limiter, err := ratelimit.New(cfg.RedisAddr, 20, time.Second) // 20 actions/sec per key
	if err != nil {
		return err
	}

	storeAddr := net.JoinHostPort(cfg.StoreHost, fmt.Sprint(cfg.StorePort))
	storeClient := store.NewClient(storeAddr)
	sessions := session.NewManager()

	lobby := &devlobby.Lobby{
		Core: &lobbycore.Core{
			Collection: "Developer",
			Store:      storeClient,
			Sessions:   sessions,
			Log:        log,
		},
		Store:    storeClient,
		GameRoot: cfg.GameFolderRoot,
		Log:      log,
	}
	dispatcher := devlobby.NewDispatcher(lobby)

	connHandler := func(ctx context.Context, conn net.Conn) {
		handleConn(ctx, conn, dispatcher, lobby.Core, metrics, tracer, limiter, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go obs.ServeAdmin(ctx, cfg.AdminAddr, metrics)

	wireSrv := &wire.Server{Name: "devlobby", Handler: connHandler, Logger: log}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	log.Info("devlobby starting", zap.String("addr", addr))

	err = wireSrv.Run(ctx, addr)
	_ = tracer.Shutdown(context.Background())
	return err
}

// handleConn runs one connection's request/response loop, force-logging-out
// any session it held on disconnect (spec §5).
func handleConn(ctx context.Context, conn net.Conn, d *wire.Dispatcher, core *lobbycore.Core, metrics *obs.Metrics, tracer *obs.Tracer, limiter *ratelimit.Limiter, log *zap.Logger) {
	var sessionID string
	defer func() {
		if sessionID != "" {
			core.ForceLogout(sessionID)
		}
	}()

	remote := conn.RemoteAddr().String()
	for {
		body, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}

		key := remote
		if sessionID != "" {
			key = sessionID
		}
		if ok, err := limiter.Allow(ctx, key); err == nil && !ok {
			_ = wire.WriteJSON(conn, wire.Err("rate limit exceeded"))
			continue
		}

		action := actionOf(body)
		spanCtx, span := tracer.Span(ctx, "devlobby.dispatch."+action)
		resp := d.Dispatch(spanCtx, body)
		span.End()
		metrics.ObserveDispatch(action, resp.Status == wire.StatusError)
		if sid := sessionIDOf(resp); sid != "" {
			sessionID = sid
		}
		if err := wire.WriteJSON(conn, resp); err != nil {
			log.Warn("devlobby: write failed", zap.Error(err))
			return
		}
	}
}

// actionOf pulls the action name out of a raw request body for metrics
// labeling, tolerating malformed bodies (the dispatcher itself reports the
// error; this is best-effort observability only).
func actionOf(body []byte) string {
	var req wire.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return "unknown"
	}
	if req.Action == "" {
		return "unknown"
	}
	return req.Action
}

// sessionIDOf extracts a freshly minted sessionID from a successful login
// response, so the connection handler can force-logout on disconnect.
func sessionIDOf(resp wire.Response) string {
	m, ok := resp.Data.(map[string]any)
	if !ok {
		return ""
	}
	sid, _ := m["sessionID"].(string)
	return sid
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
