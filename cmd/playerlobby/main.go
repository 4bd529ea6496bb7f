// Command playerlobby runs the player-tier lobby listener: auth, room
// discovery, and the room-lifecycle verbs backed by internal/roomsup.
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
	"github.com/marnhollow/arcadehost/internal/lobbycore"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/playerlobby"
	"github.com/marnhollow/arcadehost/internal/ratelimit"
	"github.com/marnhollow/arcadehost/internal/roomsup"
	"github.com/marnhollow/arcadehost/internal/session"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "playerlobby:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadPlayerLobby()
	if err != nil {
		return err
	}

	log, err := obs.NewLogger("playerlobby", getenv("LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer log.Sync()

	tracer, err := obs.StartTracer(context.Background(), "playerlobby")
	if err != nil {
		return err
	}
	metrics := obs.NewMetrics("playerlobby")

	limiter, err := ratelimit.New(cfg.RedisAddr, 20, time.Second)
	if err != nil {
		return err
	}

	storeAddr := net.JoinHostPort(cfg.StoreHost, fmt.Sprint(cfg.StorePort))
	storeClient := store.NewClient(storeAddr)
	sessions := session.NewManager()

	onReap := func(roomID string, winner *string) {
		metrics.RoomsReaped.Inc()
		metrics.RoomsActive.Dec()
		w := "none"
		if winner != nil {
			w = *winner
		}
		log.Info("room reaped", zap.String("roomID", roomID), zap.String("winner", w))
	}
	supervisor := roomsup.New(storeClient, cfg.PortBase, log, onReap)

	lobby := &playerlobby.Lobby{
		Core: &lobbycore.Core{
			Collection: "Player",
			Store:      storeClient,
			Sessions:   sessions,
			Log:        log,
		},
		Store:   storeClient,
		Rooms:   supervisor,
		Host:    cfg.Host,
		Metrics: metrics,
		Log:     log,
	}
	dispatcher := playerlobby.NewDispatcher(lobby)

	connHandler := func(ctx context.Context, conn net.Conn) {
		handleConn(ctx, conn, dispatcher, lobby.Core, metrics, tracer, limiter, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go obs.ServeAdmin(ctx, cfg.AdminAddr, metrics)

	wireSrv := &wire.Server{Name: "playerlobby", Handler: connHandler, Logger: log}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	log.Info("playerlobby starting", zap.String("addr", addr))

	err = wireSrv.Run(ctx, addr)
	_ = tracer.Shutdown(context.Background())
	return err
}

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
		spanCtx, span := tracer.Span(ctx, "playerlobby.dispatch."+action)
		resp := d.Dispatch(spanCtx, body)
		span.End()
		metrics.ObserveDispatch(action, resp.Status == wire.StatusError)
		if sid := sessionIDOf(resp); sid != "" {
			sessionID = sid
		}
		if err := wire.WriteJSON(conn, resp); err != nil {
			log.Warn("playerlobby: write failed", zap.Error(err))
			return
		}
	}
}

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
