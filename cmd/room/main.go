// Command room is one standalone Tetris match server: spawned by the
// player lobby with command line (host, port, roomId[, seed]) and working
// directory set to the game's folder (spec §6).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/tetris"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "room:", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]
	if len(args) < 3 {
		return fmt.Errorf("usage: room host port roomId [seed]")
	}
	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	roomID := args[2]

	seed := time.Now().UnixNano()
	if len(args) >= 4 {
		s, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[3], err)
		}
		seed = s
	}

	log, err := obs.NewLogger("room", getenv("LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer log.Sync()

	tracer, err := obs.StartTracer(context.Background(), "room")
	if err != nil {
		return err
	}
	metrics := obs.NewMetrics("room")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// done receives the winner once the gravity loop has broadcast game_over
	// and written the terminal stdout line; main then drains a short grace
	// window for in-flight writes before returning 0. This replaces the
	// original's sys.exit(0) called from inside the gravity loop itself
	// (spec §9 design note 5's recommended deviation).
	done := make(chan *string, 1)
	onOver := func(winner *string) {
		line, _ := json.Marshal(map[string]any{"type": "game_over", "winner": derefOrNil(winner)})
		fmt.Println(string(line))
		done <- winner
	}

	room := tetris.NewRoom(roomID, seed, log, onOver)
	room.SetObservability(metrics, tracer)

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("room: listen: %w", err)
	}
	defer ln.Close()

	log.Info("room listening", zap.String("roomID", roomID), zap.String("addr", ln.Addr().String()), zap.Int64("seed", seed))

	go acceptLoop(ctx, ln, room, log)

	<-done
	cancel()
	time.Sleep(100 * time.Millisecond) // drain outbound writes before exit
	_ = tracer.Shutdown(context.Background())
	return nil
}

func acceptLoop(ctx context.Context, ln net.Listener, room *tetris.Room, log *zap.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go tetris.Serve(ctx, room, conn, log)
	}
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
