package tetris

import (
	"context"
	"encoding/json"
	"net"

	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

type joinPayload struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type inputPayload struct {
	Move Move  `json:"move"`
	TS   int64 `json:"ts"`
}

// Serve handles one client connection end to end: the mandatory join
// handshake, the game_meta push, then a read loop dispatching
// start_game/input/request_snapshot until the connection closes (spec
// §4.6).
func Serve(ctx context.Context, r *Room, c net.Conn, log *zap.Logger) {
	defer c.Close()
	if log == nil {
		log = zap.NewNop()
	}

	body, err := wire.ReadFrame(c)
	if err != nil {
		return
	}
	var req wire.Request
	if err := json.Unmarshal(body, &req); err != nil || req.Action != "join" {
		_ = wire.WriteJSON(c, wire.Err("first frame must be join"))
		return
	}
	var jp joinPayload
	if err := wire.DecodeData(req, &jp); err != nil {
		_ = wire.WriteJSON(c, wire.Err("invalid join payload"))
		return
	}
	if err := r.Join(c, jp.Role, jp.Name); err != nil {
		_ = wire.WriteJSON(c, wire.Err(err.Error()))
		return
	}
	defer r.Disconnect(c)

	_ = wire.WriteJSON(c, wire.Push{Type: "game_meta", Payload: map[string]any{
		"seed":     r.Seed,
		"bagRule":  "7-bag-FisherYates",
		"gravity":  GravityInterval.Seconds(),
	}})

	role := jp.Role
	if role != "p1" && role != "p2" {
		role = ""
	}

	for {
		body, err := wire.ReadFrame(c)
		if err != nil {
			return
		}
		var req wire.Request
		if err := json.Unmarshal(body, &req); err != nil {
			_ = wire.WriteJSON(c, wire.Err("invalid request"))
			continue
		}
		switch req.Action {
		case "start_game":
			r.StartGame(ctx)
		case "input":
			if role == "" {
				continue
			}
			var ip inputPayload
			if err := wire.DecodeData(req, &ip); err == nil {
				r.HandleInput(role, ip.Move)
			}
		case "request_snapshot":
			r.RequestSnapshot(c)
		default:
			_ = wire.WriteJSON(c, wire.Err("unrecognised action: "+req.Action))
		}
	}
}
