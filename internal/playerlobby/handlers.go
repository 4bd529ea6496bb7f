// Package playerlobby implements the player-tier lobby verbs: register,
// login, logout (delegated to internal/lobbycore) plus room discovery and
// lifecycle (list-games, rooms, create-room, join-room, delete-room).
package playerlobby

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marnhollow/arcadehost/internal/lobbycore"
	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/roomsup"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

// Lobby is the player lobby's dispatch target.
type Lobby struct {
	Core    *lobbycore.Core
	Store   *store.Client
	Rooms   *roomsup.Supervisor
	Host    string // host passed to each spawned room process
	Metrics *obs.Metrics
	Log     *zap.Logger
}

// NewDispatcher builds the full player-lobby action table.
func NewDispatcher(l *Lobby) *wire.Dispatcher {
	d := wire.NewDispatcher()
	d.RequireSession = func(req wire.Request) error {
		_, err := l.Core.RequireSession(req)
		return err
	}
	d.Handle("register", false, l.Core.Register)
	d.Handle("login", false, l.Core.Login)
	d.Handle("logout", true, l.Core.Logout)
	d.Handle("list-games", true, l.ListGames)
	d.Handle("rooms", true, l.ListRooms)
	d.Handle("create-room", true, l.CreateRoom)
	d.Handle("join-room", true, l.JoinRoom)
	d.Handle("delete-room", true, l.DeleteRoom)
	return d
}

// ListGames returns every uploaded game, unfiltered by owner, with an
// optional description field — the deliberate asymmetry with the
// developer lobby's owner-scoped listing (spec §9 open question 3).
func (l *Lobby) ListGames(ctx context.Context, req wire.Request) wire.Response {
	docs, err := l.Store.Query("Game", store.Document{})
	if err != nil {
		return wire.Err("backing store failure")
	}
	games := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		g := map[string]any{
			"gameId":   d["id"],
			"gameName": d["gameName"],
			"owner":    d["owner"],
		}
		if desc, ok := d["description"]; ok {
			g["description"] = desc
		}
		games = append(games, g)
	}
	return wire.Ok(map[string]any{"games": games})
}

type roomsRequest struct {
	SessionID string `json:"sessionID"`
}

// ListRooms returns the union of three queries in the exact order spec §4.5
// requires, with no de-duplication (spec §9 open question 2: a room that
// is both caller-owned and invite=caller would appear twice, by design).
func (l *Lobby) ListRooms(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}

	invited, err := l.Store.Query("Room", store.Document{"visibility": string(models.VisibilityPrivate), "invite": sess.Name})
	if err != nil {
		return wire.Err("backing store failure")
	}
	public, err := l.Store.Query("Room", store.Document{"visibility": string(models.VisibilityPublic)})
	if err != nil {
		return wire.Err("backing store failure")
	}
	owned, err := l.Store.Query("Room", store.Document{"visibility": string(models.VisibilityPrivate), "owner": sess.Name})
	if err != nil {
		return wire.Err("backing store failure")
	}

	all := make([]store.Document, 0, len(invited)+len(public)+len(owned))
	all = append(all, invited...)
	all = append(all, public...)
	all = append(all, owned...)

	return wire.Ok(map[string]any{"rooms": all})
}

type createRoomRequest struct {
	SessionID  string `json:"sessionID"`
	GameID     string `json:"gameId"`
	Visibility string `json:"visibility"`
	Invite     string `json:"invite"`
}

// CreateRoom resolves the game's folder, allocates a port, creates the
// store Room record, spawns the room process, and registers its handle
// (spec §4.5).
func (l *Lobby) CreateRoom(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}
	var p createRoomRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}

	game, err := l.Store.Read("Game", p.GameID)
	if err != nil {
		return wire.Err(models.ErrGameNotFound.Error())
	}
	folder, _ := game["folderPath"].(string)
	if folder == "" {
		return wire.Err(models.ErrGameNotFound.Error())
	}

	visibility := models.VisibilityPublic
	if p.Visibility == string(models.VisibilityPrivate) {
		visibility = models.VisibilityPrivate
	}

	port := l.Rooms.AllocatePort()

	doc, err := l.Store.Create("Room", store.Document{
		"owner":      sess.Name,
		"gameId":     p.GameID,
		"port":       port,
		"visibility": string(visibility),
		"invite":     p.Invite,
		"players":    []any{},
		"spectators": []any{},
	})
	if err != nil {
		return wire.Err("backing store failure")
	}
	roomID, _ := doc["id"].(string)

	if err := l.Rooms.Spawn(ctx, l.Host, port, roomID, folder, nil); err != nil {
		l.Log.Error("create-room: spawn failed", zap.String("roomID", roomID), zap.Error(err))
		_, _ = l.Store.Delete("Room", roomID)
		return wire.Err("could not launch room process")
	}
	if l.Metrics != nil {
		l.Metrics.RoomsActive.Inc()
	}

	return wire.Ok(map[string]any{"id": roomID, "port": port})
}

type joinRoomRequest struct {
	SessionID string `json:"sessionID"`
	RoomID    string `json:"roomId"`
	Role      string `json:"role"`
}

// JoinRoom resolves the room by id prefix, assigns a seat or spectator
// slot, writes the updated room back to the store, and returns the game's
// client.py payload base64-encoded (spec §4.5).
func (l *Lobby) JoinRoom(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}
	var p joinRoomRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}

	handle, err := l.Rooms.Resolve(p.RoomID)
	if err != nil {
		return wire.Err(err.Error())
	}
	roomID := handle.RoomID

	room, err := l.Store.Read("Room", roomID)
	if err != nil {
		return wire.Err(models.ErrRoomNotFound.Error())
	}

	players, _ := room["players"].([]any)
	role := p.Role
	isSeat := role == string(models.RoleP1) || role == string(models.RoleP2)

	if isSeat {
		if len(players) >= 2 {
			return wire.Err(models.ErrRoomFull.Error())
		}
		for _, raw := range players {
			if pl, ok := raw.(map[string]any); ok {
				if fmt.Sprint(pl["role"]) == role {
					return wire.Err(models.ErrRoleTaken.Error())
				}
			}
		}
		players = append(players, map[string]any{"name": sess.Name, "role": role})
		room["players"] = players
	} else {
		spectators, _ := room["spectators"].([]any)
		spectators = append(spectators, sess.Name)
		room["spectators"] = spectators
	}

	updated, err := l.Store.Update("Room", roomID, store.Document{
		"players":    room["players"],
		"spectators": room["spectators"],
	})
	if err != nil {
		return wire.Err("backing store failure")
	}

	gameID, _ := updated["gameId"].(string)
	game, err := l.Store.Read("Game", gameID)
	if err != nil {
		return wire.Err(models.ErrGameNotFound.Error())
	}
	folder, _ := game["folderPath"].(string)
	clientCode, err := os.ReadFile(filepath.Join(folder, "client.py"))
	if err != nil {
		l.Log.Error("join-room: missing client.py", zap.String("folder", folder), zap.Error(err))
		return wire.Err("missing client code for this game")
	}

	return wire.Ok(map[string]any{
		"id":         roomID,
		"port":       handle.Port,
		"role":       role,
		"clientCode": base64.StdEncoding.EncodeToString(clientCode),
		"gameName":   game["gameName"],
		"owner":      updated["owner"],
	})
}

type deleteRoomRequest struct {
	SessionID string `json:"sessionID"`
	RoomID    string `json:"roomId"`
}

// DeleteRoom succeeds only if the caller owns the room (spec §4.5); the
// monitor's own internal reap path bypasses this handler entirely and
// calls roomsup.Supervisor.Reap directly.
func (l *Lobby) DeleteRoom(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}
	var p deleteRoomRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}

	handle, err := l.Rooms.Resolve(p.RoomID)
	if err != nil {
		return wire.Err(err.Error())
	}

	room, err := l.Store.Read("Room", handle.RoomID)
	if err != nil {
		return wire.Err(models.ErrRoomNotFound.Error())
	}
	if owner, _ := room["owner"].(string); owner != sess.Name {
		return wire.Err(models.ErrNotRoomOwner.Error())
	}

	if err := l.Rooms.Kill(handle.RoomID); err != nil {
		l.Log.Warn("delete-room: kill failed", zap.String("roomID", handle.RoomID), zap.Error(err))
	}
	l.Rooms.Reap(handle.RoomID, nil)

	return wire.Ok(map[string]any{"id": handle.RoomID, "deleted": true})
}
