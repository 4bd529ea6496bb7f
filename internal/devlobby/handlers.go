// Package devlobby implements the developer-tier lobby verbs: register,
// login, logout (delegated to internal/lobbycore) plus game-asset
// management (list-games, upload-game, update-game, delete-game).
package devlobby

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/marnhollow/arcadehost/internal/lobbycore"
	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

// Lobby is the developer lobby's dispatch target: auth verbs via
// lobbycore.Core plus the game-asset verbs below.
type Lobby struct {
	Core        *lobbycore.Core
	Store       *store.Client
	GameRoot    string // e.g. "game" — every uploaded folder lives under here
	Log         *zap.Logger
}

// NewDispatcher builds the full developer-lobby action table.
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
	d.Handle("upload-game", true, l.UploadGame)
	d.Handle("update-game", true, l.UpdateGame)
	d.Handle("delete-game", true, l.DeleteGame)
	return d
}

type gameFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
}

type uploadGameRequest struct {
	SessionID string     `json:"sessionID"`
	GameName  string     `json:"gameName"`
	Files     []gameFile `json:"files"`
}

type updateGameRequest struct {
	SessionID string     `json:"sessionID"`
	GameID    string     `json:"gameId"`
	Files     []gameFile `json:"files"`
}

type deleteGameRequest struct {
	SessionID string `json:"sessionID"`
	GameID    string `json:"gameId"`
}

// ListGames returns only games owned by the calling developer (spec §4.4,
// §9 open question 3: this asymmetry with the player lobby's unfiltered
// listing is intentional and preserved).
func (l *Lobby) ListGames(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}

	docs, err := l.Store.Query("Game", store.Document{"owner": sess.Name})
	if err != nil {
		return wire.Err("backing store failure")
	}

	games := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		games = append(games, map[string]any{
			"gameId":   d["id"],
			"gameName": d["gameName"],
			"owner":    d["owner"],
		})
	}
	return wire.Ok(map[string]any{"games": games})
}

// UploadGame requires exactly two files, writes each under its basename
// (defence against path traversal per spec §8 property 10) inside a fresh
// folder, and records a Game row.
func (l *Lobby) UploadGame(ctx context.Context, req wire.Request) wire.Response {
	sess, err := l.Core.RequireSession(req)
	if err != nil {
		return wire.Err(err.Error())
	}

	var p uploadGameRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}
	if len(p.Files) != 2 {
		return wire.Err(models.ErrUploadFileCount.Error())
	}
	name := strings.TrimSpace(p.GameName)
	if name == "" {
		return wire.Err("gameName required")
	}

	folder := filepath.Join(l.GameRoot, fmt.Sprintf("%s_%s", name, uuid.NewString()[:8]))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		l.Log.Error("upload-game: mkdir failed", zap.String("folder", folder), zap.Error(err))
		return wire.Err("could not create game folder")
	}

	if err := writeFiles(folder, p.Files); err != nil {
		l.Log.Error("upload-game: write failed", zap.String("folder", folder), zap.Error(err))
		return wire.Err("could not write game files")
	}

	doc, err := l.Store.Create("Game", store.Document{
		"owner":      sess.Name,
		"gameName":   name,
		"folderPath": folder,
	})
	if err != nil {
		return wire.Err("backing store failure")
	}

	return wire.Ok(map[string]any{"gameId": doc["id"], "folder": folder})
}

// UpdateGame locates the game by id, ensures its folder exists, and
// rewrites the supplied files in place. Deliberately does not check that
// the caller owns the game — spec §9 open question 1, preserved as-is.
func (l *Lobby) UpdateGame(ctx context.Context, req wire.Request) wire.Response {
	if _, err := l.Core.RequireSession(req); err != nil {
		return wire.Err(err.Error())
	}

	var p updateGameRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}

	doc, err := l.Store.Read("Game", p.GameID)
	if err != nil {
		return wire.Err(models.ErrGameNotFound.Error())
	}
	folder, _ := doc["folderPath"].(string)
	if folder == "" {
		return wire.Err(models.ErrGameNotFound.Error())
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		l.Log.Error("update-game: mkdir failed", zap.String("folder", folder), zap.Error(err))
		return wire.Err("could not open game folder")
	}
	if err := writeFiles(folder, p.Files); err != nil {
		l.Log.Error("update-game: write failed", zap.String("folder", folder), zap.Error(err))
		return wire.Err("could not write game files")
	}

	return wire.Ok(map[string]any{"gameId": p.GameID, "folder": folder})
}

// DeleteGame removes the folder recursively (tolerant of an already-gone
// folder) then deletes the store row. Same open-ownership-question caveat
// as UpdateGame.
func (l *Lobby) DeleteGame(ctx context.Context, req wire.Request) wire.Response {
	if _, err := l.Core.RequireSession(req); err != nil {
		return wire.Err(err.Error())
	}

	var p deleteGameRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}

	doc, err := l.Store.Read("Game", p.GameID)
	if err != nil {
		return wire.Err(models.ErrGameNotFound.Error())
	}
	if folder, _ := doc["folderPath"].(string); folder != "" {
		if err := os.RemoveAll(folder); err != nil {
			l.Log.Warn("delete-game: folder removal failed", zap.String("folder", folder), zap.Error(err))
		}
	}

	if _, err := l.Store.Delete("Game", p.GameID); err != nil {
		return wire.Err("backing store failure")
	}
	return wire.Ok(map[string]any{"gameId": p.GameID, "deleted": true})
}

// writeFiles decodes and writes each file under dir, using only its
// basename so an uploaded filename like "../../etc/passwd" resolves
// inside dir, never outside it.
func writeFiles(dir string, files []gameFile) error {
	for _, f := range files {
		raw, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", f.Filename, err)
		}
		name := filepath.Base(f.Filename)
		if name == "" || name == "." || name == string(filepath.Separator) {
			return fmt.Errorf("invalid filename %q", f.Filename)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
