// Package lobbycore implements the auth/session core shared by both lobby
// listener variants (developer and player): register, login, logout, and
// the session lookup every other action requires. Developers and players
// are separate identity spaces even when names collide (spec §3), so a
// Core is always scoped to exactly one store collection.
package lobbycore

import (
	"context"
	"strings"
	"time"

	"github.com/marnhollow/arcadehost/internal/auth"
	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/session"
	"github.com/marnhollow/arcadehost/internal/store"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

// Core is the auth/session logic for one identity space (Player or
// Developer).
type Core struct {
	Collection string // "Player" or "Developer"
	Store      *store.Client
	Sessions   *session.Manager
	Log        *zap.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type logoutRequest struct {
	SessionID string `json:"sessionID"`
}

// Register handles the `register` action: requires {username, password},
// rejects a name already taken in this identity space, stores the SHA-256
// hash, returns {userId, name}.
func (c *Core) Register(_ context.Context, req wire.Request) wire.Response {
	var p registerRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}
	name := strings.TrimSpace(p.Username)
	if name == "" {
		return wire.Err("username required")
	}

	existing, err := c.Store.Query(c.Collection, store.Document{"name": name})
	if err != nil {
		return wire.Err("backing store failure")
	}
	if len(existing) > 0 {
		return wire.Err(models.ErrNameTaken.Error())
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return wire.Err(err.Error())
	}

	doc, err := c.Store.Create(c.Collection, store.Document{
		"name":         name,
		"passwordHash": hash,
	})
	if err != nil {
		return wire.Err("backing store failure")
	}

	return wire.Ok(map[string]any{"userId": doc["id"], "name": doc["name"]})
}

// Login handles the `login` action. Unknown names and bad passwords share
// one error message (spec §4.3) so the wire never discloses which half was
// wrong.
func (c *Core) Login(_ context.Context, req wire.Request) wire.Response {
	var p loginRequest
	if err := wire.DecodeData(req, &p); err != nil {
		return wire.Err("invalid request")
	}
	name := strings.TrimSpace(p.Username)

	matches, err := c.Store.Query(c.Collection, store.Document{"name": name})
	if err != nil {
		return wire.Err("backing store failure")
	}
	if len(matches) == 0 {
		return wire.Err(models.ErrBadCredentials.Error())
	}
	acct := matches[0]

	hash, _ := acct["passwordHash"].(string)
	if !auth.ComparePasswordHash(hash, p.Password) {
		return wire.Err(models.ErrBadCredentials.Error())
	}

	if online, _ := acct["online"].(bool); online {
		return wire.Err(models.ErrAlreadyOnline.Error())
	}

	id, _ := acct["id"].(string)
	sess := c.Sessions.Create(id, name)

	if _, err := c.Store.Update(c.Collection, id, store.Document{
		"online":      true,
		"lastLoginAt": time.Now().UTC(),
	}); err != nil {
		c.Sessions.Delete(sess.SessionID)
		return wire.Err("backing store failure")
	}

	return wire.Ok(map[string]any{"sessionID": sess.SessionID, "userId": id, "name": name})
}

// Logout handles the `logout` action and is also the shared cleanup path
// run on connection loss (spec §5: "the lobby must, on client disconnect,
// force-logout the session"). Idempotent: logging out an unknown/already
// logged-out session is not an error.
func (c *Core) Logout(_ context.Context, req wire.Request) wire.Response {
	var p logoutRequest
	_ = wire.DecodeData(req, &p)
	c.ForceLogout(p.SessionID)
	return wire.Ok(nil)
}

// ForceLogout clears the in-memory session and marks the account offline.
// Safe to call with an unknown sessionID (no-op).
func (c *Core) ForceLogout(sessionID string) {
	if sessionID == "" {
		return
	}
	sess, ok := c.Sessions.Get(sessionID)
	if !ok {
		return
	}
	c.Sessions.Delete(sessionID)
	if _, err := c.Store.Update(c.Collection, sess.UserID, store.Document{"online": false}); err != nil {
		c.Log.Warn("force-logout: failed to clear online flag", zap.String("userID", sess.UserID), zap.Error(err))
	}
}

// RequireSession resolves and validates the sessionID embedded in a
// request's data, for use both as a wire.Dispatcher.RequireSession hook
// and directly inside handlers that need the resolved models.Session.
func (c *Core) RequireSession(req wire.Request) (models.Session, error) {
	id, err := session.IDFromRequestData(req.Data)
	if err != nil {
		return models.Session{}, err
	}
	sess, ok := c.Sessions.Get(id)
	if !ok {
		return models.Session{}, models.ErrInvalidSession
	}
	return sess, nil
}
