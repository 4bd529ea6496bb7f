package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

// Request is the store's own envelope shape, distinct from the lobby
// dispatcher's {action, data}: spec §6 pins store frames to
// {collection, action, data}.
type Request struct {
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Data       json.RawMessage `json:"data"`
}

// Server drives one TCP listener over an Engine. Unlike the lobby
// listeners, the store dispatcher has no session concept: spec §4.1 scopes
// session propagation to lobby actions only.
type Server struct {
	Engine *Engine
	Logger *zap.Logger
	Tracer *obs.Tracer
}

// Serve accepts store connections on ln until ctx is cancelled, running
// ConnHandler for each one through a wire.Server.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ws := &wire.Server{Name: "store", Handler: s.ConnHandler, Logger: s.Logger}
	return ws.Serve(ctx, ln)
}

// ConnHandler adapts Server to wire.Server's per-connection contract: a
// JSON parse failure is terminal for the store connection (spec §4.1).
func (s *Server) ConnHandler(ctx context.Context, conn net.Conn) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		body, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			_ = wire.WriteJSON(conn, wire.Err("invalid request"))
			return
		}

		_, span := s.Tracer.Span(ctx, "store.dispatch."+req.Collection+"."+req.Action)
		resp := s.handle(req)
		span.End()

		if err := wire.WriteJSON(conn, resp); err != nil {
			logger.Warn("store: write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) handle(req Request) wire.Response {
	if req.Collection == "" {
		return wire.Err("missing collection")
	}

	switch req.Action {
	case "create":
		var p struct {
			Data Document `json:"data"`
		}
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return wire.Err("invalid create payload")
		}
		doc, err := s.Engine.Create(req.Collection, p.Data)
		return respond(doc, err)

	case "read":
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return wire.Err("invalid read payload")
		}
		doc, err := s.Engine.Read(req.Collection, p.ID)
		return respond(doc, err)

	case "update":
		var p struct {
			ID   string   `json:"id"`
			Data Document `json:"data"`
		}
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return wire.Err("invalid update payload")
		}
		doc, err := s.Engine.Update(req.Collection, p.ID, p.Data)
		return respond(doc, err)

	case "delete":
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return wire.Err("invalid delete payload")
		}
		doc, err := s.Engine.Delete(req.Collection, p.ID)
		return respond(doc, err)

	case "query":
		var p struct {
			Filter Document `json:"filter"`
		}
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return wire.Err("invalid query payload")
		}
		docs, err := s.Engine.Query(req.Collection, p.Filter)
		if err != nil {
			return respond(nil, err)
		}
		return wire.Ok(docs)

	default:
		return wire.Err(fmt.Sprintf("unrecognised store action: %s", req.Action))
	}
}

func respond(doc Document, err error) wire.Response {
	if err != nil {
		if err == models.ErrNotFound || err == models.ErrCollectionUnknown {
			return wire.Err(err.Error())
		}
		return wire.Err("backing store failure")
	}
	return wire.Ok(doc)
}
