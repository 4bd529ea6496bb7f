package tetris

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/obs"
	"github.com/marnhollow/arcadehost/internal/wire"
	"go.uber.org/zap"
)

// Move is one input action a connected seat can send.
type Move string

const (
	MoveLeft       Move = "Left"
	MoveRight      Move = "Right"
	MoveRotateCW   Move = "RotateCW"
	MoveRotateCCW  Move = "RotateCCW"
	MoveSoftDrop   Move = "SoftDrop"
	MoveHardDrop   Move = "HardDrop"
	MoveHold       Move = "Hold"
)

// conn is one registered writer: every client connected to the room,
// whether a seated player or a spectator (spec §4.6 broadcast: "iterate
// all registered writer connections; on write failure drop the connection
// silently" — adapted from the teacher's pkg/websocket Hub broadcast loop,
// here writing directly to framed net.Conn instead of a buffered Send
// channel, since the room has no per-client backpressure requirement).
type conn struct {
	raw  net.Conn
	role string // "p1", "p2", or "" for spectators
}

// Room is one live authoritative match: two player seats, N spectators, a
// shared bag, and the gravity/snapshot tick loops.
type Room struct {
	RoomID string
	Seed   int64
	Bag    *BagGenerator
	Log    *zap.Logger

	// Metrics and Tracer are nil until SetObservability is called; every
	// use site is nil-safe so an unobserved room behaves exactly as
	// before.
	Metrics *obs.Metrics
	Tracer  *obs.Tracer

	mu      sync.Mutex
	p1      *PlayerState
	p2      *PlayerState
	conns   []*conn
	started bool
	running bool
	onOver  func(winner *string)
}

// SetObservability wires a metrics set and tracer into the room and its
// bag generator. Called once, before the room starts accepting joins.
func (r *Room) SetObservability(m *obs.Metrics, t *obs.Tracer) {
	r.Metrics = m
	r.Tracer = t
	if r.Bag != nil {
		r.Bag.Metrics = m
	}
}

// NewRoom builds an unstarted room. Seats are populated lazily as players
// join.
func NewRoom(roomID string, seed int64, log *zap.Logger, onOver func(winner *string)) *Room {
	if log == nil {
		log = zap.NewNop()
	}
	return &Room{
		RoomID: roomID,
		Seed:   seed,
		Bag:    NewBagGenerator(seed),
		Log:    log,
		onOver: onOver,
	}
}

// Join claims a seat (p1/p2) or registers a spectator. Returns an error if
// the requested seat is already taken.
func (r *Room) Join(c net.Conn, role, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch models.Role(role) {
	case models.RoleP1:
		if r.p1 != nil {
			return models.ErrRoleTaken
		}
		r.p1 = NewPlayerState(name, r.Bag)
		r.conns = append(r.conns, &conn{raw: c, role: "p1"})
	case models.RoleP2:
		if r.p2 != nil {
			return models.ErrRoleTaken
		}
		r.p2 = NewPlayerState(name, r.Bag)
		r.conns = append(r.conns, &conn{raw: c, role: "p2"})
	default:
		r.conns = append(r.conns, &conn{raw: c})
	}
	return nil
}

// Disconnect drops a connection from the registry and, if it held a
// player seat, marks that seat forfeited (spec §5: connection loss
// forfeits a seated player).
func (r *Room) Disconnect(c net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var role string
	for i, rc := range r.conns {
		if rc.raw == c {
			role = rc.role
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			break
		}
	}
	switch role {
	case "p1":
		if r.p1 != nil {
			r.p1.Alive = false
		}
	case "p2":
		if r.p2 != nil {
			r.p2.Alive = false
		}
	}
}

// StartGame is honoured only once both seats are filled; it starts the
// gravity and snapshot loops.
func (r *Room) StartGame(ctx context.Context) bool {
	r.mu.Lock()
	if r.started || r.p1 == nil || r.p2 == nil {
		r.mu.Unlock()
		return false
	}
	r.started = true
	r.running = true
	r.mu.Unlock()

	r.broadcast(wire.Push{Type: "game_start"})
	go r.gravityLoop(ctx)
	go r.snapshotLoop(ctx)
	return true
}

// HandleInput applies one input move to the seat identified by role.
func (r *Room) HandleInput(role string, move Move) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p *PlayerState
	switch role {
	case "p1":
		p = r.p1
	case "p2":
		p = r.p2
	}
	if p == nil {
		return
	}

	now := time.Now()
	switch move {
	case MoveLeft:
		p.Move(-1)
	case MoveRight:
		p.Move(1)
	case MoveRotateCW:
		p.Rotate(true)
	case MoveRotateCCW:
		p.Rotate(false)
	case MoveSoftDrop:
		p.SoftDrop(now)
	case MoveHardDrop:
		p.HardDrop()
	case MoveHold:
		p.HoldPiece()
	}
}

// RequestSnapshot sends one immediate snapshot to the requesting
// connection only (supplemental behavior resolving spec's silence on this
// action's effect; see design notes).
func (r *Room) RequestSnapshot(c net.Conn) {
	r.mu.Lock()
	payload := r.snapshotPayload()
	r.mu.Unlock()
	_ = wire.WriteJSON(c, wire.Push{Type: "snapshot", Payload: payload})
}

func (r *Room) snapshotPayload() map[string]Snapshot {
	out := map[string]Snapshot{}
	if r.p1 != nil {
		out["p1"] = r.p1.ToSnapshot()
	}
	if r.p2 != nil {
		out["p2"] = r.p2.ToSnapshot()
	}
	return out
}

// stateUpdatePayload builds the compact per-role view the gravity loop
// broadcasts each tick (original_source/game/server.py
// broadcast_minimal): current piece, score, lines, alive, nothing else.
// Caller must hold r.mu.
func (r *Room) stateUpdatePayload() map[string]CompactState {
	out := map[string]CompactState{}
	if r.p1 != nil {
		out["p1"] = r.p1.ToCompact()
	}
	if r.p2 != nil {
		out["p2"] = r.p2.ToCompact()
	}
	return out
}

// gravityLoop advances both players every GravityInterval and checks the
// end condition after each tick (spec §4.6).
func (r *Room) gravityLoop(ctx context.Context) {
	ticker := time.NewTicker(GravityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_, span := r.Tracer.Span(ctx, "tetris.gravity_tick")
			winner, over := r.tickGravity(now)
			if over {
				span.End()
				r.endGame(winner)
				return
			}
			r.mu.Lock()
			payload := r.stateUpdatePayload()
			r.mu.Unlock()
			r.broadcast(wire.Push{Type: "state_update", Payload: payload})
			span.End()
		}
	}
}

func (r *Room) tickGravity(now time.Time) (*string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil, true
	}
	if r.p1 != nil {
		r.p1.Tick(now)
	}
	if r.p2 != nil {
		r.p2.Tick(now)
	}

	alive := 0
	var lastAliveName *string
	if r.p1 != nil && r.p1.Alive {
		alive++
		n := r.p1.Name
		lastAliveName = &n
	}
	if r.p2 != nil && r.p2.Alive {
		alive++
		n := r.p2.Name
		lastAliveName = &n
	}
	if alive <= 1 {
		r.running = false
		return lastAliveName, true
	}
	return nil, false
}

// endGame broadcasts game_over, notifies the caller-supplied hook (which
// writes the terminal stdout line for the monitor to harvest), and stops.
func (r *Room) endGame(winner *string) {
	r.broadcast(wire.Push{Type: "game_over", Payload: map[string]any{"winner": deref(winner)}})
	if r.onOver != nil {
		r.onOver(winner)
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// snapshotLoop broadcasts a full snapshot of both players every
// SnapshotInterval while the room is running.
func (r *Room) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, span := r.Tracer.Span(ctx, "tetris.snapshot_tick")
			r.mu.Lock()
			running := r.running
			payload := r.snapshotPayload()
			r.mu.Unlock()
			if !running {
				span.End()
				return
			}
			r.broadcast(wire.Push{Type: "snapshot", Payload: payload})
			r.Metrics.IncSnapshotSent()
			span.End()
		}
	}
}

// broadcast writes push to every registered connection, dropping any that
// fail to write (spec §4.6).
func (r *Room) broadcast(push wire.Push) {
	r.mu.Lock()
	conns := make([]*conn, len(r.conns))
	copy(conns, r.conns)
	r.mu.Unlock()

	var dead []*conn
	for _, c := range conns {
		if err := wire.WriteJSON(c.raw, push); err != nil {
			dead = append(dead, c)
		}
	}
	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dead {
		for i, c := range r.conns {
			if c == d {
				r.conns = append(r.conns[:i], r.conns[i+1:]...)
				break
			}
		}
	}
}
