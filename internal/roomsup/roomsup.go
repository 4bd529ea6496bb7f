// Package roomsup is the lobby's room-process supervisor: port allocation,
// subprocess spawn, and the monitor/reap task that turns a room process's
// exit into a store deletion. Grounded on spec §9's design note replacing
// the original cooperative "await process.communicate()" pattern with an
// explicit supervisor (launch, attach pipes, dedicated waiter task,
// idempotent reap), and on the teacher's habit (pkg/websocket Hub) of
// keeping one guarded in-memory table per live-resource kind instead of a
// package-level global.
package roomsup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/store"
	"go.uber.org/zap"
)

// Handle is the live process state for one spawned room (GameRoomHandle in
// spec §3): in-memory only, never persisted.
type Handle struct {
	RoomID string
	Port   int
	cmd    *exec.Cmd
}

// gameOverLine is the terminal JSON a room process writes to stdout before
// exiting (spec §4.5 monitor task).
type gameOverLine struct {
	Type   string `json:"type"`
	Winner *string `json:"winner"`
}

// ReapFunc is called once per room exit (or explicit delete) with the
// winner name, if any. Callers supply this to push a game_over-adjacent
// notification or just log; roomsup itself only owns process lifecycle and
// the store Room row.
type ReapFunc func(roomID string, winner *string)

// roomStore is the one store capability Reap needs. *store.Client satisfies
// it; a nil roomStore skips the store deletion, which is how tests run Reap
// without dialing a live store.
type roomStore interface {
	Delete(coll, id string) (store.Document, error)
}

// Supervisor owns the monotonic port counter and the live handle table.
type Supervisor struct {
	mu       sync.Mutex
	handles  map[string]*Handle
	nextPort int
	store    roomStore
	log      *zap.Logger
	onReap   ReapFunc
}

// New builds a Supervisor allocating ports starting at portBase.
func New(st roomStore, portBase int, log *zap.Logger, onReap ReapFunc) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		handles:  make(map[string]*Handle),
		nextPort: portBase,
		store:    st,
		log:      log,
		onReap:   onReap,
	}
}

// AllocatePort returns the next free port and advances the counter.
// Ports are never recycled within a supervisor's lifetime (spec §3).
func (s *Supervisor) AllocatePort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.nextPort
	s.nextPort++
	return p
}

// Spawn launches the room process rooted at folderPath with command line
// (host, port, roomID[, seed]), registers its handle, and starts the
// monitor task that reaps it on exit. The monitor runs detached from ctx
// lifetime (a room must be reaped even if the caller's request context is
// long gone); it stops only when the process exits.
func (s *Supervisor) Spawn(ctx context.Context, host string, port int, roomID, folderPath string, seed *int64) error {
	args := []string{host, strconv.Itoa(port), roomID}
	if seed != nil {
		args = append(args, strconv.FormatInt(*seed, 10))
	}
	cmd := exec.Command("python3", append([]string{"server.py"}, args...)...)
	cmd.Dir = folderPath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("roomsup: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("roomsup: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("roomsup: spawn: %w", err)
	}

	h := &Handle{RoomID: roomID, Port: port, cmd: cmd}
	s.mu.Lock()
	s.handles[roomID] = h
	s.mu.Unlock()

	go s.drainStderr(roomID, stderr)
	go s.monitor(roomID, cmd, stdout)
	return nil
}

func (s *Supervisor) drainStderr(roomID string, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		s.log.Warn("room stderr", zap.String("roomID", roomID), zap.String("line", scanner.Text()))
	}
}

// monitor awaits process completion, parses the terminal game_over JSON
// line from stdout, and reaps the room regardless of whether parsing
// succeeded (spec §4.5: "Non-zero exit codes or unparseable stdout are
// logged and the entry is still reaped").
func (s *Supervisor) monitor(roomID string, cmd *exec.Cmd, stdout io.Reader) {
	var winner *string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var line gameOverLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err == nil && line.Type == "game_over" {
			winner = line.Winner
		}
	}

	if err := cmd.Wait(); err != nil {
		s.log.Warn("room process exited with error", zap.String("roomID", roomID), zap.Error(err))
	}

	s.Reap(roomID, winner)
}

// Reap is the idempotent internal delete-room path: it removes the live
// handle and the store's Room record. Safe to call twice (e.g. once from
// the monitor, once from an operator's concurrent delete-room) and safe to
// call for an id that was already reaped.
func (s *Supervisor) Reap(roomID string, winner *string) {
	s.mu.Lock()
	_, existed := s.handles[roomID]
	delete(s.handles, roomID)
	s.mu.Unlock()

	if !existed {
		return
	}

	if s.store != nil {
		if _, err := s.store.Delete("Room", roomID); err != nil {
			s.log.Warn("reap: store delete failed", zap.String("roomID", roomID), zap.Error(err))
		}
	}
	if s.onReap != nil {
		s.onReap(roomID, winner)
	}
}

// Kill terminates a live room's process, used by an owner-initiated
// delete-room (the monitor task still runs to completion and calls Reap,
// which will see the handle already gone and no-op).
func (s *Supervisor) Kill(roomID string) error {
	s.mu.Lock()
	h, ok := s.handles[roomID]
	s.mu.Unlock()
	if !ok {
		return models.ErrRoomNotFound
	}
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

// Resolve performs spec §4.5's id-prefix matching against the live handle
// table: zero matches is an error, ≥2 is ambiguous, exactly one proceeds.
func (s *Supervisor) Resolve(prefix string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match *Handle
	count := 0
	for id, h := range s.handles {
		if len(prefix) <= len(id) && id[:len(prefix)] == prefix {
			match = h
			count++
		}
	}
	switch {
	case count == 0:
		return nil, models.ErrRoomNotFound
	case count > 1:
		return nil, models.ErrAmbiguousRoomID
	default:
		return match, nil
	}
}
