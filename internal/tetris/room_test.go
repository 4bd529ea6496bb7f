package tetris

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/marnhollow/arcadehost/internal/models"
	"github.com/marnhollow/arcadehost/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// drain reads and discards frames from c until it errors (the conn closed),
// standing in for a real client so Room.broadcast's writes don't block on
// net.Pipe's unbuffered, synchronous semantics.
func drain(c net.Conn) {
	for {
		if _, err := wire.ReadFrame(c); err != nil {
			return
		}
	}
}

func TestJoinRejectsDuplicateSeat(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)

	require.NoError(t, r.Join(a, "p1", "alice"))

	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()
	go drain(d)
	err := r.Join(c, "p1", "mallory")
	assert.ErrorIs(t, err, models.ErrRoleTaken)
}

func TestJoinAddsSpectatorWithoutASeat(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)

	require.NoError(t, r.Join(a, "", "watcher"))
	assert.Nil(t, r.p1)
	assert.Nil(t, r.p2)
	assert.Len(t, r.conns, 1)
}

func TestDisconnectMarksSeatedPlayerDead(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	go drain(b)
	require.NoError(t, r.Join(a, "p1", "alice"))
	a.Close()
	b.Close()

	r.Disconnect(a)
	require.NotNil(t, r.p1)
	assert.False(t, r.p1.Alive)
	assert.Empty(t, r.conns)
}

func TestStartGameRequiresBothSeats(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	require.NoError(t, r.Join(a, "p1", "alice"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.False(t, r.StartGame(ctx))

	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()
	go drain(d)
	require.NoError(t, r.Join(c, "p2", "bob"))

	assert.True(t, r.StartGame(ctx))
	assert.False(t, r.StartGame(ctx), "a second StartGame call must be a no-op")
}

func TestTickGravityEndsGameWhenOnePlayerRemains(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()
	go drain(d)
	require.NoError(t, r.Join(a, "p1", "alice"))
	require.NoError(t, r.Join(c, "p2", "bob"))
	r.running = true
	r.p2.Alive = false

	winner, over := r.tickGravity(time.Now())
	require.True(t, over)
	require.NotNil(t, winner)
	assert.Equal(t, "alice", *winner)
	assert.False(t, r.running)
}

func TestEndGameInvokesOnOverHookWithWinner(t *testing.T) {
	var gotWinner *string
	hookCalled := make(chan struct{}, 1)
	r := NewRoom("room-1", 1, nil, func(winner *string) {
		gotWinner = winner
		hookCalled <- struct{}{}
	})
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	require.NoError(t, r.Join(a, "p1", "alice"))

	name := "alice"
	r.endGame(&name)

	select {
	case <-hookCalled:
	case <-time.After(time.Second):
		t.Fatal("onOver hook was never called")
	}
	require.NotNil(t, gotWinner)
	assert.Equal(t, "alice", *gotWinner)
}

func TestBroadcastDropsConnectionOnWriteFailure(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	require.NoError(t, r.Join(a, "p1", "alice"))
	b.Close()
	a.Close() // writes to a now fail

	r.broadcast(wire.Push{Type: "state_update"})
	assert.Empty(t, r.conns, "a connection that fails to write must be dropped from the registry")
}

func TestHandleInputRoutesToTheCorrectSeat(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	require.NoError(t, r.Join(a, "p1", "alice"))

	beforeX := r.p1.Current.X
	r.HandleInput("p1", MoveRight)
	assert.Equal(t, beforeX+1, r.p1.Current.X)

	// An input for an unseated role must be a silent no-op.
	assert.NotPanics(t, func() { r.HandleInput("p2", MoveRight) })
}

func TestStateUpdatePayloadIsCompactPerRole(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	require.NoError(t, r.Join(a, "p1", "alice"))

	r.p1.Score = 300
	r.p1.Lines = 3

	r.mu.Lock()
	payload := r.stateUpdatePayload()
	r.mu.Unlock()

	p1State, ok := payload["p1"]
	require.True(t, ok)
	assert.Equal(t, 300, p1State.Score)
	assert.Equal(t, 3, p1State.Lines)
	assert.True(t, p1State.Alive)
	assert.Equal(t, r.p1.Current.Kind, p1State.CurrentPiece.Kind)
	_, hasP2 := payload["p2"]
	assert.False(t, hasP2, "an unseated role has no entry")
}

// TestGravityAndSnapshotLoopsExitOnCancel pins the invariant that a room's
// two background tick loops (spec §4.6) terminate promptly once their
// context is cancelled, rather than leaking for the life of the process.
func TestGravityAndSnapshotLoopsExitOnCancel(t *testing.T) {
	r := NewRoom("room-1", 1, nil, nil)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go drain(b)
	c, d := net.Pipe()
	defer c.Close()
	defer d.Close()
	go drain(d)
	require.NoError(t, r.Join(a, "p1", "alice"))
	require.NoError(t, r.Join(c, "p2", "bob"))

	// Snapshot goroutines after the drain loops are already running, so only
	// gravityLoop/snapshotLoop themselves are under test below.
	opt := goleak.IgnoreCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, r.StartGame(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return goleak.Find(opt) == nil
	}, time.Second, 10*time.Millisecond)
}
