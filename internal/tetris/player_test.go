package tetris

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRSKickOrderForTPiece(t *testing.T) {
	// Spec §8 property 5: T-piece at orientation 0, rotating to
	// orientation 1 (R), tries this exact ordered offset sequence.
	kicks := kicksFor(KindT, 0, 1)
	want := []Point{{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}}
	assert.Equal(t, want, kicks)
}

func TestOPieceNeverKicks(t *testing.T) {
	for from := 0; from < 4; from++ {
		to := (from + 1) % 4
		assert.Equal(t, []Point{{0, 0}}, kicksFor(KindO, from, to))
	}
}

func TestGroundedDetectsFloorAndStackContact(t *testing.T) {
	bag := NewBagGenerator(7)
	p := NewPlayerState("p1", bag)

	p.Current = ActivePiece{Kind: KindO, X: 4, Y: 0, Orientation: 0}
	assert.False(t, p.grounded(), "a piece above an empty board is not grounded")

	for x := 0; x < BoardW; x++ {
		p.Board[BoardH-1][x] = 1
	}
	p.Current = ActivePiece{Kind: KindO, X: 4, Y: BoardH - 3, Orientation: 0}
	assert.True(t, p.grounded(), "a piece resting directly on the stack is grounded")
}

func TestLockDelayResetsOnMove(t *testing.T) {
	bag := NewBagGenerator(7)
	p := NewPlayerState("p1", bag)

	// Simulate a grounded piece directly: fill the bottom row and rest an
	// O piece on top of it.
	for x := 0; x < BoardW; x++ {
		p.Board[BoardH-1][x] = 1
	}
	p.Current = ActivePiece{Kind: KindO, X: 4, Y: BoardH - 3, Orientation: 0}

	now := time.Now()
	p.Tick(now) // collides against the filled floor, starts lock timer
	assert.False(t, p.lockTimer.IsZero())

	assert.True(t, p.Move(-1))
	assert.True(t, p.lockTimer.IsZero(), "a successful move must clear the lock timer")
}

func TestLockDelayLocksAfterWindow(t *testing.T) {
	bag := NewBagGenerator(7)
	p := NewPlayerState("p1", bag)
	for x := 0; x < BoardW; x++ {
		p.Board[BoardH-1][x] = 1
	}
	p.Current = ActivePiece{Kind: KindO, X: 4, Y: BoardH - 3, Orientation: 0}

	start := time.Now()
	p.Tick(start)
	require.False(t, p.lockTimer.IsZero())

	// No input for LockDelay: the next tick at start+LockDelay+epsilon
	// must invoke the lock routine (piece painted, new piece spawned).
	lockedAt := start.Add(LockDelay + time.Millisecond)
	beforeLines := p.Lines
	p.Tick(lockedAt)

	assert.NotEqual(t, KindO, p.Current.Kind, "locking must spawn a new piece")
	assert.GreaterOrEqual(t, p.Lines, beforeLines)
}

func TestTopOutOnOccupiedSpawn(t *testing.T) {
	bag := NewBagGenerator(1)
	p := NewPlayerState("p1", bag)

	// Prefill the top rows so every spawn cell is occupied.
	for y := 0; y <= 1; y++ {
		for x := 0; x < BoardW; x++ {
			p.Board[y][x] = 1
		}
	}
	p.spawnNext()

	assert.False(t, p.Alive)
}

func TestHardDropScoresAndClearsLines(t *testing.T) {
	bag := NewBagGenerator(3)
	p := NewPlayerState("p1", bag)

	// Build a well: fill every column except column 9 across the bottom
	// four rows, then hard-drop an I piece oriented vertically into it.
	for y := BoardH - 4; y < BoardH; y++ {
		for x := 0; x < BoardW-1; x++ {
			p.Board[y][x] = 2
		}
	}
	// Orientation 1 occupies column X+2 (shapes[KindI][1]); X=7 lines that
	// up with the well at column 9.
	p.Current = ActivePiece{Kind: KindI, X: 7, Y: SpawnY, Orientation: 1}

	beforeScore := p.Score
	p.HardDrop()

	assert.Equal(t, beforeScore+10+800, p.Score)
	assert.Equal(t, 4, p.Lines)
}
