package tetris

import "time"

// LockDelay is the grace interval after a piece first rests on the stack
// before it locks in place, reset by successful movement (spec §4.6).
const LockDelay = 400 * time.Millisecond

// GravityInterval is the gravity loop's tick cadence.
const GravityInterval = 800 * time.Millisecond

// SnapshotInterval is the snapshot loop's tick cadence.
const SnapshotInterval = 200 * time.Millisecond

// ActivePiece is the currently falling/grounded/locked piece.
type ActivePiece struct {
	Kind        Kind
	X, Y        int
	Orientation int
}

// PlayerState is one player's full authoritative state (spec §4.6).
type PlayerState struct {
	Name      string
	Board     Board
	Current   ActivePiece
	Next      []Kind // kept >= 7 deep
	Hold      *Kind
	HoldUsed  bool
	Score     int
	Lines     int
	Alive     bool
	lockTimer time.Time // zero value means unset
	bag       *BagGenerator
}

// NewPlayerState spawns a fresh player drawing from the room's shared bag.
func NewPlayerState(name string, bag *BagGenerator) *PlayerState {
	p := &PlayerState{Name: name, Alive: true, bag: bag, Next: bag.Draw(7)}
	p.spawnNext()
	return p
}

func (p *PlayerState) ensureQueue() {
	for len(p.Next) < 7 {
		p.Next = append(p.Next, p.bag.Next())
	}
}

// spawnNext pops the next queued kind into Current at the spawn position
// and orientation 0, refilling the preview queue, and checks for top-out.
func (p *PlayerState) spawnNext() {
	kind := p.Next[0]
	p.Next = p.Next[1:]
	p.ensureQueue()
	p.Current = ActivePiece{Kind: kind, X: SpawnX, Y: SpawnY, Orientation: 0}
	if p.Board.Collides(cellsAt(kind, 0, SpawnX, SpawnY)) {
		p.Alive = false
	}
}

func (p *PlayerState) resetLockTimer() {
	p.lockTimer = time.Time{}
}

func (p *PlayerState) startLockTimerIfUnset(now time.Time) {
	if p.lockTimer.IsZero() {
		p.lockTimer = now
	}
}

func (p *PlayerState) grounded() bool {
	return p.Board.Collides(cellsAt(p.Current.Kind, p.Current.Orientation, p.Current.X, p.Current.Y+1))
}

// Move attempts a horizontal shift; on success it clears the lock timer.
func (p *PlayerState) Move(dx int) bool {
	if !p.Alive {
		return false
	}
	pts := cellsAt(p.Current.Kind, p.Current.Orientation, p.Current.X+dx, p.Current.Y)
	if p.Board.Collides(pts) {
		return false
	}
	p.Current.X += dx
	p.resetLockTimer()
	return true
}

// Rotate attempts rotation by +1 (CW) or -1 (CCW) orientation steps, trying
// each SRS wall-kick offset in order; the first collision-free kick wins.
func (p *PlayerState) Rotate(cw bool) bool {
	if !p.Alive {
		return false
	}
	from := p.Current.Orientation
	to := from + 1
	if !cw {
		to = from - 1
	}
	to = ((to % 4) + 4) % 4

	for _, kick := range kicksFor(p.Current.Kind, from, to) {
		nx, ny := p.Current.X+kick.X, p.Current.Y+kick.Y
		pts := cellsAt(p.Current.Kind, to, nx, ny)
		if !p.Board.Collides(pts) {
			p.Current.X, p.Current.Y, p.Current.Orientation = nx, ny, to
			p.resetLockTimer()
			return true
		}
	}
	return false
}

// SoftDrop attempts +1 y; on success it awards 1 point and clears the lock
// timer, on collision it starts the lock timer if unset.
func (p *PlayerState) SoftDrop(now time.Time) bool {
	if !p.Alive {
		return false
	}
	pts := cellsAt(p.Current.Kind, p.Current.Orientation, p.Current.X, p.Current.Y+1)
	if p.Board.Collides(pts) {
		p.startLockTimerIfUnset(now)
		return false
	}
	p.Current.Y++
	p.Score++
	p.resetLockTimer()
	return true
}

// HardDrop drops the piece to the floor, locks it immediately, and awards
// a flat 10 points on top of the lock routine's scoring.
func (p *PlayerState) HardDrop() {
	if !p.Alive {
		return
	}
	for {
		pts := cellsAt(p.Current.Kind, p.Current.Orientation, p.Current.X, p.Current.Y+1)
		if p.Board.Collides(pts) {
			break
		}
		p.Current.Y++
	}
	p.Score += 10
	p.Lock()
}

// Hold swaps the current piece into the hold slot, spawning from the
// queue (first use) or swapping in the previously held kind. Rejected if
// already used this piece.
func (p *PlayerState) HoldPiece() bool {
	if !p.Alive || p.HoldUsed {
		return false
	}
	cur := p.Current.Kind
	if p.Hold == nil {
		p.Hold = &cur
		p.spawnNext()
	} else {
		swap := *p.Hold
		p.Hold = &cur
		p.Current = ActivePiece{Kind: swap, X: SpawnX, Y: SpawnY, Orientation: 0}
		if p.Board.Collides(cellsAt(swap, 0, SpawnX, SpawnY)) {
			p.Alive = false
		}
	}
	p.HoldUsed = true
	p.resetLockTimer()
	return true
}

// Lock paints the current piece, clears full rows, scores, spawns the
// next piece, and clears lock state (spec §4.6).
func (p *PlayerState) Lock() {
	pts := cellsAt(p.Current.Kind, p.Current.Orientation, p.Current.X, p.Current.Y)
	p.Board.Paint(pts, colorCode(p.Current.Kind))

	cleared := p.Board.ClearLines()
	p.Score += lineScore(cleared)
	p.Lines += cleared

	p.resetLockTimer()
	p.HoldUsed = false
	p.spawnNext()
}

// Tick advances gravity by one step: try +1 y; on success clear the lock
// timer; on collision, start the lock timer if unset, or lock if the
// delay has elapsed.
func (p *PlayerState) Tick(now time.Time) {
	if !p.Alive {
		return
	}
	if !p.grounded() {
		p.Current.Y++
		p.resetLockTimer()
		return
	}
	if p.lockTimer.IsZero() {
		p.lockTimer = now
		return
	}
	if now.Sub(p.lockTimer) >= LockDelay {
		p.Lock()
	}
}

// Snapshot describes the full per-tick view of a player broadcast in
// `snapshot` pushes.
type Snapshot struct {
	Board        Board  `json:"board"`
	Score        int    `json:"score"`
	Lines        int    `json:"lines"`
	Alive        bool   `json:"alive"`
	CurrentPiece pieceView `json:"current_piece"`
	Next         []Kind `json:"next"`
	Hold         *Kind  `json:"hold"`
}

type pieceView struct {
	Kind        Kind `json:"kind"`
	X           int  `json:"x"`
	Y           int  `json:"y"`
	Orientation int  `json:"orientation"`
}

// CompactState is the minimal per-tick view the gravity loop broadcasts in
// `state_update` pushes (spec §4.6 "emits a compact state_update";
// original_source/game/server.py broadcast_minimal pins the shape).
type CompactState struct {
	CurrentPiece pieceView `json:"current_piece"`
	Score        int       `json:"score"`
	Lines        int       `json:"lines"`
	Alive        bool      `json:"alive"`
}

// ToCompact builds this player's state_update view.
func (p *PlayerState) ToCompact() CompactState {
	return CompactState{
		CurrentPiece: pieceView{
			Kind:        p.Current.Kind,
			X:           p.Current.X,
			Y:           p.Current.Y,
			Orientation: p.Current.Orientation,
		},
		Score: p.Score,
		Lines: p.Lines,
		Alive: p.Alive,
	}
}

// ToSnapshot builds this player's full snapshot view, truncating the
// preview queue to 5 entries per spec §4.6.
func (p *PlayerState) ToSnapshot() Snapshot {
	n := len(p.Next)
	if n > 5 {
		n = 5
	}
	next := make([]Kind, n)
	copy(next, p.Next[:n])
	return Snapshot{
		Board: p.Board,
		Score: p.Score,
		Lines: p.Lines,
		Alive: p.Alive,
		CurrentPiece: pieceView{
			Kind:        p.Current.Kind,
			X:           p.Current.X,
			Y:           p.Current.Y,
			Orientation: p.Current.Orientation,
		},
		Next: next,
		Hold: p.Hold,
	}
}
