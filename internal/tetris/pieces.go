// Package tetris is the authoritative per-room Tetris match engine: bag
// generation, SRS rotation with wall kicks, gravity/lock-delay, and
// snapshot broadcasting. Grounded on the teacher's pkg/websocket Hub/Client
// pattern (connection registry + channel-free direct-write broadcast,
// adapted here to raw framed net.Conn writes instead of websocket frames)
// and on the lock/mutation-guarded state shape its card game's
// internal/game package uses for one authoritative table.
package tetris

// Kind is one of the seven standard piece kinds.
type Kind string

const (
	KindI Kind = "I"
	KindO Kind = "O"
	KindT Kind = "T"
	KindS Kind = "S"
	KindZ Kind = "Z"
	KindJ Kind = "J"
	KindL Kind = "L"
)

// AllKinds is the fixed seven-kind set a 7-bag permutes.
var AllKinds = []Kind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}

// Point is a relative cell offset.
type Point struct{ X, Y int }

// shapes maps each kind to its four SRS rotation states (0, R, 2, L), each
// a list of four cell offsets relative to the piece's (x, y) anchor.
var shapes = map[Kind][4][]Point{
	KindI: {
		{{0, 1}, {1, 1}, {2, 1}, {3, 1}},
		{{2, 0}, {2, 1}, {2, 2}, {2, 3}},
		{{0, 2}, {1, 2}, {2, 2}, {3, 2}},
		{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
	},
	KindO: {
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
	},
	KindT: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	KindS: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 1}, {2, 1}, {0, 2}, {1, 2}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	KindZ: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {1, 2}, {2, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
	KindJ: {
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	KindL: {
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
}

// kickKey identifies one (from, to) orientation transition.
type kickKey struct{ From, To int }

// jlstzKicks is the standard SRS wall-kick table shared by J, L, S, T, Z.
var jlstzKicks = map[kickKey][]Point{
	{0, 1}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{1, 0}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{1, 2}: {{0, 0}, {1, 0}, {1, -1}, {0, 2}, {1, 2}},
	{2, 1}: {{0, 0}, {-1, 0}, {-1, 1}, {0, -2}, {-1, -2}},
	{2, 3}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
	{3, 2}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{3, 0}: {{0, 0}, {-1, 0}, {-1, -1}, {0, 2}, {-1, 2}},
	{0, 3}: {{0, 0}, {1, 0}, {1, 1}, {0, -2}, {1, -2}},
}

// iKicks is the I-piece's distinct wall-kick table.
var iKicks = map[kickKey][]Point{
	{0, 1}: {{0, 0}, {-2, 0}, {1, 0}, {-2, -1}, {1, 2}},
	{1, 0}: {{0, 0}, {2, 0}, {-1, 0}, {2, 1}, {-1, -2}},
	{1, 2}: {{0, 0}, {-1, 0}, {2, 0}, {-1, 2}, {2, -1}},
	{2, 1}: {{0, 0}, {1, 0}, {-2, 0}, {1, -2}, {-2, 1}},
	{2, 3}: {{0, 0}, {2, 0}, {-1, 0}, {2, 1}, {-1, -2}},
	{3, 2}: {{0, 0}, {-2, 0}, {1, 0}, {-2, -1}, {1, 2}},
	{3, 0}: {{0, 0}, {1, 0}, {-2, 0}, {1, -2}, {-2, 1}},
	{0, 3}: {{0, 0}, {-1, 0}, {2, 0}, {-1, 2}, {2, -1}},
}

// oKicks is the O-piece's table: no kick ever applies.
var oKicks = []Point{{0, 0}}

// kicksFor returns the ordered wall-kick offsets to try when rotating kind
// from orientation `from` to `to`. Missing keys degrade to [(0,0)] per
// spec.
func kicksFor(kind Kind, from, to int) []Point {
	switch kind {
	case KindO:
		return oKicks
	case KindI:
		if pts, ok := iKicks[kickKey{from, to}]; ok {
			return pts
		}
	default:
		if pts, ok := jlstzKicks[kickKey{from, to}]; ok {
			return pts
		}
	}
	return []Point{{0, 0}}
}

// cellsAt returns the absolute board cells a piece of kind/orientation
// occupies when anchored at (x, y).
func cellsAt(kind Kind, orientation, x, y int) []Point {
	state := shapes[kind][((orientation%4)+4)%4]
	out := make([]Point, len(state))
	for i, p := range state {
		out[i] = Point{X: x + p.X, Y: y + p.Y}
	}
	return out
}

// colorCode assigns a stable 1..7 color code to a kind for board cells.
func colorCode(k Kind) int {
	for i, kind := range AllKinds {
		if kind == k {
			return i + 1
		}
	}
	return 0
}
