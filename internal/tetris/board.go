package tetris

const (
	BoardW = 10
	BoardH = 20

	SpawnX = 4
	SpawnY = -1
)

// Board is a 20x10 grid of colour codes; 0 means empty.
type Board [BoardH][BoardW]int

// Occupied reports whether (x, y) holds a painted cell. A cell with y < 0
// is off-screen above the board and never counts as occupied (spec §4.6
// boundary rules).
func (b *Board) Occupied(x, y int) bool {
	if y < 0 {
		return false
	}
	if x < 0 || x >= BoardW || y >= BoardH {
		return true
	}
	return b[y][x] != 0
}

// Collides reports whether any cell of pts collides with the board or the
// board's hard boundaries. x outside [0, BoardW) and y >= BoardH are hard
// collisions; y < 0 is permitted.
func (b *Board) Collides(pts []Point) bool {
	for _, p := range pts {
		if p.X < 0 || p.X >= BoardW || p.Y >= BoardH {
			return true
		}
		if p.Y < 0 {
			continue
		}
		if b[p.Y][p.X] != 0 {
			return true
		}
	}
	return false
}

// Paint writes colour into the board cells of pts. Cells with y < 0 are
// skipped: they are never painted (spec §4.6).
func (b *Board) Paint(pts []Point, color int) {
	for _, p := range pts {
		if p.Y < 0 || p.Y >= BoardH || p.X < 0 || p.X >= BoardW {
			continue
		}
		b[p.Y][p.X] = color
	}
}

// ClearLines removes every full row, shifting rows above down, and returns
// the count cleared.
func (b *Board) ClearLines() int {
	dst := BoardH - 1
	cleared := 0
	for src := BoardH - 1; src >= 0; src-- {
		full := true
		for x := 0; x < BoardW; x++ {
			if b[src][x] == 0 {
				full = false
				break
			}
		}
		if full {
			cleared++
			continue
		}
		if dst != src {
			b[dst] = b[src]
		}
		dst--
	}
	for y := dst; y >= 0; y-- {
		b[y] = [BoardW]int{}
	}
	return cleared
}

// lineScore maps a cleared-line count to the points it awards (spec §4.6).
func lineScore(lines int) int {
	switch lines {
	case 1:
		return 100
	case 2:
		return 300
	case 3:
		return 500
	case 4:
		return 800
	default:
		return lines * 200
	}
}
