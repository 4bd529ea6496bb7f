package tetris

import (
	"math/rand"
	"sync"

	"github.com/marnhollow/arcadehost/internal/obs"
)

// BagGenerator is the shared 7-bag randomizer both players in a room draw
// from (spec §4.6: "Both players draw from the same generator —
// determinism of the whole match follows from the seed").
type BagGenerator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	queue []Kind

	// Metrics, when set, counts each reshuffle. Left nil by
	// NewBagGenerator; Room.SetObservability wires it in.
	Metrics *obs.Metrics
}

// NewBagGenerator builds a seeded generator. The caller resolves the seed
// (CLI arg, or time-based if absent) before calling this.
func NewBagGenerator(seed int64) *BagGenerator {
	return &BagGenerator{rng: rand.New(rand.NewSource(seed))}
}

// refill appends one freshly Fisher-Yates-shuffled permutation of the seven
// kinds to the queue.
func (b *BagGenerator) refill() {
	bag := make([]Kind, len(AllKinds))
	copy(bag, AllKinds)
	for i := len(bag) - 1; i > 0; i-- {
		j := b.rng.Intn(i + 1)
		bag[i], bag[j] = bag[j], bag[i]
	}
	b.queue = append(b.queue, bag...)
	b.Metrics.IncBagRefill()
}

// Next pops and returns the next piece kind, refilling the bag first if
// empty.
func (b *BagGenerator) Next() Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		b.refill()
	}
	k := b.queue[0]
	b.queue = b.queue[1:]
	return k
}

// Peek returns the next n kinds without consuming them, refilling as
// needed to satisfy the request. Used to keep a player's preview queue at
// least 7 deep.
func (b *BagGenerator) Peek(n int) []Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) < n {
		b.refill()
	}
	out := make([]Kind, n)
	copy(out, b.queue[:n])
	return out
}

// Draw consumes n kinds at once, in FIFO order.
func (b *BagGenerator) Draw(n int) []Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) < n {
		b.refill()
	}
	out := make([]Kind, n)
	copy(out, b.queue[:n])
	b.queue = b.queue[n:]
	return out
}
