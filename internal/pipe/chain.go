package pipe

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/NanoOS/internal/shared/id"
	"github.com/GriffinCanCode/NanoOS/internal/stream"
)

// Monotonic sequence numbers give every side and chain an immutable,
// total lock order. Multi-lock paths acquire side locks in ascending
// side sequence, and chain locks only via TryLock, so no wait-for cycle
// can form between concurrent welds, frees, and state queries.
var (
	sideSeq  atomic.Uint64
	chainSeq atomic.Uint64
)

// chain is the shared record behind one pipe or one welded pipe chain.
//
// Exactly two stream buffers exist per chain no matter how many pipes
// have been fused into it; interior joints own no buffers at all.
type chain struct {
	id  id.ChainID
	seq uint64

	// mu is the state-transition lock: it guards the side list and the
	// buffer pointers against concurrent welds and frees.
	mu         sync.Mutex
	aliceToBob *stream.Buffer
	bobToAlice *stream.Buffer
	sides      []*Side // in order of travel from Alice to Bob
}

func newChain(aliceToBob, bobToAlice *stream.Buffer) *chain {
	return &chain{
		id:         id.NewChainID(),
		seq:        chainSeq.Add(1),
		aliceToBob: aliceToBob,
		bobToAlice: bobToAlice,
	}
}

// open reports whether both outer endpoints are alive. Sides only leave
// the list through free, so an odd count means exactly one outer side
// has been released. Caller holds c.mu.
func (c *chain) open() bool {
	return len(c.sides)%2 == 0
}

// indexOf locates a side in the travel order. Caller holds c.mu.
func (c *chain) indexOf(s *Side) int {
	for i, member := range c.sides {
		if member == s {
			return i
		}
	}
	return -1
}

// remove drops a side from the travel order. Caller holds c.mu.
func (c *chain) remove(s *Side) {
	i := c.indexOf(s)
	if i < 0 {
		return
	}
	c.sides = append(c.sides[:i], c.sides[i+1:]...)
}

// outerAlice returns the side at the Alice end. Caller holds c.mu.
func (c *chain) outerAlice() *Side {
	return c.sides[0]
}

// outerBob returns the side at the Bob end. Caller holds c.mu.
func (c *chain) outerBob() *Side {
	return c.sides[len(c.sides)-1]
}
