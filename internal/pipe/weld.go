package pipe

import (
	"runtime"
	"sort"

	"github.com/GriffinCanCode/NanoOS/internal/monitoring"
	"github.com/GriffinCanCode/NanoOS/internal/stream"
	"go.uber.org/zap"
)

// Weld fuses two sides of different pipes into one chain.
//
// Here's a pipe:
//
//	    |         |
//	  s |=========| r
//	----|---->----|----
//	----|----<----|----
//	  r |=========| s
//	    |         |
//	    A         B
//
// It's got two sides (Alice and Bob) and two stream buffers backing it
// (A to B and B to A). From Alice's perspective, A>B is the sending
// stream and A<B the receiving stream; the other way around for Bob.
//
// Welding the facing sides iB and iA of two pipes forms a pipe chain
// with the outer ends cA and cB:
//
//	    |         |     |         |
//	  s |=========|=====|=========| r
//	----|------------>------------|----
//	----|------------<------------|----
//	  r |=========|=====|=========| s
//	    |         |     |         |
//	   cA        iB    iA        cB
//
// Only one stream buffer per direction survives, so traffic crosses the
// chain without intermediate copies. The cost: the fused sides become
// joints, and nothing can inspect or inject data at a joint.
//
// Preconditions (violations panic): both sides weldable and not already
// joints, one Alice and one Bob, distinct chains, both chains open.
// Residual bytes parked at the fused sides are migrated so nothing is
// lost: the weld is invisible in the byte streams observed at cA and cB.
//
// The weld appears atomic to concurrent operations on either chain:
// sends and receives in flight complete before it, later ones land on
// the fused chain.
func Weld(s1, s2 *Side) {
	s1.check()
	s2.check()
	if !s1.weldable || !s2.weldable {
		panic("pipe: welding a non-weldable side")
	}

	for {
		c1 := s1.chain.Load()
		c2 := s2.chain.Load()
		if c1 == c2 {
			panic("pipe: welding two ends of the same chain")
		}

		first, second := c1, c2
		if second.seq < first.seq {
			first, second = second, first
		}
		if !first.mu.TryLock() {
			runtime.Gosched()
			continue
		}
		if !second.mu.TryLock() {
			first.mu.Unlock()
			runtime.Gosched()
			continue
		}
		if s1.chain.Load() != c1 || s2.chain.Load() != c2 {
			// a concurrent weld moved a side between the load and the
			// locks; start over on the new chains
			second.mu.Unlock()
			first.mu.Unlock()
			continue
		}

		// membership and roles are stable now: frees and other welds
		// need the chain locks we hold
		all := lockSides(c1, c2)
		weldLocked(s1, s2)
		unlockSides(all)
		second.mu.Unlock()
		first.mu.Unlock()
		return
	}
}

// weldLocked performs the fusion. Caller holds both chain locks and
// every side lock of both chains.
func weldLocked(s1, s2 *Side) {
	if s1.freed.Load() || s2.freed.Load() {
		panic("pipe: welding a freed side")
	}
	if s1.role == RoleJoint || s2.role == RoleJoint {
		panic("pipe: welding an already welded side")
	}
	if s1.role == s2.role {
		panic("pipe: can only weld an alice to a bob")
	}

	iA := s1
	iB := s2
	if s2.role == RoleAlice {
		iA, iB = s2, s1
	}

	left := iB.chain.Load()
	right := iA.chain.Load()
	if !left.open() || !right.open() {
		panic("pipe: welding a broken chain")
	}

	// traffic parked at the fused sides keeps flowing toward the outer
	// ends: bytes stuck at iB continue toward cB, bytes stuck at iA
	// continue toward cA
	transfer(left.aliceToBob, right.aliceToBob)
	transfer(right.bobToAlice, left.bobToAlice)

	// concat the right chain onto the left
	for _, side := range right.sides {
		side.chain.Store(left)
		left.sides = append(left.sides, side)
	}

	// collapse to one buffer per direction
	left.aliceToBob = right.aliceToBob
	right.sides = nil

	// the fused sides become joints and stop doing I/O
	iB.role = RoleJoint
	iB.sending, iB.receiving = nil, nil
	iB.peerReadable, iB.peerWritable = nil, nil
	iA.role = RoleJoint
	iA.sending, iA.receiving = nil, nil
	iA.peerReadable, iA.peerWritable = nil, nil

	// the outer ends now back each other
	chainAlice := left.outerAlice()
	chainBob := left.outerBob()
	chainAlice.sending = left.aliceToBob
	chainAlice.receiving = left.bobToAlice
	chainBob.sending = left.bobToAlice
	chainBob.receiving = left.aliceToBob
	chainAlice.peerReadable, chainAlice.peerWritable = chainBob.readable, chainBob.writable
	chainBob.peerReadable, chainBob.peerWritable = chainAlice.readable, chainAlice.writable

	monitoring.WeldsTotal.Inc()
	plog().Debug("pipes welded",
		zap.String("chain", left.id.String()),
		zap.Int("sides", len(left.sides)),
	)
}

// Unweld undoes a weld, splitting the chain at the given joint and its
// partner. Both regain their original roles and each resulting chain
// gets its own buffer pair, restored from the direction settings
// captured at allocation.
//
// Residual bytes are split deterministically by destination: data in
// flight toward the outer Bob stays with the chain that keeps the outer
// Bob, data toward the outer Alice with the chain that keeps the outer
// Alice. Nothing is copied, dropped or duplicated.
//
// Panics if the side is not a joint.
func Unweld(s *Side) {
	s.check()
	if !s.weldable {
		panic("pipe: unwelding a non-weldable side")
	}

	for {
		c := s.chain.Load()
		if !c.mu.TryLock() {
			runtime.Gosched()
			continue
		}
		if s.chain.Load() != c {
			c.mu.Unlock()
			continue
		}

		all := lockSides(c, nil)
		unweldLocked(s, c)
		unlockSides(all)
		c.mu.Unlock()
		return
	}
}

// unweldLocked performs the split. Caller holds the chain lock and
// every side lock of the chain.
func unweldLocked(s *Side, c *chain) {
	if s.freed.Load() {
		panic("pipe: unwelding a freed side")
	}
	if s.role != RoleJoint {
		panic("pipe: unwelding a side that is not a joint")
	}

	// a weld fuses a Bob-origin side to the Alice-origin side right
	// after it; that adjacency survives everything else the chain has
	// been through
	i := c.indexOf(s)
	lo := i
	if s.origin == RoleAlice {
		lo = i - 1
	}
	hi := lo + 1
	if lo < 0 || hi >= len(c.sides) {
		panic("pipe: joint has no weld partner in its chain")
	}
	jointBob := c.sides[lo]
	jointAlice := c.sides[hi]
	if jointBob.origin != RoleBob || jointBob.role != RoleJoint ||
		jointAlice.origin != RoleAlice || jointAlice.role != RoleJoint {
		panic("pipe: chain joint ordering is corrupt")
	}

	leftSides := append([]*Side{}, c.sides[:hi]...)
	rightSides := append([]*Side{}, c.sides[hi:]...)

	// each new chain keeps the buffer whose data is heading toward the
	// outer end it retains, and restores the other direction from the
	// settings captured at allocation
	keptToBob := repairIfStale(c.aliceToBob, len(rightSides)%2 == 0)
	keptToAlice := repairIfStale(c.bobToAlice, len(leftSides)%2 == 0)

	c.sides = leftSides
	c.aliceToBob = stream.New(jointBob.recvSettings.Capacity, jointBob.recvSettings.TriggerLevel)
	c.bobToAlice = keptToAlice

	rc := newChain(keptToBob, stream.New(jointAlice.recvSettings.Capacity, jointAlice.recvSettings.TriggerLevel))
	rc.sides = rightSides

	// the joints regain their original roles; rewireEnds hands them
	// their buffers and peers
	jointBob.role = RoleBob
	rewireEnds(c)

	jointAlice.role = RoleAlice
	for _, side := range rightSides {
		side.chain.Store(rc)
	}
	rewireEnds(rc)

	monitoring.UnweldsTotal.Inc()
	plog().Debug("pipes unwelded",
		zap.String("left_chain", c.id.String()),
		zap.String("right_chain", rc.id.String()),
		zap.Int("left_sides", len(c.sides)),
		zap.Int("right_sides", len(rc.sides)),
	)
}

// rewireEnds points a chain's live outer sides at the chain buffers and
// at each other's links. A broken chain may be missing one end; the
// survivor then has no peer to notify. Caller holds all relevant locks.
func rewireEnds(c *chain) {
	alice := c.outerAlice()
	bob := c.outerBob()

	if alice.role == RoleAlice {
		alice.sending = c.aliceToBob
		alice.receiving = c.bobToAlice
		alice.peerReadable, alice.peerWritable = nil, nil
	}
	if bob.role == RoleBob {
		bob.sending = c.bobToAlice
		bob.receiving = c.aliceToBob
		bob.peerReadable, bob.peerWritable = nil, nil
	}
	if alice.role == RoleAlice && bob.role == RoleBob && alice != bob {
		alice.peerReadable, alice.peerWritable = bob.readable, bob.writable
		bob.peerReadable, bob.peerWritable = alice.readable, alice.writable
	}
}

// repairIfStale replaces a buffer that was broken by an earlier free
// when it is about to serve a chain that has both ends alive again.
// Residual bytes carry over; blocking semantics come back with the
// fresh ring.
func repairIfStale(b *stream.Buffer, chainOpen bool) *stream.Buffer {
	if !chainOpen || !b.Broken() {
		return b
	}
	fresh := stream.New(b.Capacity(), b.TriggerLevel())
	transfer(b, fresh)
	return fresh
}

// transfer drains every byte of src into dst. Caller must guarantee dst
// has room; losing residual data would corrupt the end-to-end stream,
// so a short transfer is fatal.
func transfer(src, dst *stream.Buffer) {
	n := src.BytesAvailable()
	if n == 0 {
		return
	}
	buf := make([]byte, n)
	got := src.Receive(buf, 0)
	sent := dst.Send(buf[:got], 0)
	if sent != got || src.BytesAvailable() != 0 {
		panic("pipe: residual data lost during weld")
	}
}

// lockSides takes every side lock of one or two chains in ascending
// sequence order. Caller holds the chain locks, which pins membership.
func lockSides(a, b *chain) []*Side {
	var all []*Side
	all = append(all, a.sides...)
	if b != nil {
		all = append(all, b.sides...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, s := range all {
		s.lock()
	}
	return all
}

// unlockSides releases side locks in reverse acquisition order.
func unlockSides(all []*Side) {
	for i := len(all) - 1; i >= 0; i-- {
		all[i].unlock()
	}
}
