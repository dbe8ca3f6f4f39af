package pipe

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/NanoOS/internal/eventloop"
	"github.com/GriffinCanCode/NanoOS/internal/logging"
	"github.com/GriffinCanCode/NanoOS/internal/monitoring"
	"github.com/GriffinCanCode/NanoOS/internal/shared/id"
	"github.com/GriffinCanCode/NanoOS/internal/stream"
	"github.com/GriffinCanCode/NanoOS/internal/thread"
	"go.uber.org/zap"
)

// Forever blocks a send or receive until it can fully complete.
const Forever = stream.Forever

// Role identifies what a side may do with its pipe.
//
// Alice and Bob are equal: both can send and receive. The distinction
// only helps an application tell two cooperating threads apart. Joints
// are interior sides of a welded chain and perform no I/O.
type Role uint8

const (
	RoleAlice Role = iota
	RoleBob
	RoleJoint
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleAlice:
		return "alice"
	case RoleBob:
		return "bob"
	case RoleJoint:
		return "joint"
	default:
		return "unknown"
	}
}

// State describes a pipe from one side's perspective.
//
//   - StateOpen: both outer sides are in place; sent data might be read
//     by the peer and new data might arrive.
//   - StateBroken: the other outer side has been freed; written data
//     will never reach anyone and received data are buffer leftovers.
//
// A broken pipe never becomes open again: orphaned sides cannot be
// reconnected.
type State uint8

const (
	StateOpen State = iota
	StateBroken
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// DirectionSettings sizes one direction of a pipe.
type DirectionSettings struct {
	Capacity     int
	TriggerLevel int
}

// Pipe holds the two connected sides produced by an allocation.
type Pipe struct {
	AliceSide *Side
	BobSide   *Side
}

// Side is one user-visible end of a pipe or pipe chain.
//
// A side is owned by whoever allocated or was handed it; every method
// takes the receiver as the operating endpoint. Passing a freed side to
// any method is a programmer error and panics.
type Side struct {
	id       id.SideID
	seq      uint64 // immutable lock rank
	weldable bool
	origin   Role // role at allocation; never changes

	// mu guards role, chain pointer, buffer references and peer links.
	// Non-weldable sides skip it entirely: their fields never change
	// and the stream buffers are internally safe for SPSC use.
	mu    sync.Mutex
	freed atomic.Bool

	role         Role
	chain        atomic.Pointer[chain]
	sending      *stream.Buffer
	receiving    *stream.Buffer
	sendSettings DirectionSettings // for restoring a buffer when a weld is undone
	recvSettings DirectionSettings

	readable     *eventloop.Link
	writable     *eventloop.Link
	peerReadable *eventloop.Link
	peerWritable *eventloop.Link
}

var pkgLog atomic.Pointer[logging.Logger]

func init() {
	pkgLog.Store(logging.Nop())
}

// UseLogger routes pipe subsystem logs through the given logger.
func UseLogger(l *logging.Logger) {
	if l == nil {
		l = logging.Nop()
	}
	pkgLog.Store(l.Named("pipe"))
}

func plog() *logging.Logger {
	return pkgLog.Load()
}

// Alloc creates the two connected sides of one pipe with the same
// capacity and trigger level in both directions. Welding support is
// enabled; use AllocEx for finer control.
//
// Allocating a pair is the only way to connect two sides: orphaned
// sides can never be joined after the fact.
func Alloc(capacity, triggerLevel int) Pipe {
	settings := DirectionSettings{Capacity: capacity, TriggerLevel: triggerLevel}
	return AllocEx(true, settings, settings)
}

// AllocEx creates the two connected sides of one pipe. The two
// directions may be sized independently; toAlice sizes the buffer Bob
// sends into and toBob the one Alice sends into. Disabling weldable
// skips all weld-related locking, making the sides cheaper to drive.
func AllocEx(weldable bool, toAlice, toBob DirectionSettings) Pipe {
	aliceToBob := stream.New(toBob.Capacity, toBob.TriggerLevel)
	bobToAlice := stream.New(toAlice.Capacity, toAlice.TriggerLevel)

	c := newChain(aliceToBob, bobToAlice)

	alice := &Side{
		id:           id.NewSideID(),
		seq:          sideSeq.Add(1),
		weldable:     weldable,
		origin:       RoleAlice,
		role:         RoleAlice,
		sending:      aliceToBob,
		receiving:    bobToAlice,
		sendSettings: toBob,
		recvSettings: toAlice,
	}
	bob := &Side{
		id:           id.NewSideID(),
		seq:          sideSeq.Add(1),
		weldable:     weldable,
		origin:       RoleBob,
		role:         RoleBob,
		sending:      bobToAlice,
		receiving:    aliceToBob,
		sendSettings: toAlice,
		recvSettings: toBob,
	}
	alice.chain.Store(c)
	bob.chain.Store(c)
	alice.initLinks()
	bob.initLinks()
	alice.peerReadable, alice.peerWritable = bob.readable, bob.writable
	bob.peerReadable, bob.peerWritable = alice.readable, alice.writable

	c.sides = []*Side{alice, bob}

	monitoring.PipesActive.Add(2)
	plog().Debug("pipe allocated",
		zap.String("chain", c.id.String()),
		zap.String("alice", alice.id.String()),
		zap.String("bob", bob.id.String()),
		zap.Bool("weldable", weldable),
	)

	return Pipe{AliceSide: alice, BobSide: bob}
}

func (s *Side) initLinks() {
	s.readable = eventloop.NewLink(s.readableLevel)
	s.writable = eventloop.NewLink(s.writableLevel)
}

// readableLevel and writableLevel answer link readiness probes. Unlike
// the public accessors they tolerate freed sides: a dying source is
// simply not ready, never a panic inside the event loop.

func (s *Side) readableLevel() bool {
	if s.freed.Load() {
		return false
	}
	s.lock()
	defer s.unlock()
	if s.freed.Load() || s.receiving == nil {
		return false
	}
	return s.receiving.BytesAvailable() > 0
}

func (s *Side) writableLevel() bool {
	if s.freed.Load() {
		return false
	}
	s.lock()
	defer s.unlock()
	if s.freed.Load() || s.sending == nil {
		return false
	}
	return s.sending.SpacesAvailable() > 0
}

// check panics on the unrecoverable handle errors.
func (s *Side) check() {
	if s == nil {
		panic("pipe: nil side")
	}
	if s.freed.Load() {
		panic("pipe: use of freed side")
	}
}

func (s *Side) lock() {
	if s.weldable {
		s.mu.Lock()
	}
}

func (s *Side) unlock() {
	if s.weldable {
		s.mu.Unlock()
	}
}

// ID returns the side's identifier.
func (s *Side) ID() id.SideID {
	s.check()
	return s.id
}

// Role returns the side's current role. The roles Alice and Bob are
// equal; Joint marks a side fused into a chain.
func (s *Side) Role() Role {
	s.check()
	s.lock()
	defer s.unlock()
	return s.role
}

// State reports whether the peer outer side is still alive. Joints are
// interior and always report open.
func (s *Side) State() State {
	s.check()

	s.lock()
	joint := s.role == RoleJoint
	s.unlock()
	if joint {
		return StateOpen
	}

	for {
		c := s.chain.Load()
		c.mu.Lock()
		if s.chain.Load() != c {
			// welded away between the load and the lock
			c.mu.Unlock()
			continue
		}
		open := c.open()
		c.mu.Unlock()
		if open {
			return StateOpen
		}
		return StateBroken
	}
}

// Send appends up to len(p) bytes to the side's outgoing buffer,
// blocking for space until the timeout. It returns the number of bytes
// accepted, which is 0 for joints. When the buffered amount crosses the
// trigger level the peer's readable link is notified exactly once.
//
// Sending on a broken pipe still lands bytes in whatever space remains;
// they are simply unobservable. Callers distinguish timeout from broken
// by consulting State.
func (s *Side) Send(p []byte, timeout time.Duration) int {
	s.check()
	s.lock()
	defer s.unlock()

	if s.sending == nil {
		return 0
	}
	n, crossed := s.sending.SendEx(p, timeout)
	if crossed && s.peerReadable != nil {
		s.peerReadable.Notify()
	}

	monitoring.RecordSend(s.direction(), n)
	if n < len(p) {
		monitoring.TransferTimeouts.WithLabelValues("send").Inc()
	}
	return n
}

// Receive drains up to len(p) bytes from the side's incoming buffer.
// It blocks until the trigger level is buffered or the timeout elapses,
// in which case whatever is buffered is returned, possibly nothing.
// Joints return 0 immediately. The peer's writable link is notified
// unconditionally: waking a possibly-blocked sender is always safe.
func (s *Side) Receive(p []byte, timeout time.Duration) int {
	s.check()
	s.lock()
	defer s.unlock()

	if s.receiving == nil {
		return 0
	}
	n := s.receiving.Receive(p, timeout)
	if s.peerWritable != nil {
		s.peerWritable.Notify()
	}

	// received bytes travel toward this side, the opposite of its sends
	dir := monitoring.DirectionToAlice
	if s.role == RoleBob {
		dir = monitoring.DirectionToBob
	}
	monitoring.RecordReceive(dir, n)
	if n < len(p) {
		monitoring.TransferTimeouts.WithLabelValues("receive").Inc()
	}
	return n
}

// Peek copies up to len(p) incoming bytes without consuming them.
// Never blocks; joints return 0.
func (s *Side) Peek(p []byte) int {
	s.check()
	s.lock()
	defer s.unlock()

	if s.receiving == nil {
		return 0
	}
	return s.receiving.Peek(p)
}

// BytesAvailable returns how many bytes are waiting to be received.
// 0 for joints.
func (s *Side) BytesAvailable() int {
	s.check()
	s.lock()
	defer s.unlock()

	if s.receiving == nil {
		return 0
	}
	return s.receiving.BytesAvailable()
}

// SpacesAvailable returns how much room the outgoing buffer has.
// 0 for joints.
func (s *Side) SpacesAvailable() int {
	s.check()
	s.lock()
	defer s.unlock()

	if s.sending == nil {
		return 0
	}
	return s.sending.SpacesAvailable()
}

// Links returns the side's readable and writable notification links for
// event loop subscription. Readable readiness reports buffered bytes
// > 0; the readable edge itself fires on trigger level crossings.
func (s *Side) Links() (readable, writable *eventloop.Link) {
	s.check()
	return s.readable, s.writable
}

// Level answers the side's current readiness for the given event kind.
func (s *Side) Level(ev eventloop.Event) bool {
	s.check()
	switch ev {
	case eventloop.EventReadable:
		return s.BytesAvailable() > 0
	case eventloop.EventWritable:
		return s.SpacesAvailable() > 0
	default:
		return false
	}
}

// Free releases a side. Freeing the first of a pipe's two outer sides
// transitions the pipe to broken and wakes the peer's pending
// operations; freeing the last destroys the chain and both buffers.
//
// Panics if the side is a joint (unweld first) or still subscribed to
// an event loop (unsubscribe first).
func (s *Side) Free() {
	s.check()

	for {
		s.lock()
		if s.freed.Load() {
			s.unlock()
			panic("pipe: double free of side")
		}
		if s.role == RoleJoint {
			s.unlock()
			panic("pipe: freeing a joint side, unweld first")
		}
		if s.readable.Subscribed() || s.writable.Subscribed() {
			s.unlock()
			panic("pipe: freeing a side still subscribed to an event loop")
		}

		c := s.chain.Load()
		if !c.mu.TryLock() {
			// a weld or another free holds the chain; let it finish
			s.unlock()
			runtime.Gosched()
			continue
		}

		c.remove(s)
		last := len(c.sides) == 0

		// wake the survivors: pending peer operations return what is
		// left and then 0
		c.aliceToBob.Break()
		c.bobToAlice.Break()

		s.freed.Store(true)
		monitoring.PipesActive.Dec()
		if !last {
			monitoring.PipesBroken.Inc()
		}
		plog().Debug("side freed",
			zap.String("chain", c.id.String()),
			zap.String("side", s.id.String()),
			zap.Bool("destroyed", last),
		)

		c.mu.Unlock()
		s.unlock()
		return
	}
}

// InstallAsStdio wires the side into a thread's standard I/O. Bytes the
// thread prints are sent down the pipe with an unbounded wait; reads
// are served from the pipe with the caller's timeout. Install nil
// callbacks on the thread to disconnect before freeing the side.
func (s *Side) InstallAsStdio(t *thread.Thread) {
	s.check()
	if t == nil {
		panic("pipe: install stdio on nil thread")
	}

	t.SetStdoutCallback(func(p []byte) {
		s.Send(p, Forever)
	})
	t.SetStdinCallback(func(p []byte, timeout time.Duration) int {
		return s.Receive(p, timeout)
	})
}

// direction labels the metrics for this side's sends. Caller holds the
// side lock, so role is stable.
func (s *Side) direction() string {
	if s.role == RoleAlice {
		return monitoring.DirectionToBob
	}
	return monitoring.DirectionToAlice
}
