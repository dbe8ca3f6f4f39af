package eventloop

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/NanoOS/internal/logging"
	"github.com/GriffinCanCode/NanoOS/internal/monitoring"
	"github.com/GriffinCanCode/NanoOS/internal/shared/id"
	"go.uber.org/zap"
)

// Event identifies a readiness kind on a pipe side.
type Event uint8

const (
	// EventReadable fires when buffered bytes reach the trigger level.
	EventReadable Event = iota
	// EventWritable fires when space frees up for sending.
	EventWritable
)

// String returns the string representation of the event.
func (e Event) String() string {
	switch e {
	case EventReadable:
		return "readable"
	case EventWritable:
		return "writable"
	default:
		return "unknown"
	}
}

// Mode selects how a subscription is triggered.
type Mode uint8

const (
	// ModeEdge dispatches once per Notify.
	ModeEdge Mode = iota
	// ModeLevel keeps dispatching while the link's level reports ready.
	ModeLevel
)

// Loop is a single-threaded cooperative scheduler. Callbacks run on the
// goroutine that called Run and must not block indefinitely.
type Loop struct {
	id  id.LoopID
	log *logging.Logger

	mu    sync.Mutex
	ready []*Link

	wakeSig chan struct{}
	stopCh  chan struct{}
	stopped sync.Once
}

// New creates an event loop. A nil logger disables logging; queueDepth
// sizes the dispatch queue's initial capacity.
func New(logger *logging.Logger, queueDepth int) *Loop {
	if logger == nil {
		logger = logging.Nop()
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Loop{
		id:      id.NewLoopID(),
		log:     logger.Named("eventloop"),
		ready:   make([]*Link, 0, queueDepth),
		wakeSig: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// ID returns the loop's identifier.
func (lp *Loop) ID() id.LoopID {
	return lp.id
}

// Subscribe registers a callback against a link. Only one loop may be
// subscribed to a link at a time; resubscribing replaces the callback.
// A level-triggered subscription whose link is already ready is
// dispatched on the next loop iteration.
func (lp *Loop) Subscribe(l *Link, mode Mode, cb func()) {
	if l == nil {
		panic("eventloop: subscribe on nil link")
	}
	if cb == nil {
		panic("eventloop: subscribe with nil callback")
	}

	l.mu.Lock()
	l.loop = lp
	l.mode = mode
	l.cb = cb
	level := l.level
	l.mu.Unlock()

	// query the level outside the link lock: it reaches into the source
	// side, which takes locks of its own
	if mode == ModeLevel && level != nil && level() {
		l.mu.Lock()
		armed := l.loop == lp && !l.queued
		if armed {
			l.queued = true
		}
		l.mu.Unlock()
		if armed {
			lp.enqueue(l)
		}
	}
	lp.log.Debug("link subscribed", zap.String("loop", lp.id.String()))
}

// Unsubscribe detaches a link from the loop. Pending dispatches for the
// link are discarded. Must be called before freeing the pipe side that
// owns the link.
func (lp *Loop) Unsubscribe(l *Link) {
	if l == nil {
		panic("eventloop: unsubscribe on nil link")
	}

	l.mu.Lock()
	if l.loop == lp {
		l.loop = nil
		l.cb = nil
		l.queued = false
	}
	l.mu.Unlock()
	lp.log.Debug("link unsubscribed", zap.String("loop", lp.id.String()))
}

// Run dispatches callbacks until the context is canceled or Stop is
// called. It owns the calling goroutine for its whole duration.
func (lp *Loop) Run(ctx context.Context) {
	lp.log.Info("event loop running", zap.String("loop", lp.id.String()))
	defer lp.log.Info("event loop stopped", zap.String("loop", lp.id.String()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-lp.stopCh:
			return
		case <-lp.wakeSig:
		}

		for {
			lp.mu.Lock()
			if len(lp.ready) == 0 {
				lp.mu.Unlock()
				break
			}
			batch := lp.ready
			lp.ready = make([]*Link, 0, cap(batch))
			lp.mu.Unlock()

			for _, l := range batch {
				lp.dispatch(l)
			}

			// give cancellation a chance between batches
			select {
			case <-ctx.Done():
				return
			case <-lp.stopCh:
				return
			default:
			}
		}
	}
}

// Stop terminates Run. Safe to call more than once, from any goroutine.
func (lp *Loop) Stop() {
	lp.stopped.Do(func() { close(lp.stopCh) })
}

// dispatch runs a single link's callback and re-arms level subscriptions.
func (lp *Loop) dispatch(l *Link) {
	l.mu.Lock()
	if l.loop != lp {
		// unsubscribed while queued
		l.queued = false
		l.mu.Unlock()
		return
	}
	l.queued = false
	cb := l.cb
	mode := l.mode
	level := l.level
	l.mu.Unlock()

	monitoring.LoopDispatches.Inc()
	cb()

	if mode == ModeLevel && level != nil && level() {
		l.mu.Lock()
		rearm := l.loop == lp && !l.queued
		if rearm {
			l.queued = true
		}
		l.mu.Unlock()
		if rearm {
			lp.enqueue(l)
		}
	}
}

// enqueue appends a link to the dispatch queue and wakes Run.
func (lp *Loop) enqueue(l *Link) {
	lp.mu.Lock()
	lp.ready = append(lp.ready, l)
	lp.mu.Unlock()

	select {
	case lp.wakeSig <- struct{}{}:
	default:
	}
}
