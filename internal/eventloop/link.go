package eventloop

import "sync"

// Link is the notification object connecting an event source to a loop.
// The source raises edges via Notify; the level closure answers readiness
// queries for level-triggered subscriptions.
//
// A link belongs to its source for its whole lifetime. Subscribers come
// and go; the source keeps notifying regardless and unsubscribed edges
// are dropped.
type Link struct {
	mu     sync.Mutex
	level  func() bool
	loop   *Loop
	cb     func()
	mode   Mode
	queued bool
}

// NewLink creates a link with the given level query. A nil level is
// permitted for sources that are purely edge-driven.
func NewLink(level func() bool) *Link {
	return &Link{level: level}
}

// Notify raises an edge. If a loop is subscribed and the link is not
// already pending, the link is queued for dispatch. Duplicate edges
// coalesce into a single dispatch.
func (l *Link) Notify() {
	l.mu.Lock()
	lp := l.loop
	fire := lp != nil && !l.queued
	if fire {
		l.queued = true
	}
	l.mu.Unlock()

	if fire {
		lp.enqueue(l)
	}
}

// Level answers the link's current readiness. Always false without a
// level query.
func (l *Link) Level() bool {
	l.mu.Lock()
	level := l.level
	l.mu.Unlock()

	if level == nil {
		return false
	}
	return level()
}

// Subscribed reports whether any loop is attached to this link.
func (l *Link) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loop != nil
}
