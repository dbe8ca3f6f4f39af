package pipe

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/NanoOS/internal/eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	lp := eventloop.New(nil, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		lp.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lp
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestReadableNotifiedAtTriggerLevel(t *testing.T) {
	p := Alloc(16, 4)
	lp := startLoop(t)

	var fired atomic.Int32
	readable, _ := p.BobSide.Links()
	lp.Subscribe(readable, eventloop.ModeEdge, func() { fired.Add(1) })
	defer lp.Unsubscribe(readable)

	// below the trigger level: no edge
	p.AliceSide.Send([]byte("abc"), 0)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())

	// crossing the trigger level raises exactly one edge
	p.AliceSide.Send([]byte("d"), 0)
	eventually(t, func() bool { return fired.Load() == 1 }, "readable edge not raised")

	// staying above the trigger level raises no further edges
	p.AliceSide.Send([]byte("e"), 0)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestWritableNotifiedOnDrain(t *testing.T) {
	p := Alloc(4, 1)
	lp := startLoop(t)

	require.Equal(t, 4, p.AliceSide.Send([]byte("full"), 0))

	var fired atomic.Int32
	_, writable := p.AliceSide.Links()
	lp.Subscribe(writable, eventloop.ModeEdge, func() { fired.Add(1) })
	defer lp.Unsubscribe(writable)

	out := make([]byte, 2)
	p.BobSide.Receive(out, 0)

	eventually(t, func() bool { return fired.Load() >= 1 }, "writable edge not raised")
}

func TestLevelTriggeredReadableDrains(t *testing.T) {
	p := Alloc(16, 1)
	lp := startLoop(t)

	var collected atomic.Int32
	readable, _ := p.BobSide.Links()
	lp.Subscribe(readable, eventloop.ModeLevel, func() {
		buf := make([]byte, 4)
		n := p.BobSide.Receive(buf, 0)
		collected.Add(int32(n))
	})
	defer lp.Unsubscribe(readable)

	p.AliceSide.Send([]byte("0123456789"), 0)

	// a level subscription keeps firing until the data is gone
	eventually(t, func() bool { return collected.Load() == 10 }, "level callbacks did not drain the pipe")
	assert.Equal(t, 0, p.BobSide.BytesAvailable())
}

func TestLevelAccessor(t *testing.T) {
	p := Alloc(4, 1)

	assert.False(t, p.BobSide.Level(eventloop.EventReadable))
	assert.True(t, p.AliceSide.Level(eventloop.EventWritable))

	p.AliceSide.Send([]byte("full"), 0)

	assert.True(t, p.BobSide.Level(eventloop.EventReadable))
	assert.False(t, p.AliceSide.Level(eventloop.EventWritable))
}

func TestJointGeneratesNoEvents(t *testing.T) {
	p := Alloc(8, 1)
	q := Alloc(8, 1)
	lp := startLoop(t)

	var fired atomic.Int32
	Weld(p.BobSide, q.AliceSide)

	readable, _ := p.BobSide.Links()
	lp.Subscribe(readable, eventloop.ModeEdge, func() { fired.Add(1) })
	defer lp.Unsubscribe(readable)

	// traffic through the chain never touches the joint's links
	p.AliceSide.Send([]byte("through"), 0)
	out := make([]byte, 8)
	q.BobSide.Receive(out, Forever)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.False(t, p.BobSide.Level(eventloop.EventReadable))
}

func TestWeldRedirectsNotifications(t *testing.T) {
	p := Alloc(8, 1)
	q := Alloc(8, 1)
	Weld(p.BobSide, q.AliceSide)
	lp := startLoop(t)

	var fired atomic.Int32
	readable, _ := q.BobSide.Links()
	lp.Subscribe(readable, eventloop.ModeEdge, func() { fired.Add(1) })
	defer lp.Unsubscribe(readable)

	// the outer alice's sends now notify the outer bob across the chain
	p.AliceSide.Send([]byte("x"), 0)
	eventually(t, func() bool { return fired.Load() == 1 }, "chain bob not notified")
}

func TestFreeWhileSubscribedPanics(t *testing.T) {
	p := Alloc(8, 1)
	lp := startLoop(t)

	readable, _ := p.AliceSide.Links()
	lp.Subscribe(readable, eventloop.ModeEdge, func() {})

	assert.Panics(t, func() { p.AliceSide.Free() })

	lp.Unsubscribe(readable)
	require.NotPanics(t, func() { p.AliceSide.Free() })
}
