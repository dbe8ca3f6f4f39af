package stream

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		trigger  int
		panics   bool
	}{
		{"valid symmetric", 16, 1, false},
		{"trigger equals capacity", 8, 8, false},
		{"zero capacity", 0, 1, true},
		{"zero trigger", 8, 0, true},
		{"trigger above capacity", 8, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panics {
				assert.Panics(t, func() { New(tt.capacity, tt.trigger) })
				return
			}
			b := New(tt.capacity, tt.trigger)
			assert.Equal(t, tt.capacity, b.Capacity())
			assert.Equal(t, tt.trigger, b.TriggerLevel())
		})
	}
}

func TestSendReceiveRoundTrip(t *testing.T) {
	b := New(16, 1)

	n := b.Send([]byte("hello"), 0)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, b.BytesAvailable())
	assert.Equal(t, 11, b.SpacesAvailable())

	out := make([]byte, 16)
	n = b.Receive(out, 100*time.Millisecond)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("hello"), out[:n])
	assert.Equal(t, 0, b.BytesAvailable())
}

func TestSendBoundedByCapacity(t *testing.T) {
	b := New(4, 1)

	n := b.Send([]byte("abcdefgh"), 0)
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, b.SpacesAvailable())

	// non-blocking send into a full ring accepts nothing
	n = b.Send([]byte("x"), 0)
	assert.Equal(t, 0, n)
}

func TestFIFOAcrossWraparound(t *testing.T) {
	b := New(8, 1)
	out := make([]byte, 8)

	// push the head past the midpoint so later writes wrap
	require.Equal(t, 6, b.Send([]byte("012345"), 0))
	require.Equal(t, 6, b.Receive(out, 0))

	sent := []byte("abcdefgh")
	require.Equal(t, 8, b.Send(sent, 0))

	n := b.Receive(out, 0)
	require.Equal(t, 8, n)
	assert.Equal(t, sent, out[:n])
}

func TestReceiveWaitsForTriggerLevel(t *testing.T) {
	b := New(16, 4)

	b.Send([]byte("ab"), 0)

	start := time.Now()
	out := make([]byte, 16)
	n := b.Receive(out, 50*time.Millisecond)

	// below the trigger level the receive rides out the timeout,
	// then returns what is buffered
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("ab"), out[:n])
}

func TestReceiveUnblocksAtTriggerLevel(t *testing.T) {
	b := New(16, 4)
	out := make([]byte, 16)

	done := make(chan int, 1)
	go func() {
		done <- b.Receive(out, Forever)
	}()

	b.Send([]byte("ab"), 0)
	select {
	case <-done:
		t.Fatal("receive returned below the trigger level")
	case <-time.After(30 * time.Millisecond):
	}

	b.Send([]byte("cd"), 0)
	select {
	case n := <-done:
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("abcd"), out[:n])
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock at the trigger level")
	}
}

func TestSendBlocksUntilSpace(t *testing.T) {
	b := New(4, 1)
	require.Equal(t, 4, b.Send([]byte("full"), 0))

	done := make(chan int, 1)
	go func() {
		done <- b.Send([]byte("xy"), Forever)
	}()

	select {
	case <-done:
		t.Fatal("send returned with the ring full")
	case <-time.After(30 * time.Millisecond):
	}

	out := make([]byte, 2)
	require.Equal(t, 2, b.Receive(out, 0))

	select {
	case n := <-done:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("send did not unblock after a drain")
	}
}

func TestSendTimeoutReturnsPartial(t *testing.T) {
	b := New(4, 1)

	n := b.Send([]byte("abcdef"), 50*time.Millisecond)
	assert.Equal(t, 4, n)
}

func TestSendExReportsTriggerCrossing(t *testing.T) {
	b := New(16, 4)

	n, crossed := b.SendEx([]byte("ab"), 0)
	assert.Equal(t, 2, n)
	assert.False(t, crossed)

	n, crossed = b.SendEx([]byte("cd"), 0)
	assert.Equal(t, 2, n)
	assert.True(t, crossed)

	// already above the trigger: no new crossing
	n, crossed = b.SendEx([]byte("ef"), 0)
	assert.Equal(t, 2, n)
	assert.False(t, crossed)
}

func TestBreakWakesBlockedReceive(t *testing.T) {
	b := New(8, 4)
	b.Send([]byte("xy"), 0)

	out := make([]byte, 8)
	done := make(chan int, 1)
	go func() {
		done <- b.Receive(out, Forever)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Break()

	select {
	case n := <-done:
		// leftovers stay readable after a break
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte("xy"), out[:n])
	case <-time.After(time.Second):
		t.Fatal("receive did not wake on break")
	}

	assert.True(t, b.Broken())
	assert.Equal(t, 0, b.Receive(out, Forever))
}

func TestBreakWakesBlockedSend(t *testing.T) {
	b := New(2, 1)
	require.Equal(t, 2, b.Send([]byte("ab"), 0))

	done := make(chan int, 1)
	go func() {
		done <- b.Send([]byte("cd"), Forever)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Break()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("send did not wake on break")
	}

	// writes into remaining space still land, silently
	out := make([]byte, 2)
	require.Equal(t, 2, b.Receive(out, 0))
	assert.Equal(t, 1, b.Send([]byte("z"), Forever))
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := New(16, 1)
	b.Send([]byte("peekme"), 0)

	p := make([]byte, 4)
	n := b.Peek(p)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("peek"), p[:n])
	assert.Equal(t, 6, b.BytesAvailable())

	out := make([]byte, 16)
	n = b.Receive(out, 0)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte("peekme"), out[:n])
}

func TestConcurrentFIFO(t *testing.T) {
	b := New(7, 1) // deliberately awkward capacity to force wraps

	const total = 64 * 1024
	src := make([]byte, total)
	for i := range src {
		src[i] = byte(i * 31)
	}

	var got bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		sent := 0
		for sent < total {
			sent += b.Send(src[sent:min(sent+100, total)], Forever)
		}
	}()

	go func() {
		defer wg.Done()
		buf := make([]byte, 33)
		for got.Len() < total {
			n := b.Receive(buf, Forever)
			got.Write(buf[:n])

			// boundedness holds at every observation point
			assert.LessOrEqual(t, b.BytesAvailable(), b.Capacity())
		}
	}()

	wg.Wait()
	require.Equal(t, total, got.Len())
	assert.Equal(t, src, got.Bytes())
}
