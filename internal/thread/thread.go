package thread

import (
	"io"
	"sync"
	"time"

	"github.com/GriffinCanCode/NanoOS/internal/shared/id"
	"github.com/GriffinCanCode/NanoOS/internal/stream"
)

// StdoutCallback consumes bytes written to a thread's standard output.
type StdoutCallback func(p []byte)

// StdinCallback serves a thread's standard input request, returning the
// number of bytes produced within the timeout.
type StdinCallback func(p []byte, timeout time.Duration) int

// Thread is an execution-context handle carrying replaceable stdio hooks.
// Code running "inside" the thread talks to whatever the hooks are wired
// to — a pipe side, a terminal, a capture buffer.
type Thread struct {
	id id.ThreadID

	mu     sync.RWMutex
	stdout StdoutCallback
	stdin  StdinCallback
}

// New creates a thread handle with no stdio wired up.
func New() *Thread {
	return &Thread{id: id.NewThreadID()}
}

// ID returns the thread's identifier.
func (t *Thread) ID() id.ThreadID {
	return t.id
}

// SetStdoutCallback installs (or, with nil, removes) the stdout hook.
func (t *Thread) SetStdoutCallback(cb StdoutCallback) {
	t.mu.Lock()
	t.stdout = cb
	t.mu.Unlock()
}

// SetStdinCallback installs (or, with nil, removes) the stdin hook.
func (t *Thread) SetStdinCallback(cb StdinCallback) {
	t.mu.Lock()
	t.stdin = cb
	t.mu.Unlock()
}

// Write sends p through the stdout hook. Without a hook the bytes are
// discarded, like writing to a closed terminal.
func (t *Thread) Write(p []byte) (int, error) {
	t.mu.RLock()
	cb := t.stdout
	t.mu.RUnlock()

	if cb != nil {
		cb(p)
	}
	return len(p), nil
}

// Read fills p through the stdin hook, blocking until at least one byte
// arrives. Without a hook it reports EOF.
func (t *Thread) Read(p []byte) (int, error) {
	return t.ReadTimeout(p, stream.Forever)
}

// ReadTimeout fills p through the stdin hook, waiting up to the timeout.
// A zero count with an installed hook is not an error; it mirrors the
// pipe timeout contract.
func (t *Thread) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	t.mu.RLock()
	cb := t.stdin
	t.mu.RUnlock()

	if cb == nil {
		return 0, io.EOF
	}
	return cb(p, timeout), nil
}

var (
	_ io.Writer = (*Thread)(nil)
	_ io.Reader = (*Thread)(nil)
)
