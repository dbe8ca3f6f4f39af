package thread

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThroughStdoutHook(t *testing.T) {
	th := New()

	var captured []byte
	th.SetStdoutCallback(func(p []byte) {
		captured = append(captured, p...)
	})

	fmt.Fprintf(th, "hello %s", "world")
	assert.Equal(t, "hello world", string(captured))
}

func TestWriteWithoutHookDiscards(t *testing.T) {
	th := New()

	n, err := th.Write([]byte("dropped"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestReadThroughStdinHook(t *testing.T) {
	th := New()

	th.SetStdinCallback(func(p []byte, timeout time.Duration) int {
		return copy(p, "input")
	})

	buf := make([]byte, 16)
	n, err := th.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "input", string(buf[:n]))
}

func TestReadWithoutHookIsEOF(t *testing.T) {
	th := New()

	buf := make([]byte, 4)
	n, err := th.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadTimeoutForwardsTimeout(t *testing.T) {
	th := New()

	var got time.Duration
	th.SetStdinCallback(func(p []byte, timeout time.Duration) int {
		got = timeout
		return 0
	})

	buf := make([]byte, 4)
	n, err := th.ReadTimeout(buf, 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 250*time.Millisecond, got)
}

func TestHooksAreReplaceable(t *testing.T) {
	th := New()

	th.SetStdoutCallback(func(p []byte) { t.Fatal("replaced hook ran") })
	th.SetStdoutCallback(nil)

	_, err := th.Write([]byte("x"))
	require.NoError(t, err)

	assert.NotEmpty(t, th.ID().String())
}
