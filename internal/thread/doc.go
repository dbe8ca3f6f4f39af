// Package thread provides per-thread standard I/O hooks.
//
// A Thread is a lightweight execution-context handle whose stdin/stdout
// are replaceable callbacks. Installing a pipe side as a thread's stdio
// (see the pipe package) routes everything the thread prints into the
// pipe and serves its reads from the pipe, so ordinary io.Reader/io.Writer
// code works against a pipe transparently.
//
// Disconnection is the caller's responsibility: install nil callbacks
// before freeing the backing pipe side.
package thread
