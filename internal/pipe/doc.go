// Package pipe provides the bidirectional bounded byte pipe used as the
// runtime's primary in-process IPC mechanism between threads.
//
// A pipe connects two sides, conventionally Alice and Bob. Each side can
// independently send bytes to and receive bytes from the other with
// flow-controlled, back-pressured semantics: one bounded stream buffer
// per direction, blocking or timed sends and receives, and a trigger
// level that decides when a pending receive (and a subscribed event
// loop) wakes up.
//
// Features:
//   - Symmetric roles: Alice and Bob can both send and receive
//   - Per-direction sizing: capacity and trigger level set at allocation
//   - Lifecycle: Open while both sides live, Broken once a peer is freed
//   - Welding: splice one pipe's Alice end to another's Bob end, forming
//     a chain that carries traffic end to end without intermediate copies
//   - Unwelding: split a chain back into independent pipes, restoring
//     the captured direction settings
//   - Event loop integration: readable/writable links per side
//   - Thread stdio: install a side as a thread's stdin/stdout
//
// Example Usage:
//
//	p := pipe.Alloc(64, 1)
//	go func() {
//		p.AliceSide.Send([]byte("hello"), pipe.Forever)
//	}()
//	buf := make([]byte, 64)
//	n := p.BobSide.Receive(buf, 100*time.Millisecond)
//
// Misuse — nil sides, freeing a joint, welding two Alices, welding
// within one chain — is a programmer error and panics.
package pipe
