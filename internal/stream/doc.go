// Package stream provides the bounded blocking byte ring backing each pipe
// direction.
//
// A Buffer is a single-producer single-consumer ring with:
//   - Bounded capacity: sends block (up to a timeout) while the ring is full
//   - Trigger level: receives block until a minimum fill is buffered
//   - Partial transfers: timeout expiry returns whatever moved, possibly zero
//   - Break: one-way transition that wakes all waiters and disables blocking
//
// Timeouts follow the runtime convention: 0 means non-blocking, Forever
// (any negative duration) means wait indefinitely.
package stream
