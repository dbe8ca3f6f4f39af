// Package monitoring provides Prometheus metrics for the pipe subsystem.
//
// Metrics are registered on the default registry via promauto and cover:
//   - Pipe lifecycle: sides active, broken transitions, welds, unwelds
//   - Data flow: bytes sent/received per direction, short transfers
//   - Event loop: callback dispatch counts
//
// Exposition is the embedding application's concern (see cmd/pipedemo for
// the promhttp wiring).
package monitoring
