// Package id provides centralized ID generation for the runtime.
//
// This package offers type-safe ULID generation with:
//   - Lexicographic sortability: Enables efficient time-based queries
//   - Prefixed types: Type-specific prefixes for debugging (pipe_*, side_*, chain_*)
//   - Type safety: Separate types prevent ID misuse
//   - Concurrency: Generation is safe from any goroutine; a mutex serializes entropy reads
//
// Design Principles:
//   - ULIDs only: Single ID format across the entire runtime
//   - K-sortable: Timeline queries without timestamps
//   - Debuggable: Prefixes make logs readable
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// PipeID identifies an allocated pipe (a side pair)
type PipeID string

// SideID identifies a single pipe side
type SideID string

// ChainID identifies a pipe chain
type ChainID string

// LoopID identifies an event loop instance
type LoopID string

// ThreadID identifies an execution context
type ThreadID string

// ============================================================================
// ID Prefixes (for debugging and type identification)
// ============================================================================

const (
	PipePrefix   = "pipe"
	SidePrefix   = "side"
	ChainPrefix  = "chain"
	LoopPrefix   = "loop"
	ThreadPrefix = "thr"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	// Default generator with cryptographically secure entropy
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewPipeID generates a new pipe ID
func NewPipeID() PipeID {
	return PipeID(Default().GenerateWithPrefix(PipePrefix))
}

// NewSideID generates a new pipe side ID
func NewSideID() SideID {
	return SideID(Default().GenerateWithPrefix(SidePrefix))
}

// NewChainID generates a new chain ID
func NewChainID() ChainID {
	return ChainID(Default().GenerateWithPrefix(ChainPrefix))
}

// NewLoopID generates a new event loop ID
func NewLoopID() LoopID {
	return LoopID(Default().GenerateWithPrefix(LoopPrefix))
}

// NewThreadID generates a new thread ID
func NewThreadID() ThreadID {
	return ThreadID(Default().GenerateWithPrefix(ThreadPrefix))
}

// ============================================================================
// Type Conversion and Validation
// ============================================================================

// String methods for ID types
func (id PipeID) String() string   { return string(id) }
func (id SideID) String() string   { return string(id) }
func (id ChainID) String() string  { return string(id) }
func (id LoopID) String() string   { return string(id) }
func (id ThreadID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
