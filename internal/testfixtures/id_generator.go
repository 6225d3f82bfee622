package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces deterministic, UUID-shaped identifiers so test data
// looks like production data while staying reproducible.
type IDGenerator struct {
	mu        sync.Mutex
	namespace uuid.UUID
	counter   uint64
}

// NewIDGenerator returns a generator seeded by name. Generators with the same
// seed yield the same sequence.
func NewIDGenerator(seed string) *IDGenerator {
	if seed == "" {
		seed = "wavemeet-test"
	}
	return &IDGenerator{namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return uuid.NewSHA1(g.namespace, []byte(fmt.Sprint(g.counter))).String()
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return uuid.NewString() }
	}
	return g.Next
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
