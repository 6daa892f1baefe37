package engine

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces run and document identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-ordered UUIDv7 strings, so run IDs sort by
// creation in listings and logs. It is stateless.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a preset list of IDs in order. Tests use it to
// pin run and document IDs.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
}

// NewFixedGenerator returns a generator over ids. Start draws the run ID
// before the document ID when both are empty.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next preset ID. It panics once the list is used up:
// a test that starts more runs than it declared is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.ids) == 0 {
		panic("engine: FixedGenerator has no ids left")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}
