package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates transaction and outbox ids.
// ulid.Make draws from a process-wide monotonic source, so ids generated by one
// process sort in creation order even within the same millisecond.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
