package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator mints identifiers for the outside world. Adapters own one; the
// admission core never does.
type Generator interface {
	Next() string
}

// Sequence yields PREFIX-000001, PREFIX-000002, ... and is safe for concurrent use.
type Sequence struct {
	prefix  string
	counter uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	n := atomic.AddUint64(&s.counter, 1)
	if s.prefix == "" {
		return fmt.Sprintf("%06d", n)
	}
	return fmt.Sprintf("%s-%06d", s.prefix, n)
}

// UUID yields random version 4 identifiers.
type UUID struct{}

func (UUID) Next() string {
	return uuid.New().String()
}
