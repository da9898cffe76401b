// Package directory keeps an in-memory snapshot of the identity directory
// fresh while the terminal runs.
package directory

import (
	"slices"
	"sync/atomic"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

// Snapshot is a concurrency-safe access.Directory whose contents are swapped
// as a whole. Readers always see one complete version.
type Snapshot struct {
	// current holds the latest identities; the slice is never mutated after Store.
	current atomic.Pointer[[]access.Identity]
	// version counts replacements.
	version atomic.Uint64
}

// NewSnapshot creates a snapshot holding identities.
func NewSnapshot(identities []access.Identity) *Snapshot {
	s := new(Snapshot)
	s.Replace(identities)

	return s
}

// ListIdentities returns the current identities. The result must not be modified.
func (s *Snapshot) ListIdentities() []access.Identity {
	current := s.current.Load()
	if current == nil {
		return nil
	}

	return *current
}

// Replace swaps in a copy of identities.
func (s *Snapshot) Replace(identities []access.Identity) {
	cloned := make([]access.Identity, 0, len(identities))
	for i := range identities {
		cloned = append(cloned, *identities[i].Clone())
	}

	s.current.Store(&cloned)
	s.version.Add(1)
}

// Version returns how many times the snapshot was replaced.
func (s *Snapshot) Version() uint64 {
	return s.version.Load()
}

// Len returns the number of identities.
func (s *Snapshot) Len() int {
	return len(s.ListIdentities())
}

// Contains reports whether id is present.
func (s *Snapshot) Contains(id string) bool {
	return slices.ContainsFunc(s.ListIdentities(), func(identity access.Identity) bool {
		return identity.ID == id
	})
}
