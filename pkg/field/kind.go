package field

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies a class of sub-structure. Section markers bind to a Kind, and
// removable structures carry one. The identity is the xxHash64 of the kind name,
// so it stays stable across processes and serialization boundaries.
type Kind struct {
	id   uint64
	name string
}

// NewKind returns the Kind for name.
func NewKind(name string) Kind {
	return Kind{id: xxhash.Sum64String(name), name: name}
}

// ID returns the hash identity.
func (k Kind) ID() uint64 {
	return k.id
}

// Name returns the kind name.
func (k Kind) Name() string {
	return k.name
}

// IsZero reports whether k is the zero Kind.
func (k Kind) IsZero() bool {
	return k.id == 0 && k.name == ""
}

// String returns the kind name and identity.
func (k Kind) String() string {
	if k.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s(%016x)", k.name, k.id)
}
