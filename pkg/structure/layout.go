package structure

import (
	"github.com/EchoTools/structedit/pkg/field"
)

// Layout declares the fields of one kind of structure.
//
// Read is called with an empty structure whose start is off. It must add every
// field it reads to s (a Cursor does this) and return the offset where s ends.
// Fields may be declared out of physical order; the structure sorts them afterwards.
type Layout interface {
	Read(s *Structure, buf []byte, off int) (int, error)
}

// LayoutFunc adapts a function to the Layout interface.
type LayoutFunc func(s *Structure, buf []byte, off int) (int, error)

// Read calls f.
func (f LayoutFunc) Read(s *Structure, buf []byte, off int) (int, error) {
	return f(s, buf, off)
}

// Positioner is implemented by layouts that choose where an unbound kind is
// inserted. Without it, unbound kinds are appended at the end.
type Positioner interface {
	InsertIndex(s *Structure, child *Structure) (int, error)
}

// Placer is implemented by layouts that assign the offset of an inserted child
// when neither a same-kind neighbour nor a bound section decides it.
type Placer interface {
	PlaceOffset(s *Structure, child *Structure, index int) (int, error)
}

// BoundaryRule overrides whether a section offset that sits exactly on the
// insertion point is pushed forward when a structure of kind Inserted is added.
//
// By default such a section is pushed unless it tracks the inserted kind. Rules
// exist for formats that require one section to stay ahead of another when both
// are empty and share a boundary.
type BoundaryRule struct {
	Inserted field.Kind
	Section  field.Kind
	Push     bool
}

// BoundaryRuler is implemented by layouts that carry boundary rules. A rule
// applies to the section offsets declared by structures using that layout.
type BoundaryRuler interface {
	BoundaryRules() []BoundaryRule
}
