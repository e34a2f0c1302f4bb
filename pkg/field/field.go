// Package field provides the offset-addressed value types that binary resource
// structures are built from.
//
// A Field occupies the byte range [Offset, Offset+Size) of the root resource buffer.
// Fields know how to read themselves from a buffer and write themselves back out;
// they do not know where they live in a structure beyond a non-owning parent link
// used for change notification.
package field

import (
	"io"
)

// Field is an atomic, offset-addressed unit of a binary resource.
type Field interface {
	// Name returns the display name. Names are not unique within a structure.
	Name() string

	// Offset returns the absolute byte offset in the root resource buffer.
	Offset() int

	// SetOffset moves the field without touching its value.
	SetOffset(off int)

	// Size returns the byte length of the field.
	Size() int

	// Read decodes the field from buf at off and returns the offset immediately after it.
	Read(buf []byte, off int) (int, error)

	// Write encodes exactly Size() bytes to w.
	Write(w io.Writer) error

	// Clone returns a detached deep copy.
	Clone() Field

	// Parent returns the owning container, or nil when detached.
	Parent() Parent

	// SetParent sets the non-owning back-reference. Owners call this on attach and
	// detach; it is not a transfer of ownership.
	SetParent(p Parent)
}

// Parent receives change notifications from the fields it owns.
type Parent interface {
	FieldChanged(ev Event)
}

// Kinded is implemented by fields that carry a type identity, such as removable
// sub-structures and section markers.
type Kinded interface {
	Kind() Kind
}

// KindOf returns the type identity of f, if it has one.
func KindOf(f Field) (Kind, bool) {
	k, ok := f.(Kinded)
	if !ok {
		return Kind{}, false
	}
	return k.Kind(), true
}

// EventKind classifies a change event.
type EventKind uint8

const (
	ValueChanged EventKind = iota
	Inserted
	Removed
	Realigned
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case ValueChanged:
		return "ValueChanged"
	case Inserted:
		return "Inserted"
	case Removed:
		return "Removed"
	case Realigned:
		return "Realigned"
	default:
		return "Unknown"
	}
}

// Event describes a single logical change to a resource tree.
type Event struct {
	Kind  EventKind
	Field Field  // originating field
	Owner Parent // structure that owns Field, filled in by the first owner on the way up
	Old   any
	New   any
}

// base carries the state shared by all leaf codecs in this package.
type base struct {
	name   string
	offset int
	parent Parent
	self   Field // outermost value, reported as the event origin
}

func (b *base) Name() string       { return b.name }
func (b *base) Offset() int        { return b.offset }
func (b *base) SetOffset(off int)  { b.offset = off }
func (b *base) Parent() Parent     { return b.parent }
func (b *base) SetParent(p Parent) { b.parent = p }

func (b *base) notify(old, new any) {
	if b.parent == nil {
		return
	}
	b.parent.FieldChanged(Event{
		Kind:  ValueChanged,
		Field: b.self,
		Old:   old,
		New:   new,
	})
}

// detached returns a copy of b with no parent, owned by self.
func (b base) detached(self Field) base {
	b.parent = nil
	b.self = self
	return b
}
