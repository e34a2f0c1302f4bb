package layouts

import (
	"github.com/EchoTools/structedit/pkg/structure"
)

const (
	// BundleHeaderSize is the size of the bundle header.
	BundleHeaderSize = 0x18

	// EntryNameSize is the size of the name that precedes each embedded item.
	EntryNameSize = 8

	// NoteSize is the size of one note.
	NoteSize = 8
)

// Bundle is a container of named items followed by short notes.
//
//	0x00 Signature   [4]byte
//	0x04 EntryOffset uint32
//	0x08 EntryCount  uint32
//	0x0C NoteOffset  uint32
//	0x10 NoteCount   uint32
//	0x14 Flags       uint32
//
// Each entry is an 8-byte name followed by an item whose section offsets are
// relative to the item.
type Bundle struct{}

var (
	_ structure.Layout        = Bundle{}
	_ structure.BoundaryRuler = Bundle{}
)

// Read declares the bundle header, its entries and its notes.
func (Bundle) Read(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Text("Signature", 4)
	c.SectionOffset("EntryOffset", 4, Entry)
	c.SectionCount("EntryCount", 4, Entry)
	c.SectionOffset("NoteOffset", 4, Note)
	c.SectionCount("NoteCount", 4, Note)
	c.Number("Flags", 4)
	c.Children(Entry, newEntry)
	c.Children(Note, newNote)
	return c.End()
}

// BoundaryRules keeps the entry section ahead of the note section when both
// start at the same offset.
func (Bundle) BoundaryRules() []structure.BoundaryRule {
	return []structure.BoundaryRule{
		{Inserted: Note, Section: Entry, Push: false},
	}
}

func newEntry() *structure.Structure {
	return structure.NewRemovable("Entry", Entry, entryLayout)
}

func newNote() *structure.Structure {
	return structure.NewRemovable("Note", Note, noteLayout)
}

var entryLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Text("Name", EntryNameSize)
	c.Child(structure.New("Item", Item{Relative: true}))
	return c.End()
})

var noteLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Text("Text", NoteSize)
	return c.End()
})
