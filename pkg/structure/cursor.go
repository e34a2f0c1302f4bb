package structure

import (
	"fmt"

	"github.com/EchoTools/structedit/pkg/field"
)

// Cursor reads fields into a structure. Once an operation fails the error is
// kept and every later operation is skipped, so layouts check Err once at the end.
type Cursor struct {
	s        *Structure
	buf      []byte
	off      int
	furthest int
	err      error
}

// Cursor returns a cursor that reads into s starting at off.
func (s *Structure) Cursor(buf []byte, off int) *Cursor {
	return &Cursor{s: s, buf: buf, off: off, furthest: off}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Err returns the first error encountered.
func (c *Cursor) Err() error {
	return c.err
}

// Seek moves the read position to off.
func (c *Cursor) Seek(off int) {
	if c.err != nil {
		return
	}
	c.off = off
}

// Skip advances the read position by n bytes. Skipped bytes become fillers.
func (c *Cursor) Skip(n int) {
	c.Seek(c.off + n)
}

// Declare extends the structure end to at least end.
func (c *Cursor) Declare(end int) {
	if end > c.furthest {
		c.furthest = end
	}
}

// End returns the structure end: the furthest byte read or declared.
func (c *Cursor) End() (int, error) {
	return c.furthest, c.err
}

// Read reads f at the current position and advances past it.
func (c *Cursor) Read(f field.Field) {
	c.read(f, c.off, true)
}

// ReadAt reads f at off without moving the read position.
func (c *Cursor) ReadAt(f field.Field, off int) {
	c.read(f, off, false)
}

func (c *Cursor) read(f field.Field, off int, advance bool) {
	if c.err != nil {
		return
	}
	next, err := f.Read(c.buf, off)
	if err != nil {
		c.err = err
		return
	}
	c.s.Add(f)
	c.Declare(next)
	if advance {
		c.off = next
	}
}

// Number reads an unsigned number of width bytes.
func (c *Cursor) Number(name string, width int) *field.Number {
	n := field.NewNumber(name, width, false)
	c.Read(n)
	return n
}

// Signed reads a signed number of width bytes.
func (c *Cursor) Signed(name string, width int) *field.Number {
	n := field.NewNumber(name, width, true)
	c.Read(n)
	return n
}

// Text reads a Windows-1252 string of size bytes.
func (c *Cursor) Text(name string, size int) *field.Text {
	t := field.NewText(name, size)
	c.Read(t)
	return t
}

// Bytes reads an opaque range of size bytes.
func (c *Cursor) Bytes(name string, size int) *field.Bytes {
	b := field.NewBytes(name, size)
	c.Read(b)
	return b
}

// SectionOffset reads a section offset and binds it to kind.
func (c *Cursor) SectionOffset(name string, width int, kind field.Kind) *field.SectionOffset {
	so := field.NewSectionOffset(name, width, kind)
	c.Read(so)
	if c.err == nil {
		c.s.BindOffset(so)
	}
	return so
}

// SectionCount reads a section count and binds it to kind.
func (c *Cursor) SectionCount(name string, width int, kind field.Kind) *field.SectionCount {
	sc := field.NewSectionCount(name, width, kind)
	c.Read(sc)
	if c.err == nil {
		c.s.BindCount(sc)
	}
	return sc
}

// SectionLength reads the byte length of a section and binds it to kind.
func (c *Cursor) SectionLength(name string, width int, kind field.Kind) *field.SectionCount {
	sl := field.NewSectionLength(name, width, kind)
	c.Read(sl)
	if c.err == nil {
		c.s.BindCount(sl)
	}
	return sl
}

// Child reads child at the current position and advances past it.
func (c *Cursor) Child(child *Structure) {
	c.Read(child)
}

// Children reads the section of kind declared by the structure: count children
// created by newChild, laid out back to back from the recorded section start.
// The read position does not move.
func (c *Cursor) Children(kind field.Kind, newChild func() *Structure) {
	if c.err != nil {
		return
	}
	so, ok := c.s.offsets[kind]
	if !ok {
		c.err = fmt.Errorf("section %s: no offset bound", kind.Name())
		return
	}
	c.section(kind, int(so.Value())+c.s.ExtraOffset(), newChild)
}

// Sequence reads the section of kind that starts at the current position, for
// formats that store no section offset, and advances past it.
func (c *Cursor) Sequence(kind field.Kind, newChild func() *Structure) {
	if c.err != nil {
		return
	}
	if end := c.section(kind, c.off, newChild); c.err == nil {
		c.off = end
	}
}

func (c *Cursor) section(kind field.Kind, pos int, newChild func() *Structure) int {
	sc, ok := c.s.counts[kind]
	if !ok {
		c.err = fmt.Errorf("section %s: no count bound", kind.Name())
		return pos
	}

	for i := int64(0); i < sc.Value(); i++ {
		child := newChild()
		c.read(child, pos, false)
		if c.err != nil {
			c.err = fmt.Errorf("section %s entry %d: %w", kind.Name(), i, c.err)
			return pos
		}
		if child.End() <= pos {
			c.err = fmt.Errorf("section %s entry %d at %#x: %w", kind.Name(), i, pos, ErrEmptyEntry)
			return pos
		}
		pos = child.End()
	}
	return pos
}
