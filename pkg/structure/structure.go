// Package structure implements an offset-tracking tree of binary fields.
//
// A Structure is an ordered container of fields that is itself a field. Layouts
// declare which fields a structure holds; the structure keeps every offset, every
// section offset and every section count consistent while removable
// sub-structures are inserted and removed, and writes the tree back out
// byte-for-byte.
//
// The model has a single writer. Lookups and serialization must not run while a
// mutation on the same tree is in progress.
package structure

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/EchoTools/structedit/pkg/field"
)

// Structure is an ordered container of fields covering [Offset, Offset+Size).
type Structure struct {
	name      string
	kind      field.Kind
	removable bool
	layout    Layout

	start int
	end   int

	// extra is added to stored section offsets. When relative is set, the
	// structure's own start is added as well.
	extra    int
	relative bool

	fields  []field.Field
	offsets map[field.Kind]*field.SectionOffset
	counts  map[field.Kind]*field.SectionCount
	tallies map[field.Kind][]*field.SectionCount

	parent   field.Parent
	modified bool
}

var (
	_ field.Field  = (*Structure)(nil)
	_ field.Parent = (*Structure)(nil)
	_ field.Kinded = (*Structure)(nil)
)

// New creates a fixed structure that is read by layout.
func New(name string, layout Layout) *Structure {
	return &Structure{
		name:    name,
		layout:  layout,
		offsets: make(map[field.Kind]*field.SectionOffset),
		counts:  make(map[field.Kind]*field.SectionCount),
		tallies: make(map[field.Kind][]*field.SectionCount),
	}
}

// NewRemovable creates a structure of the given kind that can be inserted into
// and removed from its owner after parsing.
func NewRemovable(name string, kind field.Kind, layout Layout) *Structure {
	s := New(name, layout)
	s.kind = kind
	s.removable = true
	return s
}

// Synthesize creates an empty removable structure by reading layout over size
// zero bytes. Callers use it to build new instances for insertion. Bytes the
// layout only declares are covered by zero fillers.
func Synthesize(name string, kind field.Kind, layout Layout, size int) (*Structure, error) {
	s := NewRemovable(name, kind, layout)
	buf := make([]byte, size)
	if _, err := s.Read(buf, 0); err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", name, err)
	}
	cursor := s.start
	s.fillHoles(buf, &cursor, slog.Default())
	return s, nil
}

// Name returns the structure name.
func (s *Structure) Name() string { return s.name }

// Kind returns the type identity. Fixed structures have the zero Kind.
func (s *Structure) Kind() field.Kind { return s.kind }

// Removable reports whether s may be inserted and removed after parsing.
func (s *Structure) Removable() bool { return s.removable }

// Layout returns the layout that reads s.
func (s *Structure) Layout() Layout { return s.layout }

// Offset returns the start offset.
func (s *Structure) Offset() int { return s.start }

// End returns the end offset.
func (s *Structure) End() int { return s.end }

// Size returns End() - Offset().
func (s *Structure) Size() int { return s.end - s.start }

// SetOffset moves s and every descendant so that s starts at off.
func (s *Structure) SetOffset(off int) {
	s.move(off - s.start)
}

func (s *Structure) move(delta int) {
	if delta == 0 {
		return
	}
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			sub.move(delta)
			continue
		}
		f.SetOffset(f.Offset() + delta)
	}
	s.start += delta
	s.end += delta
}

// Parent returns the owning structure or tree.
func (s *Structure) Parent() field.Parent { return s.parent }

// SetParent sets the non-owning back-reference.
func (s *Structure) SetParent(p field.Parent) { s.parent = p }

// ParentStructure returns the owning structure, or nil for a root or detached structure.
func (s *Structure) ParentStructure() *Structure {
	p, _ := s.parent.(*Structure)
	return p
}

// Root returns the outermost structure reachable through parent links.
func (s *Structure) Root() *Structure {
	r := s
	for p := r.ParentStructure(); p != nil; p = r.ParentStructure() {
		r = p
	}
	return r
}

// Tree returns the tree s belongs to, or nil when s is detached from one.
func (s *Structure) Tree() *Tree {
	t, _ := s.Root().parent.(*Tree)
	return t
}

func (s *Structure) logger() *slog.Logger {
	if t := s.Tree(); t != nil {
		return t.log
	}
	return slog.Default()
}

// ExtraOffset returns the amount added to stored section offsets.
func (s *Structure) ExtraOffset() int {
	if s.relative {
		return s.start + s.extra
	}
	return s.extra
}

// SetExtraOffset sets a fixed amount added to stored section offsets.
func (s *Structure) SetExtraOffset(n int) {
	s.extra = n
}

// SetRelative makes stored section offsets relative to the structure's own start,
// so they follow the structure when it moves.
func (s *Structure) SetRelative(relative bool) {
	s.relative = relative
}

// Fields returns the fields in offset order. The slice must not be modified.
func (s *Structure) Fields() []field.Field {
	return s.fields
}

// Add appends f and sets its back-reference. Layouts call it while reading.
func (s *Structure) Add(f field.Field) {
	s.fields = append(s.fields, f)
	f.SetParent(s)
}

// BindOffset records so as the section offset of its kind.
func (s *Structure) BindOffset(so *field.SectionOffset) {
	s.offsets[so.Kind()] = so
}

// BindCount records sc as a counter of its kind. The first element count bound
// to a kind is its section count; further counts and lengths are kept in step
// with it on insert and remove.
func (s *Structure) BindCount(sc *field.SectionCount) {
	kind := sc.Kind()
	if _, ok := s.counts[kind]; !ok && !sc.IsLength() {
		s.counts[kind] = sc
	}
	s.tallies[kind] = append(s.tallies[kind], sc)
}

// SectionOffset returns the section offset bound to kind in s or its nearest
// ancestor, together with the structure that declares it.
func (s *Structure) SectionOffset(kind field.Kind) (*field.SectionOffset, *Structure) {
	for cur := s; cur != nil; cur = cur.ParentStructure() {
		if so, ok := cur.offsets[kind]; ok {
			return so, cur
		}
	}
	return nil, nil
}

// SectionCount returns the section count bound to kind in s or its nearest
// ancestor, together with the structure that declares it.
func (s *Structure) SectionCount(kind field.Kind) (*field.SectionCount, *Structure) {
	for cur := s; cur != nil; cur = cur.ParentStructure() {
		if sc, ok := cur.counts[kind]; ok {
			return sc, cur
		}
	}
	return nil, nil
}

// Tallies returns every counter and length bound to kind in s or its nearest
// ancestor declaring any.
func (s *Structure) Tallies(kind field.Kind) []*field.SectionCount {
	for cur := s; cur != nil; cur = cur.ParentStructure() {
		if t := cur.tallies[kind]; len(t) > 0 {
			return t
		}
	}
	return nil
}

// Children returns the removable sub-structures of kind owned directly by s.
func (s *Structure) Children(kind field.Kind) []*Structure {
	var out []*Structure
	for _, f := range s.fields {
		if sub, ok := removableOf(f, kind); ok {
			out = append(out, sub)
		}
	}
	return out
}

// CountKind returns the number of removable sub-structures of kind anywhere under s.
func (s *Structure) CountKind(kind field.Kind) int {
	n := 0
	for _, f := range s.fields {
		sub, ok := f.(*Structure)
		if !ok {
			continue
		}
		if sub.removable && sub.kind == kind {
			n++
		}
		n += sub.CountKind(kind)
	}
	return n
}

func removableOf(f field.Field, kind field.Kind) (*Structure, bool) {
	sub, ok := f.(*Structure)
	if !ok || !sub.removable || sub.kind != kind {
		return nil, false
	}
	return sub, true
}

func (s *Structure) indexOf(f field.Field) int {
	for i, cur := range s.fields {
		if cur == f {
			return i
		}
	}
	return -1
}

// Modified reports whether s or a descendant changed since parsing.
func (s *Structure) Modified() bool {
	return s.modified
}

// ClearModified resets the modified flag on s and every descendant.
func (s *Structure) ClearModified() {
	s.modified = false
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			sub.ClearModified()
		}
	}
}

// FieldChanged marks s modified and forwards ev to the parent chain.
func (s *Structure) FieldChanged(ev field.Event) {
	s.modified = true
	if ev.Owner == nil {
		ev.Owner = s
	}
	if s.parent != nil {
		s.parent.FieldChanged(ev)
	}
}

// Read resets s and reads it from buf at off using its layout.
func (s *Structure) Read(buf []byte, off int) (int, error) {
	s.fields = nil
	clear(s.offsets)
	clear(s.counts)
	clear(s.tallies)
	s.start, s.end = off, off

	end, err := s.layout.Read(s, buf, off)
	if err != nil {
		return off, fmt.Errorf("read %s at %#x: %w", s.name, off, err)
	}
	if end < off {
		end = off
	}
	s.end = end
	s.sortFields()
	return end, nil
}

func (s *Structure) sortFields() {
	sort.SliceStable(s.fields, func(i, j int) bool {
		return s.fields[i].Offset() < s.fields[j].Offset()
	})
}

// Write emits the bytes of [Offset, End) with every field at its offset.
func (s *Structure) Write(w io.Writer) error {
	data, err := s.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Clone returns a detached deep copy. Section bindings are rebound to the copies.
func (s *Structure) Clone() field.Field {
	c := &Structure{
		name:      s.name,
		kind:      s.kind,
		removable: s.removable,
		layout:    s.layout,
		start:     s.start,
		end:       s.end,
		extra:     s.extra,
		relative:  s.relative,
		fields:    make([]field.Field, 0, len(s.fields)),
		offsets:   make(map[field.Kind]*field.SectionOffset, len(s.offsets)),
		counts:    make(map[field.Kind]*field.SectionCount, len(s.counts)),
		tallies:   make(map[field.Kind][]*field.SectionCount, len(s.tallies)),
	}

	for _, f := range s.fields {
		cf := f.Clone()
		c.Add(cf)
		switch v := f.(type) {
		case *field.SectionOffset:
			if s.offsets[v.Kind()] == v {
				c.offsets[v.Kind()] = cf.(*field.SectionOffset)
			}
		case *field.SectionCount:
			if s.counts[v.Kind()] == v {
				c.counts[v.Kind()] = cf.(*field.SectionCount)
			}
			for _, t := range s.tallies[v.Kind()] {
				if t == v {
					c.tallies[v.Kind()] = append(c.tallies[v.Kind()], cf.(*field.SectionCount))
				}
			}
		}
	}
	return c
}

// String returns a short description.
func (s *Structure) String() string {
	return fmt.Sprintf("%s[%#x:%#x]", s.name, s.start, s.end)
}
