package structure

import (
	"fmt"
	"sort"

	"github.com/EchoTools/structedit/pkg/field"
)

// Insert adds child to s at the position its kind dictates and updates every
// offset, section offset and section count the insertion invalidates. It returns
// the index child was inserted at.
//
// On error nothing has been changed.
func (s *Structure) Insert(child *Structure) (int, error) {
	return s.insert(child, -1)
}

// InsertAt is Insert with an explicit index, typically next to a selected
// sibling of the same kind.
func (s *Structure) InsertAt(child *Structure, index int) (int, error) {
	if index < 0 {
		return -1, &PlacementError{Structure: s.name, Kind: child.kind, Reason: fmt.Sprintf("index %d", index)}
	}
	return s.insert(child, index)
}

// insertPlan holds everything computed before the tree is touched.
type insertPlan struct {
	index  int
	offset int

	section     *field.SectionOffset
	sectionHost *Structure
	initSection bool
	steps       []tallyStep
}

// tallyStep is the amount one bound counter or length changes by.
type tallyStep struct {
	sc   *field.SectionCount
	step int64
}

func (s *Structure) insert(child *Structure, hint int) (int, error) {
	if child == nil {
		return -1, fmt.Errorf("insert into %s: nil structure", s.name)
	}
	if !child.removable {
		return -1, fmt.Errorf("insert %s into %s: %w", child.name, s.name, ErrNotRemovable)
	}
	if child.parent != nil {
		return -1, fmt.Errorf("insert %s into %s: %w", child.name, s.name, ErrFieldAttached)
	}

	plan, err := s.planInsert(child, hint)
	if err != nil {
		return -1, err
	}

	if plan.initSection {
		plan.section.Shift(int64(plan.offset-plan.sectionHost.ExtraOffset()) - plan.section.Value())
	}
	for _, ts := range plan.steps {
		ts.sc.Shift(ts.step)
	}

	child.realignFrom(plan.offset)

	sh := newShift(plan.offset, child.Size(), child.kind, s)
	root := s.Root()
	root.shiftSections(sh)
	root.shiftEntries(sh)

	s.fields = append(s.fields, nil)
	copy(s.fields[plan.index+1:], s.fields[plan.index:])
	s.fields[plan.index] = child
	child.parent = s

	s.logger().Debug("inserted structure",
		"owner", s.name, "kind", child.kind.Name(), "index", plan.index,
		"offset", plan.offset, "size", child.Size())

	s.FieldChanged(field.Event{Kind: field.Inserted, Field: child, Owner: s, New: plan.index})
	return plan.index, nil
}

func (s *Structure) planInsert(child *Structure, hint int) (*insertPlan, error) {
	kind := child.kind
	plan := &insertPlan{}
	plan.section, plan.sectionHost = s.SectionOffset(kind)

	fail := func(format string, args ...any) error {
		return &PlacementError{Structure: s.name, Kind: kind, Reason: fmt.Sprintf(format, args...)}
	}

	size := child.Size()
	for _, sc := range s.Tallies(kind) {
		plan.steps = append(plan.steps, tallyStep{sc: sc, step: sc.Step(size)})
	}
	for _, sc := range s.enclosingLengths() {
		plan.steps = append(plan.steps, tallyStep{sc: sc, step: int64(size)})
	}
	for _, ts := range plan.steps {
		if next := ts.sc.Value() + ts.step; !ts.sc.Fits(next) {
			return nil, fail("%s cannot hold %d in %d bytes", ts.sc.Name(), next, ts.sc.Size())
		}
	}

	// Position.
	switch {
	case hint >= 0:
		if hint > len(s.fields) {
			return nil, fail("index %d beyond %d fields", hint, len(s.fields))
		}
		plan.index = hint

	case plan.section != nil && plan.section.Value() != 0:
		start := int(plan.section.Value()) + plan.sectionHost.ExtraOffset()
		if start < s.start || start > s.end {
			return nil, fail("section %s starts at %#x outside [%#x, %#x]", plan.section.Name(), start, s.start, s.end)
		}
		idx := sort.Search(len(s.fields), func(i int) bool {
			return s.fields[i].Offset() >= start
		})
		for idx < len(s.fields) && isKind(s.fields[idx], kind) {
			idx++
		}
		plan.index = idx

	case plan.section != nil:
		plan.index = len(s.fields)

	default:
		if p, ok := s.layout.(Positioner); ok {
			idx, err := p.InsertIndex(s, child)
			if err != nil {
				return nil, fail("%v", err)
			}
			if idx < 0 || idx > len(s.fields) {
				return nil, fail("layout chose index %d of %d fields", idx, len(s.fields))
			}
			plan.index = idx
		} else {
			plan.index = len(s.fields)
			s.logger().Debug("no section bound, appending",
				"owner", s.name, "kind", kind.Name())
		}
	}
	plan.initSection = plan.section != nil && plan.section.Value() == 0

	// Offset.
	idx := plan.index
	switch {
	case idx > 0 && isKind(s.fields[idx-1], kind):
		prev := s.fields[idx-1]
		plan.offset = prev.Offset() + prev.Size()

	case plan.section != nil && !plan.initSection:
		plan.offset = int(plan.section.Value()) + plan.sectionHost.ExtraOffset()

	case idx == 0 && len(s.fields) > 0:
		plan.offset = s.fields[0].Offset()

	default:
		if p, ok := s.layout.(Placer); ok {
			off, err := p.PlaceOffset(s, child, idx)
			if err != nil {
				return nil, fail("%v", err)
			}
			plan.offset = off
		} else if idx < len(s.fields) {
			plan.offset = s.fields[idx].Offset()
		} else {
			plan.offset = s.end
		}
	}

	// The offset must fall between the neighbours at the chosen index.
	if plan.offset < s.start || plan.offset > s.end {
		return nil, fail("offset %#x outside [%#x, %#x]", plan.offset, s.start, s.end)
	}
	if idx > 0 && plan.offset < s.fields[idx-1].Offset() {
		return nil, fail("offset %#x before preceding field at %#x", plan.offset, s.fields[idx-1].Offset())
	}
	if idx < len(s.fields) && plan.offset > s.fields[idx].Offset() {
		return nil, fail("offset %#x after following field at %#x", plan.offset, s.fields[idx].Offset())
	}
	return plan, nil
}

// enclosingLengths returns the section lengths that cover s: for s and each of
// its ancestors that is a removable structure, the lengths bound to its kind.
func (s *Structure) enclosingLengths() []*field.SectionCount {
	var out []*field.SectionCount
	for cur := s; cur != nil; cur = cur.ParentStructure() {
		owner := cur.ParentStructure()
		if !cur.removable || owner == nil {
			continue
		}
		for _, sc := range owner.Tallies(cur.kind) {
			if sc.IsLength() {
				out = append(out, sc)
			}
		}
	}
	return out
}

func isKind(f field.Field, kind field.Kind) bool {
	_, ok := removableOf(f, kind)
	return ok
}

// Remove detaches the removable sub-structure f from s and shifts everything
// after it back by its size. With recurse set, the removable children of f are
// removed first, innermost first, so counts bound to their kinds stay correct.
func (s *Structure) Remove(f field.Field, recurse bool) (*Structure, error) {
	child, err := s.remove(f, recurse)
	if err != nil {
		return nil, err
	}
	s.FieldChanged(field.Event{Kind: field.Removed, Field: child, Owner: s})
	return child, nil
}

func (s *Structure) remove(f field.Field, recurse bool) (*Structure, error) {
	child, ok := f.(*Structure)
	if !ok || !child.removable {
		return nil, fmt.Errorf("remove %q from %s: %w", f.Name(), s.name, ErrNotRemovable)
	}
	idx := s.indexOf(child)
	if idx < 0 {
		return nil, fmt.Errorf("remove %q from %s: %w", f.Name(), s.name, ErrNotOwned)
	}

	if recurse {
		if err := child.removeChildren(); err != nil {
			return nil, err
		}
		idx = s.indexOf(child)
	}

	size := child.Size()
	for _, sc := range s.Tallies(child.kind) {
		if step := sc.Step(size); sc.Value() >= step {
			sc.Shift(-step)
		}
	}
	for _, sc := range s.enclosingLengths() {
		if sc.Value() >= int64(size) {
			sc.Shift(-int64(size))
		}
	}

	s.fields = append(s.fields[:idx], s.fields[idx+1:]...)

	sh := newShift(child.start, -child.Size(), child.kind, s)
	root := s.Root()
	root.shiftSections(sh)
	root.shiftEntries(sh)

	child.parent = nil
	s.modified = true

	s.logger().Debug("removed structure",
		"owner", s.name, "kind", child.kind.Name(), "index", idx,
		"offset", child.start, "size", child.Size())
	return child, nil
}

// removeChildren removes every removable structure under s, last first. Fixed
// sub-structures are descended into but kept.
func (s *Structure) removeChildren() error {
	for i := len(s.fields) - 1; i >= 0; i-- {
		sub, ok := s.fields[i].(*Structure)
		if !ok {
			continue
		}
		if !sub.removable {
			if err := sub.removeChildren(); err != nil {
				return err
			}
			continue
		}
		if _, err := s.remove(sub, true); err != nil {
			return err
		}
	}
	return nil
}

// shift describes one cascading offset change of delta bytes at point.
type shift struct {
	point int
	delta int
	kind  field.Kind

	// edited is the structure being inserted into or removed from, together
	// with all of its ancestors.
	edited map[*Structure]bool
}

func newShift(point, delta int, kind field.Kind, edited *Structure) *shift {
	sh := &shift{
		point:  point,
		delta:  delta,
		kind:   kind,
		edited: make(map[*Structure]bool),
	}
	for cur := edited; cur != nil; cur = cur.ParentStructure() {
		sh.edited[cur] = true
	}
	return sh
}

func (sh *shift) growing() bool {
	return sh.delta > 0
}

// leafMoves reports whether a leaf at off moves.
func (sh *shift) leafMoves(off int) bool {
	if sh.growing() {
		return off >= sh.point
	}
	return off > sh.point
}

// startMoves reports whether the start of s moves. A structure starting exactly
// at the insertion point moves unless the insertion happens inside it.
func (sh *shift) startMoves(s *Structure) bool {
	if s.start > sh.point {
		return true
	}
	return sh.growing() && s.start == sh.point && !sh.edited[s]
}

// endMoves reports whether the end of s moves. A structure ending exactly at the
// insertion point grows only if the insertion happens inside it; an empty one
// moves with its start.
func (sh *shift) endMoves(s *Structure) bool {
	if s.end > sh.point {
		return true
	}
	return sh.growing() && s.end == sh.point && (sh.edited[s] || sh.startMoves(s))
}

// shiftEntries moves every field and structure bound after the point.
func (s *Structure) shiftEntries(sh *shift) {
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			sub.shiftEntries(sh)
			continue
		}
		if sh.leafMoves(f.Offset()) {
			f.SetOffset(f.Offset() + sh.delta)
		}
	}

	startMoves, endMoves := sh.startMoves(s), sh.endMoves(s)
	if startMoves {
		s.start += sh.delta
	}
	if endMoves {
		s.end += sh.delta
	}
}

// shiftSections updates every placed section offset whose target moves relative
// to the base it is stored against. It runs before shiftEntries so positions are
// compared in their original coordinates.
func (s *Structure) shiftSections(sh *shift) {
	for _, so := range s.offsets {
		if so.Value() == 0 {
			continue
		}
		pos := int(so.Value()) + s.ExtraOffset()

		moved := 0
		if pos > sh.point || (pos == sh.point && s.pushes(so.Kind(), sh)) {
			moved = sh.delta
		}
		if s.relative && sh.startMoves(s) {
			moved -= sh.delta
		}
		if moved != 0 {
			so.Shift(int64(moved))
		}
	}

	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			sub.shiftSections(sh)
		}
	}
}

// pushes reports whether a section of kind section sitting exactly on the
// insertion point moves ahead of the inserted structure.
func (s *Structure) pushes(section field.Kind, sh *shift) bool {
	if !sh.growing() {
		return false
	}
	if r, ok := s.layout.(BoundaryRuler); ok {
		for _, rule := range r.BoundaryRules() {
			if rule.Inserted == sh.kind && rule.Section == section {
				return rule.Push
			}
		}
	}
	return section != sh.kind
}

// Realign assigns offsets sequentially from the start of s, depth first, in
// field order. Calling it twice gives the same offsets as calling it once.
func (s *Structure) Realign() {
	s.realignFrom(s.start)
	s.FieldChanged(field.Event{Kind: field.Realigned, Field: s, Owner: s})
}

func (s *Structure) realignFrom(cursor int) int {
	s.start = cursor
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			cursor = sub.realignFrom(cursor)
			continue
		}
		f.SetOffset(cursor)
		cursor += f.Size()
	}
	s.end = cursor
	return cursor
}
