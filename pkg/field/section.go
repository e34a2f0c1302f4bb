package field

// SectionOffset is a header field recording where a homogeneous run of
// sub-structures of one Kind starts. A stored value of zero means the section is
// empty and has never been placed.
type SectionOffset struct {
	Number
	kind Kind
}

var (
	_ Field  = (*SectionOffset)(nil)
	_ Kinded = (*SectionOffset)(nil)
)

// NewSectionOffset creates an unsigned section offset of the given width bound to kind.
func NewSectionOffset(name string, width int, kind Kind) *SectionOffset {
	s := &SectionOffset{
		Number: Number{base: base{name: name}, width: width},
		kind:   kind,
	}
	s.self = s
	return s
}

// Kind returns the bound sub-structure kind.
func (s *SectionOffset) Kind() Kind {
	return s.kind
}

// Clone returns a detached copy bound to the same kind.
func (s *SectionOffset) Clone() Field {
	c := *s
	c.base = s.base.detached(&c)
	return &c
}

// SectionCount is a header field recording how many sub-structures of one Kind
// exist. A length variant records their total size in bytes instead.
type SectionCount struct {
	Number
	kind   Kind
	length bool
}

var (
	_ Field  = (*SectionCount)(nil)
	_ Kinded = (*SectionCount)(nil)
)

// NewSectionCount creates an unsigned section count of the given width bound to kind.
func NewSectionCount(name string, width int, kind Kind) *SectionCount {
	s := &SectionCount{
		Number: Number{base: base{name: name}, width: width},
		kind:   kind,
	}
	s.self = s
	return s
}

// NewSectionLength creates an unsigned field of the given width holding the
// byte length of the section of kind.
func NewSectionLength(name string, width int, kind Kind) *SectionCount {
	s := NewSectionCount(name, width, kind)
	s.length = true
	return s
}

// Kind returns the bound sub-structure kind.
func (s *SectionCount) Kind() Kind {
	return s.kind
}

// IsLength reports whether s counts bytes rather than sub-structures.
func (s *SectionCount) IsLength() bool {
	return s.length
}

// Step returns how much s changes when a sub-structure of size bytes is added.
func (s *SectionCount) Step(size int) int64 {
	if s.length {
		return int64(size)
	}
	return 1
}

// Clone returns a detached copy bound to the same kind.
func (s *SectionCount) Clone() Field {
	c := *s
	c.base = s.base.detached(&c)
	return &c
}
