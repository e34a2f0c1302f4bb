package layouts

import (
	"fmt"
	"sort"

	"github.com/EchoTools/structedit/pkg/field"
	"github.com/EchoTools/structedit/pkg/structure"
)

const (
	// ManifestHeaderSize is the size of the package manifest header.
	ManifestHeaderSize = 192

	// FrameContentSize is the size of one frame content entry.
	FrameContentSize = 32

	// FileMetadataSize is the size of one file metadata entry.
	FileMetadataSize = 40

	// FrameSize is the size of one frame descriptor.
	FrameSize = 16
)

// Manifest is a package manifest: a header describing three contiguous
// sections of fixed-size entries, stored back to back after the header with
// no section offsets.
//
//	0x00 PackageCount uint32
//	0x04 Unk1         uint32
//	0x08 Unk2         uint64
//	0x10 FrameContents section header (48 bytes)
//	0x40 padding (16 bytes)
//	0x50 Metadata section header
//	0x80 padding (16 bytes)
//	0x90 Frames section header
//
// Each section header holds Length, Unk1, Unk2, ElementSize, Count and
// ElementCount as uint64. Count, ElementCount and Length follow every insert
// and remove.
type Manifest struct{}

var (
	_ structure.Layout     = Manifest{}
	_ structure.Positioner = Manifest{}
	_ structure.Placer     = Manifest{}
)

type manifestSection struct {
	prefix   string
	kind     field.Kind
	newChild func() *structure.Structure
}

var manifestSections = []manifestSection{
	{"FrameContents", FrameContent, newFrameContent},
	{"Metadata", FileMetadata, newFileMetadata},
	{"Frames", Frame, newFrame},
}

// Read declares the header and the three sections.
func (Manifest) Read(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("PackageCount", 4)
	c.Number("Unk1", 4)
	c.Number("Unk2", 8)

	for i, sec := range manifestSections {
		if i > 0 {
			c.Bytes(sec.prefix+"Padding", 16)
		}
		c.SectionLength(sec.prefix+"Length", 8, sec.kind)
		c.Number(sec.prefix+"Unk1", 8)
		c.Number(sec.prefix+"Unk2", 8)
		c.Number(sec.prefix+"ElementSize", 8)
		c.SectionCount(sec.prefix+"Count", 8, sec.kind)
		c.SectionCount(sec.prefix+"ElementCount", 8, sec.kind)
	}

	for _, sec := range manifestSections {
		c.Sequence(sec.kind, sec.newChild)
	}
	return c.End()
}

// InsertIndex puts a new entry at the end of its section.
func (Manifest) InsertIndex(s *structure.Structure, child *structure.Structure) (int, error) {
	end, err := sectionEnd(s, child.Kind())
	if err != nil {
		return 0, err
	}
	fields := s.Fields()
	return sort.Search(len(fields), func(i int) bool {
		return fields[i].Offset() >= end
	}), nil
}

// PlaceOffset returns the end of the child's section, which is where an entry
// goes when its section is empty.
func (Manifest) PlaceOffset(s *structure.Structure, child *structure.Structure, _ int) (int, error) {
	return sectionEnd(s, child.Kind())
}

// sectionEnd adds up the stored section lengths up to and including kind's.
func sectionEnd(s *structure.Structure, kind field.Kind) (int, error) {
	end := s.Offset() + ManifestHeaderSize
	for _, sec := range manifestSections {
		var length *field.SectionCount
		for _, sc := range s.Tallies(sec.kind) {
			if sc.IsLength() {
				length = sc
			}
		}
		if length == nil {
			return 0, fmt.Errorf("manifest section %s has no length", sec.prefix)
		}
		end += int(length.Value())
		if sec.kind == kind {
			return end, nil
		}
	}
	return 0, fmt.Errorf("%s is not a manifest section", kind.Name())
}

func newFrameContent() *structure.Structure {
	return structure.NewRemovable("FrameContent", FrameContent, frameContentLayout)
}

func newFileMetadata() *structure.Structure {
	return structure.NewRemovable("FileMetadata", FileMetadata, fileMetadataLayout)
}

func newFrame() *structure.Structure {
	return structure.NewRemovable("Frame", Frame, frameLayout)
}

// frameContentLayout locates one file inside a decompressed frame.
var frameContentLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Signed("TypeSymbol", 8)
	c.Signed("FileSymbol", 8)
	c.Number("FrameIndex", 4)
	c.Number("DataOffset", 4)
	c.Number("Size", 4)
	c.Number("Alignment", 4)
	return c.End()
})

var fileMetadataLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Signed("TypeSymbol", 8)
	c.Signed("FileSymbol", 8)
	c.Signed("Unk1", 8)
	c.Signed("Unk2", 8)
	c.Signed("AssetType", 8)
	return c.End()
})

// frameLayout describes a compressed frame within a package file.
var frameLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("PackageIndex", 4)
	c.Number("Offset", 4)
	c.Number("CompressedSize", 4)
	c.Number("Length", 4)
	return c.End()
})
