package layouts

import (
	"github.com/EchoTools/structedit/pkg/structure"
)

const (
	// TableHeaderSize is the size of the table header.
	TableHeaderSize = 12

	// RecordSize is the size of one table record.
	RecordSize = 8
)

// Table is a flat resource: a record count, the offset of the record section and
// a flags word, followed by fixed-size records.
//
//	0x00 RecordCount  uint32
//	0x04 RecordOffset uint32
//	0x08 Flags        uint32
type Table struct{}

var _ structure.Layout = Table{}

// Read declares the table header and its records.
func (Table) Read(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.SectionCount("RecordCount", 4, Record)
	c.SectionOffset("RecordOffset", 4, Record)
	c.Number("Flags", 4)
	c.Declare(off + TableHeaderSize)
	c.Children(Record, newRecord)
	return c.End()
}

func newRecord() *structure.Structure {
	return structure.NewRemovable("Record", Record, recordLayout)
}

var recordLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("ID", 4)
	c.Number("Value", 4)
	return c.End()
})
