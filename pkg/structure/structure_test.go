package structure

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/structedit/pkg/field"
)

var (
	recKind   = field.NewKind("rec")
	alphaKind = field.NewKind("alpha")
	betaKind  = field.NewKind("beta")
)

// tableLayout: count@0, offset@4, flags@8, then 8-byte records.
type tableLayout struct{}

func (tableLayout) Read(s *Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.SectionCount("Count", 4, recKind)
	c.SectionOffset("Offset", 4, recKind)
	c.Number("Flags", 4)
	c.Declare(off + 12)
	c.Children(recKind, newRec)
	return c.End()
}

var recLayout = LayoutFunc(func(s *Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("ID", 4)
	c.Number("Value", 4)
	return c.End()
})

func newRec() *Structure {
	return NewRemovable("Record", recKind, recLayout)
}

func synthRec(t testing.TB, id, value int64) *Structure {
	t.Helper()
	rec, err := Synthesize("Record", recKind, recLayout, 8)
	require.NoError(t, err)
	rec.Attribute("ID", false).(*field.Number).SetValue(id)
	rec.Attribute("Value", false).(*field.Number).SetValue(value)
	rec.ClearModified()
	return rec
}

func le32(vals ...uint32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}

func tableBytes(records ...[2]uint32) []byte {
	offset := uint32(12)
	if len(records) == 0 {
		offset = 0
	}
	buf := le32(uint32(len(records)), offset, 0)
	for _, r := range records {
		buf = append(buf, le32(r[0], r[1])...)
	}
	return buf
}

func parseTable(t testing.TB, buf []byte) *Tree {
	t.Helper()
	tree, err := Parse(buf, "test.tbl", tableLayout{})
	require.NoError(t, err)
	return tree
}

// layout returns "name@offset+size" for every field under s, depth first.
func layout(s *Structure) []string {
	var out []string
	_ = s.Walk(func(f field.Field, depth int) error {
		out = append(out, fmt.Sprintf("%d:%s@%#x+%d", depth, f.Name(), f.Offset(), f.Size()))
		return nil
	})
	return out
}

// requireCoverage checks that the fields of every structure partition its range.
func requireCoverage(t *testing.T, s *Structure) {
	t.Helper()
	cursor := s.Offset()
	for _, f := range s.Fields() {
		require.Equal(t, cursor, f.Offset(), "%s: gap or overlap before %q", s.Name(), f.Name())
		if sub, ok := f.(*Structure); ok {
			requireCoverage(t, sub)
		}
		cursor += f.Size()
	}
	require.Equal(t, s.End(), cursor, "%s: fields do not reach the end", s.Name())
}

// requireSections checks every bound count and length and every placed, non-empty section offset.
func requireSections(t *testing.T, s *Structure) {
	t.Helper()
	_ = s.Walk(func(f field.Field, _ int) error {
		sub, ok := f.(*Structure)
		if !ok {
			return nil
		}
		for kind, tallies := range sub.tallies {
			for _, sc := range tallies {
				if !sc.IsLength() {
					require.Equal(t, int64(sub.CountKind(kind)), sc.Value(), "%s: %s", sub.Name(), sc.Name())
					continue
				}
				size := 0
				for _, child := range sub.Children(kind) {
					size += child.Size()
				}
				require.EqualValues(t, size, sc.Value(), "%s: %s", sub.Name(), sc.Name())
			}
		}
		for kind, so := range sub.offsets {
			children := sub.Children(kind)
			if len(children) == 0 {
				continue
			}
			require.Equal(t, children[0].Offset(), int(so.Value())+sub.ExtraOffset(), "%s: section %s", sub.Name(), kind.Name())
		}
		return nil
	})
}

func TestRecordSection(t *testing.T) {
	original := tableBytes([2]uint32{1, 100}, [2]uint32{2, 200})
	tree := parseTable(t, original)
	root := tree.Root()

	t.Run("ParseSection", func(t *testing.T) {
		recs := root.Children(recKind)
		require.Len(t, recs, 2)
		require.Equal(t, 12, recs[0].Offset())
		require.Equal(t, 20, recs[1].Offset())

		sc, host := root.SectionCount(recKind)
		require.NotNil(t, sc)
		require.Same(t, root, host)
		require.EqualValues(t, 2, sc.Value())
		require.Equal(t, 28, root.End())

		out, err := tree.Serialize()
		require.NoError(t, err)
		require.Equal(t, original, out)
		requireCoverage(t, root)
	})

	before := layout(root)
	rec := synthRec(t, 3, 300)

	t.Run("InsertSameKind", func(t *testing.T) {
		recs := root.Children(recKind)

		idx, err := root.Insert(rec)
		require.NoError(t, err)
		require.Equal(t, 5, idx)
		require.Equal(t, 28, rec.Offset())
		require.Equal(t, 12, recs[0].Offset())
		require.Equal(t, 20, recs[1].Offset())
		require.Equal(t, 36, root.End())

		sc, _ := root.SectionCount(recKind)
		require.EqualValues(t, 3, sc.Value())

		out, err := tree.Serialize()
		require.NoError(t, err)
		want := tableBytes([2]uint32{1, 100}, [2]uint32{2, 200}, [2]uint32{3, 300})
		require.Equal(t, want, out)
		requireCoverage(t, root)
		requireSections(t, root)
	})

	t.Run("RemoveRestores", func(t *testing.T) {
		removed, err := root.Remove(rec, false)
		require.NoError(t, err)
		require.Same(t, rec, removed)
		require.Nil(t, rec.Parent())

		if diff := pretty.Compare(before, layout(root)); diff != "" {
			t.Errorf("layout after remove differs (-before +after):\n%s", diff)
		}
		ok, err := tree.Equal(original)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

var paddedLayout = LayoutFunc(func(s *Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Bytes("Magic", 4)
	c.Number("A", 4)
	c.Number("B", 4)
	c.Number("C", 8)
	c.Declare(off + 32)
	return c.End()
})

func TestHoleFixing(t *testing.T) {
	t.Run("DeclaredEnd", func(t *testing.T) {
		buf := make([]byte, 32)
		for i := range buf {
			buf[i] = byte(i)
		}
		tree, err := Parse(buf, "padded", paddedLayout)
		require.NoError(t, err)
		root := tree.Root()

		fields := root.Fields()
		require.Len(t, fields, 5)
		filler := fields[4]
		require.True(t, field.IsFiller(filler))
		require.Equal(t, field.FillerName, filler.Name())
		require.Equal(t, 20, filler.Offset())
		require.Equal(t, 12, filler.Size())
		require.Equal(t, buf[20:], filler.(*field.Filler).Data())
		requireCoverage(t, root)

		_, err = root.Remove(filler, false)
		require.ErrorIs(t, err, ErrNotRemovable)

		out, err := tree.Serialize()
		require.NoError(t, err)
		require.Equal(t, buf, out)
	})

	t.Run("Disabled", func(t *testing.T) {
		tree, err := Parse(make([]byte, 32), "padded", paddedLayout, WithHoleFixing(false))
		require.NoError(t, err)
		require.Len(t, tree.Root().Fields(), 4)

		out, err := tree.Serialize()
		require.NoError(t, err)
		require.Len(t, out, 32)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		buf := append(tableBytes([2]uint32{1, 100}), 0xde, 0xad, 0xbe, 0xef)
		tree := parseTable(t, buf)
		root := tree.Root()
		require.Equal(t, len(buf), root.End())

		last := root.Fields()[len(root.Fields())-1]
		require.True(t, field.IsFiller(last))
		require.Equal(t, 20, last.Offset())

		_, err := root.Insert(synthRec(t, 2, 200))
		require.NoError(t, err)
		require.Equal(t, 28, last.Offset())
		requireCoverage(t, root)

		out, err := tree.Serialize()
		require.NoError(t, err)
		require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out[28:])
	})

	t.Run("GapBetweenSections", func(t *testing.T) {
		// Records start at 16, leaving a 4-byte gap after the header.
		buf := le32(1, 16, 0, 0xcafe)
		buf = append(buf, le32(7, 70)...)
		tree := parseTable(t, buf)
		root := tree.Root()

		gap := root.AttributeAt(12, false)
		require.True(t, field.IsFiller(gap))
		require.Equal(t, 4, gap.Size())
		requireCoverage(t, root)

		out, err := tree.Serialize()
		require.NoError(t, err)
		require.Equal(t, buf, out)
	})
}

var aliasLayout = LayoutFunc(func(s *Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("Word", 4)
	c.ReadAt(field.NewNumber("Low", 2, false), off)
	c.Number("Tail", 4)
	return c.End()
})

func TestAliasedFields(t *testing.T) {
	buf := le32(0x11223344, 0x55667788)
	tree, err := Parse(buf, "alias", aliasLayout)
	require.NoError(t, err)
	root := tree.Root()

	for _, f := range root.Fields() {
		require.False(t, field.IsFiller(f), "aliased bytes must not produce a filler")
	}

	out, err := tree.Serialize()
	require.NoError(t, err)
	require.Equal(t, buf, out)

	low := root.Attribute("Low", false).(*field.Number)
	require.EqualValues(t, 0x3344, low.Value())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		buf    []byte
		layout Layout
		target error
	}{
		{
			name: "UnsupportedWidth",
			buf:  make([]byte, 8),
			layout: LayoutFunc(func(s *Structure, buf []byte, off int) (int, error) {
				c := s.Cursor(buf, off)
				c.Number("Odd", 3)
				return c.End()
			}),
			target: field.ErrUnsupportedWidth,
		},
		{
			name:   "DeclaredEndPastData",
			buf:    make([]byte, 24),
			layout: paddedLayout,
			target: io.ErrUnexpectedEOF,
		},
		{
			name: "EmptyEntries",
			buf:  le32(0xffffffff, 8),
			layout: LayoutFunc(func(s *Structure, buf []byte, off int) (int, error) {
				c := s.Cursor(buf, off)
				c.SectionCount("Count", 4, recKind)
				c.SectionOffset("Offset", 4, recKind)
				c.Children(recKind, func() *Structure {
					return NewRemovable("Empty", recKind, LayoutFunc(func(_ *Structure, _ []byte, off int) (int, error) {
						return off, nil
					}))
				})
				return c.End()
			}),
			target: ErrEmptyEntry,
		},
		{
			name:   "Truncated",
			buf:    tableBytes([2]uint32{1, 100}, [2]uint32{2, 200})[:24],
			layout: tableLayout{},
			target: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.buf, "broken.bin", tt.layout)
			require.Nil(t, tree)
			require.ErrorIs(t, err, tt.target)

			var re *ResourceError
			require.True(t, errors.As(err, &re))
			require.Equal(t, "broken.bin", re.ID)
		})
	}
}

func TestClone(t *testing.T) {
	tree := parseTable(t, tableBytes([2]uint32{1, 100}, [2]uint32{2, 200}))
	root := tree.Root()

	c := root.Clone().(*Structure)
	require.Nil(t, c.Parent())
	require.Equal(t, layout(root), layout(c))

	orig, _ := root.SectionCount(recKind)
	cloned, _ := c.SectionCount(recKind)
	require.NotSame(t, orig, cloned)
	require.Same(t, c.Fields()[0], field.Field(cloned))

	rec := root.Children(recKind)[0]
	dup := rec.Clone().(*Structure)
	require.Nil(t, dup.Parent())
	for _, f := range dup.Fields() {
		require.True(t, f.Parent() == field.Parent(dup))
	}

	_, err := root.Insert(dup)
	require.NoError(t, err)
	require.Len(t, root.Children(recKind), 3)
	requireSections(t, root)

	// The clone is independent of the original tree.
	require.Len(t, c.Children(recKind), 2)
}

func TestModified(t *testing.T) {
	tree := parseTable(t, tableBytes([2]uint32{1, 100}))
	root := tree.Root()
	require.False(t, tree.Modified())

	rec := root.Children(recKind)[0]
	rec.Attribute("Value", false).(*field.Number).SetValue(101)
	require.True(t, rec.Modified())
	require.True(t, tree.Modified())

	root.ClearModified()
	require.False(t, rec.Modified())
	require.False(t, tree.Modified())
}
