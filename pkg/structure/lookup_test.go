package structure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EchoTools/structedit/pkg/field"
)

func TestAttributeAt(t *testing.T) {
	tree := parseTable(t, tableBytes([2]uint32{1, 100}, [2]uint32{2, 200}))
	root := tree.Root()
	recs := root.Children(recKind)

	tests := []struct {
		name      string
		off       int
		recursive bool
		want      field.Field
	}{
		{"HeaderField", 5, true, root.Attribute("Offset", false)},
		{"LeafInRecord", 13, true, recs[0].Attribute("ID", false)},
		{"SecondLeaf", 25, true, recs[1].Attribute("Value", false)},
		{"FirstLevelOnly", 13, false, recs[0]},
		{"PastEnd", 28, true, nil},
		{"Negative", -1, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := root.AttributeAt(tt.off, tt.recursive)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.True(t, got == tt.want, "got %v, want %v", got, tt.want)
		})
	}
}

func TestAttributeAtOf(t *testing.T) {
	tree := parseTable(t, tableBytes([2]uint32{1, 100}))
	root := tree.Root()

	so, ok := AttributeAtOf[*field.SectionOffset](root, 6, true)
	require.True(t, ok)
	require.Equal(t, "Offset", so.Name())

	_, ok = AttributeAtOf[*field.SectionOffset](root, 14, true)
	require.False(t, ok)

	n, ok := AttributeAtOf[*field.Number](root, 14, true)
	require.True(t, ok)
	require.Equal(t, "ID", n.Name())

	s, ok := AttributeAtOf[*Structure](root, 14, true)
	require.True(t, ok)
	require.Same(t, root.Children(recKind)[0], s)
}

func TestStructureAt(t *testing.T) {
	tree, err := Parse(nestBytes(), "nest", nestLayout{})
	require.NoError(t, err)
	root := tree.Root()
	groups := root.Children(alphaKind)

	require.Nil(t, root.StructureAt(2))
	require.Same(t, groups[0], root.StructureAt(9))
	require.Same(t, groups[0].Children(betaKind)[0], root.StructureAt(17))
	require.Same(t, groups[1], root.StructureAt(20))
}

func TestAttribute(t *testing.T) {
	tree, err := Parse(nestBytes(), "nest", nestLayout{})
	require.NoError(t, err)
	root := tree.Root()
	groups := root.Children(alphaKind)

	t.Run("FirstLevel", func(t *testing.T) {
		require.NotNil(t, root.Attribute("Count", false))
		require.Nil(t, root.Attribute("BetaCount", false))
	})

	t.Run("DeepestWins", func(t *testing.T) {
		got := root.Attribute("B", true)
		require.True(t, got == groups[0].Children(betaKind)[0].Attribute("B", false))
	})

	t.Run("FirstAtSameDepth", func(t *testing.T) {
		got := root.Attribute("BetaCount", true)
		require.True(t, got == groups[0].Attribute("BetaCount", false))
	})

	t.Run("Missing", func(t *testing.T) {
		require.Nil(t, root.Attribute("Nope", true))
	})
}

func TestWalk(t *testing.T) {
	tree := parseTable(t, tableBytes([2]uint32{1, 100}))
	root := tree.Root()

	var names []string
	err := root.Walk(func(f field.Field, depth int) error {
		names = append(names, f.Name())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"test.tbl", "Count", "Offset", "Flags", "Record", "ID", "Value"}, names)

	stop := errors.New("stop")
	seen := 0
	err = root.Walk(func(f field.Field, depth int) error {
		seen++
		if depth == 1 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 2, seen)

	require.Len(t, root.Flatten(), 5)
}
