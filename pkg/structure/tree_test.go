package structure

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	original := tableBytes([2]uint32{1, 100}, [2]uint32{2, 200})

	t.Run("Binding", func(t *testing.T) {
		tree := parseTable(t, original)
		require.Equal(t, "test.tbl", tree.ID())
		require.Equal(t, "test.tbl", tree.Root().Name())
		require.Same(t, tree, tree.Root().Tree())

		rec := tree.Root().Children(recKind)[0]
		require.Same(t, tree, rec.Tree())
		require.Same(t, tree.Root(), rec.Root())
	})

	t.Run("WriteTo", func(t *testing.T) {
		tree := parseTable(t, original)

		var buf bytes.Buffer
		n, err := tree.WriteTo(&buf)
		require.NoError(t, err)
		require.EqualValues(t, len(original), n)
		require.Equal(t, original, buf.Bytes())
	})

	t.Run("Logger", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		tree, err := Parse(make([]byte, 32), "padded", paddedLayout, WithLogger(logger))
		require.NoError(t, err)
		require.Contains(t, logs.String(), "filled hole")
		require.Contains(t, logs.String(), "parsed resource")

		logs.Reset()
		_, err = tree.Root().Insert(synthRec(t, 1, 1))
		require.NoError(t, err)
		require.Contains(t, logs.String(), "no section bound")
		require.Contains(t, logs.String(), "inserted structure")
	})

	t.Run("Unmodified", func(t *testing.T) {
		tree := parseTable(t, original)
		require.False(t, tree.Modified())

		ok, err := tree.Equal(original)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = tree.Equal(original[:20])
		require.NoError(t, err)
		require.False(t, ok)
	})
}
