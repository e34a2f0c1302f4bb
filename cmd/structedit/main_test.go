package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EchoTools/structedit/pkg/archive"
	"github.com/EchoTools/structedit/pkg/layouts"
	"github.com/EchoTools/structedit/pkg/resource"
)

func table(count uint32, values ...uint32) []byte {
	buf := make([]byte, layouts.TableHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], count)
	binary.LittleEndian.PutUint32(buf[4:], layouts.TableHeaderSize)
	for i, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i+1))
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func newEnv(src resource.Source) (*environment, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &environment{src: src, registry: layouts.NewRegistry(), out: out}, out
}

func TestDump(t *testing.T) {
	m := resource.NewMemory()
	m.Put("scores.tbl", table(2, 10, 20))
	env, out := newEnv(m)

	require.NoError(t, env.dump("scores.tbl"))
	require.Contains(t, out.String(), "RecordCount = 2")
	require.Contains(t, out.String(), "0000000c      8   Record <record>")
	require.Contains(t, out.String(), "Value = 20")

	require.ErrorIs(t, env.dump("notes.txt"), layouts.ErrUnknownFormat)
}

func TestVerify(t *testing.T) {
	m := resource.NewMemory()
	m.Put("good.tbl", table(1, 10))
	m.Put("readme.txt", []byte("not a resource"))
	env, out := newEnv(m)

	require.NoError(t, env.verify(m.IDs()))
	require.Contains(t, out.String(), "OK   good.tbl (20 bytes)")
	require.Contains(t, out.String(), "Verified 1 resources, 0 failed")

	m.Put("short.tbl", table(4, 10))
	out.Reset()
	require.Error(t, env.verify(m.IDs()))
	require.Contains(t, out.String(), "FAIL short.tbl")
}

func TestAddRemove(t *testing.T) {
	m := resource.NewMemory()
	m.Put("scores.tbl", table(2, 10, 20))
	env, out := newEnv(m)

	require.NoError(t, env.add("scores.tbl", "RECORD", ""))
	require.Contains(t, out.String(), "at index")
	require.Contains(t, out.String(), "offset 0x1c")

	data, err := m.Open("scores.tbl")
	require.NoError(t, err)
	require.Len(t, data, layouts.TableHeaderSize+3*layouts.RecordSize)
	require.EqualValues(t, 3, binary.LittleEndian.Uint32(data))

	require.NoError(t, env.remove("scores.tbl", 0xc, true))
	data, err = m.Open("scores.tbl")
	require.NoError(t, err)
	require.Len(t, data, layouts.TableHeaderSize+2*layouts.RecordSize)
	require.EqualValues(t, 2, binary.LittleEndian.Uint32(data))
	require.EqualValues(t, 2, binary.LittleEndian.Uint32(data[12:]), "first remaining record is the old second one")

	require.ErrorIs(t, env.add("scores.tbl", "widget", ""), layouts.ErrUnknownKind)
	require.Error(t, env.remove("scores.tbl", 0x4, true), "header bytes hold no removable structure")
}

func TestAddAtOffset(t *testing.T) {
	m := resource.NewMemory()
	m.Put("scores.tbl", table(1, 10))
	env, _ := newEnv(m)

	require.NoError(t, env.add("scores.tbl", "record", "0x0"))
	require.Error(t, env.add("scores.tbl", "record", "bogus"))
}

func TestPackUnpack(t *testing.T) {
	dir := t.TempDir()
	raw := table(1, 42)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scores.tbl"), raw, 0644))

	dataDir, resourceID = dir, "scores.tbl"
	codecName, level = "lz4", 0
	outputPath = filepath.Join(dir, "scores.tbl.lz4")
	forceOverwrite = false
	require.NoError(t, runPack())

	packed, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.True(t, archive.IsArchive(packed))
	require.Error(t, runPack(), "existing output needs -force")

	resourceID = "scores.tbl.lz4"
	outputPath = filepath.Join(dir, "plain.tbl")
	require.NoError(t, runUnpack())

	plain, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, raw, plain)
}

func TestParseOffset(t *testing.T) {
	for in, want := range map[string]int{"0": 0, "12": 12, "0x1c": 28} {
		got, err := parseOffset(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := parseOffset("-4")
	require.Error(t, err)
}

func TestAddManifestFrame(t *testing.T) {
	m := resource.NewMemory()
	m.Put("pkg.manifest", make([]byte, layouts.ManifestHeaderSize))
	env, out := newEnv(m)

	require.NoError(t, env.add("pkg.manifest", "frame", ""))
	require.Contains(t, out.String(), "offset 0xc0 (16 bytes)")

	data, err := m.Open("pkg.manifest")
	require.NoError(t, err)
	require.Len(t, data, layouts.ManifestHeaderSize+layouts.FrameSize)
	require.EqualValues(t, layouts.FrameSize, binary.LittleEndian.Uint64(data[0x90:]), "frames length")
	require.EqualValues(t, 1, binary.LittleEndian.Uint64(data[0xb0:]), "frames count")
	require.EqualValues(t, 1, binary.LittleEndian.Uint64(data[0xb8:]), "frames element count")
}
