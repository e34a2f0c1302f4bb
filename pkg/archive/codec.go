package archive

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression of a container payload.
type Codec uint8

const (
	ZSTD Codec = iota
	ZLIB
	LZ4
)

var codecs = []struct {
	codec Codec
	magic [4]byte
	name  string
}{
	{ZSTD, [4]byte{'Z', 'S', 'T', 'D'}, "zstd"},
	{ZLIB, [4]byte{'Z', 'L', 'I', 'B'}, "zlib"},
	{LZ4, [4]byte{'L', 'Z', '4', 'F'}, "lz4"},
}

// Magic returns the header magic for c.
func (c Codec) Magic() [4]byte {
	for _, e := range codecs {
		if e.codec == c {
			return e.magic
		}
	}
	return [4]byte{}
}

// String returns the codec name.
func (c Codec) String() string {
	for _, e := range codecs {
		if e.codec == c {
			return e.name
		}
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

// ParseCodec returns the codec called name.
func ParseCodec(name string) (Codec, error) {
	for _, e := range codecs {
		if e.name == name {
			return e.codec, nil
		}
	}
	return 0, fmt.Errorf("unknown codec %q", name)
}

func codecFor(magic [4]byte) (Codec, error) {
	for _, e := range codecs {
		if e.magic == magic {
			return e.codec, nil
		}
	}
	return 0, fmt.Errorf("invalid magic: %x", magic)
}

func (c Codec) newReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case ZSTD:
		return zstd.NewReader(r), nil
	case ZLIB:
		return zlib.NewReader(r)
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("new reader: unknown codec %d", uint8(c))
}

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func (c Codec) newWriter(w io.Writer, level int) (io.WriteCloser, error) {
	switch c {
	case ZSTD:
		return zstd.NewWriterLevel(w, level), nil
	case ZLIB:
		return zlib.NewWriterLevel(w, level)
	case LZ4:
		zw := lz4.NewWriter(w)
		level = min(max(level, 0), len(lz4Levels)-1)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
			return nil, fmt.Errorf("lz4 level %d: %w", level, err)
		}
		return zw, nil
	}
	return nil, fmt.Errorf("new writer: unknown codec %d", uint8(c))
}
