package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
)

const (
	// DefaultCompressionLevel is the default compression level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Reader decompresses the payload of an archive.
type Reader struct {
	header    *Header
	codec     Codec
	zReader   io.ReadCloser
	headerBuf [HeaderSize]byte // Reusable buffer for header decoding
}

// NewReader creates a new archive reader from the given source.
// It reads and validates the header, then returns a reader for the decompressed content.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	codec, err := reader.header.Codec()
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	reader.codec = codec

	zr, err := codec.newReader(io.LimitReader(r, int64(reader.header.CompressedLength)))
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", codec, err)
	}
	reader.zReader = zr
	return reader, nil
}

// Header returns the archive header.
func (r *Reader) Header() *Header {
	return r.header
}

// Codec returns the payload codec.
func (r *Reader) Codec() Codec {
	return r.codec
}

// Read reads decompressed data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.zReader.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// Length returns the uncompressed data length.
func (r *Reader) Length() int {
	return int(r.header.Length)
}

// CompressedLength returns the compressed data length.
func (r *Reader) CompressedLength() int {
	return int(r.header.CompressedLength)
}

// Decode returns the decompressed content of an archive held in memory, and the
// codec it was compressed with.
func Decode(data []byte) ([]byte, Codec, error) {
	reader, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	out := make([]byte, reader.Length())
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, 0, fmt.Errorf("read content: %w", err)
	}
	return out, reader.codec, nil
}
