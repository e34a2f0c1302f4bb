package archive

import (
	"bytes"
	"fmt"
	"io"
)

// Writer wraps an io.WriteSeeker to provide compression of archive data.
type Writer struct {
	dst     io.WriteSeeker
	zWriter io.WriteCloser
	header  *Header
	codec   Codec
	level   int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the compression level for the writer. The range
// depends on the codec.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithCodec sets the payload codec. The default is ZSTD.
func WithCodec(c Codec) WriterOption {
	return func(w *Writer) {
		w.codec = c
	}
}

// NewWriter creates a new archive writer that writes to dst.
// The uncompressedSize is the expected size of the uncompressed data.
func NewWriter(dst io.WriteSeeker, uncompressedSize uint64, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:   dst,
		codec: ZSTD,
		level: DefaultCompressionLevel,
	}

	for _, opt := range opts {
		opt(w)
	}
	w.header = NewHeader(w.codec, uncompressedSize, 0) // CompressedLength is set on Close

	// Write placeholder header
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	if _, err := dst.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	zw, err := w.codec.newWriter(dst, w.level)
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", w.codec, err)
	}
	w.zWriter = zw
	return w, nil
}

// Write writes compressed data.
func (w *Writer) Write(p []byte) (n int, err error) {
	return w.zWriter.Write(p)
}

// Close finalizes the archive by updating the header with the compressed size.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}

	// Get current position to determine compressed size
	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	w.header.CompressedLength = uint64(pos) - uint64(w.header.Size())

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}

	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	if _, err := w.dst.Write(headerBytes); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	return nil
}

// Encode compresses data and writes it as an archive to dst.
func Encode(dst io.WriteSeeker, data []byte, opts ...WriterOption) error {
	w, err := NewWriter(dst, uint64(len(data)), opts...)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	return w.Close()
}

// Compress returns data wrapped in an archive. It needs no seekable destination:
// the payload is compressed first and the header built from its size.
func Compress(data []byte, opts ...WriterOption) ([]byte, error) {
	cfg := &Writer{codec: ZSTD, level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(cfg)
	}

	var payload bytes.Buffer
	zw, err := cfg.codec.newWriter(&payload, cfg.level)
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", cfg.codec, err)
	}
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close compressor: %w", err)
	}

	out := make([]byte, HeaderSize, HeaderSize+payload.Len())
	NewHeader(cfg.codec, uint64(len(data)), uint64(payload.Len())).EncodeTo(out)
	return append(out, payload.Bytes()...), nil
}
