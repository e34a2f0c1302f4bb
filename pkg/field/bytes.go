package field

import (
	"encoding/hex"
	"fmt"
	"io"
)

// Bytes is an opaque byte range.
type Bytes struct {
	base
	data []byte
}

var _ Field = (*Bytes)(nil)

// NewBytes creates an opaque field of the given size.
func NewBytes(name string, size int) *Bytes {
	b := &Bytes{
		base: base{name: name},
		data: make([]byte, size),
	}
	b.self = b
	return b
}

// Size returns the byte length.
func (b *Bytes) Size() int {
	return len(b.data)
}

// Data returns the raw bytes. Callers must not resize the slice.
func (b *Bytes) Data() []byte {
	return b.data
}

// SetData replaces the content. The length must match the current size, since
// resizing a field in place would invalidate every offset after it.
func (b *Bytes) SetData(data []byte) error {
	if len(data) != len(b.data) {
		return fmt.Errorf("set %q: size %d does not match field size %d", b.name, len(data), len(b.data))
	}
	old := append([]byte(nil), b.data...)
	copy(b.data, data)
	b.notify(old, data)
	return nil
}

// Read copies Size() bytes from buf at off.
func (b *Bytes) Read(buf []byte, off int) (int, error) {
	end := off + len(b.data)
	if off < 0 || end > len(buf) {
		return off, fmt.Errorf("read %q at %#x: %w", b.name, off, io.ErrUnexpectedEOF)
	}
	copy(b.data, buf[off:end])
	b.offset = off
	return end, nil
}

// Write emits the raw bytes.
func (b *Bytes) Write(w io.Writer) error {
	_, err := w.Write(b.data)
	return err
}

// Clone returns a detached copy.
func (b *Bytes) Clone() Field {
	c := &Bytes{data: append([]byte(nil), b.data...)}
	c.base = b.base.detached(c)
	return c
}

// String returns the content as hex.
func (b *Bytes) String() string {
	if len(b.data) > 16 {
		return hex.EncodeToString(b.data[:16]) + "..."
	}
	return hex.EncodeToString(b.data)
}

// FillerName is the name given to synthesized fillers.
const FillerName = "Unknown"

// Filler covers a byte range no layout declared. Fillers are created by hole fixing
// and are never removable.
type Filler struct {
	Bytes
}

var _ Field = (*Filler)(nil)

// NewFiller creates a filler at off holding a copy of data.
func NewFiller(off int, data []byte) *Filler {
	f := &Filler{Bytes: Bytes{
		base: base{name: FillerName, offset: off},
		data: append([]byte(nil), data...),
	}}
	f.self = f
	return f
}

// IsFiller reports whether f was synthesized to fill a hole.
func IsFiller(f Field) bool {
	_, ok := f.(*Filler)
	return ok
}

// Clone returns a detached copy.
func (f *Filler) Clone() Field {
	c := &Filler{Bytes: Bytes{data: append([]byte(nil), f.data...)}}
	c.base = f.base.detached(c)
	return c
}
