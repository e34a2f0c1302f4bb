package field

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// Text is a fixed-width, NUL-padded string. Legacy resources store text in
// Windows-1252; the raw bytes are kept so unmodified text round-trips exactly.
type Text struct {
	base
	raw  []byte
	cmap *charmap.Charmap
}

var _ Field = (*Text)(nil)

// NewText creates a Windows-1252 text field of the given byte width.
func NewText(name string, size int) *Text {
	return NewTextEncoding(name, size, charmap.Windows1252)
}

// NewTextEncoding creates a text field using cmap. A nil cmap stores raw UTF-8.
func NewTextEncoding(name string, size int, cmap *charmap.Charmap) *Text {
	t := &Text{
		base: base{name: name},
		raw:  make([]byte, size),
		cmap: cmap,
	}
	t.self = t
	return t
}

// Size returns the byte width.
func (t *Text) Size() int {
	return len(t.raw)
}

// Value returns the decoded string up to the first NUL.
func (t *Text) Value() string {
	data := t.raw
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if t.cmap == nil {
		return string(data)
	}
	s, err := t.cmap.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(s)
}

// SetValue encodes s, truncating or NUL-padding it to the field width.
func (t *Text) SetValue(s string) error {
	data := []byte(s)
	if t.cmap != nil {
		enc, err := t.cmap.NewEncoder().Bytes(data)
		if err != nil {
			return fmt.Errorf("encode %q: %w", t.name, err)
		}
		data = enc
	}

	old := t.Value()
	raw := make([]byte, len(t.raw))
	copy(raw, data)
	t.raw = raw
	t.notify(old, t.Value())
	return nil
}

// Read copies the raw bytes from buf at off.
func (t *Text) Read(buf []byte, off int) (int, error) {
	end := off + len(t.raw)
	if off < 0 || end > len(buf) {
		return off, fmt.Errorf("read %q at %#x: %w", t.name, off, io.ErrUnexpectedEOF)
	}
	copy(t.raw, buf[off:end])
	t.offset = off
	return end, nil
}

// Write emits the raw bytes.
func (t *Text) Write(w io.Writer) error {
	_, err := w.Write(t.raw)
	return err
}

// Clone returns a detached copy.
func (t *Text) Clone() Field {
	c := &Text{raw: append([]byte(nil), t.raw...), cmap: t.cmap}
	c.base = t.base.detached(c)
	return c
}

// String returns the decoded value.
func (t *Text) String() string {
	return t.Value()
}
