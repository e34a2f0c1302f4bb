package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedWidth is returned when a numeric field declares a byte width
// its codec cannot decode. It is fatal to the parse of the resource.
var ErrUnsupportedWidth = errors.New("unsupported field width")

// WidthError reports the field that declared an unsupported width.
type WidthError struct {
	Name   string
	Offset int
	Width  int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("field %q at %#x: %d-byte width: %v", e.Name, e.Offset, e.Width, ErrUnsupportedWidth)
}

func (e *WidthError) Unwrap() error {
	return ErrUnsupportedWidth
}

// Number is a little-endian integer of 1, 2, 4 or 8 bytes.
type Number struct {
	base
	width  int
	signed bool
	value  int64
}

var _ Field = (*Number)(nil)

// NewNumber creates a numeric field. The width is checked when the field is read or written.
func NewNumber(name string, width int, signed bool) *Number {
	n := &Number{
		base:   base{name: name},
		width:  width,
		signed: signed,
	}
	n.self = n
	return n
}

func validWidth(width int) bool {
	switch width {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Size returns the declared width.
func (n *Number) Size() int {
	return n.width
}

// Signed reports whether the value is sign-extended on read.
func (n *Number) Signed() bool {
	return n.signed
}

// Value returns the decoded value.
func (n *Number) Value() int64 {
	return n.value
}

// SetValue stores v and notifies the parent chain.
func (n *Number) SetValue(v int64) {
	if v == n.value {
		return
	}
	old := n.value
	n.value = v
	n.notify(old, v)
}

// Fits reports whether v can be stored in the field's width without truncation.
func (n *Number) Fits(v int64) bool {
	if !validWidth(n.width) {
		return false
	}
	bits := uint(8 * n.width)
	if n.signed {
		return bits == 64 || (v >= -1<<(bits-1) && v < 1<<(bits-1))
	}
	return v >= 0 && (bits == 64 || v < 1<<bits)
}

// Shift adds delta to the value without notification. Structural mutations use it
// to keep header fields consistent and report a single event of their own.
func (n *Number) Shift(delta int64) {
	n.value += delta
}

// Read decodes the value at off.
func (n *Number) Read(buf []byte, off int) (int, error) {
	if !validWidth(n.width) {
		return off, &WidthError{Name: n.name, Offset: off, Width: n.width}
	}
	if off < 0 || off+n.width > len(buf) {
		return off, fmt.Errorf("read %q at %#x: %w", n.name, off, io.ErrUnexpectedEOF)
	}

	data := buf[off : off+n.width]
	switch n.width {
	case 1:
		if n.signed {
			n.value = int64(int8(data[0]))
		} else {
			n.value = int64(data[0])
		}
	case 2:
		v := binary.LittleEndian.Uint16(data)
		if n.signed {
			n.value = int64(int16(v))
		} else {
			n.value = int64(v)
		}
	case 4:
		v := binary.LittleEndian.Uint32(data)
		if n.signed {
			n.value = int64(int32(v))
		} else {
			n.value = int64(v)
		}
	case 8:
		n.value = int64(binary.LittleEndian.Uint64(data))
	}

	n.offset = off
	return off + n.width, nil
}

// Write encodes the value in its declared width.
func (n *Number) Write(w io.Writer) error {
	if !validWidth(n.width) {
		return &WidthError{Name: n.name, Offset: n.offset, Width: n.width}
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n.value))
	_, err := w.Write(buf[:n.width])
	return err
}

// Clone returns a detached copy.
func (n *Number) Clone() Field {
	c := *n
	c.base = n.base.detached(&c)
	return &c
}

// String returns a human-readable representation.
func (n *Number) String() string {
	return fmt.Sprintf("%d", n.value)
}
