package structure

import (
	"fmt"
	"io"

	"github.com/EchoTools/structedit/pkg/field"
)

// Bytes serializes s. Fields are written in offset order, each at its own
// offset, so fields that alias the same bytes overwrite rather than shift.
// Bytes no field covers are zero.
func (s *Structure) Bytes() ([]byte, error) {
	data := make([]byte, s.Size())
	if err := s.writeInto(data, s.start); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Structure) writeInto(dst []byte, base int) error {
	s.sortFields()
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			if err := sub.writeInto(dst, base); err != nil {
				return err
			}
			continue
		}
		w := &placedWriter{dst: dst, pos: f.Offset() - base}
		if err := f.Write(w); err != nil {
			return fmt.Errorf("write %q at %#x: %w", f.Name(), f.Offset(), err)
		}
		if w.written != f.Size() {
			return fmt.Errorf("write %q at %#x: wrote %d bytes, size is %d", f.Name(), f.Offset(), w.written, f.Size())
		}
	}
	return nil
}

// placedWriter writes into a fixed buffer starting at pos.
type placedWriter struct {
	dst     []byte
	pos     int
	written int
}

var _ io.Writer = (*placedWriter)(nil)

func (w *placedWriter) Write(p []byte) (int, error) {
	if w.pos < 0 || w.pos+len(p) > len(w.dst) {
		return 0, fmt.Errorf("range [%#x, %#x) outside [0, %#x): %w", w.pos, w.pos+len(p), len(w.dst), io.ErrShortWrite)
	}
	n := copy(w.dst[w.pos:], p)
	w.pos += n
	w.written += n
	return n, nil
}

// Flatten returns every leaf field under s in offset order.
func (s *Structure) Flatten() []field.Field {
	var out []field.Field
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			out = append(out, sub.Flatten()...)
			continue
		}
		out = append(out, f)
	}
	return out
}
