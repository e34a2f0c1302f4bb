package structure

import (
	"log/slog"

	"github.com/EchoTools/structedit/pkg/field"
)

// FixHoles walks the whole tree in offset order with a single cursor and covers
// every byte no field claims with a Filler taken from buf. A gap becomes a filler
// of the deepest structure that contains it. Fields that alias bytes already
// covered do not move the cursor backwards.
func (t *Tree) FixHoles(buf []byte) {
	cursor := t.root.start
	t.root.fillHoles(buf, &cursor, t.log)
}

func (s *Structure) fillHoles(buf []byte, cursor *int, log *slog.Logger) {
	out := make([]field.Field, 0, len(s.fields))

	for _, f := range s.fields {
		if f.Offset() > *cursor {
			out = append(out, s.newFiller(buf, *cursor, f.Offset(), log))
			*cursor = f.Offset()
		}
		if sub, ok := f.(*Structure); ok {
			sub.fillHoles(buf, cursor, log)
		}
		out = append(out, f)
		*cursor = max(*cursor, f.Offset()+f.Size())
	}

	if s.end > *cursor {
		out = append(out, s.newFiller(buf, *cursor, s.end, log))
		*cursor = s.end
	}
	s.fields = out
}

func (s *Structure) newFiller(buf []byte, from, to int, log *slog.Logger) *field.Filler {
	data := make([]byte, to-from)
	if from < len(buf) {
		copy(data, buf[from:min(to, len(buf))])
	}
	f := field.NewFiller(from, data)
	f.SetParent(s)

	log.Debug("filled hole", "structure", s.name, "offset", from, "size", to-from)
	return f
}
