package structure

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/EchoTools/structedit/pkg/field"
)

// Tree binds a root structure to the resource it was parsed from. It is the
// root's parent, so every change event reaches Tree listeners exactly once.
type Tree struct {
	id   string
	root *Structure
	log  *slog.Logger

	listeners map[int]func(field.Event)
	nextID    int
}

var _ field.Parent = (*Tree)(nil)

// Option configures parsing.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	fixHoles bool
}

// WithLogger sets the logger used for diagnostic traces.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHoleFixing enables or disables filler synthesis after parsing. It is on by default.
func WithHoleFixing(enabled bool) Option {
	return func(c *config) {
		c.fixHoles = enabled
	}
}

// Parse reads buf as resource id using layout. Any failure discards the whole
// tree and is reported as a *ResourceError.
func Parse(buf []byte, id string, layout Layout, opts ...Option) (*Tree, error) {
	cfg := &config{
		logger:   slog.Default(),
		fixHoles: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &Tree{
		id:        id,
		log:       cfg.logger,
		listeners: make(map[int]func(field.Event)),
	}

	root := New(id, layout)
	root.parent = t
	t.root = root

	if _, err := root.Read(buf, 0); err != nil {
		return nil, &ResourceError{ID: id, Err: err}
	}
	if root.end > len(buf) {
		err := fmt.Errorf("declared end %#x beyond %d bytes: %w", root.end, len(buf), io.ErrUnexpectedEOF)
		return nil, &ResourceError{ID: id, Err: err}
	}
	// Trailing bytes no layout declared still belong to the resource.
	if root.end < len(buf) {
		root.end = len(buf)
	}

	if cfg.fixHoles {
		t.FixHoles(buf)
	}
	root.ClearModified()

	t.log.Debug("parsed resource", "id", id, "size", root.Size(), "fields", len(root.Flatten()))
	return t, nil
}

// ID returns the resource identifier.
func (t *Tree) ID() string {
	return t.id
}

// Root returns the root structure.
func (t *Tree) Root() *Structure {
	return t.root
}

// Modified reports whether the tree changed since parsing.
func (t *Tree) Modified() bool {
	return t.root.Modified()
}

// Subscribe registers fn for every change event and returns a function that removes it.
func (t *Tree) Subscribe(fn func(field.Event)) (cancel func()) {
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	return func() {
		delete(t.listeners, id)
	}
}

// FieldChanged delivers ev to all listeners.
func (t *Tree) FieldChanged(ev field.Event) {
	for _, fn := range t.listeners {
		fn(ev)
	}
}

// Serialize returns the resource bytes.
func (t *Tree) Serialize() ([]byte, error) {
	return t.root.Bytes()
}

// WriteTo writes the resource bytes to w.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	data, err := t.root.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Equal reports whether the tree serializes to exactly data.
func (t *Tree) Equal(data []byte) (bool, error) {
	out, err := t.Serialize()
	if err != nil {
		return false, fmt.Errorf("serialize %s: %w", t.id, err)
	}
	return bytes.Equal(out, data), nil
}
