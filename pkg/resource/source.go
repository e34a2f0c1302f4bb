// Package resource supplies the raw bytes of resources and persists edited trees.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/EchoTools/structedit/pkg/structure"
)

// ErrNotFound is returned when a source has no resource with the requested id.
var ErrNotFound = errors.New("resource not found")

// Source opens resources by id and accepts their replacement bytes.
type Source interface {
	// Open returns the full content of resource id. Callers must not modify it.
	Open(id string) ([]byte, error)

	// Create returns a writer whose content replaces resource id on Close.
	Create(id string) (io.WriteCloser, error)
}

// Load opens resource id and parses it with layout.
func Load(src Source, id string, layout structure.Layout, opts ...structure.Option) (*structure.Tree, error) {
	data, err := src.Open(id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return structure.Parse(data, id, layout, opts...)
}

// Save serializes tree and writes it back to the resource it was parsed from.
func Save(src Source, tree *structure.Tree) error {
	w, err := src.Create(tree.ID())
	if err != nil {
		return fmt.Errorf("create %s: %w", tree.ID(), err)
	}
	if _, err := tree.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", tree.ID(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tree.ID(), err)
	}
	return nil
}

// Memory is an in-memory Source. The zero value is not usable; use NewMemory.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ Source = (*Memory)(nil)

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Open returns the stored content of id.
func (m *Memory) Open(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return data, nil
}

// Create returns a writer that stores its content as id on Close.
func (m *Memory) Create(id string) (io.WriteCloser, error) {
	return &commitWriter{commit: func(data []byte) error {
		m.Put(id, data)
		return nil
	}}, nil
}

// Put stores data as id.
func (m *Memory) Put(id string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[id] = append([]byte(nil), data...)
}

// IDs returns the stored ids in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.files))
	for id := range m.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// commitWriter buffers writes and hands the content to commit on Close.
type commitWriter struct {
	buf    bytes.Buffer
	commit func([]byte) error
	closed bool
}

func (w *commitWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write after close")
	}
	return w.buf.Write(p)
}

func (w *commitWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.commit(w.buf.Bytes())
}
