package layouts

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/EchoTools/structedit/pkg/structure"
)

// ErrUnknownFormat is returned when no layout is registered for a resource.
var ErrUnknownFormat = errors.New("unknown resource format")

// Registry maps resource extensions to the layout of their root structure.
type Registry struct {
	byExt map[string]structure.Layout
}

// NewRegistry returns a registry holding the built-in formats:
// .tbl (Table), .itm (Item), .bnd (Bundle) and .manifest (Manifest).
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]structure.Layout)}
	r.Register(".tbl", Table{})
	r.Register(".itm", Item{})
	r.Register(".bnd", Bundle{})
	r.Register(".manifest", Manifest{})
	return r
}

// Register binds ext to layout, replacing any earlier binding.
func (r *Registry) Register(ext string, layout structure.Layout) {
	r.byExt[normalizeExt(ext)] = layout
}

// Lookup returns the layout for the resource called name.
func (r *Registry) Lookup(name string) (structure.Layout, error) {
	ext := normalizeExt(filepath.Ext(name))
	l, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", name, ErrUnknownFormat)
	}
	return l, nil
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
