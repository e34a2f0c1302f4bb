package resource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/EchoTools/structedit/pkg/archive"
)

// Dir serves resources stored as files under a root directory. Files wrapped in
// an archive container are unwrapped on Open and wrapped again, with the same
// codec, when they are written back.
type Dir struct {
	root  string
	log   *slog.Logger
	force *archive.Codec
	level int

	mu      sync.Mutex
	wrapped map[string]archive.Codec
}

var _ Source = (*Dir)(nil)

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithLogger sets the logger used for diagnostic traces.
func WithLogger(l *slog.Logger) DirOption {
	return func(d *Dir) {
		d.log = l
	}
}

// WithArchive wraps every written resource with codec, whether or not it was
// wrapped when opened.
func WithArchive(codec archive.Codec) DirOption {
	return func(d *Dir) {
		d.force = &codec
	}
}

// WithCompressionLevel sets the level used when wrapping written resources.
func WithCompressionLevel(level int) DirOption {
	return func(d *Dir) {
		d.level = level
	}
}

// NewDir returns a source rooted at root.
func NewDir(root string, opts ...DirOption) *Dir {
	d := &Dir{
		root:    root,
		log:     slog.Default(),
		level:   archive.DefaultCompressionLevel,
		wrapped: make(map[string]archive.Codec),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dir) path(id string) (string, error) {
	rel := filepath.FromSlash(id)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("resource id %q escapes %s", id, d.root)
	}
	return filepath.Join(d.root, rel), nil
}

// Open reads resource id, unwrapping an archive container if present.
func (d *Dir) Open(id string) ([]byte, error) {
	path, err := d.path(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(archive.HeaderSize)
	if !archive.IsArchive(head) {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}

	r, err := archive.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("unwrap %s: %w", id, err)
	}
	defer r.Close()

	content := make([]byte, r.Length())
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("unwrap %s: %w", id, err)
	}
	d.mu.Lock()
	d.wrapped[id] = r.Codec()
	d.mu.Unlock()

	d.log.Debug("unwrapped archive", "id", id, "codec", r.Codec(), "compressed", r.CompressedLength(), "size", len(content))
	return content, nil
}

// Create returns a writer that replaces resource id on Close. The file is
// written to a temporary name and renamed into place.
func (d *Dir) Create(id string) (io.WriteCloser, error) {
	path, err := d.path(id)
	if err != nil {
		return nil, err
	}
	return &commitWriter{commit: func(data []byte) error {
		return d.commit(id, path, data)
	}}, nil
}

func (d *Dir) commit(id, path string, data []byte) error {
	d.mu.Lock()
	codec, wrap := d.wrapped[id]
	d.mu.Unlock()
	if d.force != nil {
		codec, wrap = *d.force, true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if wrap {
		err = archive.Encode(f, data, archive.WithCodec(codec), archive.WithCompressionLevel(d.level))
		if err != nil {
			err = fmt.Errorf("wrap %s: %w", id, err)
		}
	} else if _, err = f.Write(data); err != nil {
		err = fmt.Errorf("write %s: %w", tmp, err)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", tmp, cerr)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if wrap {
		d.log.Debug("wrapped archive", "id", id, "codec", codec, "size", len(data))
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// IDs returns the ids of all files under the root, slash-separated and sorted.
func (d *Dir) IDs() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.root, err)
	}
	sort.Strings(ids)
	return ids, nil
}
