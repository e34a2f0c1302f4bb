package resource

import (
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache holds resource bytes keyed by case-insensitive resource id. It is an
// explicit object: callers decide its lifetime and when to clear it.
type Cache struct {
	mu      sync.RWMutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	id   string
	data []byte
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]cacheEntry)}
}

func cacheKey(id string) uint64 {
	return xxhash.Sum64String(strings.ToLower(id))
}

// Get returns the cached content of id.
func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey(id)]
	if !ok || !strings.EqualFold(e.id, id) {
		return nil, false
	}
	return e.data, true
}

// Put stores data for id, replacing any earlier entry.
func (c *Cache) Put(id string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(id)] = cacheEntry{id: id, data: data}
}

// Invalidate drops the entry for id.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(id))
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type cachedSource struct {
	src   Source
	cache *Cache
}

// Cached returns a Source that serves repeated opens of the same id from cache.
// Content written through it replaces the cached entry once the write succeeds.
func Cached(src Source, cache *Cache) Source {
	return &cachedSource{src: src, cache: cache}
}

func (s *cachedSource) Open(id string) ([]byte, error) {
	if data, ok := s.cache.Get(id); ok {
		return data, nil
	}
	data, err := s.src.Open(id)
	if err != nil {
		return nil, err
	}
	s.cache.Put(id, data)
	return data, nil
}

func (s *cachedSource) Create(id string) (io.WriteCloser, error) {
	w, err := s.src.Create(id)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(id)
	return &commitWriter{commit: func(data []byte) error {
		if _, err := w.Write(data); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		s.cache.Put(id, append([]byte(nil), data...))
		return nil
	}}, nil
}
