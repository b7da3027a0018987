// Package fileio provides windowed, memory-mapped read access to large
// files. A Manager maps page-aligned windows of an open file on demand and
// keeps them in a fixed-capacity LRU cache so resident memory stays
// bounded regardless of file size.
package fileio

import (
	"fmt"
	"os"
	"sync"
)

const (
	// PageSize is the alignment of window offsets.
	PageSize = 4096
	// DefaultWindowSize is the length of a mapped window unless the file
	// ends sooner.
	DefaultWindowSize = 16 * 1024 * 1024
	// DefaultCacheCapacity is the number of windows kept mapped.
	DefaultCacheCapacity = 10
)

// Manager owns the open file and its window cache. One file is open at a
// time; opening a new file closes the previous one. All methods are safe
// for concurrent use; cache mutations are serialized internally.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	size       int64
	windowSize int
	cache      *WindowCache
}

// Option configures a Manager.
type Option func(*Manager)

// WithCacheCapacity sets how many windows stay mapped at once.
func WithCacheCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.cache = NewWindowCache(n)
		}
	}
}

// WithWindowSize sets the default window length in bytes. Values below
// one page are rounded up to a page.
func WithWindowSize(n int) Option {
	return func(m *Manager) {
		if n < PageSize {
			n = PageSize
		}
		m.windowSize = n
	}
}

// NewManager creates a closed Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		windowSize: DefaultWindowSize,
		cache:      NewWindowCache(DefaultCacheCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open opens path read-only and records its size; windows are mapped
// later, on demand. A previously open file is closed first. On failure
// the manager is left closed.
func (m *Manager) Open(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file != nil {
		if err := m.closeLocked(); err != nil {
			return err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("fileio: stat %s: %w", path, err)
	}
	m.file = f
	m.path = path
	m.size = fi.Size()
	return nil
}

// IsOpen reports whether a file is currently open.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file != nil
}

// Path returns the path of the open file, or "".
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Size returns the byte size recorded at Open.
func (m *Manager) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// CachedWindows returns the aligned offsets currently cached, most
// recently used first.
func (m *Manager) CachedWindows() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Offsets()
}

// GetWindow returns the window covering offset, aligning it down to the
// page boundary and clamping the window length to the remaining file.
// The returned window is owned by the cache; callers must copy bytes out
// rather than hold it across further manager calls.
func (m *Manager) GetWindow(offset int64) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowLocked(offset)
}

func (m *Manager) windowLocked(offset int64) (*Window, error) {
	if m.file == nil {
		return nil, ErrNotOpen
	}
	if offset < 0 || offset >= m.size {
		return nil, fmt.Errorf("%w: offset %d, size %d", ErrOutOfBounds, offset, m.size)
	}
	aligned := offset - offset%PageSize
	if w, ok := m.cache.Get(aligned); ok {
		return w, nil
	}
	length := m.windowSize
	if remaining := m.size - aligned; int64(length) > remaining {
		length = int(remaining)
	}
	reg, err := mapRegion(m.file, aligned, length)
	if err != nil {
		// A mapping failure leaves the manager closed.
		_ = m.closeLocked()
		return nil, err
	}
	w := &Window{offset: aligned, length: length, reg: reg}
	if err := m.cache.Put(w); err != nil {
		// The new window is cached; the eviction release failed.
		return w, err
	}
	return w, nil
}

// ReadBytes returns exactly count bytes starting at offset, assembling
// across windows when the range spans a window boundary. Ranges past the
// file size fail with ErrOutOfBounds.
func (m *Manager) ReadBytes(offset int64, count int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil, ErrNotOpen
	}
	if offset < 0 || count < 0 || offset+int64(count) > m.size {
		return nil, fmt.Errorf("%w: read %d+%d, size %d", ErrOutOfBounds, offset, count, m.size)
	}
	if count == 0 {
		return []byte{}, nil
	}
	out := make([]byte, 0, count)
	pos := offset
	for len(out) < count {
		w, err := m.windowLocked(pos)
		if err != nil {
			return nil, err
		}
		from := int(pos - w.Offset())
		n := count - len(out)
		if avail := w.Length() - from; n > avail {
			n = avail
		}
		chunk, err := w.Bytes(from, n)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		pos += int64(n)
	}
	return out, nil
}

// Close releases every cached window and then the file. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.file == nil {
		return nil
	}
	cacheErr := m.cache.Clear()
	err := m.file.Close()
	m.file = nil
	m.path = ""
	m.size = 0
	if cacheErr != nil {
		return cacheErr
	}
	return err
}
