// Package textbuf composes the windowed file manager, the line index and
// the edit overlay into a line-addressed text buffer. Reads decode base
// bytes through a configurable encoding (UTF-8 by default) and layer the
// pending patches on top; the base file itself is never modified until
// Save writes the effective document out.
package textbuf

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/text/encoding"

	"example.com/aquaedit/pkg/fileio"
	"example.com/aquaedit/pkg/index"
	"example.com/aquaedit/pkg/overlay"
)

// saveYieldLines is how many lines Save writes between context checks.
const saveYieldLines = 1000

// lineCacheMaxCost bounds the decoded-line cache to a few megabytes of
// composed text.
const lineCacheMaxCost = 8 * 1024 * 1024

// Buffer is the line-addressed view over one open file. It owns the file
// manager, the line index and the overlay. Methods are safe for a
// concurrent reader (for example a running search) alongside the single
// owning writer.
type Buffer struct {
	mu  sync.Mutex
	mgr *fileio.Manager
	idx *index.Index
	ov  *overlay.Overlay
	enc encoding.Encoding

	// lines memoizes composed lines; best effort only. Ristretto applies
	// Sets asynchronously, so invalidation bumps gen (part of the cache
	// key) instead of relying on Clear alone: a buffered stale Set can
	// land after Clear but can never be read under the new generation.
	lines *ristretto.Cache[uint64, string]
	gen   uint64
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithEncoding sets the byte-to-text decoding. nil means UTF-8.
func WithEncoding(enc encoding.Encoding) Option {
	return func(b *Buffer) { b.enc = enc }
}

// New creates a closed buffer. File options (cache capacity, window
// size) are forwarded to the underlying manager.
func New(fileOpts []fileio.Option, opts ...Option) (*Buffer, error) {
	lines, err := ristretto.NewCache(&ristretto.Config[uint64, string]{
		NumCounters: 1 << 16,
		MaxCost:     lineCacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("textbuf: line cache: %w", err)
	}
	b := &Buffer{
		mgr:   fileio.NewManager(fileOpts...),
		ov:    overlay.New(),
		lines: lines,
	}
	b.idx = index.New(b.mgr)
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Open closes any previously open file, clears the overlay, maps path
// and builds the line index. Progress from the index build is forwarded
// to progress. If indexing fails or ctx is cancelled the manager is
// closed again before returning.
func (b *Buffer) Open(ctx context.Context, path string, progress func(percent int)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ov.Clear()
	b.idx.Reset()
	b.flushLocked()
	if err := b.mgr.Open(path); err != nil {
		return err
	}
	if err := b.idx.Build(ctx, progress); err != nil {
		_ = b.mgr.Close()
		return err
	}
	return nil
}

// Close releases the window cache and the mapping, and drops all pending
// edits. It is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ov.Clear()
	b.idx.Reset()
	b.flushLocked()
	return b.mgr.Close()
}

// IsOpen reports whether a file is open.
func (b *Buffer) IsOpen() bool { return b.mgr.IsOpen() }

// IsIndexed reports whether the line index has been built.
func (b *Buffer) IsIndexed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.IsBuilt()
}

// Path returns the open file's path, or "".
func (b *Buffer) Path() string { return b.mgr.Path() }

// Size returns the base file size in bytes.
func (b *Buffer) Size() int64 { return b.mgr.Size() }

// LineCount returns the number of lines in the base file.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.LineCount()
}

// LineOffset returns the base byte offset where line i starts.
func (b *Buffer) LineOffset(i int) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.LineOffset(i)
}

// LineOfOffset returns the line containing the base byte offset.
func (b *Buffer) LineOfOffset(o int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.LineOfOffset(o)
}

// ReadLine returns line i with any overlapping edits applied. Indices
// out of range and read failures yield the empty string; the document
// view degrades to blank lines rather than failing a whole render.
func (b *Buffer) ReadLine(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLineLocked(i)
}

func (b *Buffer) readLineLocked(i int) string {
	if !b.idx.IsBuilt() || i < 0 || i >= b.idx.LineCount() {
		return ""
	}
	key := b.gen<<40 | uint64(i)
	if line, ok := b.lines.Get(key); ok {
		return line
	}
	off := b.idx.LineOffset(i)
	length := b.idx.LineLength(i)
	raw, err := b.mgr.ReadBytes(off, length)
	if err != nil {
		return ""
	}
	line := b.ov.Apply(b.decode(raw), off)
	b.lines.Set(key, line, int64(len(line))+1)
	return line
}

func (b *Buffer) decode(raw []byte) string {
	if b.enc == nil {
		return string(raw)
	}
	decoded, err := b.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// LineSeq is a pull iterator over lines; it returns false when done.
type LineSeq func() (string, bool)

// VisibleLines returns a lazy sequence of up to count lines starting at
// start. Lines are read on demand, so edits made while iterating are
// observed.
func (b *Buffer) VisibleLines(start, count int) LineSeq {
	i := start
	end := start + count
	return func() (string, bool) {
		if i < start || i >= end {
			return "", false
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if i >= b.idx.LineCount() {
			return "", false
		}
		line := b.readLineLocked(i)
		i++
		return line, true
	}
}

// CaptureRemoved returns the effective text patch p would remove from
// the line containing its Start offset. Callers recording history use
// this to fill the patch's Original field before applying it.
func (b *Buffer) CaptureRemoved(p overlay.Patch) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.idx.IsBuilt() {
		return ""
	}
	i := b.idx.LineOfOffset(p.Start)
	off := b.idx.LineOffset(i)
	raw, err := b.mgr.ReadBytes(off, b.idx.LineLength(i))
	if err != nil {
		return ""
	}
	return b.ov.Removed(b.decode(raw), off, p)
}

// ApplyEdit adds a patch to the overlay. This is the single mutation
// entry point for the effective document.
func (b *Buffer) ApplyEdit(p overlay.Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ov.Add(p)
	b.flushLocked()
}

// ClearEdits discards every pending patch.
func (b *Buffer) ClearEdits() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ov.Clear()
	b.flushLocked()
}

// EditCount returns the number of pending patches.
func (b *Buffer) EditCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ov.Len()
}

// Overlay returns the buffer's overlay. The overlay stays owned by the
// buffer; callers that mutate it directly (the undo/redo history does)
// must flush the line cache afterwards with FlushLines.
func (b *Buffer) Overlay() *overlay.Overlay { return b.ov }

// FlushLines drops the memoized composed lines.
func (b *Buffer) FlushLines() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Buffer) flushLocked() {
	b.gen++
	b.lines.Clear()
}

// Save writes the effective document to path as UTF-8 text with '\n'
// separators. The write goes through a temporary file in the target
// directory and a rename, so saving over the currently mapped file is
// safe. The context is checked periodically; on cancellation the
// temporary file is removed and path is left untouched.
func (b *Buffer) Save(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mgr.IsOpen() {
		return fileio.ErrNotOpen
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".aquaedit-save-*")
	if err != nil {
		return fmt.Errorf("textbuf: save: %w", err)
	}
	tmpPath := tmp.Name()
	w := bufio.NewWriter(tmp)
	count := b.idx.LineCount()
	for i := 0; i < count; i++ {
		if i%saveYieldLines == 0 {
			if err := ctx.Err(); err != nil {
				_ = tmp.Close()
				_ = os.Remove(tmpPath)
				return err
			}
		}
		if i > 0 {
			if err := w.WriteByte('\n'); err != nil {
				_ = tmp.Close()
				_ = os.Remove(tmpPath)
				return fmt.Errorf("textbuf: save: %w", err)
			}
		}
		if _, err := w.WriteString(b.readLineLocked(i)); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("textbuf: save: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("textbuf: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("textbuf: save: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("textbuf: save: %w", err)
	}
	return nil
}
