// Package index builds and queries the line-offset table of an open file.
// The table holds the byte offset of every line start: entry 0 is always
// 0, and each subsequent entry is the offset immediately following a '\n'
// byte. It is built once per open by a cancellable chunked scan and is
// read-only afterwards.
package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"example.com/aquaedit/pkg/fileio"
)

// ScanChunkSize is how many bytes one scan step reads.
const ScanChunkSize = 1024 * 1024

// progressEveryChunks is how often a progress tick is emitted.
const progressEveryChunks = 10

// ByteSource is the read access the indexer needs. *fileio.Manager
// satisfies it.
type ByteSource interface {
	IsOpen() bool
	Size() int64
	ReadBytes(offset int64, count int) ([]byte, error)
}

// Index is the line-offset table over one byte source.
type Index struct {
	src     ByteSource
	offsets []int64
	built   bool
}

// New creates an unbuilt index over src.
func New(src ByteSource) *Index {
	return &Index{src: src, offsets: []int64{0}}
}

// Build scans the file in chunks and records a line start after every
// '\n'. Progress, when non-nil, receives a percentage at most every ten
// chunks and once more with 100 on completion. The scan checks ctx
// between chunks; on cancellation or read failure the table is reset to
// its initial state and the index is left unbuilt.
func (x *Index) Build(ctx context.Context, progress func(percent int)) error {
	if x.src == nil || !x.src.IsOpen() {
		return fileio.ErrNotOpen
	}
	x.Reset()
	size := x.src.Size()
	if size == 0 {
		x.built = true
		if progress != nil {
			progress(100)
		}
		return nil
	}
	offsets := []int64{0}
	chunks := 0
	for pos := int64(0); pos < size; {
		if err := ctx.Err(); err != nil {
			x.Reset()
			return err
		}
		count := ScanChunkSize
		if remaining := size - pos; int64(count) > remaining {
			count = int(remaining)
		}
		chunk, err := x.src.ReadBytes(pos, count)
		if err != nil {
			x.Reset()
			return fmt.Errorf("index: scan at %d: %w", pos, err)
		}
		for i, b := range chunk {
			if b == '\n' {
				offsets = append(offsets, pos+int64(i)+1)
			}
		}
		pos += int64(count)
		chunks++
		if chunks%progressEveryChunks == 0 {
			if progress != nil {
				progress(int(pos * 100 / size))
			}
			runtime.Gosched()
		}
	}
	x.offsets = offsets
	x.built = true
	if progress != nil {
		progress(100)
	}
	return nil
}

// Reset restores the initial single-entry table and marks the index
// unbuilt.
func (x *Index) Reset() {
	x.offsets = []int64{0}
	x.built = false
}

// IsBuilt reports whether a build completed since the last reset.
func (x *Index) IsBuilt() bool { return x.built }

// LineCount returns the number of lines in the table.
func (x *Index) LineCount() int { return len(x.offsets) }

// LineOffset returns the base-file byte offset where line i starts.
// Out-of-range indices clamp to the file start.
func (x *Index) LineOffset(i int) int64 {
	if i < 0 || i >= len(x.offsets) {
		return 0
	}
	return x.offsets[i]
}

// LineOfOffset returns the largest line index whose start offset is at
// or before o.
func (x *Index) LineOfOffset(o int64) int {
	i := sort.Search(len(x.offsets), func(i int) bool { return x.offsets[i] > o })
	if i == 0 {
		return 0
	}
	return i - 1
}

// LineLength returns the number of base-file bytes in line i excluding
// its terminator; both '\n' and a preceding '\r' are excluded. The last
// line extends to the file size.
func (x *Index) LineLength(i int) int {
	if i < 0 || i >= len(x.offsets) {
		return 0
	}
	start := x.offsets[i]
	size := x.src.Size()
	var end int64
	if i == len(x.offsets)-1 {
		end = size
	} else {
		end = x.offsets[i+1] - 1
		if end > start {
			if b, err := x.src.ReadBytes(end-1, 1); err == nil && len(b) == 1 && b[0] == '\r' {
				end--
			}
		}
	}
	if end > size {
		end = size
	}
	if end < start {
		return 0
	}
	return int(end - start)
}
