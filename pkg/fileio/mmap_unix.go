//go:build unix

package fileio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// region is one mapped range of the file. On Unix each region is its own
// mmap call at a page-aligned offset and is unmapped on release.
type region struct {
	data []byte
}

// mapRegion maps length bytes of f starting at the page-aligned offset.
func mapRegion(f *os.File, offset int64, length int) (*region, error) {
	data, err := unix.Mmap(int(f.Fd()), offset, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("fileio: mmap %d+%d: %w", offset, length, err)
	}
	return &region{data: data}, nil
}

// release unmaps the region. The data slice must not be used afterwards.
func (r *region) release() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if err != nil {
		return fmt.Errorf("fileio: munmap: %w", err)
	}
	return nil
}
