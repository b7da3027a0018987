//go:build windows

package fileio

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// region is one mapped range of the file. Windows restricts view offsets
// to the allocation granularity (64 KiB), which is coarser than our 4 KiB
// page alignment, so each region maps a view of the whole file and keeps
// a subslice; release unmaps the view.
type region struct {
	base uintptr
	data []byte
}

func mapRegion(f *os.File, offset int64, length int) (*region, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("fileio: stat: %w", err)
	}
	size := fi.Size()
	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("fileio: CreateFileMapping: %w", err)
	}
	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	// The view keeps the mapping object alive; the handle can go now.
	_ = windows.CloseHandle(mapping)
	if err != nil {
		return nil, fmt.Errorf("fileio: MapViewOfFile: %w", err)
	}
	whole := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &region{base: addr, data: whole[offset : offset+int64(length)]}, nil
}

func (r *region) release() error {
	if r.base == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(r.base)
	r.base = 0
	r.data = nil
	if err != nil {
		return fmt.Errorf("fileio: UnmapViewOfFile: %w", err)
	}
	return nil
}
