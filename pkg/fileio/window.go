package fileio

// Window is a contiguous page-aligned view over the open file. Windows are
// identified by their aligned offset; at most one window exists per offset
// at a time, enforced by the cache. A window owns its mapped region and
// must be released before it is dropped.
type Window struct {
	offset   int64
	length   int
	reg      *region
	released bool
}

// Offset returns the page-aligned base offset of the window.
func (w *Window) Offset() int64 { return w.offset }

// Length returns the number of bytes the window covers.
func (w *Window) Length() int { return w.length }

// Released reports whether the window's region has been released.
func (w *Window) Released() bool { return w.released }

// Bytes copies n bytes starting at the window-relative position from.
// Callers receive a copy so the bytes stay valid after the window is
// evicted from the cache.
func (w *Window) Bytes(from, n int) ([]byte, error) {
	if w.released {
		return nil, ErrReleased
	}
	if from < 0 || n < 0 || from+n > w.length {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, n)
	copy(out, w.reg.data[from:from+n])
	return out, nil
}

// Release unmaps the window's region. It is idempotent.
func (w *Window) Release() error {
	if w.released {
		return nil
	}
	w.released = true
	return w.reg.release()
}
