// Package history tracks applied patches on two stacks for undo/redo.
// Undoing does not remove anything from the overlay; it applies the
// inverse patch, so the overlay composition returns to its earlier
// observable state.
package history

import (
	"unicode/utf8"

	"example.com/aquaedit/pkg/overlay"
)

// History keeps stacks of past/future patches for undo/redo. Recording a
// new patch discards the redo stack. Observers registered with OnChange
// are notified after every mutation so a front-end can poll CanUndo and
// CanRedo.
type History struct {
	past     []overlay.Patch
	future   []overlay.Patch
	onChange []func()
}

// New creates an empty History.
func New() *History { return &History{} }

// OnChange registers a callback fired after Record, Undo, Redo and
// Clear. Callbacks run on the caller's goroutine.
func (h *History) OnChange(fn func()) {
	if fn != nil {
		h.onChange = append(h.onChange, fn)
	}
}

func (h *History) notify() {
	for _, fn := range h.onChange {
		fn()
	}
}

// Record pushes an applied patch onto the undo stack and clears the redo
// stack. The patch's Original field must already hold the text a delete
// or replace removed; that is what makes its inverse constructible.
func (h *History) Record(p overlay.Patch) {
	h.past = append(h.past, p)
	h.future = nil
	h.notify()
}

// CanUndo reports whether there is a patch to undo.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether there is a patch to redo.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Undo pops the most recent patch, applies its inverse to the overlay
// and moves the patch to the redo stack. It returns the undone patch,
// or false when the undo stack is empty.
func (h *History) Undo(ov *overlay.Overlay) (overlay.Patch, bool) {
	if len(h.past) == 0 {
		return overlay.Patch{}, false
	}
	p := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	ov.Add(Inverse(p))
	h.future = append(h.future, p)
	h.notify()
	return p, true
}

// Redo pops the most recently undone patch, reapplies it to the overlay
// and moves it back to the undo stack. It returns the redone patch, or
// false when the redo stack is empty.
func (h *History) Redo(ov *overlay.Overlay) (overlay.Patch, bool) {
	if len(h.future) == 0 {
		return overlay.Patch{}, false
	}
	p := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	ov.Add(p)
	h.past = append(h.past, p)
	h.notify()
	return p, true
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.past = nil
	h.future = nil
	h.notify()
}

// Inverse constructs the patch that cancels p when composed after it at
// the same position. Deletes and replaces restore the captured Original
// text.
func Inverse(p overlay.Patch) overlay.Patch {
	switch p.Kind {
	case overlay.Insert:
		return overlay.Patch{
			Kind:           overlay.Delete,
			Start:          p.Start,
			OriginalLength: utf8.RuneCountInString(p.NewText),
		}
	case overlay.Delete:
		return overlay.Patch{
			Kind:    overlay.Insert,
			Start:   p.Start,
			NewText: p.Original,
		}
	default:
		return overlay.Patch{
			Kind:           overlay.Replace,
			Start:          p.Start,
			OriginalLength: utf8.RuneCountInString(p.NewText),
			NewText:        p.Original,
		}
	}
}
