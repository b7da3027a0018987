package overlay

import (
	"sort"
	"unicode/utf8"
)

// Overlay is the collection of pending patches for one open file. Patches
// are stored in insertion order and composed in ascending Start order;
// overlapping patches are therefore order-dependent by position, not by
// the order they were added. No merging happens.
type Overlay struct {
	patches []Patch
}

// New creates an empty overlay.
func New() *Overlay {
	return &Overlay{}
}

// Add appends a patch.
func (o *Overlay) Add(p Patch) {
	o.patches = append(o.patches, p)
}

// Clear discards all patches.
func (o *Overlay) Clear() {
	o.patches = nil
}

// Len returns the number of pending patches.
func (o *Overlay) Len() int { return len(o.patches) }

// Patches returns a copy of the pending patches in insertion order.
func (o *Overlay) Patches() []Patch {
	out := make([]Patch, len(o.patches))
	copy(out, o.patches)
	return out
}

// Apply composes every patch whose Start falls inside
// [baseOffset, baseOffset+len(text)] onto text, ascending by Start and
// stable on ties. The end is inclusive so an insert at the very end of a
// slice (an append at end of file) lands on it; terminator bytes between
// a line's text and the next line start are not addressable. The patch
// position inside the slice is derived from Start-baseOffset, clamped to
// the current slice and rounded down to a rune boundary; delete counts
// are clamped to the remaining runes.
func (o *Overlay) Apply(text string, baseOffset int64) string {
	composed, _ := o.compose(text, baseOffset, nil)
	return composed
}

// Removed returns the text patch p would remove if it were added now and
// composed with the pending patches, where text is the decoded base
// slice starting at baseOffset. The simulation replays composition in
// the same order Apply uses and captures the slice state at the moment p
// applies, so the result is exactly what a later Apply will delete.
// Insert patches remove nothing.
func (o *Overlay) Removed(text string, baseOffset int64, p Patch) string {
	if p.Kind == Insert || p.OriginalLength <= 0 {
		return ""
	}
	_, removed := o.compose(text, baseOffset, &p)
	return removed
}

// compose applies the overlapping patches to text. When capture is
// non-nil it participates in the composition as the most recently added
// patch, and the runes it removes are returned.
func (o *Overlay) compose(text string, baseOffset int64, capture *Patch) (string, string) {
	type hit struct {
		p        Patch
		captured bool
	}
	end := baseOffset + int64(len(text))
	var hits []hit
	for _, p := range o.patches {
		if p.Start >= baseOffset && p.Start <= end {
			hits = append(hits, hit{p: p})
		}
	}
	if capture != nil {
		hits = append(hits, hit{p: *capture, captured: true})
	}
	if len(hits) == 0 {
		return text, ""
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].p.Start < hits[j].p.Start })

	runes := []rune(text)
	var removed string
	for _, h := range hits {
		pos := runePos(text, h.p.Start-baseOffset)
		if pos > len(runes) {
			pos = len(runes)
		}
		if h.captured {
			n := h.p.OriginalLength
			if pos+n > len(runes) {
				n = len(runes) - pos
			}
			if n > 0 {
				removed = string(runes[pos : pos+n])
			}
		}
		switch h.p.Kind {
		case Insert:
			runes = insertRunes(runes, pos, h.p.NewText)
		case Delete:
			runes = deleteRunes(runes, pos, h.p.OriginalLength)
		case Replace:
			runes = deleteRunes(runes, pos, h.p.OriginalLength)
			runes = insertRunes(runes, pos, h.p.NewText)
		}
	}
	return string(runes), removed
}

// runePos converts a byte position in the original slice into a rune
// index, rounding down to the nearest rune boundary.
func runePos(text string, bytePos int64) int {
	if bytePos <= 0 {
		return 0
	}
	if bytePos >= int64(len(text)) {
		return utf8.RuneCountInString(text)
	}
	b := int(bytePos)
	for b > 0 && !utf8.RuneStart(text[b]) {
		b--
	}
	return utf8.RuneCountInString(text[:b])
}

func insertRunes(runes []rune, pos int, text string) []rune {
	if pos < 0 {
		pos = 0
	}
	if pos > len(runes) {
		pos = len(runes)
	}
	ins := []rune(text)
	out := make([]rune, 0, len(runes)+len(ins))
	out = append(out, runes[:pos]...)
	out = append(out, ins...)
	out = append(out, runes[pos:]...)
	return out
}

func deleteRunes(runes []rune, pos, n int) []rune {
	if pos < 0 {
		pos = 0
	}
	if pos >= len(runes) || n <= 0 {
		return runes
	}
	if pos+n > len(runes) {
		n = len(runes) - pos
	}
	return append(runes[:pos], runes[pos+n:]...)
}
