package main

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"example.com/aquaedit/pkg/editor"
	"example.com/aquaedit/pkg/search"
)

// viewer renders a scrolling window of document lines plus a status bar.
type viewer struct {
	doc    *editor.Document
	top    int
	status string

	lastTerm string
	lastHit  int
}

func newViewer(doc *editor.Document) *viewer {
	return &viewer{doc: doc, lastHit: -1}
}

// open loads the file, rendering index progress in the status bar. The
// progress sink runs inside the build while the buffer is busy, so it
// must only touch the status bar, never read document lines.
func (v *viewer) open(s tcell.Screen, path string) error {
	drawStatus(s, "indexing "+path)
	s.Show()
	err := v.doc.Open(context.Background(), path, func(percent int) {
		drawStatus(s, fmt.Sprintf("indexing %s: %d%%", path, percent))
		s.Show()
	})
	if err != nil {
		return err
	}
	v.status = fmt.Sprintf("%s: %d lines", path, v.doc.LineCount())
	v.draw(s)
	return nil
}

func (v *viewer) run(s tcell.Screen) {
	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			s.Sync()
			v.draw(s)
		case *tcell.EventKey:
			if v.handleKey(s, ev) {
				return
			}
		}
	}
}

// handleKey processes one key event and reports whether to quit.
func (v *viewer) handleKey(s tcell.Screen, ev *tcell.EventKey) bool {
	_, height := s.Size()
	page := height - 1
	if page < 1 {
		page = 1
	}
	switch {
	case ev.Key() == tcell.KeyCtrlQ:
		return true
	case ev.Key() == tcell.KeyUp:
		v.scrollTo(v.top - 1)
	case ev.Key() == tcell.KeyDown:
		v.scrollTo(v.top + 1)
	case ev.Key() == tcell.KeyPgUp:
		v.scrollTo(v.top - page)
	case ev.Key() == tcell.KeyPgDn:
		v.scrollTo(v.top + page)
	case ev.Key() == tcell.KeyHome:
		v.scrollTo(0)
	case ev.Key() == tcell.KeyEnd:
		v.scrollTo(v.doc.LineCount() - page)
	case ev.Key() == tcell.KeyRune && ev.Rune() == '/':
		if term, ok := v.prompt(s, "/"); ok && term != "" {
			v.lastTerm = term
			v.lastHit = -1
			v.searchNext(s)
		}
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'n':
		v.searchNext(s)
	}
	v.draw(s)
	return false
}

func (v *viewer) scrollTo(line int) {
	max := v.doc.LineCount() - 1
	if line > max {
		line = max
	}
	if line < 0 {
		line = 0
	}
	v.top = line
}

// searchNext jumps to the next literal match after the last hit.
func (v *viewer) searchNext(s tcell.Screen) {
	if v.lastTerm == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for r := range v.doc.Search(ctx, search.Query{Term: v.lastTerm}) {
		if r.Err != nil {
			v.status = "search: " + r.Err.Error()
			return
		}
		if r.Hit.Line > v.lastHit {
			v.lastHit = r.Hit.Line
			v.scrollTo(r.Hit.Line)
			v.status = fmt.Sprintf("match at line %d, col %d", r.Hit.Line+1, r.Hit.Char+1)
			return
		}
	}
	v.status = fmt.Sprintf("no more matches for %q", v.lastTerm)
	v.lastHit = -1
}

// prompt reads a line of input into the status bar. Escape cancels.
func (v *viewer) prompt(s tcell.Screen, prefix string) (string, bool) {
	input := []rune{}
	for {
		v.status = prefix + string(input)
		v.draw(s)
		ev := s.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch key.Key() {
		case tcell.KeyEnter:
			return string(input), true
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return "", false
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(input) > 0 {
				input = input[:len(input)-1]
			}
		case tcell.KeyRune:
			input = append(input, key.Rune())
		}
	}
}

// draw renders the visible lines and the status bar.
func (v *viewer) draw(s tcell.Screen) {
	s.Clear()
	width, height := s.Size()
	if height < 2 {
		s.Show()
		return
	}
	next := v.doc.VisibleLines(v.top, height-1)
	row := 0
	for line, ok := next(); ok; line, ok = next() {
		col := 0
		for _, r := range line {
			if col >= width {
				break
			}
			s.SetContent(col, row, r, nil, tcell.StyleDefault)
			col++
		}
		row++
	}
	drawStatus(s, v.status)
	s.Show()
}

// drawStatus renders the bottom status bar.
func drawStatus(s tcell.Screen, status string) {
	width, height := s.Size()
	style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	y := height - 1
	for x := 0; x < width; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
	col := 0
	for _, r := range status {
		if col >= width {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
}
