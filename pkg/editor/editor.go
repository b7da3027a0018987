// Package editor exposes the file engine's command surface: one Document
// combining the text buffer, the undo/redo history and the search engine,
// plus the lifecycle notifications a plugin host consumes.
package editor

import (
	"context"

	"example.com/aquaedit/pkg/config"
	"example.com/aquaedit/pkg/fileio"
	"example.com/aquaedit/pkg/history"
	"example.com/aquaedit/pkg/logs"
	"example.com/aquaedit/pkg/overlay"
	"example.com/aquaedit/pkg/search"
	"example.com/aquaedit/pkg/textbuf"
)

// Document is the single-owner facade over one open file. All mutating
// operations must come from one logical owner; background searches may
// read concurrently.
type Document struct {
	buf      *textbuf.Buffer
	hist     *history.History
	log      *logs.Logger
	notifier *Notifier
}

// NewDocument builds a closed document wired from configuration. cfg and
// logger may be nil.
func NewDocument(cfg *config.Config, logger *logs.Logger) (*Document, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logs.NewFromEnv()
	}
	buf, err := textbuf.New(
		[]fileio.Option{
			fileio.WithCacheCapacity(cfg.CacheSize),
			fileio.WithWindowSize(cfg.WindowSize),
		},
		textbuf.WithEncoding(cfg.TextEncoding()),
	)
	if err != nil {
		return nil, err
	}
	return &Document{
		buf:      buf,
		hist:     history.New(),
		log:      logger,
		notifier: NewNotifier(),
	}, nil
}

// Notifier returns the document lifecycle notifier.
func (d *Document) Notifier() *Notifier { return d.notifier }

// Open loads path, builds the line index and resets edit state. Progress
// percentages from the index build are forwarded to progress.
func (d *Document) Open(ctx context.Context, path string, progress func(percent int)) error {
	wasOpen := d.buf.IsOpen()
	oldPath := d.buf.Path()
	if err := d.buf.Open(ctx, path, progress); err != nil {
		d.hist.Clear()
		d.log.Event("open_failed", map[string]any{"file": path, "error": err.Error()})
		// The previous document is gone either way.
		if wasOpen {
			d.notifier.Publish(EventClosed, oldPath)
		}
		return err
	}
	if wasOpen {
		d.notifier.Publish(EventClosed, oldPath)
	}
	d.hist.Clear()
	d.log.Event("open", map[string]any{"file": path, "line_count": d.buf.LineCount()})
	d.notifier.Publish(EventOpened, path)
	return nil
}

// Close drops the document state and releases the file. Idempotent.
func (d *Document) Close() error {
	wasOpen := d.buf.IsOpen()
	path := d.buf.Path()
	err := d.buf.Close()
	d.hist.Clear()
	if wasOpen {
		d.log.Event("close", map[string]any{"file": path})
		d.notifier.Publish(EventClosed, path)
	}
	return err
}

// IsOpen reports whether a file is open.
func (d *Document) IsOpen() bool { return d.buf.IsOpen() }

// IsIndexed reports whether the line index is complete.
func (d *Document) IsIndexed() bool { return d.buf.IsIndexed() }

// Path returns the open file path, or "".
func (d *Document) Path() string { return d.buf.Path() }

// Size returns the base file size in bytes.
func (d *Document) Size() int64 { return d.buf.Size() }

// LineCount returns the number of lines.
func (d *Document) LineCount() int { return d.buf.LineCount() }

// ReadLine returns line i with pending edits applied.
func (d *Document) ReadLine(i int) string { return d.buf.ReadLine(i) }

// VisibleLines returns a lazy sequence of up to count lines from start.
func (d *Document) VisibleLines(start, count int) textbuf.LineSeq {
	return d.buf.VisibleLines(start, count)
}

// LineOffset returns the base byte offset of line i; the front-end's
// go-to-line maps through this.
func (d *Document) LineOffset(i int) int64 { return d.buf.LineOffset(i) }

// LineOfOffset returns the line containing a base byte offset.
func (d *Document) LineOfOffset(o int64) int { return d.buf.LineOfOffset(o) }

// ApplyEdit applies a patch to the document and records it for undo.
// For deletes and replaces the text being removed is captured first so
// the patch stays invertible.
func (d *Document) ApplyEdit(p overlay.Patch) {
	if p.Kind != overlay.Insert && p.Original == "" {
		p.Original = d.buf.CaptureRemoved(p)
	}
	d.buf.ApplyEdit(p)
	d.hist.Record(p)
	d.log.Event("edit", map[string]any{
		"kind":  p.Kind.String(),
		"start": p.Start,
	})
}

// ClearEdits drops all pending patches and the undo/redo history.
func (d *Document) ClearEdits() {
	d.buf.ClearEdits()
	d.hist.Clear()
}

// EditCount returns the number of pending patches.
func (d *Document) EditCount() int { return d.buf.EditCount() }

// Undo reverts the most recent edit. It returns the undone patch and
// whether anything was undone.
func (d *Document) Undo() (overlay.Patch, bool) {
	p, ok := d.hist.Undo(d.buf.Overlay())
	if ok {
		d.buf.FlushLines()
		d.log.Event("undo", map[string]any{"kind": p.Kind.String()})
	}
	return p, ok
}

// Redo reapplies the most recently undone edit.
func (d *Document) Redo() (overlay.Patch, bool) {
	p, ok := d.hist.Redo(d.buf.Overlay())
	if ok {
		d.buf.FlushLines()
		d.log.Event("redo", map[string]any{"kind": p.Kind.String()})
	}
	return p, ok
}

// CanUndo reports whether an undo is available.
func (d *Document) CanUndo() bool { return d.hist.CanUndo() }

// CanRedo reports whether a redo is available.
func (d *Document) CanRedo() bool { return d.hist.CanRedo() }

// OnHistoryChange registers a callback fired whenever CanUndo/CanRedo
// may have changed.
func (d *Document) OnHistoryChange(fn func()) { d.hist.OnChange(fn) }

// Save writes the effective document over the currently open path.
func (d *Document) Save(ctx context.Context) error {
	return d.SaveAs(ctx, d.buf.Path())
}

// SaveAs writes the effective document to path as UTF-8 with '\n'
// separators.
func (d *Document) SaveAs(ctx context.Context, path string) error {
	if path == "" {
		return fileio.ErrNotOpen
	}
	if err := d.buf.Save(ctx, path); err != nil {
		d.log.Event("save_failed", map[string]any{"file": path, "error": err.Error()})
		return err
	}
	d.log.Event("save", map[string]any{"file": path})
	return nil
}

// Search streams matches of the query over the document's lines.
func (d *Document) Search(ctx context.Context, q search.Query) <-chan search.Result {
	d.log.Event("search", map[string]any{"term": q.Term, "regex": q.Regex})
	return search.Run(ctx, d.buf, q)
}
