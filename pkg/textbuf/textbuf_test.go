package textbuf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"example.com/aquaedit/pkg/fileio"
	"example.com/aquaedit/pkg/overlay"
)

func newBuffer(t *testing.T, opts ...Option) *Buffer {
	t.Helper()
	b, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("creating buffer failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func openData(t *testing.T, b *Buffer, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}
	if err := b.Open(context.Background(), path, nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return path
}

func TestBuffer_OpenAndRead(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("A\nB"))

	if b.LineCount() != 2 {
		t.Fatalf("expected 2 lines, got %d", b.LineCount())
	}
	if got := b.ReadLine(0); got != "A" {
		t.Fatalf("line 0: %q", got)
	}
	if got := b.ReadLine(1); got != "B" {
		t.Fatalf("line 1: %q", got)
	}
	if got := b.ReadLine(2); got != "" {
		t.Fatalf("out-of-range line must be empty, got %q", got)
	}
	if got := b.ReadLine(-1); got != "" {
		t.Fatalf("negative line must be empty, got %q", got)
	}
}

func TestBuffer_CRLF(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("ab\r\ncd\r\n"))

	if b.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", b.LineCount())
	}
	for i, want := range []string{"ab", "cd", ""} {
		if got := b.ReadLine(i); got != want {
			t.Fatalf("line %d: got %q want %q", i, got, want)
		}
	}
}

func TestBuffer_EmptyFile(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, nil)

	if b.LineCount() != 1 {
		t.Fatalf("expected 1 line, got %d", b.LineCount())
	}
	if got := b.ReadLine(0); got != "" {
		t.Fatalf("expected empty line, got %q", got)
	}
}

func TestBuffer_EditsComposeOnReads(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("hello\nworld"))

	b.ApplyEdit(overlay.NewInsert(5, " there"))
	if got := b.ReadLine(0); got != "hello there" {
		t.Fatalf("line 0 after insert: %q", got)
	}
	// Line 1 starts at base offset 6.
	b.ApplyEdit(overlay.NewReplace(6, 5, "WORLD"))
	if got := b.ReadLine(1); got != "WORLD" {
		t.Fatalf("line 1 after replace: %q", got)
	}

	b.ClearEdits()
	if got := b.ReadLine(0); got != "hello" {
		t.Fatalf("line 0 after clear: %q", got)
	}
	if got := b.ReadLine(1); got != "world" {
		t.Fatalf("line 1 after clear: %q", got)
	}
}

func TestBuffer_VisibleLines(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("one\ntwo\nthree\nfour"))

	next := b.VisibleLines(1, 2)
	var got []string
	for line, ok := next(); ok; line, ok = next() {
		got = append(got, line)
	}
	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Fatalf("unexpected visible lines: %v", got)
	}

	// Requests past the end stop at the last line.
	next = b.VisibleLines(3, 10)
	got = nil
	for line, ok := next(); ok; line, ok = next() {
		got = append(got, line)
	}
	if len(got) != 1 || got[0] != "four" {
		t.Fatalf("unexpected tail lines: %v", got)
	}
}

func TestBuffer_SaveRoundTrip(t *testing.T) {
	b := newBuffer(t)
	data := []byte("alpha\nbeta\ngamma")
	openData(t, b, data)

	out := filepath.Join(t.TempDir(), "out.txt")
	if err := b.Save(context.Background(), out); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	saved, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading saved file failed: %v", err)
	}
	if !bytes.Equal(saved, data) {
		t.Fatalf("round trip mismatch: %q", saved)
	}
}

func TestBuffer_SaveAppliesEdits(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("hello\nworld"))
	b.ApplyEdit(overlay.NewInsert(5, "!"))

	out := filepath.Join(t.TempDir(), "out.txt")
	if err := b.Save(context.Background(), out); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	saved, _ := os.ReadFile(out)
	if string(saved) != "hello!\nworld" {
		t.Fatalf("saved content: %q", saved)
	}
}

func TestBuffer_SaveNormalizesCRLF(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("ab\r\ncd\r\n"))

	out := filepath.Join(t.TempDir(), "out.txt")
	if err := b.Save(context.Background(), out); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	saved, _ := os.ReadFile(out)
	if string(saved) != "ab\ncd\n" {
		t.Fatalf("saved content: %q", saved)
	}
}

func TestBuffer_SaveNotOpen(t *testing.T) {
	b := newBuffer(t)
	err := b.Save(context.Background(), filepath.Join(t.TempDir(), "out.txt"))
	if !errors.Is(err, fileio.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestBuffer_SaveCancelled(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("a\nb\nc"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	if err := b.Save(ctx, out); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("cancelled save must not create the target")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("cancelled save must remove its temp file: %v", entries)
	}
}

func TestBuffer_Latin1Decoding(t *testing.T) {
	b := newBuffer(t, WithEncoding(charmap.ISO8859_1))
	// "café" in Latin-1: é is byte 0xE9.
	openData(t, b, []byte{'c', 'a', 'f', 0xE9, '\n', 'x'})

	if got := b.ReadLine(0); got != "café" {
		t.Fatalf("latin-1 decode: %q", got)
	}
	if got := b.ReadLine(1); got != "x" {
		t.Fatalf("line 1: %q", got)
	}
}

func TestBuffer_OpenCancelClosesManager(t *testing.T) {
	b := newBuffer(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Open(ctx, path, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.IsOpen() {
		t.Fatalf("failed open must leave the buffer closed")
	}
	if b.IsIndexed() {
		t.Fatalf("failed open must leave the index unbuilt")
	}
}

func TestBuffer_ReopenClearsEdits(t *testing.T) {
	b := newBuffer(t)
	openData(t, b, []byte("first"))
	b.ApplyEdit(overlay.NewInsert(0, "X"))
	if b.EditCount() != 1 {
		t.Fatalf("expected one pending edit")
	}
	openData(t, b, []byte("second"))
	if b.EditCount() != 0 {
		t.Fatalf("open must clear the overlay")
	}
	if got := b.ReadLine(0); got != "second" {
		t.Fatalf("line 0 after reopen: %q", got)
	}
}
