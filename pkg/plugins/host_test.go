package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"example.com/aquaedit/pkg/editor"
)

// fakeBuffer is a minimal in-memory BufferHandle.
type fakeBuffer struct {
	lines []string
	path  string
}

func (f *fakeBuffer) LineCount() int { return len(f.lines) }

func (f *fakeBuffer) ReadLine(i int) string {
	if i < 0 || i >= len(f.lines) {
		return ""
	}
	return f.lines[i]
}

func (f *fakeBuffer) Path() string { return f.path }

func TestHost_RegisterAndRunCommand(t *testing.T) {
	var notes []string
	h := NewHost(&fakeBuffer{lines: []string{"a", "b"}}, nil, func(msg string) {
		notes = append(notes, msg)
	})
	defer h.Close()

	script := `
aqua.register_command("count", function()
  aqua.show_notification("lines: " .. aqua.line_count())
end)
`
	if err := h.LoadScript(script); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !h.HasCommand("count") {
		t.Fatalf("command not registered")
	}
	if err := h.RunCommand("count"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(notes) != 1 || notes[0] != "lines: 2" {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}

func TestHost_ReadLineIsZeroBased(t *testing.T) {
	var notes []string
	h := NewHost(&fakeBuffer{lines: []string{"first", "second"}}, nil, func(msg string) {
		notes = append(notes, msg)
	})
	defer h.Close()

	if err := h.LoadScript(`aqua.show_notification(aqua.read_line(0))`); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(notes) != 1 || notes[0] != "first" {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}

func TestHost_UnknownCommand(t *testing.T) {
	h := NewHost(&fakeBuffer{}, nil, nil)
	defer h.Close()
	if err := h.RunCommand("nope"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestHost_BadScript(t *testing.T) {
	h := NewHost(&fakeBuffer{}, nil, nil)
	defer h.Close()
	if err := h.LoadScript(`this is not lua`); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestHost_DocumentNotifications(t *testing.T) {
	var notes []string
	h := NewHost(&fakeBuffer{}, nil, func(msg string) {
		notes = append(notes, msg)
	})
	defer h.Close()

	script := `
aqua.on_document_opened(function(path)
  aqua.show_notification("opened " .. path)
end)
aqua.on_document_closed(function(path)
  aqua.show_notification("closed " .. path)
end)
`
	if err := h.LoadScript(script); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	n := editor.NewNotifier()
	h.Attach(n)
	n.Publish(editor.EventOpened, "/tmp/a.txt")
	n.Publish(editor.EventClosed, "/tmp/a.txt")

	if len(notes) != 2 || notes[0] != "opened /tmp/a.txt" || notes[1] != "closed /tmp/a.txt" {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}

func TestHost_AgainstRealDocument(t *testing.T) {
	doc, err := editor.NewDocument(nil, nil)
	if err != nil {
		t.Fatalf("creating document failed: %v", err)
	}
	defer doc.Close()

	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta"), 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}

	var notes []string
	h := NewHost(doc, nil, func(msg string) { notes = append(notes, msg) })
	defer h.Close()
	h.Attach(doc.Notifier())

	script := `
aqua.on_document_opened(function(path)
  aqua.show_notification(aqua.read_line(1))
end)
`
	if err := h.LoadScript(script); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := doc.Open(context.Background(), path, nil); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(notes) != 1 || notes[0] != "beta" {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}

func TestHost_LoadFile(t *testing.T) {
	var notes []string
	h := NewHost(&fakeBuffer{}, nil, func(msg string) { notes = append(notes, msg) })
	defer h.Close()

	path := filepath.Join(t.TempDir(), "plugin.lua")
	if err := os.WriteFile(path, []byte(`aqua.show_notification("from file")`), 0644); err != nil {
		t.Fatalf("writing plugin failed: %v", err)
	}
	if err := h.LoadFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(notes) != 1 || notes[0] != "from file" {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}
