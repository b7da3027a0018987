// Package plugins hosts Lua extension scripts against a narrow editor
// capability surface. A plugin sees an opaque buffer handle plus the
// host functions exposed under the global `aqua` table:
//
//	aqua.register_command(name, fn)
//	aqua.show_notification(message)
//	aqua.log_message(message)
//	aqua.line_count()
//	aqua.read_line(i)        -- zero-based, like the core
//	aqua.on_document_opened(fn)
//	aqua.on_document_closed(fn)
//
// Plugin discovery, enable/disable and lifecycle management stay with
// the embedding application; the host only executes scripts it is
// handed.
package plugins

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"example.com/aquaedit/pkg/editor"
	"example.com/aquaedit/pkg/logs"
)

// BufferHandle is the read access a plugin gets to the open document.
// *editor.Document satisfies it.
type BufferHandle interface {
	LineCount() int
	ReadLine(i int) string
	Path() string
}

// Host owns one Lua state shared by all loaded plugin scripts. The
// state is not goroutine safe; the host serializes access with a mutex,
// so callbacks fire on the goroutine that triggered them.
type Host struct {
	mu       sync.Mutex
	L        *lua.LState
	buf      BufferHandle
	log      *logs.Logger
	notify   func(message string)
	commands map[string]*lua.LFunction
	onOpened []*lua.LFunction
	onClosed []*lua.LFunction
	closed   bool
}

// NewHost creates a host around the buffer handle. notify receives
// show_notification messages and may be nil; logger may be nil.
func NewHost(buf BufferHandle, logger *logs.Logger, notify func(message string)) *Host {
	if logger == nil {
		logger = logs.NewFromEnv()
	}
	h := &Host{
		L:        lua.NewState(),
		buf:      buf,
		log:      logger,
		notify:   notify,
		commands: make(map[string]*lua.LFunction),
	}
	h.install()
	return h
}

func (h *Host) install() {
	L := h.L
	mod := L.NewTable()
	L.SetField(mod, "register_command", L.NewFunction(h.luaRegisterCommand))
	L.SetField(mod, "show_notification", L.NewFunction(h.luaShowNotification))
	L.SetField(mod, "log_message", L.NewFunction(h.luaLogMessage))
	L.SetField(mod, "line_count", L.NewFunction(h.luaLineCount))
	L.SetField(mod, "read_line", L.NewFunction(h.luaReadLine))
	L.SetField(mod, "on_document_opened", L.NewFunction(h.luaOnOpened))
	L.SetField(mod, "on_document_closed", L.NewFunction(h.luaOnClosed))
	L.SetGlobal("aqua", mod)
}

func (h *Host) luaRegisterCommand(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	h.commands[name] = fn
	return 0
}

func (h *Host) luaShowNotification(L *lua.LState) int {
	msg := L.CheckString(1)
	if h.notify != nil {
		h.notify(msg)
	}
	return 0
}

func (h *Host) luaLogMessage(L *lua.LState) int {
	h.log.Event("plugin_log", map[string]any{"message": L.CheckString(1)})
	return 0
}

func (h *Host) luaLineCount(L *lua.LState) int {
	if h.buf == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(h.buf.LineCount()))
	return 1
}

func (h *Host) luaReadLine(L *lua.LState) int {
	i := L.CheckInt(1)
	if h.buf == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(h.buf.ReadLine(i)))
	return 1
}

func (h *Host) luaOnOpened(L *lua.LState) int {
	h.onOpened = append(h.onOpened, L.CheckFunction(1))
	return 0
}

func (h *Host) luaOnClosed(L *lua.LState) int {
	h.onClosed = append(h.onClosed, L.CheckFunction(1))
	return 0
}

// LoadScript executes a plugin script from source.
func (h *Host) LoadScript(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("plugins: host closed")
	}
	if err := h.L.DoString(src); err != nil {
		return fmt.Errorf("plugins: %w", err)
	}
	return nil
}

// LoadFile executes a plugin script from disk.
func (h *Host) LoadFile(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("plugins: host closed")
	}
	if err := h.L.DoFile(path); err != nil {
		return fmt.Errorf("plugins: %s: %w", path, err)
	}
	return nil
}

// Commands returns the registered command names.
func (h *Host) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.commands))
	for name := range h.commands {
		out = append(out, name)
	}
	return out
}

// HasCommand reports whether a command is registered.
func (h *Host) HasCommand(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.commands[name]
	return ok
}

// RunCommand invokes a registered command.
func (h *Host) RunCommand(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("plugins: host closed")
	}
	fn, ok := h.commands[name]
	if !ok {
		return fmt.Errorf("plugins: unknown command %q", name)
	}
	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return fmt.Errorf("plugins: command %q: %w", name, err)
	}
	return nil
}

// Attach subscribes the host to document lifecycle events so Lua
// callbacks registered with on_document_opened/closed fire.
func (h *Host) Attach(n *editor.Notifier) {
	n.Subscribe(func(ev editor.Event, path string) {
		h.fire(ev == editor.EventOpened, path)
	})
}

func (h *Host) fire(opened bool, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	fns := h.onClosed
	if opened {
		fns = h.onOpened
	}
	for _, fn := range fns {
		if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LString(path)); err != nil {
			h.log.Event("plugin_error", map[string]any{"error": err.Error()})
		}
	}
}

// Close shuts the Lua state down. Idempotent.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.L.Close()
}
