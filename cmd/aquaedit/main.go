// Command aquaedit is a read-only terminal viewer over the file engine.
// It opens very large files without loading them into memory, scrolls by
// line, and supports literal search. It doubles as the reference
// embedding of the engine's command surface.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"example.com/aquaedit/pkg/config"
	"example.com/aquaedit/pkg/editor"
	"example.com/aquaedit/pkg/logs"
	"example.com/aquaedit/pkg/plugins"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: aquaedit <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logs.NewFromEnv()
	defer logger.Close()

	doc, err := editor.NewDocument(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating document: %v\n", err)
		os.Exit(1)
	}
	defer doc.Close()

	host := plugins.NewHost(doc, logger, nil)
	defer host.Close()
	host.Attach(doc.Notifier())
	loadPlugins(host)

	s, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err = s.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing screen: %v\n", err)
		os.Exit(1)
	}
	defer s.Fini()

	v := newViewer(doc)
	if err := v.open(s, path); err != nil {
		s.Fini()
		fmt.Fprintf(os.Stderr, "error opening %s: %v\n", path, err)
		os.Exit(1)
	}
	v.run(s)
}

// loadPlugins executes every .lua script under ~/.aquaedit/plugins.
// A script that fails to load is skipped; its error is discarded and
// not logged.
func loadPlugins(host *plugins.Host) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	matches, err := filepath.Glob(filepath.Join(home, ".aquaedit", "plugins", "*.lua"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = host.LoadFile(m)
	}
}
