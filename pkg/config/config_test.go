package config

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.CacheSize != 10 || cfg.Encoding != "utf-8" || cfg.TabWidth != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "cache_size: 4\nencoding: latin-1\ntheme: light\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.CacheSize != 4 {
		t.Fatalf("cache_size not applied: %d", cfg.CacheSize)
	}
	if cfg.Theme != "light" {
		t.Fatalf("theme not applied: %q", cfg.Theme)
	}
	if cfg.TabWidth != 4 || cfg.WindowSize != 16*1024*1024 {
		t.Fatalf("unset fields must keep defaults: %+v", cfg)
	}
	if cfg.TextEncoding() != charmap.ISO8859_1 {
		t.Fatalf("latin-1 must resolve to ISO8859_1")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n\t-bad"), 0644); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTextEncoding_DefaultIsNil(t *testing.T) {
	cfg := Default()
	if cfg.TextEncoding() != nil {
		t.Fatalf("utf-8 must resolve to nil (native decode)")
	}
}
