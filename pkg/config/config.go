// Package config loads user configuration for the editor. The core
// persists nothing itself; the front-end reads these values and forwards
// the relevant ones (cache size, window size, encoding) to the file
// engine at construction time.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v3"
)

// Config holds user configuration values.
type Config struct {
	FontFamily string `yaml:"font_family"`
	FontSize   int    `yaml:"font_size"`
	TabWidth   int    `yaml:"tab_width"`
	Theme      string `yaml:"theme"`
	Encoding   string `yaml:"encoding"`

	// WindowWidth/WindowHeight are the front-end window geometry.
	WindowWidth  int `yaml:"window_width"`
	WindowHeight int `yaml:"window_height"`

	// CacheSize is the number of mapped windows the file engine keeps.
	CacheSize int `yaml:"cache_size"`
	// WindowSize is the mapped window length in bytes.
	WindowSize int `yaml:"window_size"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		FontFamily:   "monospace",
		FontSize:     12,
		TabWidth:     4,
		Theme:        "dark",
		Encoding:     "utf-8",
		WindowWidth:  1024,
		WindowHeight: 768,
		CacheSize:    10,
		WindowSize:   16 * 1024 * 1024,
	}
}

// Load reads configuration from path. A missing file yields defaults;
// fields absent from the file keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault attempts to read ~/.aquaedit/config.yaml.
func LoadDefault() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	return Load(filepath.Join(home, ".aquaedit", "config.yaml"))
}

// TextEncoding resolves the configured encoding name. Unknown names and
// "utf-8" return nil, which the text buffer treats as UTF-8.
func (c *Config) TextEncoding() encoding.Encoding {
	switch c.Encoding {
	case "latin-1", "iso-8859-1":
		return charmap.ISO8859_1
	case "windows-1252":
		return charmap.Windows1252
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	default:
		return nil
	}
}
