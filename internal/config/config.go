// Package config handles TOML configuration loading, command-line
// overrides and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/die-net/blockproxy/internal/proxy"
)

// searchPaths lists paths checked in order when no explicit config is given.
var searchPaths = []string{
	"/etc/blockproxy/config.toml",
}

// Config is the top-level application configuration.
type Config struct {
	Listen    string          `toml:"listen"`
	Upstream  string          `toml:"upstream"`
	Blocklist BlocklistConfig `toml:"blocklist"`
	Log       LogConfig       `toml:"log"`
	Debug     DebugConfig     `toml:"debug"`

	// Block holds entries from --block, matched after Blocklist.Domains.
	Block []string `toml:"-"`

	filePath string
}

// BlocklistConfig lists blocked host substrings and an optional file with
// one entry per line.
type BlocklistConfig struct {
	Domains []string `toml:"domains"`
	File    string   `toml:"file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DebugConfig holds the admin listener settings. An empty Listen disables it.
type DebugConfig struct {
	Listen string `toml:"listen"`
}

// Load reads the TOML file at path, applies any flags explicitly set in fs
// and validates the result. When path is empty the search paths are tried,
// and if none exists the built-in defaults are used.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	if path == "" {
		path = findConfigInPaths(searchPaths)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyFlags overrides config values with flags set on the command line.
// Flags left at their defaults never replace file values.
func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"listen", &c.Listen},
		{"upstream", &c.Upstream},
		{"blocklist-file", &c.Blocklist.File},
		{"debug-listen", &c.Debug.Listen},
		{"log-level", &c.Log.Level},
		{"log-format", &c.Log.Format},
	}
	for _, f := range strs {
		if fs.Lookup(f.name) == nil || !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if fs.Lookup("block") != nil && fs.Changed("block") {
		block, err := fs.GetStringSlice("block")
		if err != nil {
			return err
		}
		c.Block = block
	}
	return nil
}

func (c *Config) validate() error {
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return fmt.Errorf("listen %q: %w", c.Listen, err)
		}
	}
	if c.Debug.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Debug.Listen); err != nil {
			return fmt.Errorf("debug.listen %q: %w", c.Debug.Listen, err)
		}
		if c.Debug.Listen == c.Listen {
			return errors.New("debug.listen must differ from listen")
		}
	}

	if c.Upstream != "" {
		u, err := url.Parse(c.Upstream)
		if err != nil {
			return fmt.Errorf("upstream is not a valid URL: %w", err)
		}
		if u.Scheme == "" {
			return fmt.Errorf("upstream must include a scheme; got %q", u.Redacted())
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	return nil
}

// setDefaults fills zero-valued fields.
func (c *Config) setDefaults() {
	if c.Listen == "" {
		c.Listen = ":8888"
	}
	if c.Upstream == "" {
		c.Upstream = defaultUpstream()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// BlocklistEntries merges the configured sources in match order: file
// domains, --block entries, then the blocklist file. When all of them are
// empty the default list is returned.
func (c *Config) BlocklistEntries() ([]string, error) {
	entries := append([]string(nil), c.Blocklist.Domains...)
	entries = append(entries, c.Block...)

	if c.Blocklist.File != "" {
		f, err := os.Open(c.Blocklist.File)
		if err != nil {
			return nil, fmt.Errorf("blocklist file: %w", err)
		}
		defer f.Close()

		fromFile, err := proxy.ReadBlocklist(f)
		if err != nil {
			return nil, fmt.Errorf("blocklist file %s: %w", c.Blocklist.File, err)
		}
		entries = append(entries, fromFile...)
	}

	if len(proxy.NewBlocklist(entries...).Entries()) == 0 {
		return append([]string(nil), proxy.DefaultBlocklist...), nil
	}
	return entries, nil
}

// WarnPermissions logs a warning if the config file is readable by group
// or others, since the upstream URL may carry credentials.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 && strings.Contains(c.Upstream, "@") {
		logger.Warn("config file with upstream credentials is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

// FilePath returns the config file that was loaded, or "" if none was.
func (c *Config) FilePath() string {
	return c.filePath
}

func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}
	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}
	return "direct://"
}
