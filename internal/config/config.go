// Package config loads preview settings from .twigpreview.yaml, an optional
// .env file and TWIGPREVIEW_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the document directory.
	FileName = ".twigpreview.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TWIGPREVIEW_"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid")

// Config holds preview settings.
type Config struct {
	Engine       string        `yaml:"engine"`
	Addr         string        `yaml:"addr"`
	Sanitize     bool          `yaml:"sanitize"`
	Helpers      []string      `yaml:"helpers"`
	Extensions   []string      `yaml:"extensions"`
	SnapshotName string        `yaml:"snapshot_name"`
	Debounce     time.Duration `yaml:"debounce"`
	Metrics      bool          `yaml:"metrics"`
	// Translations is a messages file backing the trans filter. Relative
	// paths resolve against the document directory.
	Translations string `yaml:"translations"`
	Locale       string `yaml:"locale"`
	// Globals are visible to every template, below include and caller data.
	Globals map[string]any `yaml:"globals"`
	Log          Log           `yaml:"log"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine:       "pongo2",
		Addr:         "127.0.0.1:7331",
		SnapshotName: "twig-preview-output.html",
		Debounce:     150 * time.Millisecond,
		Metrics:      true,
		Locale:       "en",
		Log:          Log{Level: "info", Format: "text"},
	}
}

// Load reads settings. path names an explicit config file; when empty,
// FileName is looked up in dir and skipped if absent. A .env file in dir is
// loaded into the process environment without overriding existing values.
func Load(path, dir string) (Config, error) {
	cfg := Default()

	if dir != "" {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	explicit := path != ""
	if !explicit && dir != "" {
		path = filepath.Join(dir, FileName)
	}
	if path != "" {
		if err := cfg.readFile(path, explicit); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(payload, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(EnvPrefix + key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get("ENGINE"); ok {
		c.Engine = v
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("SNAPSHOT_NAME"); ok {
		c.SnapshotName = v
	}
	if v, ok := get("HELPERS"); ok {
		c.Helpers = splitList(v)
	}
	if v, ok := get("EXTENSIONS"); ok {
		c.Extensions = splitList(v)
	}
	if v, ok := get("TRANSLATIONS"); ok {
		c.Translations = v
	}
	if v, ok := get("LOCALE"); ok {
		c.Locale = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := get("DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sDEBOUNCE: %w", EnvPrefix, err)
		}
		c.Debounce = d
	}
	for key, target := range map[string]*bool{"SANITIZE": &c.Sanitize, "METRICS": &c.Metrics} {
		v, ok := get(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*target = b
	}
	return nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch strings.ToLower(c.Engine) {
	case "pongo2", "gonja":
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalid, c.Engine)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Translations != "" && strings.TrimSpace(c.Locale) == "" {
		return fmt.Errorf("%w: translations need a locale", ErrInvalid)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: negative debounce", ErrInvalid)
	}
	return nil
}

// Logger builds a slog logger writing to w.
func (l Log) Logger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l Log) level() (slog.Level, error) {
	var level slog.Level
	raw := strings.TrimSpace(l.Level)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
