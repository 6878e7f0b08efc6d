package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultConfigFile is read from the working directory when present
const DefaultConfigFile = "include-cycles.toml"

// EnvPrefix prefixes environment overrides (e.g. INCLUDE_CYCLES_ROOT)
const EnvPrefix = "INCLUDE_CYCLES_"

// Resolver match modes
const (
	MatchBasename = "basename"
	MatchPath     = "path"
)

// Unresolved include policies
const (
	ExternalDrop = "drop"
	ExternalKeep = "keep"
)

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all configuration for the application
type Config struct {
	Root          string   `koanf:"root"`
	FileTypes     []string `koanf:"types"`
	ExcludeDirs   []string `koanf:"exclude"`
	Match         string   `koanf:"match"`
	External      string   `koanf:"external"`
	SystemHeaders []string `koanf:"system_headers"`
	Workers       int      `koanf:"workers"`
	Format        string   `koanf:"format"`
	FailOnCycles  bool     `koanf:"fail_on_cycles"`
	Serve         bool     `koanf:"serve"`
	Port          int      `koanf:"port"`
	Watch         bool     `koanf:"watch"`
	Verbosity     string   `koanf:"verbosity"`
	VerboseCnt    int      `koanf:"verbose"`
	LogJSON       bool     `koanf:"log_json"`
}

// DefaultFileTypes are the C/C++ source and header patterns scanned by default
var DefaultFileTypes = []string{"*.c", "*.cc", "*.cpp", "*.cxx", "*.h", "*.hh", "*.hpp", "*.hxx"}

// DefaultExcludeDirs are substrings that drop a path from discovery
var DefaultExcludeDirs = []string{"build", "test"}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"root":           ".",
		"types":          append([]string(nil), DefaultFileTypes...),
		"exclude":        append([]string(nil), DefaultExcludeDirs...),
		"match":          MatchBasename,
		"external":       ExternalDrop,
		"system_headers": []string{},
		"workers":        runtime.NumCPU(),
		"format":         FormatText,
		"fail_on_cycles": false,
		"serve":          false,
		"port":           8080,
		"watch":          false,
		"verbosity":      "",
		"verbose":        0,
		"log_json":       false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(f, DefaultConfigFile, true)
}

// LoadFile is Load with an explicit config file path. A missing file is an
// error only when optional is false; a malformed one always is.
func LoadFile(f *pflag.FlagSet, path string, optional bool) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path != "" {
		err := k.Load(file.Provider(path), toml.Parser())
		if err != nil && !(optional && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment variables, lists are comma separated
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	for _, key := range []string{"types", "exclude", "system_headers"} {
		if s, ok := k.Get(key).(string); ok {
			_ = k.Set(key, splitList(s))
		}
	}

	// 4. Flags, dashed flag names map onto underscored keys
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			if fl.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the analysis cannot run with
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	if len(c.FileTypes) == 0 {
		return fmt.Errorf("at least one file type pattern is required")
	}
	switch c.Match {
	case MatchBasename, MatchPath:
	default:
		return fmt.Errorf("unknown match mode %q (want %s or %s)", c.Match, MatchBasename, MatchPath)
	}
	switch c.External {
	case ExternalDrop, ExternalKeep:
	default:
		return fmt.Errorf("unknown external policy %q (want %s or %s)", c.External, ExternalDrop, ExternalKeep)
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatText, FormatJSON)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Serve && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
