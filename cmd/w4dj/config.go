package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/slipstream/w4dj/library"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "config.yml"

type Config struct {
	LogLevel       string        `koanf:"log_level"`
	Source         string        `koanf:"source"`
	Destination    string        `koanf:"destination"`
	Mode           string        `koanf:"mode"`
	SizeThreshold  float64       `koanf:"size_threshold"`
	Workers        int           `koanf:"workers"`
	FallbackFormat string        `koanf:"fallback_format"`
	SaveCover      bool          `koanf:"save_cover"`
	SaveMetadata   bool          `koanf:"save_metadata"`
	LockTimeout    time.Duration `koanf:"lock_timeout"`

	// Files are containers given on the command line, decoded without
	// scanning.
	Files []string `koanf:"-"`
	// Version is set when only the version was asked for.
	Version bool `koanf:"-"`
}

var defaultConfig = map[string]interface{}{
	"log_level":       "info",
	"mode":            string(library.ModeDefault),
	"size_threshold":  0.1,
	"workers":         8,
	"fallback_format": "flac",
	"save_cover":      false,
	"save_metadata":   false,
	"lock_timeout":    "10s",
}

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("w4dj", pflag.ContinueOnError)
	f.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: w4dj [flags] [file.ncm...]\n\n")
		f.PrintDefaults()
	}

	f.StringP("config", "c", defaultConfigPath, "configuration file")
	f.Bool("version", false, "print the version and exit")
	f.String("log_level", "info", "log level (trace, debug, info, warn, error)")
	f.StringP("source", "s", "", "folder to sync from")
	f.StringP("destination", "d", "", "library folder to sync into")
	f.String("mode", string(library.ModeDefault), "comparison mode (default, legacy)")
	f.Float64("size_threshold", 0.1, "relative size difference that makes two songs different")
	f.IntP("workers", "j", 8, "songs processed in parallel")
	f.String("fallback_format", "flac", "extension used when a container has no usable metadata")
	f.Bool("save_cover", false, "write embedded covers next to decoded songs")
	f.Bool("save_metadata", false, "write metadata documents next to decoded songs")
	f.Duration("lock_timeout", 10*time.Second, "how long to wait for another run on the same destination")
	return f
}

// loadConfig layers defaults, the configuration file and the command line,
// in increasing order of precedence.
func loadConfig(args []string) (*Config, error) {
	f := newFlagSet()
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	var cfg Config
	if cfg.Version, _ = f.GetBool("version"); cfg.Version {
		return &cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultConfig, "."), nil); err != nil {
		return nil, fmt.Errorf("failed loading defaults: %w", err)
	}

	path, _ := f.GetString("config")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) || f.Changed("config") {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed loading command line: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshalling configuration: %w", err)
	}

	cfg.Files = f.Args()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Files) == 0 {
		if c.Source == "" || c.Destination == "" {
			return fmt.Errorf("both source and destination must be configured")
		}
	}

	if _, err := library.ParseMode(c.Mode); err != nil {
		return err
	}

	if c.SizeThreshold <= 0 || c.SizeThreshold > 1 {
		return fmt.Errorf("size_threshold must be above 0 and at most 1: %v", c.SizeThreshold)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}

	if c.FallbackFormat == "" {
		return fmt.Errorf("fallback_format cannot be empty")
	}

	return nil
}
