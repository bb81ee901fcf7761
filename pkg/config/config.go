// Package config loads optional user configuration from
// $XDG_CONFIG_HOME/kisstdlib/config.toml. Everything has a sensible
// default, so the file only carries overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/oxij/kisstdlib/pkg/atomicfs"
	"github.com/oxij/kisstdlib/pkg/describe"
	"github.com/oxij/kisstdlib/pkg/errors"
	"github.com/oxij/kisstdlib/pkg/logging"
)

var log = logging.GetLogger("config")

// FsyncConfig overrides the platform defaults of the commit engine.
// Unset fields keep the defaults.
type FsyncConfig struct {
	AfterRename *bool `toml:"after_rename"`
	SyncDirs    *bool `toml:"sync_dirs"`
}

// DescribeConfig carries the defaults for subtree descriptions.
type DescribeConfig struct {
	Modes         bool `toml:"modes"`
	Mtimes        bool `toml:"mtimes"`
	NoSizes       bool `toml:"no_sizes"`
	HashLength    int  `toml:"hash_length"`
	TimePrecision int  `toml:"time_precision"`
	Relative      bool `toml:"relative"`
}

// Config is the root of the user configuration.
type Config struct {
	Fsync    FsyncConfig    `toml:"fsync"`
	Describe DescribeConfig `toml:"describe"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{}
}

// Path returns the location of the user configuration file, whether or
// not it exists.
func Path() string {
	return filepath.Join(xdg.ConfigHome, "kisstdlib", "config.toml")
}

// Load reads the user configuration, falling back to defaults when the
// file is absent. Environment variables KISSTDLIB_FSYNC_AFTER_RENAME
// and KISSTDLIB_FSYNC_SYNC_DIRS override the file.
func Load() (*Config, error) {
	cfg := Default()

	path := Path()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Debug().Str("path", path).Msg("no user config")
	case err != nil:
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %q", path)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %q", path)
		}
		log.Debug().Str("path", path).Msg("loaded user config")
	}

	if v, ok := boolEnv("KISSTDLIB_FSYNC_AFTER_RENAME"); ok {
		cfg.Fsync.AfterRename = &v
	}
	if v, ok := boolEnv("KISSTDLIB_FSYNC_SYNC_DIRS"); ok {
		cfg.Fsync.SyncDirs = &v
	}
	return cfg, nil
}

func boolEnv(name string) (bool, bool) {
	s, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		log.Warn().Str("var", name).Str("value", s).Msg("ignoring non-boolean environment override")
		return false, false
	}
	return v, true
}

// Capabilities resolves the commit engine capabilities for this
// platform with the configured overrides applied.
func (c *Config) Capabilities() atomicfs.Capabilities {
	caps := atomicfs.DefaultCapabilities()
	if c.Fsync.AfterRename != nil {
		caps.SyncAfterRename = *c.Fsync.AfterRename
	}
	if c.Fsync.SyncDirs != nil {
		caps.CanSyncDir = *c.Fsync.SyncDirs
	}
	return caps
}

// DescribeOptions converts the configured describe defaults into
// walker options.
func (c *Config) DescribeOptions() describe.Options {
	opts := describe.DefaultOptions()
	opts.ShowMode = c.Describe.Modes
	opts.ShowMtime = c.Describe.Mtimes
	opts.ShowSize = !c.Describe.NoSizes
	opts.HashLen = c.Describe.HashLength
	opts.TimePrecision = c.Describe.TimePrecision
	opts.RelativeHardlinks = c.Describe.Relative
	return opts
}
