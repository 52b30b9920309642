package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mama165/chatlab/internal/archive"
	"github.com/mama165/chatlab/internal/parse"
)

type Config struct {
	DBPath    string `toml:"db_path"`
	OutputDir string `toml:"output_dir"`
	Timezone  string `toml:"timezone"`
	BatchSize int    `toml:"batch_size"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:    filepath.Join(home, ".config", "chatlab", "chatlab.db"),
		OutputDir: archive.DefaultOutputDir(),
		Timezone:  "Local",
		BatchSize: parse.DefaultBatchSize,
	}

	cfgPath := filepath.Join(home, ".config", "chatlab", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.OutputDir = expandHome(cfg.OutputDir, home)
	return cfg, nil
}

// Location resolves the configured timezone. Day and hour bucketing in
// analytics depend on it, so it is an explicit configuration input
// rather than an environment implicit.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
