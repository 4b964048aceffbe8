// Package config loads imagerank settings from defaults, an optional YAML
// file and IMAGERANK_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"imagerank/utils"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is looked up in the working directory
	DefaultConfigFile = "imagerank.yaml"
	// DefaultLogFile is used when debug is enabled without a log file
	DefaultLogFile = "imagerank.log"

	envConfig         = "IMAGERANK_CONFIG"
	envDebug          = "IMAGERANK_DEBUG"
	envLogFile        = "IMAGERANK_LOGFILE"
	envDatabase       = "IMAGERANK_DATABASE"
	envSkipUnreadable = "IMAGERANK_SKIP_UNREADABLE"
	envUserAgent      = "IMAGERANK_USER_AGENT"
)

// Config holds settings shared by all commands
type Config struct {
	Debug          bool   `yaml:"debug"`
	LogFile        string `yaml:"log_file"`
	DatabasePath   string `yaml:"database"`
	SkipUnreadable bool   `yaml:"skip_unreadable"`
	MaxDistance    int    `yaml:"max_distance"`
	MatchLimit     int    `yaml:"match_limit"`
	// UserAgent identifies cover art downloads to MusicBrainz
	UserAgent string `yaml:"user_agent"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		LogFile:      DefaultLogFile,
		DatabasePath: utils.GetDefaultDatabasePath(),
		MaxDistance:  64,
		MatchLimit:   5,
	}
}

// Load reads the config file named by IMAGERANK_CONFIG, or imagerank.yaml
// when present, and applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	path := os.Getenv(envConfig)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envDebug); ok {
		b, err := parseBool(envDebug, v)
		if err != nil {
			return err
		}
		c.Debug = b
	}
	if v, ok := lookup(envSkipUnreadable); ok {
		b, err := parseBool(envSkipUnreadable, v)
		if err != nil {
			return err
		}
		c.SkipUnreadable = b
	}
	if v, ok := lookup(envLogFile); ok && v != "" {
		c.LogFile = v
	}
	if v, ok := lookup(envDatabase); ok && v != "" {
		c.DatabasePath = v
	}
	if v, ok := lookup(envUserAgent); ok && v != "" {
		c.UserAgent = v
	}
	return nil
}

func parseBool(name, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: %w", value, name, err)
	}
	return b, nil
}
