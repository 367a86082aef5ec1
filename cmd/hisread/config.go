package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the hisread configuration file (~/.config/hisread/config.yaml).
// Numeric fields are pointers so "not set" differs from zero.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Stack access
	StacksDir  string `yaml:"stacks_dir"`
	QuickStep  *int   `yaml:"quick_step"`
	VerifyMode string `yaml:"verify_mode"`

	// Output
	PreviewScale *float64 `yaml:"preview_scale"`
	ReduceCount  *int     `yaml:"reduce_count"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hisread", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config
// and no error.
func LoadConfig() (Config, error) {
	path := configPath()
	if path == "" {
		return Config{}, nil
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyStackConfig applies config file defaults to the common stack flags
// when they were not set on the command line.
func applyStackConfig(c *cli.Command, cfg Config) {
	if cfg.StacksDir != "" && !c.IsSet("stacks-path") {
		stacksPath = cfg.StacksDir
	}
	if cfg.QuickStep != nil && !c.IsSet("quick-step") {
		quickStep = *cfg.QuickStep
	}
	if cfg.VerifyMode != "" && !c.IsSet("verify") {
		verifyMode = cfg.VerifyMode
	}
}

func applyPreviewConfig(c *cli.Command, cfg Config, scale *float64) {
	if cfg.PreviewScale != nil && !c.IsSet("scale") {
		*scale = *cfg.PreviewScale
	}
}

func applyReduceConfig(c *cli.Command, cfg Config, count *int) {
	if cfg.ReduceCount != nil && !c.IsSet("count") {
		*count = *cfg.ReduceCount
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
