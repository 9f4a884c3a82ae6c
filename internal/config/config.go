// Package config loads the portal configuration file and exposes it through
// a concurrency-safe store with explicit change subscribers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML configuration.
type File struct {
	HTTPPort   int    `yaml:"http_port"`
	WSPort     int    `yaml:"ws_port"`
	AuthToken  string `yaml:"auth_token"`
	AuthNeeded bool   `yaml:"auth_enabled"`

	ReverseURL     string `yaml:"reverse_url"`
	ReverseEnabled bool   `yaml:"reverse_enabled"`

	OverlayOffset int `yaml:"overlay_offset"`

	// Enabled tool names for tools/list filtering. Empty means all.
	EnabledTools []string `yaml:"enabled_tools"`

	WaitInterval time.Duration `yaml:"wait_interval"`
	WaitMax      time.Duration `yaml:"wait_max"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ADBSerial string `yaml:"adb_serial"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() File {
	return File{
		HTTPPort:     8080,
		WSPort:       8081,
		WaitInterval: 200 * time.Millisecond,
		WaitMax:      10 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads a YAML config file, layering it over Defaults. A missing path
// returns the defaults without error; a malformed file is an error.
func Load(path string) (File, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = 200 * time.Millisecond
	}
	if cfg.WaitMax <= 0 {
		cfg.WaitMax = 10 * time.Second
	}
	return cfg, nil
}
