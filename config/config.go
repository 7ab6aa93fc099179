// Copyright © 2026 kittygfx contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Loads and saves kittygfx's cache budgets and per-file/per-image limits.

// Package config loads kittygfx's cache budgets and limits from
// ~/.config/kittygfx/config.json, following the same Default/Load/Save
// shape as a conventional terminal-multiplexer config loader: missing files
// fall back to defaults with a logged warning rather than an error.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// Config holds the cache budgets and upload limits enforced by kittygfx.
type Config struct {
	// MaxImages, MaxPlacements, MaxDiskBytes, MaxRAMBytes are the four
	// independent eviction budgets.
	MaxImages     int   `json:"maxImages"`
	MaxPlacements int   `json:"maxPlacements"`
	MaxDiskBytes  int64 `json:"maxDiskBytes"`
	MaxRAMBytes   int64 `json:"maxRamBytes"`

	// ToleranceRatio T: enforcement triggers above budget*(1+T).
	ToleranceRatio float64 `json:"toleranceRatio"`

	// PerImageRAMLimit bounds a single decoded frame or pixmap.
	PerImageRAMLimit int64 `json:"perImageRamLimit"`

	// PerFileUploadLimit bounds a single file-transmission (t=f|t=t) source file
	// and a single direct-upload's total bytes.
	PerFileUploadLimit int64 `json:"perFileUploadLimit"`

	// CacheDirTemplate is the mkdtemp-style template for the process-scoped
	// cache directory.
	CacheDirTemplate string `json:"cacheDirTemplate"`
}

// Default returns kittygfx's built-in budgets.
func Default() *Config {
	return &Config{
		MaxImages:          400,
		MaxPlacements:       400,
		MaxDiskBytes:        320 * 1024 * 1024,
		MaxRAMBytes:         320 * 1024 * 1024,
		ToleranceRatio:      0.05,
		PerImageRAMLimit:    4 * 1024 * 1024 * 1024,
		PerFileUploadLimit:  4 * 1024 * 1024 * 1024,
		CacheDirTemplate:    "kitty-gfx-*",
	}
}

// Load loads configuration from ~/.config/kittygfx/config.json. If the file
// doesn't exist, returns defaults with no error, the way a host's own config
// loader treats a missing file as "first run," not a failure.
func Load() (*Config, error) {
	cfg := Default()

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("kittygfx: config: failed to get user config dir: %v", err)
		return cfg, nil
	}

	configPath := filepath.Join(configDir, "kittygfx", "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("kittygfx: config: no config file at %s, using defaults", configPath)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	log.Printf("kittygfx: config: loaded from %s", configPath)
	return cfg, nil
}

// Save writes the configuration to ~/.config/kittygfx/config.json.
func (c *Config) Save() error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(configDir, "kittygfx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
