// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/cie/internal/errors"
)

const (
	defaultConfigDir  = ".cie"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config represents the .cie/project.yaml configuration file: which
// project's facts to query and which of the two backends to query them
// through.
type Config struct {
	Version   string        `yaml:"version"`
	ProjectID string        `yaml:"project_id"`
	Backend   BackendConfig `yaml:"backend"`
}

// BackendConfig selects and configures one of the two backend.Database
// implementations.
type BackendConfig struct {
	// Name is "cozodb" or "graphdb".
	Name string `yaml:"name"`

	// cozodb fields.
	DataDir string `yaml:"data_dir,omitempty"`
	Engine  string `yaml:"engine,omitempty"` // rocksdb, sqlite, or mem

	// graphdb fields.
	Endpoint  string `yaml:"endpoint,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	Database  string `yaml:"database,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
}

// DefaultConfig returns a config with sensible defaults for local
// development: the embedded cozodb backend backed by rocksdb under
// ~/.cie/data/<project_id>.
func DefaultConfig(projectID string) *Config {
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Backend: BackendConfig{
			Name:   "cozodb",
			Engine: "rocksdb",
		},
	}
}

// LoadConfig loads configuration from the specified path, or finds it by
// walking up from the working directory. An explicit configPath wins;
// CIE_CONFIG_PATH is used only when configPath is empty, and the directory
// walk only when both are empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CIE_CONFIG_PATH")
	}
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path comes from user config or discovery
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Check file permissions and ensure the file exists",
			err,
		)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError(
			"Invalid configuration format",
			"YAML parsing failed - the config file contains syntax errors",
			fmt.Sprintf("Edit %s to fix syntax errors, or run 'cie init --force' to recreate", configPath),
			err,
		)
	}

	if cfg.Version != configVersion {
		return nil, errors.NewConfigError(
			"Unsupported configuration version",
			fmt.Sprintf("Config version '%s' is not supported (expected '%s')", cfg.Version, configVersion),
			"Run 'cie init --force' to regenerate the configuration file",
			nil,
		)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent
// directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError(
			"Cannot encode configuration",
			"YAML marshaling failed unexpectedly",
			"This is a bug. Please report it with your configuration details",
			err,
		)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewPermissionError(
			"Cannot create configuration directory",
			fmt.Sprintf("Permission denied creating %s", dir),
			"Check directory permissions or run with appropriate privileges",
			err,
		)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.NewPermissionError(
			"Cannot write configuration file",
			fmt.Sprintf("Permission denied writing to %s", configPath),
			"Check file permissions and ensure sufficient disk space",
			err,
		)
	}
	return nil
}

// ConfigPath returns <dir>/.cie/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// ConfigDir returns <dir>/.cie.
func ConfigDir(dir string) string {
	return filepath.Join(dir, defaultConfigDir)
}

// findConfigFile walks up from the working directory looking for
// .cie/project.yaml.
func findConfigFile() (string, error) {
	if configPath := os.Getenv("CIE_CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		return "", errors.NewConfigError(
			"Configuration file not found",
			fmt.Sprintf("CIE_CONFIG_PATH is set to '%s' but the file does not exist", configPath),
			"Fix the CIE_CONFIG_PATH environment variable or run 'cie init' to create a config",
			nil,
		)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", errors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine current directory path",
			"Check system permissions and try again",
			err,
		)
	}

	for {
		configPath := ConfigPath(dir)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NewConfigError(
		"Configuration not found",
		"No .cie/project.yaml file found in current directory or any parent directory",
		"Run 'cie init' to create a new configuration",
		nil,
	)
}

// applyEnvOverrides lets CIE_PROJECT_ID, CIE_BACKEND, CIE_DATA_DIR, and
// CIE_GRAPHDB_ENDPOINT override file-based configuration without editing
// project.yaml.
func (c *Config) applyEnvOverrides() {
	if id := os.Getenv("CIE_PROJECT_ID"); id != "" {
		c.ProjectID = id
	}
	if name := os.Getenv("CIE_BACKEND"); name != "" {
		c.Backend.Name = name
	}
	if dir := os.Getenv("CIE_DATA_DIR"); dir != "" {
		c.Backend.DataDir = dir
	}
	if endpoint := os.Getenv("CIE_GRAPHDB_ENDPOINT"); endpoint != "" {
		c.Backend.Endpoint = endpoint
	}
}
