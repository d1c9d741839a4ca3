package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultURL = "http://localhost:8188"

// config holds the file-backed defaults. Flags win over the file, the file
// wins over built-ins.
type config struct {
	URL        string `yaml:"url"`
	OutputDir  string `yaml:"output_dir"`
	OutputNode string `yaml:"output_node"`
}

// loadConfig reads --config, or $HOME/.comfygraph.yaml when unset. A missing
// default file is not an error.
func loadConfig() (*config, error) {
	path := flagConfig
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return &config{}, nil
		}
		path = filepath.Join(home, ".comfygraph.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// serverURL resolves the effective base URL from flag, config, and default.
func serverURL(cfg *config) string {
	if flagURL != "" {
		return flagURL
	}
	if cfg.URL != "" {
		return cfg.URL
	}
	return defaultURL
}
