// File: cmd/sertee/config.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the command-line surface for YAML setups.
type fileConfig struct {
	Source  string   `yaml:"source"`
	Names   []string `yaml:"names"`
	BufSize int      `yaml:"bufsize"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}
