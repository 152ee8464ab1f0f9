package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the client settings loaded from config.yaml in the data
// directory. Flags override anything set here.
type Config struct {
	Identity string `yaml:"identity"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".river"
	}
	return filepath.Join(homeDir, ".river")
}

func defaultConfig() Config {
	return Config{
		DataDir:  defaultDataDir(),
		LogLevel: "info",
	}
}

// loadConfig reads config.yaml from dir. A missing file yields the defaults.
func loadConfig(dir string) (Config, error) {
	cfg := defaultConfig()
	if dir != "" {
		cfg.DataDir = dir
	}
	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "config.yaml"))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if dir != "" {
		cfg.DataDir = dir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
