package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "NATREAD_CONFIG"

// Config is the natread configuration file (~/.config/natread/config.yaml).
// Pointer fields distinguish "not set" from zero values. Sizes accept
// human forms such as "50MB" or "2GiB".
type Config struct {
	Product string `yaml:"product"`
	Workers *int   `yaml:"workers"`

	SplitThreshold string `yaml:"split_threshold"`
	SplitTemplate  string `yaml:"split_template"`
	ExportFormat   string `yaml:"export_format"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
	MaxUpload     string `yaml:"max_upload"`
}

func configPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "natread", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	for name, v := range map[string]string{"split_threshold": cfg.SplitThreshold, "max_upload": cfg.MaxUpload} {
		if v == "" {
			continue
		}
		if _, err := humanize.ParseBytes(v); err != nil {
			return Config{}, fmt.Errorf("config %s: %s: %w", path, name, err)
		}
	}
	return cfg, nil
}

// overlay returns the flag value unless the flag was left unset and the
// config supplies one.
func overlay(cmd *cli.Command, flag, fromConfig string) string {
	if fromConfig != "" && !cmd.IsSet(flag) {
		return fromConfig
	}
	return cmd.String(flag)
}

func (c Config) workers(cmd *cli.Command) int {
	if c.Workers != nil && !cmd.IsSet("workers") {
		return *c.Workers
	}
	return int(cmd.Int("workers"))
}

func parseSize(flag, v string) (int64, error) {
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", flag, err)
	}
	return int64(n), nil
}
