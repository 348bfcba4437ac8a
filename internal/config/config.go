// config loads the optional YAML settings file of the command line tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/anas-shakeel/imgconv/internal/bmp"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Log    LogConfig    `yaml:"log"`
	Encode EncodeConfig `yaml:"encode"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"` // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"` // gzip rotated files
}

// EncodeConfig holds the informational header fields written into new bitmaps.
type EncodeConfig struct {
	XPelsPerMeter int32 `yaml:"x_pels_per_meter"`
	YPelsPerMeter int32 `yaml:"y_pels_per_meter"`
}

// Read when no --config is given. It may be absent.
const DefaultPath = "imgconv.yaml"

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Encode: EncodeConfig{
			XPelsPerMeter: bmp.DefaultPelsPerMeter,
			YPelsPerMeter: bmp.DefaultPelsPerMeter,
		},
	}
}

// Load reads path over the defaults. An empty path falls back to
// DefaultPath, which is allowed to be missing; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration file '%s': %w", path, err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}
	return cfg, nil
}
