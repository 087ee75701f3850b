package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var defaultPlatforms []byte

// PlatformConfig is the immutable per-platform setting block handed to an adapter.
type PlatformConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BaseURL          string        `yaml:"base_url"`
	UploadURL        string        `yaml:"upload_url"`
	APIVersion       string        `yaml:"api_version"`
	RateLimit        int           `yaml:"rate_limit"`
	RateLimitWindow  time.Duration `yaml:"rate_limit_window"`
	MaxLength        int           `yaml:"max_length"`
	TextOnlyFallback bool          `yaml:"text_only_fallback"`
	ChunkSize        int           `yaml:"chunk_size"`
	MaxMediaBytes    int64         `yaml:"max_media_bytes"`
}

// Platforms maps a platform name to its settings.
type Platforms map[string]PlatformConfig

// LoadPlatforms decodes the embedded defaults and, when path is set, lets the
// file at path replace individual platform entries.
func LoadPlatforms(path string) (Platforms, error) {
	platforms, err := ParsePlatforms(defaultPlatforms)
	if err != nil {
		return nil, fmt.Errorf("decode embedded platforms: %w", err)
	}

	if path == "" {
		return platforms, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	overrides, err := ParsePlatforms(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for name, pc := range overrides {
		platforms[name] = pc
	}

	return platforms, nil
}

// ParsePlatforms decodes and validates a platforms YAML document.
func ParsePlatforms(data []byte) (Platforms, error) {
	var platforms Platforms
	if err := yaml.Unmarshal(data, &platforms); err != nil {
		return nil, err
	}
	if platforms == nil {
		platforms = Platforms{}
	}

	for name, pc := range platforms {
		if err := pc.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return platforms, nil
}

func (pc PlatformConfig) Validate() error {
	if !pc.Enabled {
		return nil
	}
	if pc.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if pc.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative")
	}
	if pc.ChunkSize < 0 || pc.MaxMediaBytes < 0 {
		return fmt.Errorf("chunk_size and max_media_bytes must not be negative")
	}
	return nil
}
