package models

import (
	"os"

	"gopkg.in/yaml.v2"
)

type CompressionConfig struct {
	// MaxDimension caps decoded images; anything larger is downscaled
	// proportionally before encoding.
	MaxDimension int `yaml:"max_dimension"`
	// JPEGQuality is used when a request does not carry its own quality.
	JPEGQuality int `yaml:"jpeg_quality"`
	// AllowedTypes is the validator allow-list. Empty means the default
	// list (jpeg, jpg, png, webp, tiff, bmp).
	AllowedTypes []string `yaml:"allowed_types"`
}

type Config struct {
	ServerAddr  string            `yaml:"server_addr"`
	DatabaseURL string            `yaml:"database_url"`
	KafkaBroker string            `yaml:"kafka_broker"`
	KafkaTopic  string            `yaml:"kafka_topic"`
	StoragePath string            `yaml:"storage_path"`
	Compression CompressionConfig `yaml:"compression"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Compression.MaxDimension <= 0 {
		cfg.Compression.MaxDimension = 8000
	}
	if cfg.Compression.JPEGQuality <= 0 {
		cfg.Compression.JPEGQuality = 60
	}
	return &cfg, nil
}
