// Package config loads novacore's YAML configuration through viper, the
// way the teacher's internal.LoadConfig loads novasql.yaml, generalized
// from the teacher's Storage/Server shape to the buffer pool and page
// storage settings this engine actually has.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tuannm99/novasql-core/pkg/replacer"
)

// EngineConfig is novacore's full configuration surface.
type EngineConfig struct {
	Buffer struct {
		Capacity int    `mapstructure:"capacity"`
		Strategy string `mapstructure:"strategy"`
	} `mapstructure:"buffer"`
	Storage struct {
		Dir      string `mapstructure:"dir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`
}

// DefaultBufferCapacity and DefaultDataDir apply when a config file
// omits the corresponding key.
const (
	DefaultBufferCapacity = 64
	DefaultDataDir        = "./data"
)

// Load reads and unmarshals a YAML config file at path, applying
// defaults for any field it omits.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("buffer.capacity", DefaultBufferCapacity)
	v.SetDefault("buffer.strategy", "lru")
	v.SetDefault("storage.dir", DefaultDataDir)
	v.SetDefault("storage.page_size", 4096)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Policy resolves the configured strategy name into a replacer.Policy,
// defaulting to LRU on an empty or unrecognized value.
func (c *EngineConfig) Policy() replacer.Policy {
	p, ok := replacer.ParsePolicy(c.Buffer.Strategy)
	if !ok {
		return replacer.LRU
	}
	return p
}
