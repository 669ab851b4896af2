// Package topology loads the static overlay configuration document and
// exposes the immutable, validated topology model described in spec §3-4.1.
package topology

import (
	"fmt"

	"github.com/spf13/viper"
)

// RawNode is the on-disk shape of one entry in the "nodes" map.
type RawNode struct {
	HostGroup  int      `mapstructure:"host_group"`
	Port       int      `mapstructure:"port"`
	ConnectsTo []string `mapstructure:"connects_to"`
	DataRange  [2]int64 `mapstructure:"data_range"`
}

// RawConfig is the on-disk shape of the topology configuration document
// (spec §6). Field names mirror the teacher's internal/config/config.go
// mapstructure convention.
type RawConfig struct {
	Nodes           map[string]RawNode `mapstructure:"nodes"`
	Portal          string             `mapstructure:"portal"`
	SharedMemoryKey string             `mapstructure:"shared_memory_key"`
	CacheSize       int                `mapstructure:"cache_size"`
	CacheTTLSeconds int                `mapstructure:"cache_ttl_seconds"`
}

// LoadConfig reads the topology document from cfgFile (or the default
// search path when empty) the same way the teacher's config.Load does.
func LoadConfig(cfgFile string) (*RawConfig, error) {
	v := viper.New()

	v.SetDefault("cache_size", 256)
	v.SetDefault("cache_ttl_seconds", 30)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("topology")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read topology config: %w", err)
		}
	}

	cfg := &RawConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal topology config: %w", err)
	}

	return cfg, nil
}
