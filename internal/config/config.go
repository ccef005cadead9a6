package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Regulators RegulatorsConfig `mapstructure:"regulators"`
	Platform   PlatformConfig   `mapstructure:"platform"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RegulatorsConfig struct {
	ConfigFile      string        `mapstructure:"config_file"`
	SearchPaths     []string      `mapstructure:"search_paths"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	BusTimeout      time.Duration `mapstructure:"bus_timeout"`
}

// PlatformConfig backs the presence/power-state/VPD services. On a full BMC
// stack these values come from the inventory service; here they are supplied
// by the platform integrator.
type PlatformConfig struct {
	PowerStateFile string            `mapstructure:"power_state_file"`
	Presence       map[string]bool   `mapstructure:"presence"`
	VPD            map[string]string `mapstructure:"vpd"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("regulators.config_file", "regulators.json")
	viper.SetDefault("regulators.search_paths", []string{"/etc/phosphor-power", "configs"})
	viper.SetDefault("regulators.monitor_interval", "1s")
	viper.SetDefault("regulators.bus_timeout", "100ms")
	viper.SetDefault("platform.power_state_file", "/run/phosphor-power/pgood")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PHOSPHOR")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
