package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds application level configuration. Values come from
// environment variables, optionally overridden by a config.yaml next to
// the binary or under /etc/dialdesk/.
type Config struct {
	ServerPort   int    `mapstructure:"SERVER_PORT"`
	RealtimePort int    `mapstructure:"REALTIME_PORT"`
	MySQLDSN     string `mapstructure:"MYSQL_DSN"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisDB      int    `mapstructure:"REDIS_DB"`
	RedisPass    string `mapstructure:"REDIS_PASSWORD"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
}

// Load builds Config from environment with sensible defaults.
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("REALTIME_PORT", 8081)
	viper.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/dialdesk?charset=utf8mb4&parseTime=True&loc=Local")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_SECRET", "change-me")

	viper.AutomaticEnv()

	viper.BindEnv("REDIS_PASSWORD")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/dialdesk/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
