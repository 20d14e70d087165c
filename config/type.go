package config

import "time"

type Config struct {
	Port           int    `mapstructure:"port"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	StoreURL       string `mapstructure:"store_url"`
	StoreAPIKey    string `mapstructure:"store_api_key"`
	StoreTimeoutMS int    `mapstructure:"store_timeout_ms"`
	RedisURL       string `mapstructure:"redis_url"`
}

const defaultStoreTimeout = 5 * time.Second

// StoreTimeout returns the bounded timeout applied to store round-trips.
func (c Config) StoreTimeout() time.Duration {
	if c.StoreTimeoutMS <= 0 {
		return defaultStoreTimeout
	}
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}
