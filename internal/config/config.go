package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBSource  string
	Port      string
	Env       string
	RedisAddr string
}

// Load reads configuration from the environment. DB_SOURCE is the only
// required setting; REDIS_ADDR is optional and enables the replay cache
// when set.
func Load() (*Config, error) {
	cfg := FromEnv()
	if cfg.DBSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}
	return cfg, nil
}

// FromEnv reads the environment without enforcing required settings. The
// dev server uses it to run without a database.
func FromEnv() *Config {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		DBSource:  os.Getenv("DB_SOURCE"),
		Port:      port,
		Env:       env,
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}
}

func (c *Config) Development() bool {
	return c.Env == "development"
}
