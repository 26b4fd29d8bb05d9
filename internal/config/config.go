package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	AuthConfig
	PagingConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetDatabasePath() string
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetServerAddr() string
}

type mainConfig struct {
	EnvVars
}

// New returns the configuration built from defaults and the environment.
func New() (Config, error) {
	return Load("")
}

// Load layers configuration as defaults < YAML file at path (optional) < POKEDEX_* environment.
func Load(path string) (Config, error) {
	vars := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&vars); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := vars.validate(); err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}
