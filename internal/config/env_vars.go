package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EnvVars holds every setting. Fields are read from a YAML file and from POKEDEX_* variables.
type EnvVars struct {
	AppName        string        `yaml:"app_name" env:"POKEDEX_APP_NAME"`
	Env            string        `yaml:"env" env:"POKEDEX_ENV"`
	LogLevel       string        `yaml:"log_level" env:"POKEDEX_LOG_LEVEL"`
	DataFolder     string        `yaml:"data_folder" env:"POKEDEX_DATA_FOLDER"`
	DatabaseFile   string        `yaml:"database_file" env:"POKEDEX_DATABASE_FILE"`
	APIBaseURL     string        `yaml:"api_base_url" env:"POKEDEX_API_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"POKEDEX_REQUEST_TIMEOUT"`
	ServerAddr     string        `yaml:"server_addr" env:"POKEDEX_SERVER_ADDR"`

	Auth   Auth   `yaml:"auth" envPrefix:"POKEDEX_AUTH_"`
	Paging Paging `yaml:"paging" envPrefix:"POKEDEX_PAGING_"`
}

var _ EnvConfig = EnvVars{}

func defaults() EnvVars {
	return EnvVars{
		AppName:        "Pokedex",
		Env:            "DEV",
		LogLevel:       "info",
		DataFolder:     "./data",
		DatabaseFile:   "pokedex.db",
		APIBaseURL:     "https://pokeapi.co/api/v2/",
		RequestTimeout: 30 * time.Second,
		ServerAddr:     ":8080",
		Auth:           defaultAuth(),
		Paging:         defaultPaging(),
	}
}

func (e EnvVars) validate() error {
	if strings.TrimSpace(e.APIBaseURL) == "" {
		return fmt.Errorf("api base url is required")
	}
	if e.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", e.RequestTimeout)
	}
	if err := e.Auth.validate(); err != nil {
		return err
	}
	return e.Paging.validate()
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

// GetDatabasePath returns the SQLite file path, relative files are placed in the data folder
func (e EnvVars) GetDatabasePath() string {
	if e.DatabaseFile == ":memory:" || filepath.IsAbs(e.DatabaseFile) {
		return e.DatabaseFile
	}
	return filepath.Join(e.DataFolder, e.DatabaseFile)
}

// GetAPIBaseURL returns the list/detail API root, always with a trailing slash
func (e EnvVars) GetAPIBaseURL() string {
	if strings.HasSuffix(e.APIBaseURL, "/") {
		return e.APIBaseURL
	}
	return e.APIBaseURL + "/"
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	return e.RequestTimeout
}

func (e EnvVars) GetServerAddr() string {
	addr := e.ServerAddr
	if addr != "" && addr[0] != ':' && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	return addr
}
