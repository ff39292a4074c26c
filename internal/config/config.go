package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TASKDOCK_SERVER_PORT.
const EnvPrefix = "TASKDOCK"

type Server struct {
	Port           int      `json:"port" mapstructure:"port"`
	DBPath         string   `json:"db_path" mapstructure:"db_path"`
	JWTSecret      string   `json:"jwt_secret" mapstructure:"jwt_secret"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

type Config struct {
	APIBaseURL     string `json:"api_base_url" mapstructure:"api_base_url"`
	StatePath      string `json:"state_path" mapstructure:"state_path"`
	LogPath        string `json:"log_path" mapstructure:"log_path"`
	LogLevel       string `json:"log_level" mapstructure:"log_level"`
	PageSize       int    `json:"page_size" mapstructure:"page_size"`
	RequestTimeout int    `json:"request_timeout" mapstructure:"request_timeout"`
	Server         Server `json:"server" mapstructure:"server"`
}

func Default() Config {
	return Config{
		APIBaseURL:     "http://localhost:5000/api",
		LogLevel:       "info",
		PageSize:       10,
		RequestTimeout: 30,
		Server: Server{
			Port:           5000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskdock", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads the JSON config at path on top of the defaults and applies
// TASKDOCK_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Resolve fills the path defaults that depend on where the config lives and
// generates a signing secret for the development server if none is set.
func (c *Config) Resolve(configPath string) error {
	dir := filepath.Dir(configPath)
	if c.StatePath == "" {
		c.StatePath = filepath.Join(dir, "state.db")
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(dir, "server.db")
	}
	if c.LogPath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = dir
		}
		c.LogPath = filepath.Join(cacheDir, "taskdock", "taskdock.log")
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.Server.JWTSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		c.Server.JWTSecret = hex.EncodeToString(secret)
	}
	return nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// SaveIfMissing writes cfg to path unless a file already exists there.
func SaveIfMissing(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return Save(path, cfg)
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api_base_url", d.APIBaseURL)
	v.SetDefault("state_path", d.StatePath)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
}
