package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// fileConfig is the YAML layout of nexori-monitor.yaml.
type fileConfig struct {
	Server struct {
		URL         string   `yaml:"url"`
		APIURL      string   `yaml:"api_url"`
		DefaultRoom string   `yaml:"default_room"`
		Rooms       []string `yaml:"rooms"`
	} `yaml:"server"`

	Connection struct {
		HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
		ReadTimeout       time.Duration `yaml:"read_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
		AutoReconnect     *bool         `yaml:"auto_reconnect"`
		ReconnectInterval time.Duration `yaml:"reconnect_interval"`
		MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`
		MaxReconnectTries int           `yaml:"max_reconnect_tries"`
	} `yaml:"connection"`

	Alerts struct {
		DedupWindow time.Duration `yaml:"dedup_window"`
	} `yaml:"alerts"`

	Settings struct {
		Store     string `yaml:"store"` // memory, file, redis
		Dir       string `yaml:"dir"`
		RedisAddr string `yaml:"redis_addr"`
		RedisDB   int    `yaml:"redis_db"`
	} `yaml:"settings"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// credentials come from the environment only.
type credentials struct {
	Token         string
	Email         string
	Password      string
	RedisPassword string
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

func loadFileConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// flags and environment may be enough
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if v := os.Getenv("NEXORI_URL"); v != "" {
		fc.Server.URL = v
	}
	if v := os.Getenv("NEXORI_API_URL"); v != "" {
		fc.Server.APIURL = v
	}
	if fc.Settings.Store == "" {
		fc.Settings.Store = "memory"
	}
	if fc.Log.Level == "" {
		fc.Log.Level = "info"
	}
	return &fc, nil
}

func envCredentials() credentials {
	return credentials{
		Token:         os.Getenv("NEXORI_TOKEN"),
		Email:         os.Getenv("NEXORI_EMAIL"),
		Password:      os.Getenv("NEXORI_PASSWORD"),
		RedisPassword: os.Getenv("NEXORI_REDIS_PASSWORD"),
	}
}

// clientConfig overlays the file values on nexori.DefaultConfig.
func (fc *fileConfig) clientConfig() (nexori.Config, error) {
	cfg := nexori.DefaultConfig()
	if fc.Server.URL == "" {
		return cfg, nexori.NewError(nexori.ErrorInvalidConfig, "server.url is required")
	}
	cfg.URL = fc.Server.URL
	cfg.DefaultRoom = fc.Server.DefaultRoom

	c := fc.Connection
	if c.HandshakeTimeout > 0 {
		cfg.HandshakeTimeout = c.HandshakeTimeout
	}
	if c.ReadTimeout > 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		cfg.WriteTimeout = c.WriteTimeout
	}
	if c.AutoReconnect != nil {
		cfg.AutoReconnect = *c.AutoReconnect
	}
	if c.ReconnectInterval > 0 {
		cfg.ReconnectInterval = c.ReconnectInterval
	}
	if c.MaxReconnectDelay > 0 {
		cfg.MaxReconnectDelay = c.MaxReconnectDelay
	}
	if c.MaxReconnectTries > 0 {
		cfg.MaxReconnectTries = c.MaxReconnectTries
	}
	return cfg, nil
}
