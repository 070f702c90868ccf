package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	// DSN is optional: without it the service runs with live delivery only,
	// no history.
	DSN string `yaml:"dsn"`
}

type Auth struct {
	PublicKeyPath string `yaml:"publicKeyPath"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	ClockSkew     string `yaml:"clockSkew"` // duration, e.g. 30s
}

type WS struct {
	PingInterval   string `yaml:"pingInterval"` // duration, e.g. 15s
	TypingTTL      string `yaml:"typingTTL"`    // duration, e.g. 10s
	SendBuffer     int    `yaml:"sendBuffer"`
	MaxMessageSize int64  `yaml:"maxMessageSize"`
	MaxBody        int    `yaml:"maxBody"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	WS       WS       `yaml:"ws"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return errors.New("auth.publicKeyPath is required")
	}
	// defaults for the optional knobs
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func (c *Auth) ClockSkewOr(def time.Duration) time.Duration {
	return parseDurationOr(def, c.ClockSkew)
}

func (c *WS) PingIntervalOr(def time.Duration) time.Duration {
	return parseDurationOr(def, c.PingInterval)
}

func (c *WS) TypingTTLOr(def time.Duration) time.Duration {
	return parseDurationOr(def, c.TypingTTL)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
