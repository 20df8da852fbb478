package server

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/wereliang/raftlog/pkg/xlog"
)

const (
	DefaultAddr            = "127.0.0.1:9500"
	DefaultShutdownTimeout = 5000 // 5s
	DefaultLogLevel        = "info"
)

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
	File  string `yaml:"file" json:"file"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr" json:"addr"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
}

type MemLogConfig struct {
	Floor   int64 `yaml:"floor" json:"floor"`     // initial compaction floor
	Metrics bool  `yaml:"metrics" json:"metrics"` // wrap the log with prometheus counters
}

type Config struct {
	Log    LogConfig    `yaml:"log" json:"log"`
	Server ServerConfig `yaml:"server" json:"server"`
	MemLog MemLogConfig `yaml:"memlog" json:"memlog"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: DefaultLogLevel},
		Server: ServerConfig{Addr: DefaultAddr, ShutdownTimeoutMs: DefaultShutdownTimeout},
		MemLog: MemLogConfig{Metrics: true},
	}
}

// LoadConfig reads a yaml file. A missing file yields the default config.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			xlog.Info("config file %s not found, using default config", path)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check fills zero values with defaults and validates the rest.
func (c *Config) Check() error {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeoutMs <= 0 {
		c.Server.ShutdownTimeoutMs = DefaultShutdownTimeout
	}
	if c.MemLog.Floor < 0 {
		return errors.Errorf("memlog floor %d is negative", c.MemLog.Floor)
	}
	xlog.Debug("config:%+v", *c)
	return nil
}

// ApplyLogging configures the global logger from the log section.
func (c *Config) ApplyLogging() error {
	lv, err := xlog.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	xlog.SetLogLevel(lv)
	xlog.SetJSON(c.Log.JSON)
	if c.Log.File != "" {
		return xlog.SetLogFile(c.Log.File)
	}
	return nil
}
