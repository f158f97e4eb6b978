package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// maxKeyLen bounds the shared key length; longer keys are truncated at load
// time without touching the rest of the record.
const maxKeyLen = 256

// defaultPoolSize is the connection-slot bound used when the config does not
// set one.
const defaultPoolSize = 64

// ServerEntry defines one upstream relay as written in the config file.
type ServerEntry struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
	Key     string `yaml:"key"`
}

// RedirEntry is the local endpoint the packet filter diverts connections to.
type RedirEntry struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

// Config is the top-level YAML configuration.
type Config struct {
	Redir    RedirEntry    `yaml:"redir"`
	Servers  []ServerEntry `yaml:"server"`
	PoolSize int           `yaml:"pool_size"`
	LogLevel string        `yaml:"log_level"`
}

// LoadConfig reads and validates the YAML configuration file, filling in
// defaults for every optional field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("config: at least one server entry is required")
	}

	for i, s := range cfg.Servers {
		if s.Address == "" {
			cfg.Servers[i].Address = "0.0.0.0"
		}
		if s.Port == "" {
			cfg.Servers[i].Port = "1205"
		} else if err := validatePort(s.Port); err != nil {
			return nil, fmt.Errorf("config: server[%d]: %w", i, err)
		}
		if s.Key == "" {
			return nil, fmt.Errorf("config: server[%d]: 'key' is required", i)
		}
		if len(s.Key) > maxKeyLen {
			cfg.Servers[i].Key = s.Key[:maxKeyLen]
		}
	}

	if cfg.Redir.Address == "" {
		cfg.Redir.Address = "127.0.0.1"
	}
	if cfg.Redir.Port == "" {
		cfg.Redir.Port = "1081"
	} else if err := validatePort(cfg.Redir.Port); err != nil {
		return nil, fmt.Errorf("config: redir: %w", err)
	}

	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaultPoolSize
	} else if cfg.PoolSize < 0 {
		return nil, fmt.Errorf("config: pool_size %d out of range", cfg.PoolSize)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "info", "debug":
	default:
		return nil, fmt.Errorf("config: unknown log_level %q", cfg.LogLevel)
	}

	return &cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid port %q", s)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", n)
	}
	return nil
}
