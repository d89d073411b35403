package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. IRONDB_LOG_LEVEL.
	EnvPrefix = "IRONDB_"
	// DefaultName is the configuration source the binaries read by default.
	DefaultName = "Cluster"
	// DefaultListenAddr is the default server host:port.
	DefaultListenAddr = "[::1]:50051"
)

// Config holds the node configuration.
type Config struct {
	// ListenAddr is the host:port the gRPC server binds and clients dial.
	ListenAddr string `yaml:"dflt_server_hostport"`
	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
	// WriterID is the vector clock writer id this process advances when it
	// resolves and writes values.
	WriterID uint16 `yaml:"writer_id"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no source sets a value.
func Default() Config {
	return Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// Load reads the named configuration source and applies environment
// overrides. The source is looked up as name.yaml, name.yml, then name; a
// missing source is not an error.
func Load(name string) (*Config, error) {
	cfg := Default()

	if name != "" {
		data, path, err := readSource(name)
		if err != nil {
			return nil, err
		}
		if data != nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readSource(name string) ([]byte, string, error) {
	for _, path := range []string{name + ".yaml", name + ".yml", name} {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return nil, "", nil
}

// applyEnv overrides fields from IRONDB_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "DFLT_SERVER_HOSTPORT"); ok {
		c.ListenAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ADDR"); ok {
		c.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPrefix + "WRITER_ID"); ok {
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
		if err != nil {
			return fmt.Errorf("invalid %sWRITER_ID %q: %w", EnvPrefix, v, err)
		}
		c.WriterID = uint16(id)
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.LogFormat = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks that addresses parse and the log format is known.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("dflt_server_hostport cannot be empty")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid dflt_server_hostport %q: %w", c.ListenAddr, err)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics_addr %q: %w", c.MetricsAddr, err)
		}
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log_format %q (expected json or console)", c.LogFormat)
	}
	return nil
}
