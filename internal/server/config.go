package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's YAML configuration.
type Config struct {
	Addr      string `yaml:"addr"`
	AppName   string `yaml:"app_name"`
	StaticDir string `yaml:"static_dir"`
	Storage   struct {
		Backend  string `yaml:"backend"` // "memory" | "neo4j"
		Snapshot string `yaml:"snapshot"`
		Neo4j    struct {
			URI      string `yaml:"uri"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"neo4j"`
	} `yaml:"storage"`
}

func defaultConfig() Config {
	var c Config
	c.Addr = ":8000"
	c.AppName = "app"
	c.Storage.Backend = "memory"
	c.Storage.Neo4j.URI = "neo4j://localhost:7687"
	c.Storage.Neo4j.Username = "neo4j"
	return c
}

// LoadConfig reads a YAML config file; an empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	switch cfg.Storage.Backend {
	case "", "memory", "neo4j":
	default:
		return cfg, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return cfg, nil
}
