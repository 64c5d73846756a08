package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Checklist ChecklistConfig `yaml:"checklist"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Teleport  TeleportConfig  `yaml:"teleport"`
	Team      TeamConfig      `yaml:"team"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Transport   string `yaml:"transport"` // "stdio" or "http"
	AuthEnabled bool   `yaml:"auth_enabled"`
}

type StorageConfig struct {
	Backend      string `yaml:"backend"` // "file" or "sqlite"
	ProposalsDir string `yaml:"proposals_dir"`
	ManifestsDir string `yaml:"manifests_dir"`
	SQLitePath   string `yaml:"sqlite_path"`
}

type ChecklistConfig struct {
	Path string `yaml:"path"` // empty uses the embedded rule set
}

type SessionsConfig struct {
	Dir string `yaml:"dir"`
}

type TeleportConfig struct {
	TshPath    string   `yaml:"tsh_path"`
	ProxyAddr  string   `yaml:"proxy_addr"`
	Clusters   []string `yaml:"clusters"`
	AnsibleDir string   `yaml:"ansible_dir"`
}

type TeamConfig struct {
	Capability  string `yaml:"capability"` // "none" or "flux"
	FluxSSHUser string `yaml:"flux_ssh_user"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Transport: "stdio",
		},
		Storage: StorageConfig{
			Backend:      "file",
			ProposalsDir: "data/proposals",
			ManifestsDir: "data/manifests",
			SQLitePath:   "toolgate.db",
		},
		Sessions: SessionsConfig{
			Dir: "data/sessions",
		},
		Teleport: TeleportConfig{
			Clusters: []string{"staging", "production"},
		},
		Team: TeamConfig{
			Capability: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("TOOLGATE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TOOLGATE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TOOLGATE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOOLGATE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("TOOLGATE_TRANSPORT"); mode != "" {
		cfg.Server.Transport = mode
	}
	if authStr := os.Getenv("TOOLGATE_AUTH_ENABLED"); authStr != "" {
		enabled, err := strconv.ParseBool(authStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOOLGATE_AUTH_ENABLED: %w", err)
		}
		cfg.Server.AuthEnabled = enabled
	}
	if backend := os.Getenv("TOOLGATE_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dir := os.Getenv("TOOLGATE_PROPOSALS_DIR"); dir != "" {
		cfg.Storage.ProposalsDir = dir
	}
	if dir := os.Getenv("TOOLGATE_MANIFESTS_DIR"); dir != "" {
		cfg.Storage.ManifestsDir = dir
	}
	if path := os.Getenv("TOOLGATE_SQLITE_PATH"); path != "" {
		cfg.Storage.SQLitePath = path
	}
	if path := os.Getenv("TOOLGATE_CHECKLIST_PATH"); path != "" {
		cfg.Checklist.Path = path
	}
	if dir := os.Getenv("TOOLGATE_SESSIONS_DIR"); dir != "" {
		cfg.Sessions.Dir = dir
	}
	if path := os.Getenv("TOOLGATE_TSH_PATH"); path != "" {
		cfg.Teleport.TshPath = path
	}
	if addr := os.Getenv("TOOLGATE_PROXY_ADDR"); addr != "" {
		cfg.Teleport.ProxyAddr = addr
	}
	if clusters := os.Getenv("TOOLGATE_CLUSTERS"); clusters != "" {
		cfg.Teleport.Clusters = splitList(clusters)
	}
	if dir := os.Getenv("TOOLGATE_ANSIBLE_DIR"); dir != "" {
		cfg.Teleport.AnsibleDir = dir
	}
	if capability := os.Getenv("TOOLGATE_TEAM_CAPABILITY"); capability != "" {
		cfg.Team.Capability = capability
	}
	if user := os.Getenv("TOOLGATE_FLUX_SSH_USER"); user != "" {
		cfg.Team.FluxSSHUser = user
	}
	if level := os.Getenv("TOOLGATE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q, must be stdio or http", c.Server.Transport)
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q, must be file or sqlite", c.Storage.Backend)
	}
	switch c.Team.Capability {
	case "", "none", "flux":
	default:
		return fmt.Errorf("invalid team capability %q, must be none or flux", c.Team.Capability)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
