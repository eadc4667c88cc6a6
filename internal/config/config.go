// Package config loads hglc settings from ~/.hglc/config.yaml.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// ManifestConfig controls release provenance manifests.
type ManifestConfig struct {
	InputDir      string        `yaml:"input_dir"`
	ToolsDir      string        `yaml:"tools_dir"`
	ToolFiles     []string      `yaml:"tool_files"`
	PolicyScript  string        `yaml:"policy_script"`
	PolicyTimeout time.Duration `yaml:"policy_timeout"`
}

// Config holds all configurable hglc parameters.
type Config struct {
	// StrictMarkers rejects lines whose tag markers repeat, sit inside
	// another value, or appear out of order.
	StrictMarkers bool           `yaml:"strict_markers"`
	LedgerPath    string         `yaml:"ledger_path"`
	AuditLog      string         `yaml:"audit_log"`
	GRPCPort      int            `yaml:"grpc_port"`
	HTTPAddr      string         `yaml:"http_addr"`
	Watch         WatchConfig    `yaml:"watch"`
	Manifest      ManifestConfig `yaml:"manifest"`
}

// DefaultDir returns the hglc state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hglc")
	}
	return filepath.Join(home, ".hglc")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		LedgerPath: filepath.Join(dir, "ledger.db"),
		AuditLog:   filepath.Join(dir, "audit.jsonl"),
		GRPCPort:   50061,
		HTTPAddr:   ":8088",
		Watch: WatchConfig{
			Extensions: []string{".hgl"},
			Debounce:   200 * time.Millisecond,
		},
		Manifest: ManifestConfig{
			InputDir: "src",
			ToolsDir: "tools",
			ToolFiles: []string{
				"verify_and_eval.sh",
				"verify_and_eval.ps1",
				"generate-hashes.sh",
			},
			PolicyTimeout: 300 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.hglc/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw file.
// When no file exists the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashBytes(nil), nil
		}
		return nil, "", fmt.Errorf("config: read: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.GRPCPort < 0 || cfg.GRPCPort > 65535 {
		return nil, "", fmt.Errorf("config: grpc_port %d out of range", cfg.GRPCPort)
	}

	cfg.LedgerPath = ExpandPath(cfg.LedgerPath)
	cfg.AuditLog = ExpandPath(cfg.AuditLog)
	return cfg, hashBytes(data), nil
}

// ExpandPath replaces a leading ~ with the home directory and expands
// environment variables.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return os.ExpandEnv(p)
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
