// Package secrets resolves credentials from pluggable backends so that
// graph and workflow passwords never have to live in config files.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Well-known secret keys.
const (
	KeyGraphPassword = "graph_password"
	KeyGraphUsername = "graph_username"
	KeyTemporalToken = "temporal_token"
)

// Provider is a single secret backend.
type Provider interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a secret. Not all providers support writes.
	Set(ctx context.Context, key, value string) error
	// Name identifies the backend.
	Name() string
}

// Config selects and configures the backend.
type Config struct {
	// Provider is one of "env", "file", "vault". Empty means env.
	Provider string `mapstructure:"provider"`
	// EnvPrefix applies to the env provider. Default "PUBSCOPE_".
	EnvPrefix string `mapstructure:"env_prefix"`
	// Path is the secrets file for the file provider.
	Path string `mapstructure:"path"`
	// Vault configures the HashiCorp Vault provider.
	Vault VaultConfig `mapstructure:"vault"`
}

// Manager resolves secrets from a primary provider with an environment
// fallback, caching resolved values for the process lifetime.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds a manager for the configured backend. The env
// provider always serves as fallback.
func NewManager(cfg Config) (*Manager, error) {
	var primary Provider
	var err error

	switch cfg.Provider {
	case "vault":
		primary, err = NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("vault provider: %w", err)
		}
	case "file":
		primary, err = NewFileProvider(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("file provider: %w", err)
		}
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get resolves a secret, trying the primary backend first and the
// environment second.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	if val, err := m.primary.Get(ctx, key); err == nil && val != "" {
		m.store(key, val)
		return val, nil
	}
	if val, err := m.fallback.Get(ctx, key); err == nil && val != "" {
		m.store(key, val)
		return val, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// GetOrDefault resolves a secret or falls back to def.
func (m *Manager) GetOrDefault(ctx context.Context, key, def string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return def
	}
	return val
}

// Set writes a secret to the primary backend.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	if err := m.primary.Set(ctx, key, value); err != nil {
		return err
	}
	m.store(key, value)
	return nil
}

func (m *Manager) store(key, value string) {
	m.mu.Lock()
	m.cache[key] = value
	m.mu.Unlock()
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-backed provider. An empty
// prefix defaults to "PUBSCOPE_".
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "PUBSCOPE_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("env var not set: %s", envKey)
}

func (p *EnvProvider) Set(ctx context.Context, key, value string) error {
	return os.Setenv(p.prefix+strings.ToUpper(key), value)
}
