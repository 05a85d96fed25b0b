package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"
)

// Environment selects which Tessera deployment the CLI talks to. It is a
// closed set: tokens and endpoints never cross environments, so free-form
// values are rejected at the boundary.
type Environment string

const (
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvStaging, EnvProduction:
		return Environment(s), nil
	case "":
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q (must be one of: staging, production)", s)
	}
}

type Config struct {
	Version            string              `yaml:"version"`
	CurrentEnvironment string              `yaml:"current-environment,omitempty"`
	Environments       []EnvironmentConfig `yaml:"environments,omitempty"`
	Settings           Settings            `yaml:"settings,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
	Account      string `yaml:"account,omitempty"`
}

// EnvironmentConfig overrides the built-in endpoints for one environment.
// Fields left empty fall back to the compiled-in defaults.
type EnvironmentConfig struct {
	Name      string   `yaml:"name"`
	APIURL    string   `yaml:"api-url,omitempty"`
	Authority string   `yaml:"authority,omitempty"`
	AuthURL   string   `yaml:"auth-url,omitempty"`
	TokenURL  string   `yaml:"token-url,omitempty"`
	ClientID  string   `yaml:"client-id,omitempty"`
	Audience  string   `yaml:"audience,omitempty"`
	Scopes    []string `yaml:"scopes,omitempty"`
	CAFile    string   `yaml:"ca-file,omitempty"`
}

// Endpoints is the fully resolved connection profile for one environment.
type Endpoints struct {
	Environment Environment
	APIURL      string
	Authority   string
	// AuthURL/TokenURL pin the OAuth endpoints directly; when set, OIDC
	// discovery against Authority is skipped.
	AuthURL  string
	TokenURL string
	ClientID string
	Audience string
	Scopes   []string
	CAFile   string
}

var builtinEndpoints = map[Environment]Endpoints{
	EnvProduction: {
		Environment: EnvProduction,
		APIURL:      "https://api.tessera.bio",
		Authority:   "https://auth.tessera.bio",
		ClientID:    "tessctl",
		Audience:    "https://api.tessera.bio",
		Scopes:      []string{"openid", "profile", "email", "offline_access"},
	},
	EnvStaging: {
		Environment: EnvStaging,
		APIURL:      "https://api.staging.tessera.bio",
		Authority:   "https://auth.staging.tessera.bio",
		ClientID:    "tessctl",
		Audience:    "https://api.staging.tessera.bio",
		Scopes:      []string{"openid", "profile", "email", "offline_access"},
	},
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "table",
			TokenStorage: "auto",
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// CurrentEnvironmentOrDefault resolves the active environment from the
// config, validating it against the closed set.
func (c *Config) CurrentEnvironmentOrDefault() (Environment, error) {
	return ParseEnvironment(c.CurrentEnvironment)
}

// ResolveEndpoints merges the built-in endpoints for env with any overrides
// from the config file.
func (c *Config) ResolveEndpoints(env Environment) (Endpoints, error) {
	ep, ok := builtinEndpoints[env]
	if !ok {
		return Endpoints{}, fmt.Errorf("unknown environment %q", env)
	}
	for i := range c.Environments {
		if c.Environments[i].Name != string(env) {
			continue
		}
		o := c.Environments[i]
		if o.APIURL != "" {
			ep.APIURL = o.APIURL
		}
		if o.Authority != "" {
			ep.Authority = o.Authority
		}
		if o.AuthURL != "" {
			ep.AuthURL = o.AuthURL
		}
		if o.TokenURL != "" {
			ep.TokenURL = o.TokenURL
		}
		if o.ClientID != "" {
			ep.ClientID = o.ClientID
		}
		if o.Audience != "" {
			ep.Audience = o.Audience
		}
		if len(o.Scopes) > 0 {
			ep.Scopes = o.Scopes
		}
		if o.CAFile != "" {
			ep.CAFile = o.CAFile
		}
		break
	}
	return ep, nil
}

// Account returns the configured account identifier, defaulting to
// "default". It scopes the credential storage key alongside the environment.
func (c *Config) Account() string {
	if c.Settings.Account != "" {
		return c.Settings.Account
	}
	return "default"
}
