package cli

import (
	"flag"
	"os"
	"strings"

	"go.uber.org/zap"
)

type Config struct {
	// Application flags
	Debug bool

	// Server flags
	ListenAddress string
	StaticDir     string

	// Identity provider flags
	Authority string
	ClientID  string
	JWKSURL   string
	CAFile    string

	// Platform API flags
	APIURL string
}

func Parse() *Config {
	config := &Config{}
	// Define command-line flags with environment variable fallbacks.
	// The pattern: flag.XxxVar(&variable, "flag-name", defaultValueOrEnvValue, "help text")
	flag.BoolVar(&config.Debug, "debug", getEnvBool("TESSERA_DEMO_DEBUG", false), "Enable debug level logging and permissive CORS")

	// Server configuration
	flag.StringVar(&config.ListenAddress, "listen-address", getEnvString("TESSERA_DEMO_LISTEN_ADDRESS", ":8080"),
		"The address the demo server binds to (host:port)")
	flag.StringVar(&config.StaticDir, "static-dir", getEnvString("TESSERA_DEMO_STATIC_DIR", "./frontend/dist"),
		"Directory containing the built front-end assets; empty disables static serving")

	// Identity provider configuration
	flag.StringVar(&config.Authority, "authority", getEnvString("TESSERA_DEMO_AUTHORITY", ""),
		"Issuer URL of the identity provider that mints platform tokens")
	flag.StringVar(&config.ClientID, "client-id", getEnvString("TESSERA_DEMO_CLIENT_ID", "tessera-demo"),
		"OAuth client ID the front-end uses for the authorization code flow")
	flag.StringVar(&config.JWKSURL, "jwks-url", getEnvString("TESSERA_DEMO_JWKS_URL", ""),
		"JWKS endpoint for token validation; derived from the authority when empty")
	flag.StringVar(&config.CAFile, "ca-file", getEnvString("TESSERA_DEMO_CA_FILE", ""),
		"Path to a PEM CA bundle for the identity provider and platform API")

	// Platform API configuration
	flag.StringVar(&config.APIURL, "api-url", getEnvString("TESSERA_DEMO_API_URL", ""),
		"Base URL of the Tessera platform API the demo proxies to")

	// Parse command-line flags and enable logging flag options
	flag.Parse()

	return config
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		// Debug and logging
		"debug", c.Debug,
		// Server configuration
		"listen_address", c.ListenAddress,
		"static_dir", c.StaticDir,
		// Identity provider configuration
		"authority", c.Authority,
		"client_id", c.ClientID,
		"jwks_url", c.ResolveJWKSURL(),
		"ca_file", c.CAFile,
		// Platform API configuration
		"api_url", c.APIURL,
	)
}

// ResolveJWKSURL returns the configured JWKS endpoint, falling back to the
// authority's conventional certs path when no explicit URL was given.
func (c *Config) ResolveJWKSURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	if c.Authority == "" {
		return ""
	}
	return strings.TrimRight(c.Authority, "/") + "/protocol/openid-connect/certs"
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}
