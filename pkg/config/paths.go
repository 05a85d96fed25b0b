package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "tessera"
	defaultConfigFile    = "config.yaml"
	credentialsDirName   = "credentials"
)

func DefaultConfigPath() string {
	if env := os.Getenv("TESSCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tessera", defaultConfigFile)
}

// DefaultCredentialsDir is where the encrypted-file token backend keeps its
// records when the system keyring is unavailable.
func DefaultCredentialsDir() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, credentialsDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tessera", credentialsDirName)
}
