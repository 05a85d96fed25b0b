package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigPath(t *testing.T) {
	t.Run("uses TESSCTL_CONFIG env var when set", func(t *testing.T) {
		customPath := "/custom/path/config.yaml"
		t.Setenv("TESSCTL_CONFIG", customPath)

		assert.Equal(t, customPath, DefaultConfigPath())
	})

	t.Run("uses user config dir when TESSCTL_CONFIG not set", func(t *testing.T) {
		t.Setenv("TESSCTL_CONFIG", "")

		result := DefaultConfigPath()
		assert.True(t, strings.HasSuffix(result, filepath.Join("tessera", "config.yaml")) ||
			strings.HasSuffix(result, filepath.Join(".tessera", "config.yaml")),
			"unexpected config path: %s", result)
		assert.True(t, filepath.IsAbs(result))
	})
}

func TestDefaultCredentialsDir(t *testing.T) {
	result := DefaultCredentialsDir()
	assert.NotEmpty(t, result)
	assert.True(t, filepath.IsAbs(result))
	assert.Contains(t, result, "credentials")
}
