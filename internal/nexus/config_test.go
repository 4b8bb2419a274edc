package nexus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbSection struct {
	Password string `env:"NEXUS_TEST_DB_PASSWORD"`
}

type testConfig struct {
	Port     int    `env:"NEXUS_TEST_PORT" env-default:"8080" validate:"min=1"`
	Name     string `env:"NEXUS_TEST_NAME" validate:"required"`
	TokenKey string `env:"NEXUS_TEST_TOKEN_KEY"`
	DB       dbSection
}

func TestLoaderFromEnvironment(t *testing.T) {
	t.Setenv("NEXUS_TEST_NAME", "marketcore")
	t.Setenv("NEXUS_TEST_PORT", "9000")

	var cfg testConfig
	err := NewLoader(WithOnlyEnvironment()).Load(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "marketcore", cfg.Name)
}

func TestLoaderEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("NEXUS_TEST_NAME=from-file\nNEXUS_TEST_TOKEN_KEY=abc\n"), 0o600))
	t.Setenv("NEXUS_TEST_NAME", "from-env")

	var cfg testConfig
	err := NewLoader(WithFileName(file)).Load(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, "abc", cfg.TokenKey)
}

func TestLoaderValidationFailure(t *testing.T) {
	var cfg testConfig
	err := NewLoader(WithOnlyEnvironment()).Load(context.Background(), &cfg)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeValidation, ce.Code)
}

func TestLoaderRejectsNonPointer(t *testing.T) {
	err := NewLoader().Load(context.Background(), testConfig{})
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeInvalidType, ce.Code)
}

func TestSecurityCheckerNested(t *testing.T) {
	t.Setenv("NEXUS_TEST_NAME", "x")
	t.Setenv("NEXUS_TEST_DB_PASSWORD", "changeme")

	var cfg testConfig
	err := NewLoader(WithOnlyEnvironment()).Load(context.Background(), &cfg)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeSecurityCheck, ce.Code)
	assert.Contains(t, ce.Cause.Error(), "DB.Password")
}

func TestDescribe(t *testing.T) {
	out, err := Describe(&testConfig{}, "Environment:")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment:")
	assert.Contains(t, out, "NEXUS_TEST_PORT")
	assert.Contains(t, out, "NEXUS_TEST_DB_PASSWORD")
}
