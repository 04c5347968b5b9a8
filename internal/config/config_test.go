package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `
dialect = "postgres"
models = "./models"
stable_ordering = true

[run]
database = "library.db"
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Dialect:        "postgres",
		Models:         "./models",
		StableOrdering: true,
		Run:            RunConfig{Database: "library.db"},
	}, cfg)
}

func TestLoadFrom_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
dialect = "sqlite"
dialet = "mysql"
`)

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys: dialet")
}

func TestLoadFrom_InvalidDialect(t *testing.T) {
	path := writeConfig(t, `dialect = "oracle"`)

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dialect "oracle"`)
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := writeConfig(t, `dialect = `)

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoad_DefaultMissing(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_DefaultInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`dialect = "mysql"`), 0644))
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Dialect)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
