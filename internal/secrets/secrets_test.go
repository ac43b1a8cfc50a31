package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	t.Setenv("FEEDSYNC_DB_USERNAME", "")
	t.Setenv("FEEDSYNC_DB_PASSWORD", "")
}

func TestFileProviderLoadsDocument(t *testing.T) {
	clearEnv(t)
	path := writeCredsFile(t, `{"username": "feedsync", "password": "hunter2"}`)

	creds, err := NewFileProvider(path).DatabaseCredentials()

	require.NoError(t, err)
	assert.Equal(t, "feedsync", creds.Username)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestFileProviderEnvOverridesDocument(t *testing.T) {
	path := writeCredsFile(t, `{"username": "from-file", "password": "from-file"}`)
	t.Setenv("FEEDSYNC_DB_USERNAME", "from-env")
	t.Setenv("FEEDSYNC_DB_PASSWORD", "from-env-pw")

	creds, err := NewFileProvider(path).DatabaseCredentials()

	require.NoError(t, err)
	assert.Equal(t, "from-env", creds.Username)
	assert.Equal(t, "from-env-pw", creds.Password)
}

func TestFileProviderEnvOnly(t *testing.T) {
	t.Setenv("FEEDSYNC_DB_USERNAME", "env-user")
	t.Setenv("FEEDSYNC_DB_PASSWORD", "env-pw")

	creds, err := NewFileProvider("").DatabaseCredentials()

	require.NoError(t, err)
	assert.Equal(t, "env-user", creds.Username)
}

func TestFileProviderRejectsMissingUsername(t *testing.T) {
	clearEnv(t)
	path := writeCredsFile(t, `{"password": "only"}`)

	_, err := NewFileProvider(path).DatabaseCredentials()
	require.Error(t, err)
}

func TestFileProviderRejectsMalformedDocument(t *testing.T) {
	path := writeCredsFile(t, `not json`)

	_, err := NewFileProvider(path).DatabaseCredentials()
	require.Error(t, err)
}

func TestFileProviderReadsOnce(t *testing.T) {
	clearEnv(t)
	path := writeCredsFile(t, `{"username": "first", "password": "pw"}`)
	p := NewFileProvider(path)

	creds, err := p.DatabaseCredentials()
	require.NoError(t, err)
	assert.Equal(t, "first", creds.Username)

	// Rewriting the file after the first read changes nothing.
	require.NoError(t, os.WriteFile(path, []byte(`{"username": "second", "password": "pw"}`), 0o600))

	creds, err = p.DatabaseCredentials()
	require.NoError(t, err)
	assert.Equal(t, "first", creds.Username)
}
