package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command against temp directories so tests never touch
// the real home config.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{
		"--config-dir", t.TempDir(),
		"--data-dir", t.TempDir(),
	}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "tenant")
	assert.Contains(t, names, "bootstrap")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "health")
	assert.Contains(t, names, "simulate")
	assert.Contains(t, names, "version")
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tokenkeeper version test-version-1.0.0")
}

func TestRootCmd_UnknownStoreBackend(t *testing.T) {
	_, err := execute(t, "--store", "redis", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")

	// Reset for subsequent tests.
	flagStore = "file"
}

func TestStatusCmd_NoTenants(t *testing.T) {
	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No tenants configured.")
}

func TestTenantAddAndStatus(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{
		"--config-dir", configDir, "--data-dir", dataDir,
		"tenant", "add", "ACME",
		"--client-id", "client-123",
		"--client-secret", "secret-456",
		"--authorize-url", "https://provider.example/oauth/authorize",
		"--token-url", "https://provider.example/oauth/token",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Tenant ACME configured")

	buf.Reset()
	rootCmd.SetArgs([]string{
		"--config-dir", configDir, "--data-dir", dataDir,
		"status", "ACME",
	})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "ACME: unbootstrapped")
}

func TestSplitScopes(t *testing.T) {
	assert.Nil(t, splitScopes(""))
	assert.Equal(t, []string{"read:data"}, splitScopes("read:data"))
	assert.Equal(t, []string{"read:data", "offline_access"},
		splitScopes("read:data, offline_access,"))
}
