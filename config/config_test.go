package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"vexchain/native/policy"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "vex-local", cfg.NetworkName)
	require.Equal(t, *policy.Default(), cfg.Policy)
	require.NoError(t, cfg.Validate())
}

func TestLoadExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
DataDir = "/tmp/vexchain-test"
NetworkName = "vex-testnet"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/vexchain-test", cfg.DataDir)
	require.Equal(t, "vex-testnet", cfg.NetworkName)
	// Omitted sections fall back to defaults.
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.Equal(t, *policy.Default(), cfg.Policy)
}

func TestValidateRejectsBadAdminAddress(t *testing.T) {
	cfg := &Config{
		DataDir:      "/tmp/vexchain-test",
		AdminAddress: "not-a-bech32-address",
		Policy:       *policy.Default(),
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	pol := *policy.Default()
	pol.DebtCeiling = 0
	cfg := &Config{DataDir: "/tmp/vexchain-test", Policy: pol}
	require.Error(t, cfg.Validate())
}

func TestAdminDecodes(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/vexchain-test", Policy: *policy.Default()}
	_, ok := cfg.Admin()
	require.False(t, ok)
}
