package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pactd.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7540", cfg.RPCAddress)
	require.Equal(t, DefaultHoldingAddress, cfg.HoldingAddress)
	require.Positive(t, cfg.EventHistory)
	require.FileExists(t, path)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pactd.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAddress = \":9000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.Equal(t, "./pactd-data", cfg.DataDir)
	require.Equal(t, DefaultHoldingAddress, cfg.HoldingAddress)
}

func TestLoadRejectsMalformedHoldingAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pactd.toml")
	require.NoError(t, os.WriteFile(path, []byte("HoldingAddress = \"0x1234\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x" + "ab" + "00112233445566778899aabbccddeeff0011" + "22")
	require.NoError(t, err)
	require.Equal(t, byte(0xab), addr[0])
	require.Equal(t, byte(0x22), addr[19])

	_, err = ParseAddress("not-hex")
	require.Error(t, err)

	_, err = ParseAddress("0xabcd")
	require.Error(t, err)
}
