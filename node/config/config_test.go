package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/chain/actors/builtin/governance"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultSimulator()
	require.NoError(t, cfg.Validate())

	profiles, err := cfg.Accrual.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, governance.DefaultFolioProgramID, profiles[0].ProgramID)
	require.Equal(t, governance.DefaultRewardsProgramID, profiles[1].ProgramID)
}

func TestDecodeDefaultRoundTrip(t *testing.T) {
	b, err := ToBytes(DefaultSimulator())
	require.NoError(t, err)

	cfg, err := FromReader(bytes.NewReader(b), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultSimulator(), cfg)
}

func TestFromReaderOverrides(t *testing.T) {
	def := DefaultSimulator()
	cfg, err := FromReader(strings.NewReader(`
[Datastore]
  Type = "memory"

[Logging.SubsystemLevels]
  vm = "debug"

[[Accrual.Programs]]
  Profile = "rewards"
  ProgramID = "7GiMvNDHVY8PXWQLHjSf1REGKpiDsVzRr4p7Y3xGbSuf"
`), def)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, DatastoreMemory, cfg.Datastore.Type)
	require.Equal(t, "debug", cfg.Logging.SubsystemLevels["vm"])
	require.Len(t, cfg.Accrual.Programs, 1)

	// the defaults passed in are not modified
	require.Equal(t, "warn", def.Logging.SubsystemLevels["vm"])
	require.Len(t, def.Accrual.Programs, 2)
}

func TestFromReaderUnknownKey(t *testing.T) {
	_, err := FromReader(strings.NewReader("[Governance]\nMaxRealms = 3\n"), nil)
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultSimulator()
	cfg.Governance.ProgramID = "not base58!"
	cfg.Datastore.Type = "sqlite"
	cfg.Accrual.Programs = append(cfg.Accrual.Programs, AccrualProgram{Profile: "staking", ProgramID: governance.DefaultProgramID.String()})

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"governance program id", "unknown datastore type", "unknown profile"} {
		require.Contains(t, err.Error(), want)
	}
}

func TestFromFileMissing(t *testing.T) {
	dir := t.TempDir()
	def := DefaultSimulator()

	cfg, err := FromFile(filepath.Join(dir, "config.toml"), def)
	require.NoError(t, err)
	require.Same(t, def, cfg)

	_, err = FromFile(filepath.Join(dir, "config.toml"), nil)
	require.Error(t, err)

	path := filepath.Join(dir, "set.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Governance]\nRealmName = \"other\"\n"), 0644))
	cfg, err = FromFile(path, def)
	require.NoError(t, err)
	require.Equal(t, "other", cfg.Governance.RealmName)
}
