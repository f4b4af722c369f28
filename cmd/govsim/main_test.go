package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/build"
)

func run(t *testing.T, repoPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"govsim", "--repo", repoPath}, args...))
	return out.String(), err
}

func TestSelector(t *testing.T) {
	out, err := run(t, t.TempDir(), "selector")
	require.NoError(t, err)
	require.Contains(t, out, "c5bc36203f2247d7")
}

func TestConfigDefault(t *testing.T) {
	out, err := run(t, t.TempDir(), "config", "--default")
	require.NoError(t, err)
	require.Contains(t, out, "[Governance]")
	require.Contains(t, out, "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")
}

func TestUninitializedRepo(t *testing.T) {
	_, err := run(t, t.TempDir(), "genesis")
	require.ErrorContains(t, err, "govsim init")
}

func TestGenesisWithdrawInspect(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "init")
	require.NoError(t, err)
	_, err = run(t, dir, "init")
	require.Error(t, err)

	out, err := run(t, dir, "genesis", "--accrual", "rewards", "--deposit", "1500", "--reward-groups", "2")
	require.NoError(t, err)
	require.Contains(t, out, "1,500")

	_, err = run(t, dir, "genesis")
	require.ErrorContains(t, err, "already has a devnet")

	out, err = run(t, dir, "withdraw", "--metrics")
	require.NoError(t, err)
	require.Contains(t, out, "1,500 tokens")
	require.Contains(t, out, "governance/withdrawals")

	// the record is zero now, withdrawing again moves nothing
	out, err = run(t, dir, "withdraw")
	require.NoError(t, err)
	require.Contains(t, out, "0 tokens")

	out, err = run(t, dir, "inspect")
	require.NoError(t, err)
	require.Contains(t, out, "owner record")
	require.Contains(t, out, "group 1 caller reward info")
}

func TestWithdrawLocked(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "init")
	require.NoError(t, err)
	_, err = run(t, dir, "genesis", "--lock", "1h")
	require.NoError(t, err)

	out, err := run(t, dir, "withdraw")
	require.ErrorContains(t, err, "exit code")
	require.Contains(t, out, "WithdrawalBlockedByActiveLockOrVote")
}

func TestLockFollowsBuildClock(t *testing.T) {
	mc := clock.NewMock()
	mc.Set(time.Unix(1_000_000_000, 0))
	orig := build.Clock
	build.Clock = mc
	defer func() { build.Clock = orig }()

	dir := t.TempDir()
	_, err := run(t, dir, "init")
	require.NoError(t, err)
	_, err = run(t, dir, "genesis", "--lock", "1h")
	require.NoError(t, err)

	_, err = run(t, dir, "withdraw")
	require.ErrorContains(t, err, "exit code")

	mc.Add(2 * time.Hour)
	out, err := run(t, dir, "withdraw")
	require.NoError(t, err)
	require.Contains(t, out, "1,000,000 tokens")
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "govsim.toml")

	_, err := run(t, dir, "--config", cfgPath, "init")
	require.NoError(t, err)
	require.FileExists(t, cfgPath)
	require.NoFileExists(t, filepath.Join(dir, "config.toml"))

	b, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	b = bytes.Replace(b, []byte(`RealmName = "devnet"`), []byte(`RealmName = "elsewhere"`), 1)
	require.NoError(t, os.WriteFile(cfgPath, b, 0644))

	out, err := run(t, dir, "--config", cfgPath, "config")
	require.NoError(t, err)
	require.Contains(t, out, `RealmName = "elsewhere"`)

	// without the flag the repo has no config of its own
	_, err = run(t, dir, "config")
	require.ErrorContains(t, err, "govsim init")
}
