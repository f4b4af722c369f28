package rewards_test

import (
	"context"
	"testing"
	"time"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/chain/actors/builtin/governance"
	"github.com/govrealm/govchain/chain/gen"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
)

var genesisTime = time.Unix(1_700_000_000, 0)

func setup(t *testing.T, groups int) (*gen.Devnet, *clock.Mock) {
	t.Helper()
	mc := clock.NewMock()
	mc.Set(genesisTime)
	d, err := gen.NewDevnet(context.Background(), gen.DevnetOpts{
		Clock:        mc,
		Accrual:      "rewards",
		Deposit:      1000,
		RewardGroups: groups,
	})
	require.NoError(t, err)
	return d, mc
}

func apply(t *testing.T, d *gen.Devnet, ix solana.Instruction, signers ...solana.PublicKey) *vm.ApplyRet {
	t.Helper()
	ret, err := d.VM.ApplyTransaction(context.Background(), &types.Transaction{
		Instructions: []solana.Instruction{ix},
		Signers:      signers,
	})
	require.NoError(t, err)
	return ret
}

func TestAccrueRecordsBalance(t *testing.T) {
	ctx := context.Background()
	d, mc := setup(t, 2)

	ret := apply(t, d, d.AccrualInstruction(true), d.Owner)
	require.Equal(t, exitcode.Ok, ret.ExitCode, "%v", ret.ActorErr)

	for i := range d.Groups {
		info, err := d.UserRewardInfo(ctx, i)
		require.NoError(t, err)
		require.NotNil(t, info)
		require.Equal(t, d.Groups[i].Mint, info.RewardMint)
		require.Equal(t, d.Owner, info.User)
		require.EqualValues(t, 1000, info.LastBalance)
		require.EqualValues(t, 1, info.Accruals)
		require.Equal(t, genesisTime.Unix(), info.LastAccrualAt)
	}

	mc.Add(time.Hour)
	ret = apply(t, d, d.AccrualInstruction(true), d.Owner)
	require.Equal(t, exitcode.Ok, ret.ExitCode, "%v", ret.ActorErr)

	info, err := d.UserRewardInfo(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, info.Accruals)
	require.Equal(t, genesisTime.Add(time.Hour).Unix(), info.LastAccrualAt)
}

func TestAccrueWithoutGroups(t *testing.T) {
	d, _ := setup(t, 0)
	ret := apply(t, d, d.AccrualInstruction(true), d.Owner)
	require.Equal(t, exitcode.Ok, ret.ExitCode, "%v", ret.ActorErr)
}

func TestAccrueCallerMustSign(t *testing.T) {
	ctx := context.Background()
	d, _ := setup(t, 1)

	ret := apply(t, d, d.AccrualInstruction(false), d.Owner)
	require.Equal(t, exitcode.ErrForbidden, ret.ExitCode)

	info, err := d.UserRewardInfo(ctx, 0)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestAccrueRejectsForeignRecord(t *testing.T) {
	d, _ := setup(t, 1)
	other := solana.NewWallet().PublicKey()

	ix := d.AccrualInstruction(true)
	ix.AccountValues[2].PublicKey = other

	ret := apply(t, d, ix, d.Owner, other)
	require.Equal(t, exitcode.ErrForbidden, ret.ExitCode)
}

func TestAccrueRejectsPartialGroup(t *testing.T) {
	d, _ := setup(t, 2)

	ix := d.AccrualInstruction(true)
	ix.AccountValues = ix.AccountValues[:len(ix.AccountValues)-1]

	ret := apply(t, d, ix, d.Owner)
	require.Equal(t, exitcode.ErrIllegalArgument, ret.ExitCode)
}

func TestAccrueUnknownSelector(t *testing.T) {
	d, _ := setup(t, 0)

	ix := d.AccrualInstruction(true)
	claim := governance.Discriminator("claim_rewards")
	ix.DataBytes = claim[:]

	ret := apply(t, d, ix, d.Owner)
	require.Equal(t, exitcode.SysErrInvalidMethod, ret.ExitCode)
}

func TestAccrueRejectsUnownedRewardInfo(t *testing.T) {
	d, _ := setup(t, 1)

	// a fresh account is owned by the system program
	ix := d.AccrualInstruction(true)
	last := len(ix.AccountValues) - 1
	ix.AccountValues[last].PublicKey = solana.NewWallet().PublicKey()

	ret := apply(t, d, ix, d.Owner)
	require.Equal(t, exitcode.ErrForbidden, ret.ExitCode)
}
