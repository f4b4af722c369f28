package governance

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
)

type accrualFixture struct {
	lease    *types.Lease
	base     *AccrualAccounts
	identity *types.AccountInfo
}

func borrow(l *types.Lease, signer, writable bool) *types.AccountInfo {
	return l.Borrow(solana.NewWallet().PublicKey(), &types.Account{Owner: solana.SystemProgramID}, signer, writable)
}

func newAccrualFixture(p *AccrualProfile, executable bool) *accrualFixture {
	l := types.NewLease()
	return &accrualFixture{
		lease: l,
		base: &AccrualAccounts{
			Realm:        borrow(l, false, false),
			System:       l.Borrow(solana.SystemProgramID, &types.Account{Executable: true}, false, false),
			TokenProgram: l.Borrow(solana.TokenProgramID, &types.Account{Executable: true}, false, false),
			Owner:        borrow(l, true, true),
			Holding:      borrow(l, false, true),
			OwnerRecord:  borrow(l, false, true),
		},
		identity: l.Borrow(p.ProgramID, &types.Account{Executable: executable}, false, false),
	}
}

func (f *accrualFixture) accounts(n int) []*types.AccountInfo {
	out := make([]*types.AccountInfo, n)
	for i := range out {
		out[i] = borrow(f.lease, false, true)
	}
	return out
}

func metaFlags(m *solana.AccountMeta) Privilege {
	return Privilege{Writable: m.IsWritable, Signer: m.IsSigner}
}

func TestFolioAccrualLayout(t *testing.T) {
	p := FolioProfile(DefaultFolioProgramID)
	f := newAccrualFixture(p, true)
	fixed := f.accounts(5)

	inv, aerr := p.Build(f.base, f.identity, fixed, nil)
	require.Nil(t, aerr)

	metas := inv.Instruction.Accounts()
	require.Len(t, metas, 12)
	require.Len(t, inv.Accounts, 12)
	require.Equal(t, DefaultFolioProgramID, inv.Instruction.ProgramID())

	want := []struct {
		key  solana.PublicKey
		priv Privilege
	}{
		{solana.SystemProgramID, ReadOnly},
		{solana.TokenProgramID, ReadOnly},
		{f.base.Owner.Key, WritableSigner},
		{fixed[0].Key, ReadOnly},
		{fixed[1].Key, ReadOnly},
		{fixed[2].Key, ReadOnly},
		{fixed[3].Key, ReadOnly},
		{fixed[4].Key, ReadOnly},
		{f.base.Holding.Key, ReadOnly},
		{f.base.OwnerRecord.Key, ReadOnly},
		{f.base.Owner.Key, WritableSigner},
		{f.base.Owner.Key, WritableSigner},
	}
	for i, w := range want {
		require.Equal(t, w.key, metas[i].PublicKey, "meta %d", i)
		require.Equal(t, w.priv, metaFlags(metas[i]), "meta %d", i)
	}

	data, err := inv.Instruction.Data()
	require.NoError(t, err)
	sel := AccrueRewards.Selector()
	require.Equal(t, sel[:], data)
}

func TestRewardsAccrualLayout(t *testing.T) {
	p := RewardsProfile(DefaultRewardsProgramID)
	f := newAccrualFixture(p, true)
	fixed := f.accounts(2)

	inv, aerr := p.Build(f.base, f.identity, fixed, nil)
	require.Nil(t, aerr)

	metas := inv.Instruction.Accounts()
	require.Len(t, metas, 10)
	require.Equal(t, f.base.Realm.Key, metas[3].PublicKey)
	require.Equal(t, ReadOnly, metaFlags(metas[3]))
	require.Equal(t, fixed[0].Key, metas[4].PublicKey)
	require.Equal(t, fixed[1].Key, metas[5].PublicKey)
	require.Equal(t, f.base.Holding.Key, metas[6].PublicKey)
	require.Equal(t, f.base.OwnerRecord.Key, metas[7].PublicKey)
	for _, i := range []int{2, 8, 9} {
		require.Equal(t, f.base.Owner.Key, metas[i].PublicKey)
		require.Equal(t, WritableSigner, metaFlags(metas[i]))
	}
}

func TestAccrualRewardGroups(t *testing.T) {
	p := FolioProfile(DefaultFolioProgramID)
	f := newAccrualFixture(p, true)
	groups := f.accounts(8)

	inv, aerr := p.Build(f.base, f.identity, f.accounts(5), groups)
	require.Nil(t, aerr)

	metas := inv.Instruction.Accounts()
	require.Len(t, metas, 20)
	pattern := []Privilege{ReadOnly, Writable, ReadOnly, Writable}
	for i, m := range metas[12:] {
		require.Equal(t, groups[i].Key, m.PublicKey)
		require.Equal(t, pattern[i%4], metaFlags(m), "group account %d", i)
	}
}

func TestAccrualRejectsMalformedGroups(t *testing.T) {
	p := FolioProfile(DefaultFolioProgramID)
	for _, n := range []int{1, 2, 3, 5, 7} {
		f := newAccrualFixture(p, true)
		_, aerr := p.Build(f.base, f.identity, f.accounts(5), f.accounts(n))
		require.NotNil(t, aerr)
		require.Equal(t, ErrMalformedAccountList, aerrors.RetCode(aerr), "groups of %d", n)
	}

	f := newAccrualFixture(p, true)
	_, aerr := p.Build(f.base, f.identity, f.accounts(4), nil)
	require.Equal(t, ErrMalformedAccountList, aerrors.RetCode(aerr))
}

func TestAccrualRejectsWrongActor(t *testing.T) {
	p := RewardsProfile(DefaultRewardsProgramID)

	f := newAccrualFixture(p, false)
	_, aerr := p.Build(f.base, f.identity, f.accounts(2), nil)
	require.Equal(t, ErrInvalidDelegateActor, aerrors.RetCode(aerr))

	f = newAccrualFixture(p, true)
	impostor := f.lease.Borrow(solana.NewWallet().PublicKey(), &types.Account{Executable: true}, false, false)
	_, aerr = p.Build(f.base, impostor, f.accounts(2), nil)
	require.Equal(t, ErrInvalidDelegateActor, aerrors.RetCode(aerr))
}

func TestProfileValidate(t *testing.T) {
	for _, p := range DefaultProfiles() {
		require.NoError(t, p.Validate())
	}

	p := FolioProfile(DefaultFolioProgramID)
	p.Layout = append(p.Layout, Slot{Name: "bogus", Source: SourceFixed, Fixed: 5})
	require.Error(t, p.Validate())

	p = RewardsProfile(solana.PublicKey{})
	require.Error(t, p.Validate())

	_, err := NewActor(FolioProfile(DefaultFolioProgramID), RewardsProfile(DefaultFolioProgramID))
	require.Error(t, err)
}
