package governance

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/lib/cborutil"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestTokenOwnerRecordEncoding(t *testing.T) {
	exp := int64(1_700_000_100)
	rec := &TokenOwnerRecord{
		Realm:                       newKey(),
		GoverningTokenMint:          newKey(),
		GoverningTokenOwner:         newKey(),
		GoverningTokenDepositAmount: 1000,
		Locks: []TokenOwnerRecordLock{
			{LockType: 1, Authority: newKey(), Expiry: &exp},
			{LockType: 2, Authority: newKey()},
		},
	}
	data, err := cborutil.Dump(rec)
	require.NoError(t, err)

	var out TokenOwnerRecord
	require.NoError(t, cborutil.Load(data, &out))
	require.Equal(t, rec, &out)

	var realm Realm
	require.Error(t, cborutil.Load(data, &realm), "account type must match")
}

func TestRealmOptionalCouncil(t *testing.T) {
	council := newKey()
	for _, r := range []*Realm{
		{Name: "a", CommunityMint: newKey()},
		{Name: "b", CommunityMint: newKey(), CouncilMint: &council},
	} {
		data, err := cborutil.Dump(r)
		require.NoError(t, err)
		var out Realm
		require.NoError(t, cborutil.Load(data, &out))
		require.Equal(t, r, &out)
	}
}

func TestTokenOwnerRecordAssertCanWithdraw(t *testing.T) {
	now := int64(1_700_000_000)
	past, future := now-1, now+1

	cases := []struct {
		name string
		rec  TokenOwnerRecord
		ok   bool
	}{
		{"free", TokenOwnerRecord{}, true},
		{"expired lock", TokenOwnerRecord{Locks: []TokenOwnerRecordLock{{Expiry: &past}}}, true},
		{"lock expiring now", TokenOwnerRecord{Locks: []TokenOwnerRecordLock{{Expiry: &now}}}, true},
		{"active lock", TokenOwnerRecord{Locks: []TokenOwnerRecordLock{{Expiry: &future}}}, false},
		{"indefinite lock", TokenOwnerRecord{Locks: []TokenOwnerRecordLock{{}}}, false},
		{"votes", TokenOwnerRecord{UnrelinquishedVotesCount: 1}, false},
		{"proposals", TokenOwnerRecord{OutstandingProposalCount: 2}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.rec.AssertCanWithdraw(now)
			if c.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestRealmConfigAssertCanWithdraw(t *testing.T) {
	community, council := newKey(), newKey()
	realm := &Realm{Name: "r", CommunityMint: community, CouncilMint: &council}
	cfg := &RealmConfig{
		CommunityTokenConfig: GoverningTokenConfig{TokenType: GoverningTokenTypeDormant},
		CouncilTokenConfig:   GoverningTokenConfig{TokenType: GoverningTokenTypeMembership},
	}

	require.NoError(t, cfg.AssertCanWithdraw(realm, community))
	require.Error(t, cfg.AssertCanWithdraw(realm, council))
	require.Error(t, cfg.AssertCanWithdraw(realm, newKey()))
}

func TestGetRealmConfigRejectsForgedAddress(t *testing.T) {
	program := DefaultProgramID
	realm := newKey()
	data, err := cborutil.Dump(&RealmConfig{Realm: realm})
	require.NoError(t, err)
	acct := &types.Account{Owner: program, Data: data}

	addr, err := RealmConfigAddress(program, realm)
	require.NoError(t, err)
	cfg, err := GetRealmConfigForRealm(program, types.NewAccountInfo(addr, acct, false, false), realm)
	require.NoError(t, err)
	require.Equal(t, realm, cfg.Realm)

	_, err = GetRealmConfigForRealm(program, types.NewAccountInfo(newKey(), acct, false, false), realm)
	require.ErrorIs(t, err, ErrUnexpectedAddress)

	acct.Owner = newKey()
	_, err = GetRealmConfigForRealm(program, types.NewAccountInfo(addr, acct, false, false), realm)
	require.ErrorIs(t, err, ErrNotOwnedByProgram)
}

func TestAddressCache(t *testing.T) {
	c := NewAddressCache(8)
	seeds := RealmSeeds("cache")

	a1, b1, err := c.Find(seeds, DefaultProgramID)
	require.NoError(t, err)
	a2, b2, err := c.Find(seeds, DefaultProgramID)
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, b1, b2)
	require.Equal(t, 1, c.Len())

	direct, err := solana.CreateProgramAddress(SignerSeeds(seeds, b1), DefaultProgramID)
	require.NoError(t, err)
	require.Equal(t, a1, direct)

	_, _, err = c.Find(RealmSeeds("a realm name that is longer than thirty-two bytes"), DefaultProgramID)
	require.Error(t, err)
}
