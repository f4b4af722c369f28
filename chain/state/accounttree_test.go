package state

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/chain/types"
)

func newTree() *AccountTree {
	return NewAccountTree(dssync.MutexWrap(datastore.NewMapDatastore()))
}

func TestSnapshotRevert(t *testing.T) {
	ctx := context.Background()
	st := newTree()
	key := solana.NewWallet().PublicKey()

	require.NoError(t, st.SetAccount(key, &types.Account{Owner: solana.SystemProgramID, Data: []byte{1}}))

	require.NoError(t, st.Snapshot(ctx))
	require.NoError(t, st.SetAccount(key, &types.Account{Owner: solana.SystemProgramID, Data: []byte{2}}))

	got, err := st.GetAccount(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, got.Data)

	require.NoError(t, st.Revert())
	st.ClearSnapshot()

	got, err = st.GetAccount(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got.Data)
}

func TestFlushPersists(t *testing.T) {
	ctx := context.Background()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	st := NewAccountTree(ds)
	key := solana.NewWallet().PublicKey()

	require.NoError(t, st.SetAccount(key, &types.Account{Owner: solana.TokenProgramID, Data: []byte("abc")}))
	require.NoError(t, st.Flush(ctx))

	reloaded := NewAccountTree(ds)
	got, err := reloaded.GetAccount(ctx, key)
	require.NoError(t, err)
	require.Equal(t, solana.TokenProgramID, got.Owner)
	require.Equal(t, []byte("abc"), got.Data)

	keys, err := reloaded.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{key}, keys)
}

func TestFlushWithSnapshotFails(t *testing.T) {
	ctx := context.Background()
	st := newTree()
	require.NoError(t, st.Snapshot(ctx))
	require.Error(t, st.Flush(ctx))
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	st := newTree()
	key := solana.NewWallet().PublicKey()

	_, err := st.GetAccount(ctx, key)
	require.ErrorIs(t, err, types.ErrAccountNotFound)

	require.NoError(t, st.SetAccount(key, &types.Account{}))
	require.NoError(t, st.DeleteAccount(ctx, key))
	_, err = st.GetAccount(ctx, key)
	require.ErrorIs(t, err, types.ErrAccountNotFound)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := newTree()
	key := solana.NewWallet().PublicKey()
	require.NoError(t, st.SetAccount(key, &types.Account{Data: []byte{1}}))

	got, err := st.GetAccount(ctx, key)
	require.NoError(t, err)
	got.Data[0] = 9

	again, err := st.GetAccount(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, again.Data)
}

func BenchmarkAccountTreeSet(b *testing.B) {
	st := newTree()
	keys := make([]solana.PublicKey, 1024)
	for i := range keys {
		keys[i] = solana.NewWallet().PublicKey()
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := st.SetAccount(keys[i%len(keys)], &types.Account{Data: []byte{byte(i)}}); err != nil {
			b.Fatal(err)
		}
	}
}
