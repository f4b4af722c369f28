package types

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestLeaseSharesWorkingCopy(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	l := NewLease()

	a := l.Borrow(key, &Account{Owner: solana.SystemProgramID, Data: []byte{1}}, false, true)
	b := l.Borrow(key, &Account{Owner: solana.SystemProgramID, Data: []byte{9}}, false, false)

	require.NoError(t, a.SetData([]byte{2, 3}))
	d, err := b.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3}, d)

	require.ErrorIs(t, b.SetData([]byte{4}), ErrAccountReadOnly)
}

func TestLeaseExpiry(t *testing.T) {
	ai := NewAccountInfo(solana.NewWallet().PublicKey(), &Account{Data: []byte{1}}, true, true)
	ai.Lease().Expire()

	_, err := ai.Data()
	require.ErrorIs(t, err, ErrLeaseExpired)
	require.ErrorIs(t, ai.SetData(nil), ErrLeaseExpired)
	_, err = ai.Owner()
	require.ErrorIs(t, err, ErrLeaseExpired)
}

func TestDataIsCopied(t *testing.T) {
	ai := NewAccountInfo(solana.NewWallet().PublicKey(), &Account{Data: []byte{1, 2}}, false, true)
	d, err := ai.Data()
	require.NoError(t, err)
	d[0] = 7

	again, err := ai.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, again)
}

func TestAccountCBOR(t *testing.T) {
	a := &Account{Owner: solana.TokenProgramID, Executable: true, Data: []byte("hello")}
	var buf bytes.Buffer
	require.NoError(t, a.MarshalCBOR(&buf))

	var out Account
	require.NoError(t, out.UnmarshalCBOR(&buf))
	require.True(t, a.Equals(&out))
}
