package rewards

import (
	"io"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/lib/cborutil"
)

// MintRewardInfo aggregates accruals of one reward mint.
type MintRewardInfo struct {
	RewardMint    solana.PublicKey
	Accruals      uint64
	LastAccrualAt int64
}

func (m *MintRewardInfo) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 3); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, m.RewardMint); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, m.Accruals); err != nil {
		return err
	}
	return cborutil.WriteInt64(w, m.LastAccrualAt)
}

func (m *MintRewardInfo) UnmarshalCBOR(r io.Reader) error {
	*m = MintRewardInfo{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 3); err != nil {
		return err
	}

	var err error
	if m.RewardMint, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading reward mint: %w", err)
	}
	if m.Accruals, err = cborutil.ReadUint(cr); err != nil {
		return xerrors.Errorf("reading accruals: %w", err)
	}
	if m.LastAccrualAt, err = cborutil.ReadInt64(cr); err != nil {
		return xerrors.Errorf("reading last accrual: %w", err)
	}
	return nil
}

// UserRewardInfo tracks one user's accruals for one reward mint. LastBalance is the staked
// balance observed at the last accrual.
type UserRewardInfo struct {
	RewardMint    solana.PublicKey
	User          solana.PublicKey
	LastBalance   uint64
	LastAccrualAt int64
	Accruals      uint64
}

func (u *UserRewardInfo) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 5); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, u.RewardMint); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, u.User); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, u.LastBalance); err != nil {
		return err
	}
	if err := cborutil.WriteInt64(w, u.LastAccrualAt); err != nil {
		return err
	}
	return cborutil.WriteUint(w, u.Accruals)
}

func (u *UserRewardInfo) UnmarshalCBOR(r io.Reader) error {
	*u = UserRewardInfo{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 5); err != nil {
		return err
	}

	var err error
	if u.RewardMint, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading reward mint: %w", err)
	}
	if u.User, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading user: %w", err)
	}
	if u.LastBalance, err = cborutil.ReadUint(cr); err != nil {
		return xerrors.Errorf("reading last balance: %w", err)
	}
	if u.LastAccrualAt, err = cborutil.ReadInt64(cr); err != nil {
		return xerrors.Errorf("reading last accrual: %w", err)
	}
	if u.Accruals, err = cborutil.ReadUint(cr); err != nil {
		return xerrors.Errorf("reading accruals: %w", err)
	}
	return nil
}
