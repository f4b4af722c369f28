package token

import (
	"io"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/lib/cborutil"
)

type Mint struct {
	Supply   uint64
	Decimals uint8
}

func (m *Mint) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 2); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, m.Supply); err != nil {
		return err
	}
	return cborutil.WriteUint(w, uint64(m.Decimals))
}

func (m *Mint) UnmarshalCBOR(r io.Reader) error {
	*m = Mint{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 2); err != nil {
		return err
	}

	var err error
	if m.Supply, err = cborutil.ReadUint(cr); err != nil {
		return xerrors.Errorf("reading supply: %w", err)
	}
	d, err := cborutil.ReadUint(cr)
	if err != nil {
		return xerrors.Errorf("reading decimals: %w", err)
	}
	if d > 255 {
		return xerrors.Errorf("decimals out of range: %d", d)
	}
	m.Decimals = uint8(d)
	return nil
}

// Account is a token balance of one mint controlled by Owner.
type Account struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

func (a *Account) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 3); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, a.Mint); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, a.Owner); err != nil {
		return err
	}
	return cborutil.WriteUint(w, a.Amount)
}

func (a *Account) UnmarshalCBOR(r io.Reader) error {
	*a = Account{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 3); err != nil {
		return err
	}

	var err error
	if a.Mint, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading mint: %w", err)
	}
	if a.Owner, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading owner: %w", err)
	}
	if a.Amount, err = cborutil.ReadUint(cr); err != nil {
		return xerrors.Errorf("reading amount: %w", err)
	}
	return nil
}

type TransferParams struct {
	Amount uint64
}

func (p *TransferParams) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 1); err != nil {
		return err
	}
	return cborutil.WriteUint(w, p.Amount)
}

func (p *TransferParams) UnmarshalCBOR(r io.Reader) error {
	*p = TransferParams{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 1); err != nil {
		return err
	}

	var err error
	p.Amount, err = cborutil.ReadUint(cr)
	return err
}
