package types

import (
	"bytes"
	"io"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/lib/cborutil"
)

var ErrAccountNotFound = xerrors.New("account not found")

// Account is the persisted form of an on-chain account. Only the owning program may change Data.
type Account struct {
	Owner      solana.PublicKey
	Executable bool
	Data       []byte
}

func (a *Account) Copy() *Account {
	out := *a
	out.Data = append([]byte(nil), a.Data...)
	return &out
}

func (a *Account) Equals(o *Account) bool {
	return a.Owner == o.Owner && a.Executable == o.Executable && bytes.Equal(a.Data, o.Data)
}

func (a *Account) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 3); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, a.Owner); err != nil {
		return xerrors.Errorf("writing owner: %w", err)
	}
	if err := cborutil.WriteBool(w, a.Executable); err != nil {
		return err
	}
	return cborutil.WriteBytes(w, a.Data)
}

func (a *Account) UnmarshalCBOR(r io.Reader) error {
	*a = Account{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 3); err != nil {
		return err
	}

	var err error
	if a.Owner, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading owner: %w", err)
	}
	if a.Executable, err = cborutil.ReadBool(cr); err != nil {
		return xerrors.Errorf("reading executable flag: %w", err)
	}
	if a.Data, err = cborutil.ReadBytes(cr); err != nil {
		return xerrors.Errorf("reading data: %w", err)
	}
	return nil
}
