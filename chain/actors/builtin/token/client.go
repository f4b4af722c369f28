package token

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/lib/cborutil"
)

var ErrNotTokenAccount = xerrors.New("not a token program account")

// LoadAccount decodes a token account owned by the token program.
func LoadAccount(ai *types.AccountInfo) (*Account, error) {
	data, err := owned(ai)
	if err != nil {
		return nil, err
	}
	var out Account
	if err := cborutil.Load(data, &out); err != nil {
		return nil, xerrors.Errorf("decoding token account %s: %w", ai.Key, err)
	}
	return &out, nil
}

func LoadMint(ai *types.AccountInfo) (*Mint, error) {
	data, err := owned(ai)
	if err != nil {
		return nil, err
	}
	var out Mint
	if err := cborutil.Load(data, &out); err != nil {
		return nil, xerrors.Errorf("decoding mint %s: %w", ai.Key, err)
	}
	return &out, nil
}

// GetMint returns the mint of the token account behind ai.
func GetMint(ai *types.AccountInfo) (solana.PublicKey, error) {
	acct, err := LoadAccount(ai)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Mint, nil
}

func owned(ai *types.AccountInfo) ([]byte, error) {
	owner, err := ai.Owner()
	if err != nil {
		return nil, err
	}
	if owner != ProgramID {
		return nil, xerrors.Errorf("%s owned by %s: %w", ai.Key, owner, ErrNotTokenAccount)
	}
	return ai.Data()
}

func TransferInstruction(programID, source, destination, authority solana.PublicKey, amount uint64) (*solana.GenericInstruction, error) {
	var buf bytes.Buffer
	buf.WriteByte(MethodTransfer)
	if err := cborutil.WriteCborRPC(&buf, &TransferParams{Amount: amount}); err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(source, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(authority, false, true),
	}, buf.Bytes()), nil
}

// TransferSigned moves amount from source to destination through the token program behind
// tokenProgram. The authority is an address derived from the calling program with seeds.
func TransferSigned(rt *vm.Runtime, tokenProgram, source, destination, authority *types.AccountInfo, seeds [][]byte, amount uint64) error {
	ix, err := TransferInstruction(tokenProgram.Key, source.Key, destination.Key, authority.Key, amount)
	if err != nil {
		return err
	}
	return rt.Invoke(ix, []*types.AccountInfo{source, destination, authority, tokenProgram}, seeds)
}

// AccountState wraps a token record into an account owned by the token program.
func AccountState(rec cbg.CBORMarshaler) (*types.Account, error) {
	data, err := cborutil.Dump(rec)
	if err != nil {
		return nil, err
	}
	return &types.Account{Owner: ProgramID, Data: data}, nil
}
