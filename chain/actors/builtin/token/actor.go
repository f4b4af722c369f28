package token

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/lib/cborutil"
)

var ProgramID = solana.TokenProgramID

const (
	MethodTransfer byte = 3
)

// Actor is the token program. Instruction data is a method byte followed by the CBOR params.
type Actor struct{}

var _ vm.Invokee = Actor{}

func (a Actor) Invoke(rt *vm.Runtime, accounts []*types.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return aerrors.New(exitcode.ErrIllegalArgument, "empty instruction data")
	}
	switch data[0] {
	case MethodTransfer:
		var params TransferParams
		if err := cborutil.Load(data[1:], &params); err != nil {
			return aerrors.Absorb(err, exitcode.ErrSerialization, "decoding transfer params")
		}
		return a.Transfer(rt, accounts, &params)
	default:
		return aerrors.Newf(exitcode.SysErrInvalidMethod, "unknown token method %d", data[0])
	}
}

// Transfer moves Amount from accounts[0] to accounts[1]; accounts[2] is the source owner and
// must sign.
func (Actor) Transfer(rt *vm.Runtime, accounts []*types.AccountInfo, params *TransferParams) error {
	if len(accounts) < 3 {
		return aerrors.Newf(exitcode.ErrIllegalArgument, "transfer needs 3 accounts, got %d", len(accounts))
	}
	srcInfo, dstInfo, authority := accounts[0], accounts[1], accounts[2]

	src, err := LoadAccount(srcInfo)
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalArgument, "loading source")
	}
	dst, err := LoadAccount(dstInfo)
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalArgument, "loading destination")
	}

	if !authority.IsSigner {
		return aerrors.Newf(exitcode.ErrForbidden, "transfer authority %s did not sign", authority.Key)
	}
	if src.Owner != authority.Key {
		return aerrors.Newf(exitcode.ErrForbidden, "authority %s does not own source %s", authority.Key, srcInfo.Key)
	}
	if src.Mint != dst.Mint {
		return aerrors.Newf(exitcode.ErrIllegalArgument, "mint mismatch: %s != %s", src.Mint, dst.Mint)
	}
	if src.Amount < params.Amount {
		return aerrors.Newf(exitcode.ErrInsufficientFunds, "insufficient funds: %d < %d", src.Amount, params.Amount)
	}
	if srcInfo.Key == dstInfo.Key {
		return nil
	}
	if dst.Amount+params.Amount < dst.Amount {
		return aerrors.New(exitcode.ErrIllegalState, "destination balance overflow")
	}

	src.Amount -= params.Amount
	dst.Amount += params.Amount
	if err := store(srcInfo, src); err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "storing source")
	}
	if err := store(dstInfo, dst); err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "storing destination")
	}
	return nil
}

func store(ai *types.AccountInfo, acct *Account) error {
	b, err := cborutil.Dump(acct)
	if err != nil {
		return err
	}
	return ai.SetData(b)
}
