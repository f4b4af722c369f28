package governance

import (
	"github.com/gagliardetto/solana-go"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/builtin/token"
)

// RewardGroup is one reward token whose rewards accrue during a withdrawal.
type RewardGroup struct {
	Mint               solana.PublicKey
	MintRewardInfo     solana.PublicKey
	RewardTokenAccount solana.PublicKey
	CallerRewardInfo   solana.PublicKey
}

func (g RewardGroup) keys() []solana.PublicKey {
	return []solana.PublicKey{g.Mint, g.MintRewardInfo, g.RewardTokenAccount, g.CallerRewardInfo}
}

// WithdrawArgs names the accounts of a withdrawal. Fixed are the accrual program's accounts in
// the order of its profile's FixedRoles.
type WithdrawArgs struct {
	Realm       solana.PublicKey
	Holding     solana.PublicKey
	Destination solana.PublicKey
	Owner       solana.PublicKey
	OwnerRecord solana.PublicKey
	RealmConfig solana.PublicKey

	Accrual *AccrualProfile
	Fixed   []solana.PublicKey
	Groups  []RewardGroup
}

// NewWithdrawInstruction builds a withdraw instruction for programID. Accounts that the
// accrual call needs writable or signed are passed with those privileges.
func NewWithdrawInstruction(programID solana.PublicKey, args *WithdrawArgs) (*solana.GenericInstruction, error) {
	if args.Accrual == nil {
		return nil, xerrors.New("no accrual profile")
	}
	if len(args.Fixed) != args.Accrual.FixedLen() {
		return nil, xerrors.Errorf("%s accrual takes %d fixed accounts, got %d", args.Accrual.Name, args.Accrual.FixedLen(), len(args.Fixed))
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(args.Realm, false, false),
		solana.NewAccountMeta(args.Holding, true, false),
		solana.NewAccountMeta(args.Destination, true, false),
		solana.NewAccountMeta(args.Owner, true, true),
		solana.NewAccountMeta(args.OwnerRecord, true, false),
		solana.NewAccountMeta(token.ProgramID, false, false),
		solana.NewAccountMeta(args.RealmConfig, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(args.Accrual.ProgramID, false, false),
	}
	for _, k := range args.Fixed {
		metas = append(metas, solana.NewAccountMeta(k, false, false))
	}
	for _, g := range args.Groups {
		for i, k := range g.keys() {
			priv := args.Accrual.GroupPattern[i%args.Accrual.GroupSize()]
			metas = append(metas, solana.NewAccountMeta(k, priv.Writable, priv.Signer))
		}
	}
	return solana.NewInstruction(programID, metas, []byte{MethodWithdrawGoverningTokens}), nil
}
