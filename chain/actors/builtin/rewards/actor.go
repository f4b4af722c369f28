package rewards

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	logging "github.com/ipfs/go-log/v2"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/actors/builtin/governance"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/lib/cborutil"
)

var log = logging.Logger("rewards")

// Actor is a reward-accrual program that understands the account layout of Profile. It
// records the staked balance seen at each accrual in the reward-info accounts it owns.
type Actor struct {
	Profile *governance.AccrualProfile
}

var _ vm.Invokee = (*Actor)(nil)

func (a *Actor) Invoke(rt *vm.Runtime, accounts []*types.AccountInfo, data []byte) error {
	m, ok := governance.ParseSelector(data)
	if !ok || len(data) != governance.SelectorLen {
		return aerrors.Newf(exitcode.SysErrInvalidMethod, "unknown selector %x", data)
	}
	switch m {
	case governance.AccrueRewards:
		return a.AccrueRewards(rt, accounts)
	default:
		return aerrors.Newf(exitcode.SysErrInvalidMethod, "%s not supported", m)
	}
}

func (a *Actor) slot(accounts []*types.AccountInfo, name string) *types.AccountInfo {
	for i, s := range a.Profile.Layout {
		if s.Name == name {
			return accounts[i]
		}
	}
	return nil
}

func (a *Actor) AccrueRewards(rt *vm.Runtime, accounts []*types.AccountInfo) error {
	fixed := len(a.Profile.Layout)
	if len(accounts) < fixed {
		return aerrors.Newf(exitcode.ErrIllegalArgument, "accrue needs %d accounts, got %d", fixed, len(accounts))
	}
	groups := accounts[fixed:]
	size := a.Profile.GroupSize()
	if len(groups)%size != 0 {
		return aerrors.Newf(exitcode.ErrIllegalArgument, "remaining accounts (%d) not a multiple of %d", len(groups), size)
	}

	caller := a.slot(accounts, "caller")
	recordInfo := a.slot(accounts, "token_owner_record")
	if caller == nil || recordInfo == nil {
		return aerrors.Newf(exitcode.ErrIllegalState, "profile %s has no caller or owner record slot", a.Profile.Name)
	}
	if !caller.IsSigner {
		return aerrors.Newf(exitcode.ErrForbidden, "caller %s must sign", caller.Key)
	}

	recData, err := recordInfo.Data()
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "reading owner record")
	}
	var rec governance.TokenOwnerRecord
	if err := cborutil.Load(recData, &rec); err != nil {
		return aerrors.Absorb(err, exitcode.ErrSerialization, "decoding owner record")
	}
	if rec.GoverningTokenOwner != caller.Key {
		return aerrors.Newf(exitcode.ErrForbidden, "owner record belongs to %s, not %s", rec.GoverningTokenOwner, caller.Key)
	}

	now := rt.Clock().UnixTimestamp
	for i := 0; i < len(groups); i += size {
		mint, mintInfo, callerInfo := groups[i], groups[i+1], groups[i+3]

		var mr MintRewardInfo
		if err := a.load(rt, mintInfo, &mr); err != nil {
			return err
		}
		var ur UserRewardInfo
		if err := a.load(rt, callerInfo, &ur); err != nil {
			return err
		}
		if mr.RewardMint.IsZero() {
			mr.RewardMint = mint.Key
		}
		if ur.RewardMint.IsZero() {
			ur.RewardMint, ur.User = mint.Key, caller.Key
		}
		if mr.RewardMint != mint.Key || ur.RewardMint != mint.Key {
			return aerrors.Newf(exitcode.ErrIllegalArgument, "reward info does not track mint %s", mint.Key)
		}
		if ur.User != caller.Key {
			return aerrors.Newf(exitcode.ErrForbidden, "reward info %s belongs to %s", callerInfo.Key, ur.User)
		}

		mr.Accruals++
		mr.LastAccrualAt = now
		ur.Accruals++
		ur.LastAccrualAt = now
		ur.LastBalance = rec.GoverningTokenDepositAmount

		if err := store(mintInfo, &mr); err != nil {
			return err
		}
		if err := store(callerInfo, &ur); err != nil {
			return err
		}
	}

	log.Debugw("accrued rewards", "profile", a.Profile.Name, "user", caller.Key, "balance", rec.GoverningTokenDepositAmount, "groups", len(groups)/size)
	return nil
}

// load decodes a reward info account owned by this program; an empty account yields a zero
// record.
func (a *Actor) load(rt *vm.Runtime, ai *types.AccountInfo, out cbg.CBORUnmarshaler) error {
	owner, err := ai.Owner()
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "reading reward info owner")
	}
	if owner != rt.ProgramID() {
		return aerrors.Newf(exitcode.ErrForbidden, "reward info %s not owned by %s", ai.Key, rt.ProgramID())
	}
	data, err := ai.Data()
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "reading reward info")
	}
	if len(data) == 0 {
		return nil
	}
	if err := cborutil.Load(data, out); err != nil {
		return aerrors.Absorb(err, exitcode.ErrSerialization, "decoding reward info")
	}
	return nil
}

func store(ai *types.AccountInfo, rec cbg.CBORMarshaler) error {
	data, err := cborutil.Dump(rec)
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrSerialization, "encoding reward info")
	}
	if err := ai.SetData(data); err != nil {
		return aerrors.Absorb(err, exitcode.ErrIllegalState, "storing reward info")
	}
	return nil
}
