package governance

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/actors/builtin/token"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/metrics"
)

// Positions in the withdraw account list. The accrual program's fixed accounts follow
// WithdrawAccrualProgram, then the reward-token groups.
const (
	WithdrawRealm = iota
	WithdrawHolding
	WithdrawDestination
	WithdrawOwner
	WithdrawOwnerRecord
	WithdrawTokenProgram
	WithdrawRealmConfig
	WithdrawSystemProgram
	WithdrawAccrualProgram

	withdrawBaseAccounts
)

// WithdrawGoverningTokens moves the owner's whole deposit from custody to the destination
// after the accrual program has accrued rewards on it, and zeroes the owner record.
func (a *Actor) WithdrawGoverningTokens(rt *vm.Runtime, accounts []*types.AccountInfo) (err error) {
	defer func() {
		if err != nil {
			var ae aerrors.ActorError
			if xerrors.As(err, &ae) {
				_ = stats.RecordWithTags(rt.Context(), []tag.Mutator{tag.Upsert(metrics.ExitCode, ae.RetCode().String())}, metrics.GovernanceWithdrawalRejection.M(1))
			}
		}
	}()

	if len(accounts) < withdrawBaseAccounts {
		return aerrors.Newf(ErrMalformedAccountList, "withdraw needs at least %d accounts, got %d", withdrawBaseAccounts, len(accounts))
	}
	var (
		programID    = rt.ProgramID()
		realmInfo    = accounts[WithdrawRealm]
		holding      = accounts[WithdrawHolding]
		destination  = accounts[WithdrawDestination]
		owner        = accounts[WithdrawOwner]
		recordInfo   = accounts[WithdrawOwnerRecord]
		tokenProgram = accounts[WithdrawTokenProgram]
		configInfo   = accounts[WithdrawRealmConfig]
		system       = accounts[WithdrawSystemProgram]
		identity     = accounts[WithdrawAccrualProgram]
	)

	if !owner.IsSigner {
		return aerrors.Newf(ErrOwnerSignatureMissing, "governing token owner %s must sign", owner.Key)
	}

	realm, err := GetRealmData(programID, realmInfo)
	if err != nil {
		return aerrors.Absorb(err, ErrInvalidRealmOrMint, "loading realm")
	}
	mint, err := token.GetMint(holding)
	if err != nil {
		return aerrors.Absorb(err, ErrInvalidRealmOrMint, "reading holding mint")
	}
	if err := realm.AssertValidMintAndHolding(programID, realmInfo.Key, mint, holding.Key); err != nil {
		return aerrors.Absorb(err, ErrInvalidRealmOrMint, "checking governing mint")
	}
	realmSeeds := RealmSeeds(realm.Name)
	realmAddr, bump, err := FindAddress(realmSeeds, programID)
	if err != nil {
		return aerrors.Absorb(err, ErrInvalidRealmOrMint, "deriving realm address")
	}
	if realmAddr != realmInfo.Key {
		return aerrors.Newf(ErrInvalidRealmOrMint, "realm %q lives at %s, not %s", realm.Name, realmAddr, realmInfo.Key)
	}

	cfg, err := GetRealmConfigForRealm(programID, configInfo, realmInfo.Key)
	if err != nil {
		return aerrors.Absorb(err, ErrInvalidAccountData, "loading realm config")
	}
	if err := cfg.AssertCanWithdraw(realm, mint); err != nil {
		return aerrors.Absorb(err, ErrWithdrawalNotPermittedByPolicy, "checking withdrawal policy")
	}

	rec, err := GetTokenOwnerRecordForSeeds(programID, recordInfo, TokenOwnerRecordSeeds(realmInfo.Key, mint, owner.Key))
	if err != nil {
		return aerrors.Absorb(err, ErrInvalidAccountData, "loading token owner record")
	}
	now := rt.Clock().UnixTimestamp
	if err := rec.AssertCanWithdraw(now); err != nil {
		return aerrors.Absorb(err, ErrWithdrawalBlockedByActiveLockOrVote, "checking token owner record")
	}
	amount := rec.GoverningTokenDepositAmount

	if tokenProgram.Key != token.ProgramID {
		return aerrors.Newf(ErrMalformedAccountList, "expected token program %s at %d, got %s", token.ProgramID, WithdrawTokenProgram, tokenProgram.Key)
	}
	if system.Key != solana.SystemProgramID {
		return aerrors.Newf(ErrMalformedAccountList, "expected system program at %d, got %s", WithdrawSystemProgram, system.Key)
	}
	profile, ok := ProfileFor(a.Profiles, identity.Key)
	if !ok {
		return aerrors.Newf(ErrInvalidDelegateActor, "%s is not an accepted reward accrual program", identity.Key)
	}
	rest := accounts[withdrawBaseAccounts:]
	if len(rest) < profile.FixedLen() {
		return aerrors.Newf(ErrMalformedAccountList, "%s accrual needs %d accounts after the program, got %d", profile.Name, profile.FixedLen(), len(rest))
	}

	base := &AccrualAccounts{
		Realm:        realmInfo,
		System:       system,
		TokenProgram: tokenProgram,
		Owner:        owner,
		Holding:      holding,
		OwnerRecord:  recordInfo,
	}
	if err := profile.Accrue(rt, base, identity, rest[:profile.FixedLen()], rest[profile.FixedLen():]); err != nil {
		return err
	}

	if err := token.TransferSigned(rt, tokenProgram, holding, destination, realmInfo, SignerSeeds(realmSeeds, bump), amount); err != nil {
		return aerrors.HandleExternalError(err, exitcode.ErrIllegalState, "custody transfer")
	}

	rec.GoverningTokenDepositAmount = 0
	if err := Store(recordInfo, rec); err != nil {
		return aerrors.Absorb(err, ErrInvalidAccountData, "storing token owner record")
	}

	log.Infow("governing tokens withdrawn", "realm", realm.Name, "mint", mint, "owner", owner.Key, "amount", amount, "accrual", profile.Name, "slot", rt.Clock().Slot)
	stats.Record(rt.Context(), metrics.GovernanceWithdrawals.M(1), metrics.GovernanceWithdrawnAmount.M(metrics.ClampInt64(amount)))
	return nil
}
