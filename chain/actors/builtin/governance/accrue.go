package governance

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/metrics"
)

var (
	DefaultFolioProgramID   = solana.MustPublicKeyFromBase58("n6sR7Eg5LMg5SGorxK9q3ZePHs9e8gjoQ7TgUW2YCaG")
	DefaultRewardsProgramID = solana.MustPublicKeyFromBase58("7GiMvNDHVY8PXWQLHjSf1REGKpiDsVzRr4p7Y3xGbSuf")
)

// Source names where an outgoing accrual account comes from.
type Source int

const (
	SourceSystem Source = iota
	SourceTokenProgram
	SourceOwner
	SourceRealm
	SourceHolding
	SourceOwnerRecord
	// SourceFixed takes the account at Slot.Fixed in the profile's fixed block.
	SourceFixed
)

type Privilege struct {
	Writable bool
	Signer   bool
}

var (
	ReadOnly       = Privilege{}
	Writable       = Privilege{Writable: true}
	WritableSigner = Privilege{Writable: true, Signer: true}
)

// Slot is one position of the outgoing account list.
type Slot struct {
	Name   string
	Source Source
	Fixed  int
	Privilege
}

// AccrualProfile describes one reward-accrual program: the identity it must have, the
// accounts that follow the identity in the withdrawal, how the outgoing call is laid out and
// the privileges of each reward-token group.
type AccrualProfile struct {
	Name      string
	ProgramID solana.PublicKey

	FixedRoles   []string
	Layout       []Slot
	GroupRoles   []string
	GroupPattern []Privilege
}

func (p *AccrualProfile) FixedLen() int {
	return len(p.FixedRoles)
}

func (p *AccrualProfile) GroupSize() int {
	return len(p.GroupPattern)
}

var rewardGroupRoles = []string{"reward_token_mint", "reward_info_for_mint", "reward_token_account", "reward_info_for_caller"}

var rewardGroupPattern = []Privilege{ReadOnly, Writable, ReadOnly, Writable}

func FolioProfile(programID solana.PublicKey) *AccrualProfile {
	return &AccrualProfile{
		Name:       "folio",
		ProgramID:  programID,
		FixedRoles: []string{"folio_owner", "actor", "folio", "folio_reward_tokens", "governing_token_mint"},
		Layout: []Slot{
			{Name: "system_program", Source: SourceSystem},
			{Name: "token_program", Source: SourceTokenProgram},
			{Name: "caller", Source: SourceOwner, Privilege: WritableSigner},
			{Name: "folio_owner", Source: SourceFixed, Fixed: 0},
			{Name: "actor", Source: SourceFixed, Fixed: 1},
			{Name: "folio", Source: SourceFixed, Fixed: 2},
			{Name: "folio_reward_tokens", Source: SourceFixed, Fixed: 3},
			{Name: "governing_token_mint", Source: SourceFixed, Fixed: 4},
			{Name: "governing_token_holding", Source: SourceHolding},
			{Name: "token_owner_record", Source: SourceOwnerRecord},
			{Name: "user", Source: SourceOwner, Privilege: WritableSigner},
			{Name: "user_token_account", Source: SourceOwner, Privilege: WritableSigner},
		},
		GroupRoles:   rewardGroupRoles,
		GroupPattern: rewardGroupPattern,
	}
}

func RewardsProfile(programID solana.PublicKey) *AccrualProfile {
	return &AccrualProfile{
		Name:       "rewards",
		ProgramID:  programID,
		FixedRoles: []string{"reward_tokens", "governing_token_mint"},
		Layout: []Slot{
			{Name: "system_program", Source: SourceSystem},
			{Name: "token_program", Source: SourceTokenProgram},
			{Name: "caller", Source: SourceOwner, Privilege: WritableSigner},
			{Name: "realm", Source: SourceRealm},
			{Name: "reward_tokens", Source: SourceFixed, Fixed: 0},
			{Name: "governing_token_mint", Source: SourceFixed, Fixed: 1},
			{Name: "governing_token_holding", Source: SourceHolding},
			{Name: "token_owner_record", Source: SourceOwnerRecord},
			{Name: "user", Source: SourceOwner, Privilege: WritableSigner},
			{Name: "user_token_account", Source: SourceOwner, Privilege: WritableSigner},
		},
		GroupRoles:   rewardGroupRoles,
		GroupPattern: rewardGroupPattern,
	}
}

// DefaultProfiles are the two production accrual programs.
func DefaultProfiles() []*AccrualProfile {
	return []*AccrualProfile{
		FolioProfile(DefaultFolioProgramID),
		RewardsProfile(DefaultRewardsProgramID),
	}
}

// ProfileFor returns the profile whose program id is key.
func ProfileFor(profiles []*AccrualProfile, key solana.PublicKey) (*AccrualProfile, bool) {
	for _, p := range profiles {
		if p.ProgramID == key {
			return p, true
		}
	}
	return nil, false
}

// AccrualAccounts are the withdrawal accounts forwarded to every accrual call.
type AccrualAccounts struct {
	Realm        *types.AccountInfo
	System       *types.AccountInfo
	TokenProgram *types.AccountInfo
	Owner        *types.AccountInfo
	Holding      *types.AccountInfo
	OwnerRecord  *types.AccountInfo
}

// Invocation is a delegated call ready to be issued.
type Invocation struct {
	Instruction *solana.GenericInstruction
	Accounts    []*types.AccountInfo
}

// Build validates the target and lays out the accrual call. fixed holds the accounts that
// follow the identity; groups is the trailing reward-token block.
func (p *AccrualProfile) Build(base *AccrualAccounts, identity *types.AccountInfo, fixed, groups []*types.AccountInfo) (*Invocation, aerrors.ActorError) {
	if len(fixed) != p.FixedLen() {
		return nil, aerrors.Newf(ErrMalformedAccountList, "%s accrual needs %d fixed accounts, got %d", p.Name, p.FixedLen(), len(fixed))
	}
	if len(groups)%p.GroupSize() != 0 {
		return nil, aerrors.Newf(ErrMalformedAccountList, "%d reward-token accounts is not a multiple of %d", len(groups), p.GroupSize())
	}

	if identity.Key != p.ProgramID {
		return nil, aerrors.Newf(ErrInvalidDelegateActor, "%s is not the %s program %s", identity.Key, p.Name, p.ProgramID)
	}
	exec, err := identity.Executable()
	if err != nil {
		return nil, aerrors.Absorb(err, ErrInvalidDelegateActor, "reading accrual program account")
	}
	if !exec {
		return nil, aerrors.Newf(ErrInvalidDelegateActor, "%s program %s is not executable", p.Name, identity.Key)
	}

	metas := make(solana.AccountMetaSlice, 0, len(p.Layout)+len(groups))
	infos := make([]*types.AccountInfo, 0, len(p.Layout)+len(groups))
	for _, s := range p.Layout {
		ai := p.resolve(s, base, fixed)
		metas = append(metas, solana.NewAccountMeta(ai.Key, s.Writable, s.Signer))
		infos = append(infos, ai)
	}
	for i, ai := range groups {
		priv := p.GroupPattern[i%p.GroupSize()]
		metas = append(metas, solana.NewAccountMeta(ai.Key, priv.Writable, priv.Signer))
		infos = append(infos, ai)
	}

	sel := AccrueRewards.Selector()
	return &Invocation{
		Instruction: solana.NewInstruction(p.ProgramID, metas, sel[:]),
		Accounts:    infos,
	}, nil
}

func (p *AccrualProfile) resolve(s Slot, base *AccrualAccounts, fixed []*types.AccountInfo) *types.AccountInfo {
	switch s.Source {
	case SourceSystem:
		return base.System
	case SourceTokenProgram:
		return base.TokenProgram
	case SourceOwner:
		return base.Owner
	case SourceRealm:
		return base.Realm
	case SourceHolding:
		return base.Holding
	case SourceOwnerRecord:
		return base.OwnerRecord
	case SourceFixed:
		return fixed[s.Fixed]
	default:
		panic("unknown accrual account source")
	}
}

// Accrue builds the accrual call for p and issues it. Failures of the accrual program keep
// their exit code.
func (p *AccrualProfile) Accrue(rt *vm.Runtime, base *AccrualAccounts, identity *types.AccountInfo, fixed, groups []*types.AccountInfo) error {
	inv, aerr := p.Build(base, identity, fixed, groups)
	if aerr != nil {
		return aerr
	}

	log.Debugw("delegating reward accrual", "profile", p.Name, "program", p.ProgramID, "accounts", len(inv.Accounts), "groups", len(groups)/p.GroupSize())
	_ = stats.RecordWithTags(rt.Context(), []tag.Mutator{tag.Upsert(metrics.AccrualProfile, p.Name)}, metrics.GovernanceAccrualInvocations.M(1))

	if err := rt.Invoke(inv.Instruction, inv.Accounts); err != nil {
		return aerrors.HandleExternalError(err, exitcode.ErrIllegalState, p.Name+" reward accrual")
	}
	return nil
}
