package gen

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/builtin/governance"
	"github.com/govrealm/govchain/chain/actors/builtin/rewards"
	"github.com/govrealm/govchain/chain/actors/builtin/token"
	"github.com/govrealm/govchain/chain/state"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
	"github.com/govrealm/govchain/lib/cborutil"
)

var log = logging.Logger("gen")

type DevnetOpts struct {
	// Datastore backs the account tree; an in-memory store is used when nil.
	Datastore datastore.Batching
	Clock     clock.Clock

	GovernanceProgramID solana.PublicKey
	// Profiles are the accepted accrual programs; Accrual names the one the withdrawal uses.
	Profiles []*governance.AccrualProfile
	Accrual  string
	// AccrualCode replaces the reference accrual program for a program id.
	AccrualCode map[solana.PublicKey]vm.Invokee

	RealmName          string
	CommunityTokenType governance.GoverningTokenType
	Deposit            uint64
	// OtherDeposits is custody held for owners other than the withdrawing one.
	OtherDeposits uint64
	Locks         []governance.TokenOwnerRecordLock
	RewardGroups  int
}

// Devnet is an account tree seeded with one realm and one owner ready to withdraw.
type Devnet struct {
	VM *vm.VM

	GovernanceProgramID solana.PublicKey
	Accrual             *governance.AccrualProfile

	Mint        solana.PublicKey
	Realm       solana.PublicKey
	Holding     solana.PublicKey
	RealmConfig solana.PublicKey
	Owner       solana.PublicKey
	OwnerRecord solana.PublicKey
	Destination solana.PublicKey

	Fixed  []solana.PublicKey
	Groups []governance.RewardGroup
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func (opts *DevnetOpts) setDefaults() {
	if opts.Datastore == nil {
		opts.Datastore = dssync.MutexWrap(datastore.NewMapDatastore())
	}
	if opts.GovernanceProgramID.IsZero() {
		opts.GovernanceProgramID = governance.DefaultProgramID
	}
	if len(opts.Profiles) == 0 {
		opts.Profiles = governance.DefaultProfiles()
	}
	if opts.Accrual == "" {
		opts.Accrual = opts.Profiles[0].Name
	}
	if opts.RealmName == "" {
		opts.RealmName = "devnet"
	}
}

// newVM deploys every program of opts over the account tree in opts.Datastore.
func newVM(opts *DevnetOpts) (*vm.VM, *governance.AccrualProfile, error) {
	var accrual *governance.AccrualProfile
	for _, p := range opts.Profiles {
		if p.Name == opts.Accrual {
			accrual = p
		}
	}
	if accrual == nil {
		return nil, nil, xerrors.Errorf("no accrual profile named %q", opts.Accrual)
	}

	v, err := vm.NewVM(&vm.VMOpts{Tree: state.NewAccountTree(opts.Datastore), Clock: opts.Clock})
	if err != nil {
		return nil, nil, err
	}

	gov, err := governance.NewActor(opts.Profiles...)
	if err != nil {
		return nil, nil, err
	}
	if err := v.Deploy(opts.GovernanceProgramID, gov); err != nil {
		return nil, nil, err
	}
	if err := v.Deploy(token.ProgramID, token.Actor{}); err != nil {
		return nil, nil, err
	}
	for _, p := range opts.Profiles {
		code, ok := opts.AccrualCode[p.ProgramID]
		if !ok {
			code = &rewards.Actor{Profile: p}
		}
		if err := v.Deploy(p.ProgramID, code); err != nil {
			return nil, nil, err
		}
	}
	return v, accrual, nil
}

func NewDevnet(ctx context.Context, opts DevnetOpts) (*Devnet, error) {
	opts.setDefaults()
	v, accrual, err := newVM(&opts)
	if err != nil {
		return nil, err
	}

	d := &Devnet{
		VM:                  v,
		GovernanceProgramID: opts.GovernanceProgramID,
		Accrual:             accrual,
		Mint:                newKey(),
		Owner:               newKey(),
		Destination:         newKey(),
	}
	if err := d.seed(v.Tree(), &opts); err != nil {
		return nil, err
	}
	if err := v.Flush(ctx); err != nil {
		return nil, xerrors.Errorf("flushing devnet state: %w", err)
	}

	log.Infow("devnet ready", "realm", opts.RealmName, "accrual", accrual.Name, "deposit", opts.Deposit, "groups", opts.RewardGroups)
	return d, nil
}

// Manifest is the part of a Devnet that has to be kept to reopen its datastore later.
type Manifest struct {
	GovernanceProgramID solana.PublicKey
	Accrual             string

	Mint        solana.PublicKey
	Realm       solana.PublicKey
	Holding     solana.PublicKey
	RealmConfig solana.PublicKey
	Owner       solana.PublicKey
	OwnerRecord solana.PublicKey
	Destination solana.PublicKey

	Fixed  []solana.PublicKey
	Groups []governance.RewardGroup
}

func (d *Devnet) Manifest() *Manifest {
	return &Manifest{
		GovernanceProgramID: d.GovernanceProgramID,
		Accrual:             d.Accrual.Name,
		Mint:                d.Mint,
		Realm:               d.Realm,
		Holding:             d.Holding,
		RealmConfig:         d.RealmConfig,
		Owner:               d.Owner,
		OwnerRecord:         d.OwnerRecord,
		Destination:         d.Destination,
		Fixed:               d.Fixed,
		Groups:              d.Groups,
	}
}

// OpenDevnet redeploys the programs over a datastore seeded earlier by NewDevnet. Seeding
// options of opts are ignored.
func OpenDevnet(opts DevnetOpts, m *Manifest) (*Devnet, error) {
	opts.GovernanceProgramID = m.GovernanceProgramID
	opts.Accrual = m.Accrual
	opts.setDefaults()
	v, accrual, err := newVM(&opts)
	if err != nil {
		return nil, err
	}
	return &Devnet{
		VM:                  v,
		GovernanceProgramID: m.GovernanceProgramID,
		Accrual:             accrual,
		Mint:                m.Mint,
		Realm:               m.Realm,
		Holding:             m.Holding,
		RealmConfig:         m.RealmConfig,
		Owner:               m.Owner,
		OwnerRecord:         m.OwnerRecord,
		Destination:         m.Destination,
		Fixed:               m.Fixed,
		Groups:              m.Groups,
	}, nil
}

type seedRecord struct {
	key   solana.PublicKey
	owner solana.PublicKey
	rec   cbg.CBORMarshaler
}

func (d *Devnet) seed(tree *state.AccountTree, opts *DevnetOpts) error {
	gov := d.GovernanceProgramID

	var err error
	if d.Realm, err = governance.RealmAddress(gov, opts.RealmName); err != nil {
		return err
	}
	if d.Holding, err = governance.HoldingAddress(gov, d.Realm, d.Mint); err != nil {
		return err
	}
	if d.RealmConfig, err = governance.RealmConfigAddress(gov, d.Realm); err != nil {
		return err
	}
	if d.OwnerRecord, err = governance.TokenOwnerRecordAddress(gov, d.Realm, d.Mint, d.Owner); err != nil {
		return err
	}

	custody := opts.Deposit + opts.OtherDeposits
	records := []seedRecord{
		{d.Mint, token.ProgramID, &token.Mint{Supply: custody, Decimals: 6}},
		{d.Holding, token.ProgramID, &token.Account{Mint: d.Mint, Owner: d.Realm, Amount: custody}},
		{d.Destination, token.ProgramID, &token.Account{Mint: d.Mint, Owner: d.Owner}},
		{d.Realm, gov, &governance.Realm{Name: opts.RealmName, CommunityMint: d.Mint}},
		{d.RealmConfig, gov, &governance.RealmConfig{
			Realm:                d.Realm,
			CommunityTokenConfig: governance.GoverningTokenConfig{TokenType: opts.CommunityTokenType},
		}},
		{d.OwnerRecord, gov, &governance.TokenOwnerRecord{
			Realm:                       d.Realm,
			GoverningTokenMint:          d.Mint,
			GoverningTokenOwner:         d.Owner,
			GoverningTokenDepositAmount: opts.Deposit,
			Locks:                       opts.Locks,
		}},
	}

	for _, role := range d.Accrual.FixedRoles {
		if role == "governing_token_mint" {
			d.Fixed = append(d.Fixed, d.Mint)
			continue
		}
		d.Fixed = append(d.Fixed, newKey())
	}

	for i := 0; i < opts.RewardGroups; i++ {
		g := governance.RewardGroup{
			Mint:               newKey(),
			MintRewardInfo:     newKey(),
			RewardTokenAccount: newKey(),
			CallerRewardInfo:   newKey(),
		}
		records = append(records,
			seedRecord{g.Mint, token.ProgramID, &token.Mint{Decimals: 9}},
			seedRecord{g.RewardTokenAccount, token.ProgramID, &token.Account{Mint: g.Mint, Owner: d.Accrual.ProgramID}},
		)
		for _, k := range []solana.PublicKey{g.MintRewardInfo, g.CallerRewardInfo} {
			if err := tree.SetAccount(k, &types.Account{Owner: d.Accrual.ProgramID}); err != nil {
				return err
			}
		}
		d.Groups = append(d.Groups, g)
	}

	for _, r := range records {
		data, err := cborutil.Dump(r.rec)
		if err != nil {
			return xerrors.Errorf("encoding %s: %w", r.key, err)
		}
		if err := tree.SetAccount(r.key, &types.Account{Owner: r.owner, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Devnet) WithdrawArgs() *governance.WithdrawArgs {
	return &governance.WithdrawArgs{
		Realm:       d.Realm,
		Holding:     d.Holding,
		Destination: d.Destination,
		Owner:       d.Owner,
		OwnerRecord: d.OwnerRecord,
		RealmConfig: d.RealmConfig,
		Accrual:     d.Accrual,
		Fixed:       d.Fixed,
		Groups:      d.Groups,
	}
}

// WithdrawTransaction is the owner's signed withdrawal of the whole deposit.
func (d *Devnet) WithdrawTransaction() (*types.Transaction, error) {
	ix, err := governance.NewWithdrawInstruction(d.GovernanceProgramID, d.WithdrawArgs())
	if err != nil {
		return nil, err
	}
	return &types.Transaction{
		Instructions: []solana.Instruction{ix},
		Signers:      []solana.PublicKey{d.Owner},
	}, nil
}

func (d *Devnet) load(ctx context.Context, key solana.PublicKey, out cbg.CBORUnmarshaler) error {
	acct, err := d.VM.Tree().GetAccount(ctx, key)
	if err != nil {
		return xerrors.Errorf("loading %s: %w", key, err)
	}
	return cborutil.Load(acct.Data, out)
}

func (d *Devnet) TokenBalance(ctx context.Context, key solana.PublicKey) (uint64, error) {
	var acct token.Account
	if err := d.load(ctx, key, &acct); err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

func (d *Devnet) TokenOwnerRecord(ctx context.Context) (*governance.TokenOwnerRecord, error) {
	var rec governance.TokenOwnerRecord
	if err := d.load(ctx, d.OwnerRecord, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UserRewardInfo returns the caller reward info of group i, or nil if nothing accrued yet.
func (d *Devnet) UserRewardInfo(ctx context.Context, i int) (*rewards.UserRewardInfo, error) {
	if i < 0 || i >= len(d.Groups) {
		return nil, xerrors.Errorf("no reward group %d", i)
	}
	acct, err := d.VM.Tree().GetAccount(ctx, d.Groups[i].CallerRewardInfo)
	if err != nil {
		return nil, err
	}
	if len(acct.Data) == 0 {
		return nil, nil
	}
	var info rewards.UserRewardInfo
	if err := cborutil.Load(acct.Data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AccrualInstruction calls the accrual program directly with the layout the governance
// program uses for it. The caller slot only claims a signature when callerSigns is set.
func (d *Devnet) AccrualInstruction(callerSigns bool) *solana.GenericInstruction {
	var metas solana.AccountMetaSlice
	for _, s := range d.Accrual.Layout {
		var key solana.PublicKey
		switch s.Source {
		case governance.SourceSystem:
			key = solana.SystemProgramID
		case governance.SourceTokenProgram:
			key = token.ProgramID
		case governance.SourceOwner:
			key = d.Owner
		case governance.SourceRealm:
			key = d.Realm
		case governance.SourceHolding:
			key = d.Holding
		case governance.SourceOwnerRecord:
			key = d.OwnerRecord
		case governance.SourceFixed:
			key = d.Fixed[s.Fixed]
		}
		signer := s.Signer
		if s.Name == "caller" {
			signer = signer && callerSigns
		}
		metas = append(metas, solana.NewAccountMeta(key, s.Writable, signer))
	}
	for _, g := range d.Groups {
		for i, k := range []solana.PublicKey{g.Mint, g.MintRewardInfo, g.RewardTokenAccount, g.CallerRewardInfo} {
			metas = append(metas, solana.NewAccountMeta(k, d.Accrual.GroupPattern[i].Writable, false))
		}
	}
	sel := governance.AccrueRewards.Selector()
	return solana.NewInstruction(d.Accrual.ProgramID, metas, sel[:])
}

// Names maps the devnet's well-known accounts to their roles.
func (m *Manifest) Names() map[solana.PublicKey]string {
	names := map[solana.PublicKey]string{
		m.GovernanceProgramID: "governance program",
		token.ProgramID:       "token program",
		m.Mint:                "governing mint",
		m.Realm:               "realm",
		m.Holding:             "holding",
		m.RealmConfig:         "realm config",
		m.Owner:               "owner",
		m.OwnerRecord:         "owner record",
		m.Destination:         "destination",
	}
	for i, g := range m.Groups {
		names[g.Mint] = fmt.Sprintf("group %d mint", i)
		names[g.MintRewardInfo] = fmt.Sprintf("group %d mint reward info", i)
		names[g.RewardTokenAccount] = fmt.Sprintf("group %d reward tokens", i)
		names[g.CallerRewardInfo] = fmt.Sprintf("group %d caller reward info", i)
	}
	return names
}
