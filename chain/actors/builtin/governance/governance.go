package governance

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/chain/vm"
)

var log = logging.Logger("governance")

var DefaultProgramID = solana.MustPublicKeyFromBase58("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")

const (
	MethodWithdrawGoverningTokens byte = 2
)

// Actor is the governance program. Profiles lists the reward-accrual programs a withdrawal
// may delegate to.
type Actor struct {
	Profiles []*AccrualProfile
}

var _ vm.Invokee = (*Actor)(nil)

func NewActor(profiles ...*AccrualProfile) (*Actor, error) {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	seen := make(map[solana.PublicKey]string, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, xerrors.Errorf("accrual profile %s: %w", p.Name, err)
		}
		if other, ok := seen[p.ProgramID]; ok {
			return nil, xerrors.Errorf("profiles %s and %s share program %s", other, p.Name, p.ProgramID)
		}
		seen[p.ProgramID] = p.Name
	}
	return &Actor{Profiles: profiles}, nil
}

func (a *Actor) Invoke(rt *vm.Runtime, accounts []*types.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return aerrors.New(exitcode.ErrIllegalArgument, "empty instruction data")
	}
	switch data[0] {
	case MethodWithdrawGoverningTokens:
		if len(data) != 1 {
			return aerrors.Newf(exitcode.ErrSerialization, "withdraw takes no params, got %d bytes", len(data)-1)
		}
		return a.WithdrawGoverningTokens(rt, accounts)
	default:
		return aerrors.Newf(exitcode.SysErrInvalidMethod, "unsupported governance method %d", data[0])
	}
}

// Validate checks that the layout only references fixed accounts the profile declares.
func (p *AccrualProfile) Validate() error {
	if p.Name == "" {
		return xerrors.New("profile has no name")
	}
	if p.ProgramID.IsZero() {
		return xerrors.New("profile has no program id")
	}
	if p.GroupSize() == 0 || len(p.GroupRoles) != p.GroupSize() {
		return xerrors.Errorf("group roles (%d) and pattern (%d) must be non-empty and match", len(p.GroupRoles), p.GroupSize())
	}
	for i, s := range p.Layout {
		if s.Source < SourceSystem || s.Source > SourceFixed {
			return xerrors.Errorf("slot %d (%s): unknown source %d", i, s.Name, s.Source)
		}
		if s.Source == SourceFixed && (s.Fixed < 0 || s.Fixed >= p.FixedLen()) {
			return xerrors.Errorf("slot %d (%s): fixed index %d out of range", i, s.Name, s.Fixed)
		}
	}
	return nil
}
