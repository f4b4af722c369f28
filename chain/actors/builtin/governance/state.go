package governance

import (
	"io"

	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/lib/cborutil"
)

type AccountType uint64

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeRealm
	AccountTypeTokenOwnerRecord
	AccountTypeRealmConfig
)

func (t AccountType) String() string {
	switch t {
	case AccountTypeRealm:
		return "Realm"
	case AccountTypeTokenOwnerRecord:
		return "TokenOwnerRecord"
	case AccountTypeRealmConfig:
		return "RealmConfig"
	default:
		return "Uninitialized"
	}
}

// GoverningTokenType controls what holders of a governing mint may do with their deposit.
type GoverningTokenType uint64

const (
	// Liquid tokens can be deposited and withdrawn freely.
	GoverningTokenTypeLiquid GoverningTokenType = iota
	// Membership tokens can only be revoked by the realm; withdrawal is refused.
	GoverningTokenTypeMembership
	// Dormant tokens cannot be deposited but existing deposits can be withdrawn.
	GoverningTokenTypeDormant
)

func (t GoverningTokenType) String() string {
	switch t {
	case GoverningTokenTypeLiquid:
		return "liquid"
	case GoverningTokenTypeMembership:
		return "membership"
	case GoverningTokenTypeDormant:
		return "dormant"
	default:
		return "unknown"
	}
}

func readAccountType(cr *cbg.CborReader, want AccountType) error {
	v, err := cborutil.ReadUint(cr)
	if err != nil {
		return xerrors.Errorf("reading account type: %w", err)
	}
	if AccountType(v) != want {
		return xerrors.Errorf("invalid account type %s, expected %s", AccountType(v), want)
	}
	return nil
}

func writeOptionalKey(w io.Writer, k *solana.PublicKey) error {
	if k == nil {
		return cborutil.WriteNull(w)
	}
	return cborutil.WriteKey(w, *k)
}

func readOptionalKey(cr *cbg.CborReader) (*solana.PublicKey, error) {
	null, err := cborutil.ReadNull(cr)
	if err != nil || null {
		return nil, err
	}
	k, err := cborutil.ReadKey(cr)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// Realm is a governance domain. Its address is derived from Name and it is the authority of
// every custody holding account of the realm.
type Realm struct {
	Name          string
	CommunityMint solana.PublicKey
	CouncilMint   *solana.PublicKey
}

func (r *Realm) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 4); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(AccountTypeRealm)); err != nil {
		return err
	}
	if err := cborutil.WriteString(w, r.Name); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, r.CommunityMint); err != nil {
		return err
	}
	return writeOptionalKey(w, r.CouncilMint)
}

func (r *Realm) UnmarshalCBOR(rd io.Reader) error {
	*r = Realm{}
	cr := cbg.NewCborReader(rd)
	if err := cborutil.ReadTupleHeader(cr, 4); err != nil {
		return err
	}
	if err := readAccountType(cr, AccountTypeRealm); err != nil {
		return err
	}

	var err error
	if r.Name, err = cborutil.ReadString(cr); err != nil {
		return xerrors.Errorf("reading name: %w", err)
	}
	if r.CommunityMint, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading community mint: %w", err)
	}
	if r.CouncilMint, err = readOptionalKey(cr); err != nil {
		return xerrors.Errorf("reading council mint: %w", err)
	}
	return nil
}

// IsGoverningMint reports whether mint is the community or council mint of the realm.
func (r *Realm) IsGoverningMint(mint solana.PublicKey) bool {
	return mint == r.CommunityMint || (r.CouncilMint != nil && *r.CouncilMint == mint)
}

// AssertValidMintAndHolding checks that mint governs the realm and that holding is the realm's
// custody account for it.
func (r *Realm) AssertValidMintAndHolding(programID, realm, mint, holding solana.PublicKey) error {
	if !r.IsGoverningMint(mint) {
		return xerrors.Errorf("mint %s does not govern realm %s", mint, realm)
	}
	want, err := HoldingAddress(programID, realm, mint)
	if err != nil {
		return err
	}
	if want != holding {
		return xerrors.Errorf("holding %s is not the custody account %s", holding, want)
	}
	return nil
}

type GoverningTokenConfig struct {
	TokenType GoverningTokenType
}

// RealmConfig is the policy record of a realm, stored at RealmConfigAddress(realm).
type RealmConfig struct {
	Realm                solana.PublicKey
	CommunityTokenConfig GoverningTokenConfig
	CouncilTokenConfig   GoverningTokenConfig
}

func (c *RealmConfig) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 4); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(AccountTypeRealmConfig)); err != nil {
		return err
	}
	if err := cborutil.WriteKey(w, c.Realm); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(c.CommunityTokenConfig.TokenType)); err != nil {
		return err
	}
	return cborutil.WriteUint(w, uint64(c.CouncilTokenConfig.TokenType))
}

func (c *RealmConfig) UnmarshalCBOR(r io.Reader) error {
	*c = RealmConfig{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 4); err != nil {
		return err
	}
	if err := readAccountType(cr, AccountTypeRealmConfig); err != nil {
		return err
	}

	var err error
	if c.Realm, err = cborutil.ReadKey(cr); err != nil {
		return xerrors.Errorf("reading realm: %w", err)
	}
	community, err := readTokenType(cr)
	if err != nil {
		return xerrors.Errorf("reading community token type: %w", err)
	}
	council, err := readTokenType(cr)
	if err != nil {
		return xerrors.Errorf("reading council token type: %w", err)
	}
	c.CommunityTokenConfig.TokenType = community
	c.CouncilTokenConfig.TokenType = council
	return nil
}

func readTokenType(cr *cbg.CborReader) (GoverningTokenType, error) {
	v, err := cborutil.ReadUint(cr)
	if err != nil {
		return 0, err
	}
	if v > uint64(GoverningTokenTypeDormant) {
		return 0, xerrors.Errorf("invalid governing token type %d", v)
	}
	return GoverningTokenType(v), nil
}

// TokenConfigFor returns the token config of mint, which must govern realm.
func (c *RealmConfig) TokenConfigFor(realm *Realm, mint solana.PublicKey) (GoverningTokenConfig, error) {
	switch {
	case mint == realm.CommunityMint:
		return c.CommunityTokenConfig, nil
	case realm.CouncilMint != nil && mint == *realm.CouncilMint:
		return c.CouncilTokenConfig, nil
	default:
		return GoverningTokenConfig{}, xerrors.Errorf("mint %s does not govern realm %s", mint, realm.Name)
	}
}

// AssertCanWithdraw refuses withdrawal of membership tokens.
func (c *RealmConfig) AssertCanWithdraw(realm *Realm, mint solana.PublicKey) error {
	tc, err := c.TokenConfigFor(realm, mint)
	if err != nil {
		return err
	}
	if tc.TokenType == GoverningTokenTypeMembership {
		return xerrors.Errorf("cannot withdraw %s tokens of mint %s", tc.TokenType, mint)
	}
	return nil
}

type LockType uint64

// TokenOwnerRecordLock is set by a lock authority; Expiry nil means locked until removed.
type TokenOwnerRecordLock struct {
	LockType  LockType
	Authority solana.PublicKey
	Expiry    *int64
}

// Active reports whether the lock still applies at unix time now.
func (l *TokenOwnerRecordLock) Active(now int64) bool {
	return l.Expiry == nil || *l.Expiry > now
}

// MaxLocks bounds the locks decoded from one record.
const MaxLocks = 32

// TokenOwnerRecord tracks the deposit of one owner for one governing mint of a realm.
type TokenOwnerRecord struct {
	Realm                       solana.PublicKey
	GoverningTokenMint          solana.PublicKey
	GoverningTokenOwner         solana.PublicKey
	GoverningTokenDepositAmount uint64
	UnrelinquishedVotesCount    uint64
	OutstandingProposalCount    uint64
	Locks                       []TokenOwnerRecordLock
}

func (t *TokenOwnerRecord) MarshalCBOR(w io.Writer) error {
	if err := cborutil.WriteTupleHeader(w, 8); err != nil {
		return err
	}
	if err := cborutil.WriteUint(w, uint64(AccountTypeTokenOwnerRecord)); err != nil {
		return err
	}
	for _, k := range []solana.PublicKey{t.Realm, t.GoverningTokenMint, t.GoverningTokenOwner} {
		if err := cborutil.WriteKey(w, k); err != nil {
			return err
		}
	}
	for _, v := range []uint64{t.GoverningTokenDepositAmount, t.UnrelinquishedVotesCount, t.OutstandingProposalCount} {
		if err := cborutil.WriteUint(w, v); err != nil {
			return err
		}
	}

	if len(t.Locks) > MaxLocks {
		return xerrors.Errorf("too many locks: %d", len(t.Locks))
	}
	if err := cborutil.WriteTupleHeader(w, len(t.Locks)); err != nil {
		return err
	}
	for _, l := range t.Locks {
		if err := cborutil.WriteTupleHeader(w, 3); err != nil {
			return err
		}
		if err := cborutil.WriteUint(w, uint64(l.LockType)); err != nil {
			return err
		}
		if err := cborutil.WriteKey(w, l.Authority); err != nil {
			return err
		}
		if l.Expiry == nil {
			if err := cborutil.WriteNull(w); err != nil {
				return err
			}
		} else if err := cborutil.WriteInt64(w, *l.Expiry); err != nil {
			return err
		}
	}
	return nil
}

func (t *TokenOwnerRecord) UnmarshalCBOR(r io.Reader) error {
	*t = TokenOwnerRecord{}
	cr := cbg.NewCborReader(r)
	if err := cborutil.ReadTupleHeader(cr, 8); err != nil {
		return err
	}
	if err := readAccountType(cr, AccountTypeTokenOwnerRecord); err != nil {
		return err
	}

	for _, k := range []*solana.PublicKey{&t.Realm, &t.GoverningTokenMint, &t.GoverningTokenOwner} {
		v, err := cborutil.ReadKey(cr)
		if err != nil {
			return xerrors.Errorf("reading record key: %w", err)
		}
		*k = v
	}
	for _, f := range []*uint64{&t.GoverningTokenDepositAmount, &t.UnrelinquishedVotesCount, &t.OutstandingProposalCount} {
		v, err := cborutil.ReadUint(cr)
		if err != nil {
			return xerrors.Errorf("reading record counter: %w", err)
		}
		*f = v
	}

	n, err := cborutil.ReadArrayHeader(cr, MaxLocks)
	if err != nil {
		return xerrors.Errorf("reading locks: %w", err)
	}
	if n > 0 {
		t.Locks = make([]TokenOwnerRecordLock, n)
	}
	for i := range t.Locks {
		l := &t.Locks[i]
		if err := cborutil.ReadTupleHeader(cr, 3); err != nil {
			return xerrors.Errorf("lock %d: %w", i, err)
		}
		lt, err := cborutil.ReadUint(cr)
		if err != nil {
			return xerrors.Errorf("lock %d type: %w", i, err)
		}
		l.LockType = LockType(lt)
		if l.Authority, err = cborutil.ReadKey(cr); err != nil {
			return xerrors.Errorf("lock %d authority: %w", i, err)
		}
		null, err := cborutil.ReadNull(cr)
		if err != nil {
			return xerrors.Errorf("lock %d expiry: %w", i, err)
		}
		if !null {
			exp, err := cborutil.ReadInt64(cr)
			if err != nil {
				return xerrors.Errorf("lock %d expiry: %w", i, err)
			}
			l.Expiry = &exp
		}
	}
	return nil
}

// AssertCanWithdraw refuses withdrawal while the owner still has votes cast, proposals open
// or a lock that has not expired at unix time now.
func (t *TokenOwnerRecord) AssertCanWithdraw(now int64) error {
	if t.UnrelinquishedVotesCount > 0 {
		return xerrors.Errorf("%d votes must be relinquished first", t.UnrelinquishedVotesCount)
	}
	if t.OutstandingProposalCount > 0 {
		return xerrors.Errorf("%d proposals must be finalized first", t.OutstandingProposalCount)
	}
	for i := range t.Locks {
		if t.Locks[i].Active(now) {
			return xerrors.Errorf("record locked by %s", t.Locks[i].Authority)
		}
	}
	return nil
}
