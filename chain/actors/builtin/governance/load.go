package governance

import (
	"github.com/gagliardetto/solana-go"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/lib/cborutil"
)

var (
	ErrNotOwnedByProgram = xerrors.New("account not owned by governance program")
	ErrUnexpectedAddress = xerrors.New("account is not at its derived address")
)

func loadOwned(programID solana.PublicKey, ai *types.AccountInfo, out cbg.CBORUnmarshaler) error {
	owner, err := ai.Owner()
	if err != nil {
		return err
	}
	if owner != programID {
		return xerrors.Errorf("%s owned by %s: %w", ai.Key, owner, ErrNotOwnedByProgram)
	}
	data, err := ai.Data()
	if err != nil {
		return err
	}
	if err := cborutil.Load(data, out); err != nil {
		return xerrors.Errorf("decoding %s: %w", ai.Key, err)
	}
	return nil
}

func assertAddress(ai *types.AccountInfo, seeds [][]byte, programID solana.PublicKey) error {
	want, _, err := FindAddress(seeds, programID)
	if err != nil {
		return err
	}
	if want != ai.Key {
		return xerrors.Errorf("%s != %s: %w", ai.Key, want, ErrUnexpectedAddress)
	}
	return nil
}

// GetRealmData decodes the realm behind ai.
func GetRealmData(programID solana.PublicKey, ai *types.AccountInfo) (*Realm, error) {
	var r Realm
	if err := loadOwned(programID, ai, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRealmConfigForRealm decodes the config of realm, which must live at RealmConfigAddress.
func GetRealmConfigForRealm(programID solana.PublicKey, ai *types.AccountInfo, realm solana.PublicKey) (*RealmConfig, error) {
	if err := assertAddress(ai, RealmConfigSeeds(realm), programID); err != nil {
		return nil, err
	}
	var c RealmConfig
	if err := loadOwned(programID, ai, &c); err != nil {
		return nil, err
	}
	if c.Realm != realm {
		return nil, xerrors.Errorf("config %s belongs to realm %s, not %s", ai.Key, c.Realm, realm)
	}
	return &c, nil
}

// GetTokenOwnerRecordForSeeds decodes the owner record derived from seeds.
func GetTokenOwnerRecordForSeeds(programID solana.PublicKey, ai *types.AccountInfo, seeds [][]byte) (*TokenOwnerRecord, error) {
	if err := assertAddress(ai, seeds, programID); err != nil {
		return nil, err
	}
	var t TokenOwnerRecord
	if err := loadOwned(programID, ai, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Store writes the encoded record to ai.
func Store(ai *types.AccountInfo, rec cbg.CBORMarshaler) error {
	data, err := cborutil.Dump(rec)
	if err != nil {
		return err
	}
	return ai.SetData(data)
}
