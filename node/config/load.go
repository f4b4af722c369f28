package config

import (
	"bytes"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/builtin/governance"
)

// FromFile loads config from a specified file, falling back to def if the file doesn't exist.
func FromFile(path string, def *Simulator) (*Simulator, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("expanding config path: %w", err)
	}

	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		if def == nil {
			return nil, xerrors.Errorf("couldn't load config: %w", err)
		}
		return def, nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // The file is RO
	return FromReader(file, def)
}

// FromReader decodes TOML over a copy of def.
func FromReader(reader io.Reader, def *Simulator) (*Simulator, error) {
	cfg := DefaultSimulator()
	if def != nil {
		c := *def
		c.Accrual.Programs = slices.Clone(def.Accrual.Programs)
		c.Logging.SubsystemLevels = maps.Clone(def.Logging.SubsystemLevels)
		cfg = &c
	}

	md, err := toml.NewDecoder(reader).Decode(cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, xerrors.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}

func ToBytes(cfg *Simulator) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return nil, xerrors.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate reports every problem in cfg at once.
func (cfg *Simulator) Validate() error {
	var result *multierror.Error

	if _, err := cfg.Governance.Program(); err != nil {
		result = multierror.Append(result, err)
	}
	if len(cfg.Governance.RealmName) == 0 || len(cfg.Governance.RealmName) > governance.MaxSeedLen {
		result = multierror.Append(result, xerrors.Errorf("realm name must be 1 to %d bytes", governance.MaxSeedLen))
	}
	if _, err := cfg.Accrual.Profiles(); err != nil {
		result = multierror.Append(result, err)
	}
	switch cfg.Datastore.Type {
	case DatastoreMemory:
	case DatastoreLevelDB, DatastoreBadger:
		if cfg.Datastore.Path == "" {
			result = multierror.Append(result, xerrors.Errorf("datastore %s needs a path", cfg.Datastore.Type))
		}
	default:
		result = multierror.Append(result, xerrors.Errorf("unknown datastore type %q", cfg.Datastore.Type))
	}

	return result.ErrorOrNil()
}

func (g *Governance) Program() (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(g.ProgramID)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("governance program id %q: %w", g.ProgramID, err)
	}
	return pk, nil
}

// Profiles resolves the configured accrual programs.
func (a *Accrual) Profiles() ([]*governance.AccrualProfile, error) {
	if len(a.Programs) == 0 {
		return nil, xerrors.New("no accrual programs configured")
	}

	var (
		result *multierror.Error
		out    []*governance.AccrualProfile
		seen   = map[solana.PublicKey]bool{}
	)
	for i, p := range a.Programs {
		pk, err := solana.PublicKeyFromBase58(p.ProgramID)
		if err != nil {
			result = multierror.Append(result, xerrors.Errorf("accrual program %d: %w", i, err))
			continue
		}
		if seen[pk] {
			result = multierror.Append(result, xerrors.Errorf("accrual program %s listed twice", pk))
			continue
		}
		seen[pk] = true

		switch p.Profile {
		case "folio":
			out = append(out, governance.FolioProfile(pk))
		case "rewards":
			out = append(out, governance.RewardsProfile(pk))
		default:
			result = multierror.Append(result, xerrors.Errorf("accrual program %d: unknown profile %q", i, p.Profile))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
