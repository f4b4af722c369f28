package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/gen"
	"github.com/govrealm/govchain/lib/govlog"
	"github.com/govrealm/govchain/node/repo"
)

const manifestFile = "devnet.json"

// fsRepo opens the repo named by --repo, reading its config from --config when set.
func fsRepo(cctx *cli.Context) (*repo.FsRepo, error) {
	r, err := repo.NewFS(cctx.String("repo"))
	if err != nil {
		return nil, err
	}
	if cfg := cctx.String("config"); cfg != "" {
		cfg, err = homedir.Expand(cfg)
		if err != nil {
			return nil, err
		}
		r.SetConfigPath(cfg)
	}
	return r, nil
}

// openRepo locks the repo named by --repo and applies its log levels.
func openRepo(cctx *cli.Context) (*repo.LockedRepo, error) {
	r, err := fsRepo(cctx)
	if err != nil {
		return nil, err
	}
	lr, err := r.Lock()
	if err != nil {
		if xerrors.Is(err, repo.ErrRepoNotInitialized) {
			return nil, xerrors.Errorf("%s: run 'govsim init' first", r.Path())
		}
		return nil, err
	}
	if err := govlog.SetupLogLevels(lr.Config().Logging.SubsystemLevels); err != nil {
		_ = lr.Close()
		return nil, err
	}
	// --log-level wins for the CLI itself
	if cctx.IsSet("log-level") {
		if err := govlog.SetupLogLevels(map[string]string{"govsim": cctx.String("log-level")}); err != nil {
			_ = lr.Close()
			return nil, err
		}
	}
	return lr, nil
}

// devnetOpts fills the program identities from the repo config.
func devnetOpts(lr *repo.LockedRepo) (gen.DevnetOpts, error) {
	cfg := lr.Config()
	gov, err := cfg.Governance.Program()
	if err != nil {
		return gen.DevnetOpts{}, err
	}
	profiles, err := cfg.Accrual.Profiles()
	if err != nil {
		return gen.DevnetOpts{}, err
	}
	ds, err := lr.Datastore()
	if err != nil {
		return gen.DevnetOpts{}, err
	}
	return gen.DevnetOpts{
		Datastore:           ds,
		GovernanceProgramID: gov,
		Profiles:            profiles,
		RealmName:           cfg.Governance.RealmName,
	}, nil
}

func writeManifest(lr *repo.LockedRepo, m *gen.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lr.Path(), manifestFile), b, 0644)
}

func readManifest(lr *repo.LockedRepo) (*gen.Manifest, error) {
	b, err := os.ReadFile(filepath.Join(lr.Path(), manifestFile))
	if os.IsNotExist(err) {
		return nil, xerrors.New("no devnet in this repo, run 'govsim genesis' first")
	}
	if err != nil {
		return nil, err
	}
	var m gen.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, xerrors.Errorf("decoding %s: %w", manifestFile, err)
	}
	return &m, nil
}

func openDevnet(lr *repo.LockedRepo) (*gen.Devnet, error) {
	m, err := readManifest(lr)
	if err != nil {
		return nil, err
	}
	opts, err := devnetOpts(lr)
	if err != nil {
		return nil, err
	}
	return gen.OpenDevnet(opts, m)
}
