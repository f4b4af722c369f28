package repo

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ipfs/go-datastore"
	fslock "github.com/ipfs/go-fs-lock"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/node/config"
)

const (
	fsConfig    = "config.toml"
	fsDatastore = "datastore"
	fsLock      = "repo.lock"
)

var log = logging.Logger("repo")

var ErrRepoNotInitialized = xerrors.New("repo not initialized")

// FsRepo is struct for repo, use NewFS to create
type FsRepo struct {
	path       string
	configPath string
}

// NewFS creates a repo instance based on a path on file system
func NewFS(path string) (*FsRepo, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	return &FsRepo{
		path:       path,
		configPath: filepath.Join(path, fsConfig),
	}, nil
}

func (fsr *FsRepo) Path() string {
	return fsr.path
}

// SetConfigPath points the repo at a config file outside the repo directory.
func (fsr *FsRepo) SetConfigPath(cfgPath string) {
	fsr.configPath = cfgPath
}

func (fsr *FsRepo) Exists() (bool, error) {
	_, err := os.Stat(fsr.configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Init creates the repo directory and writes cfg, or the default config when cfg is nil.
func (fsr *FsRepo) Init(cfg *config.Simulator) error {
	exist, err := fsr.Exists()
	if err != nil {
		return err
	}
	if exist {
		return nil
	}

	log.Infof("Initializing repo at '%s'", fsr.path)
	if err := os.MkdirAll(fsr.path, 0755); err != nil && !os.IsExist(err) { //nolint: gosec
		return err
	}

	if cfg == nil {
		cfg = config.DefaultSimulator()
		cfg.Datastore.Path = fsDatastore
	}
	b, err := config.ToBytes(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fsr.configPath, b, 0644); err != nil {
		return xerrors.Errorf("write config: %w", err)
	}
	return nil
}

// Config loads the repo config, applies environment overrides and validates it.
func (fsr *FsRepo) Config() (*config.Simulator, error) {
	exist, err := fsr.Exists()
	if err != nil {
		return nil, err
	}
	if !exist {
		return nil, ErrRepoNotInitialized
	}

	cfg, err := config.FromFile(fsr.configPath, config.DefaultSimulator())
	if err != nil {
		return nil, xerrors.Errorf("loading config: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid config %s: %w", fsr.configPath, err)
	}
	return cfg, nil
}

// Lock takes the repo lock for this process until the LockedRepo is closed.
func (fsr *FsRepo) Lock() (*LockedRepo, error) {
	cfg, err := fsr.Config()
	if err != nil {
		return nil, err
	}
	closer, err := fslock.Lock(fsr.path, fsLock)
	if err != nil {
		return nil, xerrors.Errorf("could not lock the repo: %w", err)
	}
	return &LockedRepo{
		path:   fsr.path,
		cfg:    cfg,
		closer: closer,
	}, nil
}

type LockedRepo struct {
	path   string
	cfg    *config.Simulator
	closer io.Closer

	dsOnce sync.Once
	ds     datastore.Batching
	dsErr  error
}

func (lr *LockedRepo) Path() string {
	return lr.path
}

func (lr *LockedRepo) Config() *config.Simulator {
	return lr.cfg
}

// Datastore opens the configured datastore once; relative paths are inside the repo.
func (lr *LockedRepo) Datastore() (datastore.Batching, error) {
	lr.dsOnce.Do(func() {
		dcfg := lr.cfg.Datastore
		if dcfg.Path != "" && !filepath.IsAbs(dcfg.Path) && dcfg.Path[0] != '~' {
			dcfg.Path = filepath.Join(lr.path, dcfg.Path)
		}
		lr.ds, lr.dsErr = OpenDatastore(dcfg)
	})
	return lr.ds, lr.dsErr
}

func (lr *LockedRepo) Close() error {
	var err error
	if lr.ds != nil {
		if cerr := lr.ds.Close(); cerr != nil {
			err = xerrors.Errorf("closing datastore: %w", cerr)
		}
	}
	if cerr := lr.closer.Close(); cerr != nil && err == nil {
		err = xerrors.Errorf("releasing repo lock: %w", cerr)
	}
	return err
}
