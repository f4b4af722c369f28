package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/require"

	"github.com/govrealm/govchain/node/config"
)

func genFsRepo(t *testing.T) *FsRepo {
	r, err := NewFS(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, r.Init(nil))
	return r
}

func TestUninitialized(t *testing.T) {
	r, err := NewFS(t.TempDir())
	require.NoError(t, err)

	exists, err := r.Exists()
	require.NoError(t, err)
	require.False(t, exists)

	_, err = r.Config()
	require.ErrorIs(t, err, ErrRepoNotInitialized)
}

func TestInitWritesDefaultConfig(t *testing.T) {
	r := genFsRepo(t)

	exists, err := r.Exists()
	require.NoError(t, err)
	require.True(t, exists)

	cfg, err := r.Config()
	require.NoError(t, err)
	require.Equal(t, config.DatastoreLevelDB, cfg.Datastore.Type)
	require.Equal(t, fsDatastore, cfg.Datastore.Path)
	require.Equal(t, config.DefaultSimulator().Governance, cfg.Governance)

	// a second Init keeps the existing config
	require.NoError(t, r.Init(&config.Simulator{}))
	again, err := r.Config()
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLockIsExclusive(t *testing.T) {
	r := genFsRepo(t)

	lr, err := r.Lock()
	require.NoError(t, err)

	_, err = r.Lock()
	require.Error(t, err, "second lock should fail")

	require.NoError(t, lr.Close())

	lr, err = r.Lock()
	require.NoError(t, err)
	require.NoError(t, lr.Close())
}

func TestDatastorePersists(t *testing.T) {
	ctx := context.Background()
	r := genFsRepo(t)
	key := datastore.NewKey("/accounts/x")

	lr, err := r.Lock()
	require.NoError(t, err)
	ds, err := lr.Datastore()
	require.NoError(t, err)
	require.NoError(t, ds.Put(ctx, key, []byte("hello")))
	require.NoError(t, lr.Close())
	require.DirExists(t, filepath.Join(r.Path(), fsDatastore))

	lr, err = r.Lock()
	require.NoError(t, err)
	defer lr.Close() //nolint:errcheck
	ds, err = lr.Datastore()
	require.NoError(t, err)
	v, err := ds.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestOpenDatastoreBackends(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []string{config.DatastoreMemory, config.DatastoreLevelDB, config.DatastoreBadger} {
		t.Run(typ, func(t *testing.T) {
			ds, err := OpenDatastore(config.Datastore{Type: typ, Path: filepath.Join(t.TempDir(), typ)})
			require.NoError(t, err)
			defer ds.Close() //nolint:errcheck

			key := datastore.NewKey("/k")
			require.NoError(t, ds.Put(ctx, key, []byte{1, 2}))
			has, err := ds.Has(ctx, key)
			require.NoError(t, err)
			require.True(t, has)
		})
	}

	_, err := OpenDatastore(config.Datastore{Type: "mongo"})
	require.Error(t, err)
}

func TestSetConfigPath(t *testing.T) {
	r, err := NewFS(t.TempDir())
	require.NoError(t, err)
	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	r.SetConfigPath(cfgPath)

	cfg := config.DefaultSimulator()
	cfg.Datastore.Type = config.DatastoreMemory
	cfg.Governance.RealmName = "custom"
	require.NoError(t, r.Init(cfg))
	require.FileExists(t, cfgPath)
	require.NoFileExists(t, filepath.Join(r.Path(), fsConfig))

	lr, err := r.Lock()
	require.NoError(t, err)
	defer lr.Close() //nolint:errcheck
	require.Equal(t, "custom", lr.Config().Governance.RealmName)
	require.Equal(t, config.DatastoreMemory, lr.Config().Datastore.Type)
}
