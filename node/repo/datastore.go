package repo

import (
	"os"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	badger "github.com/ipfs/go-ds-badger2"
	levelds "github.com/ipfs/go-ds-leveldb"
	measure "github.com/ipfs/go-ds-measure"
	"github.com/mitchellh/go-homedir"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/node/config"
)

// OpenDatastore opens the backend named by cfg, wrapped to collect datastore statistics.
func OpenDatastore(cfg config.Datastore) (datastore.Batching, error) {
	var ds datastore.Batching
	switch cfg.Type {
	case config.DatastoreMemory:
		ds = dssync.MutexWrap(datastore.NewMapDatastore())

	case config.DatastoreLevelDB:
		path, err := prepareDir(cfg.Path)
		if err != nil {
			return nil, err
		}
		ds, err = levelds.NewDatastore(path, &levelds.Options{
			Compression: ldbopts.NoCompression,
			NoSync:      false,
			Strict:      ldbopts.StrictAll,
			ReadOnly:    false,
		})
		if err != nil {
			return nil, xerrors.Errorf("open leveldb: %w", err)
		}

	case config.DatastoreBadger:
		path, err := prepareDir(cfg.Path)
		if err != nil {
			return nil, err
		}
		ds, err = badger.NewDatastore(path, nil)
		if err != nil {
			return nil, xerrors.Errorf("open badger: %w", err)
		}

	default:
		return nil, xerrors.Errorf("unknown datastore type %q", cfg.Type)
	}

	log.Debugw("opened datastore", "type", cfg.Type, "path", cfg.Path)
	return measure.New("govsim.datastore", ds), nil
}

func prepareDir(path string) (string, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return "", xerrors.Errorf("expanding datastore path: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", xerrors.Errorf("failed to create directory %s for datastore: %w", path, err)
	}
	return path, nil
}
