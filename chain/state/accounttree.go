package state

import (
	"bytes"
	"context"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/types"
)

var log = logging.Logger("statetree")

var accountsPrefix = datastore.NewKey("/accounts")

// AccountTree stores accounts by their public key, with a stack of in-memory snapshot
// layers on top of the datastore.
type AccountTree struct {
	ds    datastore.Batching
	snaps *stateSnaps
}

type stateSnaps struct {
	layers []map[solana.PublicKey]streeOp
}

type streeOp struct {
	Acct   types.Account
	Delete bool
}

func newStateSnaps() *stateSnaps {
	return &stateSnaps{
		layers: []map[solana.PublicKey]streeOp{make(map[solana.PublicKey]streeOp)},
	}
}

func (ss *stateSnaps) addLayer() {
	ss.layers = append(ss.layers, make(map[solana.PublicKey]streeOp))
}

func (ss *stateSnaps) dropLayer() {
	ss.layers[len(ss.layers)-1] = nil // allow it to be GCed
	ss.layers = ss.layers[:len(ss.layers)-1]
}

func (ss *stateSnaps) mergeLastLayer() {
	last := ss.layers[len(ss.layers)-1]
	nextLast := ss.layers[len(ss.layers)-2]

	for k, v := range last {
		nextLast[k] = v
	}

	ss.dropLayer()
}

func (ss *stateSnaps) getAccount(key solana.PublicKey) (*types.Account, error) {
	for i := len(ss.layers) - 1; i >= 0; i-- {
		op, ok := ss.layers[i][key]
		if ok {
			if op.Delete {
				return nil, types.ErrAccountNotFound
			}

			return op.Acct.Copy(), nil
		}
	}
	return nil, nil
}

func (ss *stateSnaps) setAccount(key solana.PublicKey, acct *types.Account) {
	ss.layers[len(ss.layers)-1][key] = streeOp{Acct: *acct.Copy()}
}

func (ss *stateSnaps) deleteAccount(key solana.PublicKey) {
	ss.layers[len(ss.layers)-1][key] = streeOp{Delete: true}
}

func NewAccountTree(ds datastore.Batching) *AccountTree {
	return &AccountTree{
		ds:    ds,
		snaps: newStateSnaps(),
	}
}

func accountKey(key solana.PublicKey) datastore.Key {
	return accountsPrefix.ChildString(key.String())
}

// GetAccount returns a copy of the account stored under key.
func (st *AccountTree) GetAccount(ctx context.Context, key solana.PublicKey) (*types.Account, error) {
	snapAcct, err := st.snaps.getAccount(key)
	if err != nil {
		return nil, err
	}
	if snapAcct != nil {
		return snapAcct, nil
	}

	b, err := st.ds.Get(ctx, accountKey(key))
	if err != nil {
		if xerrors.Is(err, datastore.ErrNotFound) {
			return nil, types.ErrAccountNotFound
		}
		return nil, xerrors.Errorf("datastore get %s: %w", key, err)
	}

	var acct types.Account
	if err := acct.UnmarshalCBOR(bytes.NewReader(b)); err != nil {
		return nil, xerrors.Errorf("decoding account %s: %w", key, err)
	}
	return &acct, nil
}

func (st *AccountTree) SetAccount(key solana.PublicKey, acct *types.Account) error {
	st.snaps.setAccount(key, acct)
	return nil
}

func (st *AccountTree) DeleteAccount(ctx context.Context, key solana.PublicKey) error {
	if _, err := st.GetAccount(ctx, key); err != nil {
		return err
	}
	st.snaps.deleteAccount(key)
	return nil
}

func (st *AccountTree) Snapshot(ctx context.Context) error {
	_, span := trace.StartSpan(ctx, "accountTree.Snapshot")
	defer span.End()

	st.snaps.addLayer()

	return nil
}

func (st *AccountTree) ClearSnapshot() {
	st.snaps.mergeLastLayer()
}

func (st *AccountTree) Revert() error {
	st.snaps.dropLayer()
	st.snaps.addLayer()

	return nil
}

// Flush writes the base layer to the datastore in one batch.
func (st *AccountTree) Flush(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "accountTree.Flush")
	defer span.End()
	if len(st.snaps.layers) != 1 {
		return xerrors.Errorf("tried to flush account tree with snapshots on the stack")
	}

	b, err := st.ds.Batch(ctx)
	if err != nil {
		return xerrors.Errorf("creating batch: %w", err)
	}

	for key, op := range st.snaps.layers[0] {
		if op.Delete {
			if err := b.Delete(ctx, accountKey(key)); err != nil {
				return xerrors.Errorf("deleting %s: %w", key, err)
			}
			continue
		}

		var buf bytes.Buffer
		acct := op.Acct
		if err := acct.MarshalCBOR(&buf); err != nil {
			return xerrors.Errorf("encoding account %s: %w", key, err)
		}
		if err := b.Put(ctx, accountKey(key), buf.Bytes()); err != nil {
			return xerrors.Errorf("putting %s: %w", key, err)
		}
	}

	if err := b.Commit(ctx); err != nil {
		return xerrors.Errorf("committing batch: %w", err)
	}

	log.Debugw("flushed account tree", "accounts", len(st.snaps.layers[0]))
	st.snaps.layers[0] = make(map[solana.PublicKey]streeOp)
	return nil
}

// Keys lists every account key visible through the snapshot stack, sorted.
func (st *AccountTree) Keys(ctx context.Context) ([]solana.PublicKey, error) {
	res, err := st.ds.Query(ctx, query.Query{Prefix: accountsPrefix.String(), KeysOnly: true})
	if err != nil {
		return nil, xerrors.Errorf("querying accounts: %w", err)
	}
	entries, err := res.Rest()
	if err != nil {
		return nil, xerrors.Errorf("reading account keys: %w", err)
	}

	seen := make(map[solana.PublicKey]bool, len(entries))
	for _, e := range entries {
		k, err := solana.PublicKeyFromBase58(datastore.RawKey(e.Key).BaseNamespace())
		if err != nil {
			log.Warnw("skipping malformed account key", "key", e.Key, "error", err)
			continue
		}
		seen[k] = true
	}
	for _, layer := range st.snaps.layers {
		for k, op := range layer {
			seen[k] = !op.Delete
		}
	}

	out := make([]solana.PublicKey, 0, len(seen))
	for k, live := range seen {
		if live {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out, nil
}
