package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/build"
	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/state"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/metrics"
)

var log = logging.Logger("vm")

// MaxInvokeDepth bounds the invocation stack, counting the top-level instruction as 1.
const MaxInvokeDepth = 4

// NativeLoaderID owns the accounts of programs deployed with Deploy.
var NativeLoaderID = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")

type VMOpts struct {
	Tree    *state.AccountTree
	Invoker *Invoker
	Clock   clock.Clock
}

// VM applies transactions to an account tree. Transactions are applied one at a time; each
// one either commits all of its account changes or none of them.
type VM struct {
	lk   sync.Mutex
	tree *state.AccountTree
	inv  *Invoker
	clk  clock.Clock
	slot uint64
}

func NewVM(opts *VMOpts) (*VM, error) {
	if opts == nil || opts.Tree == nil {
		return nil, xerrors.Errorf("vm requires an account tree")
	}
	inv := opts.Invoker
	if inv == nil {
		inv = NewInvoker()
	}
	clk := opts.Clock
	if clk == nil {
		clk = build.Clock
	}
	return &VM{
		tree: opts.Tree,
		inv:  inv,
		clk:  clk,
	}, nil
}

func (vm *VM) Tree() *state.AccountTree {
	return vm.tree
}

func (vm *VM) Invoker() *Invoker {
	return vm.inv
}

// Deploy registers native code under programID and stores its executable account.
func (vm *VM) Deploy(programID solana.PublicKey, code Invokee) error {
	vm.lk.Lock()
	defer vm.lk.Unlock()

	vm.inv.Register(programID, code)
	return vm.tree.SetAccount(programID, &types.Account{Owner: NativeLoaderID, Executable: true})
}

func (vm *VM) Flush(ctx context.Context) error {
	vm.lk.Lock()
	defer vm.lk.Unlock()
	return vm.tree.Flush(ctx)
}

type ApplyRet struct {
	types.Receipt
	ActorErr aerrors.ActorError
}

func checkTransaction(tx *types.Transaction) error {
	if tx == nil {
		return xerrors.Errorf("nil transaction")
	}
	if len(tx.Instructions) == 0 {
		return xerrors.Errorf("transaction has no instructions")
	}
	return nil
}

// ApplyTransaction runs every instruction of tx. A program failure is reported through the
// receipt exit code and reverts the whole transaction; the returned error is reserved for
// malformed transactions and fatal failures.
func (vm *VM) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*ApplyRet, error) {
	vm.lk.Lock()
	defer vm.lk.Unlock()

	start := vm.clk.Now()
	ctx, span := trace.StartSpan(ctx, "vm.ApplyTransaction")
	defer span.End()
	stopTimer := metrics.Timer(ctx, vm.clk, metrics.TransactionApplyMilliseconds)

	if err := checkTransaction(tx); err != nil {
		return nil, err
	}
	if span.IsRecordingEvents() {
		span.AddAttributes(trace.Int64Attribute("instructions", int64(len(tx.Instructions))))
	}

	vm.slot++
	clk := types.Clock{Slot: vm.slot, UnixTimestamp: start.Unix()}

	st := vm.tree
	if err := st.Snapshot(ctx); err != nil {
		return nil, xerrors.Errorf("snapshot failed: %w", err)
	}
	defer st.ClearSnapshot()

	lease := types.NewLease()
	defer lease.Expire()

	ret := &ApplyRet{}
	for i, ix := range tx.Instructions {
		tr, aerr := vm.applyInstruction(ctx, lease, tx, ix, clk)
		if tr != nil {
			ret.Traces = append(ret.Traces, tr)
		}
		if aerr == nil {
			continue
		}

		if err := st.Revert(); err != nil {
			return nil, xerrors.Errorf("revert state failed: %w", err)
		}
		if aerrors.IsFatal(aerr) {
			return nil, xerrors.Errorf("[slot=%d,ix=%d,program=%s] fatal error: %w", clk.Slot, i, ix.ProgramID(), aerr)
		}

		log.Warnw("transaction rejected", "slot", clk.Slot, "instruction", i, "program", ix.ProgramID(), "error", fmt.Sprintf("%+v", aerr))
		ret.ExitCode = aerr.RetCode()
		ret.ActorErr = aerr
		ret.Duration = vm.clk.Since(start)
		_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.ExitCode, ret.ExitCode.String())}, metrics.TransactionFailure.M(1))
		return ret, nil
	}

	if err := vm.commit(ctx, lease); err != nil {
		if rerr := st.Revert(); rerr != nil {
			return nil, xerrors.Errorf("revert after failed commit: %w", rerr)
		}
		return nil, xerrors.Errorf("committing accounts: %w", err)
	}

	ret.ExitCode = exitcode.Ok
	ret.Duration = stopTimer()
	stats.Record(ctx, metrics.TransactionApplied.M(1))
	return ret, nil
}

func (vm *VM) applyInstruction(ctx context.Context, lease *types.Lease, tx *types.Transaction, ix solana.Instruction, clk types.Clock) (*types.InvocationTrace, aerrors.ActorError) {
	data, err := ix.Data()
	if err != nil {
		return nil, aerrors.Absorb(err, exitcode.ErrSerialization, "encoding instruction data")
	}
	programID := ix.ProgramID()
	if aerr := vm.checkProgram(ctx, programID); aerr != nil {
		return nil, aerr
	}

	metas := ix.Accounts()
	infos := make([]*types.AccountInfo, 0, len(metas))
	for _, m := range metas {
		if m.IsSigner && !tx.IsSigner(m.PublicKey) {
			return nil, aerrors.Newf(ErrCodeSignatureMissing, "account %s is marked signer but did not sign", m.PublicKey)
		}

		acct, err := vm.tree.GetAccount(ctx, m.PublicKey)
		switch {
		case xerrors.Is(err, types.ErrAccountNotFound):
			acct = &types.Account{Owner: solana.SystemProgramID}
		case err != nil:
			return nil, aerrors.Escalate(err, "loading instruction account")
		}
		infos = append(infos, lease.Borrow(m.PublicKey, acct, m.IsSigner, m.IsWritable))
	}

	return vm.invoke(ctx, lease, programID, metas, infos, data, 1, clk)
}

func (vm *VM) invoke(ctx context.Context, lease *types.Lease, programID solana.PublicKey, metas []*solana.AccountMeta, infos []*types.AccountInfo, data []byte, depth int, clk types.Clock) (*types.InvocationTrace, aerrors.ActorError) {
	ctx, span := trace.StartSpan(ctx, "vm.Invoke")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			trace.StringAttribute("program", programID.String()),
			trace.Int64Attribute("depth", int64(depth)),
			trace.Int64Attribute("accounts", int64(len(metas))),
		)
	}

	tr := &types.InvocationTrace{
		ProgramID: programID,
		Depth:     depth,
		Data:      data,
	}
	writable := make(map[solana.PublicKey]bool, len(metas))
	for _, m := range metas {
		tr.Accounts = append(tr.Accounts, *m)
		if m.IsWritable {
			writable[m.PublicKey] = true
		}
	}

	rt := &Runtime{
		ctx:       ctx,
		vm:        vm,
		lease:     lease,
		programID: programID,
		depth:     depth,
		clock:     clk,
		writable:  writable,
		baseline:  lease.Snapshot(),
		trace:     tr,
	}

	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.Program, programID.String())}, metrics.InvocationDepth.M(int64(depth)))

	aerr := vm.inv.Invoke(programID, rt, infos, data)
	if aerr == nil {
		aerr = rt.verifyChanges()
	}
	if aerr != nil {
		tr.ExitCode = aerr.RetCode()
		tr.Error = aerr.Error()
	}
	return tr, aerr
}

func (vm *VM) checkProgram(ctx context.Context, programID solana.PublicKey) aerrors.ActorError {
	acct, err := vm.tree.GetAccount(ctx, programID)
	if err != nil {
		if xerrors.Is(err, types.ErrAccountNotFound) {
			return aerrors.Newf(ErrCodeInvalidProgram, "program %s not found", programID)
		}
		return aerrors.Escalate(err, "loading program account")
	}
	if !acct.Executable {
		return aerrors.Newf(ErrCodeInvalidProgram, "program account %s is not executable", programID)
	}
	if _, ok := vm.inv.Lookup(programID); !ok {
		return aerrors.Newf(ErrCodeInvalidProgram, "no code for program %s", programID)
	}
	return nil
}

// commit writes the changed accounts of lease to the tree. An account handed back to the
// system program with no data is closed.
func (vm *VM) commit(ctx context.Context, lease *types.Lease) error {
	return lease.ForEach(func(key solana.PublicKey, acct *types.Account) error {
		closed := acct.Owner == solana.SystemProgramID && len(acct.Data) == 0 && !acct.Executable

		prev, err := vm.tree.GetAccount(ctx, key)
		switch {
		case err == nil:
			if prev.Equals(acct) {
				return nil
			}
			if closed {
				return vm.tree.DeleteAccount(ctx, key)
			}
		case xerrors.Is(err, types.ErrAccountNotFound):
			if closed {
				return nil
			}
		default:
			return err
		}
		return vm.tree.SetAccount(key, acct)
	})
}
