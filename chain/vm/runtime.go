package vm

import (
	"context"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
)

// Runtime is the view of the VM given to one program invocation.
type Runtime struct {
	ctx context.Context

	vm        *VM
	lease     *types.Lease
	programID solana.PublicKey
	depth     int
	clock     types.Clock

	// writable holds every key passed writable to this invocation; baseline is the account
	// state this invocation is accountable for since it started or since its last nested call.
	writable map[solana.PublicKey]bool
	baseline map[solana.PublicKey]*types.Account

	trace *types.InvocationTrace
}

func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

func (rt *Runtime) ProgramID() solana.PublicKey {
	return rt.programID
}

func (rt *Runtime) Depth() int {
	return rt.depth
}

func (rt *Runtime) Clock() types.Clock {
	return rt.clock
}

// Invoke runs ix as a nested call. The callee receives the handles in infos that ix names,
// restricted to the privileges of its metas. A signer privilege the caller does not hold is
// only granted for addresses derived from the calling program id and one of signerSeeds.
func (rt *Runtime) Invoke(ix solana.Instruction, infos []*types.AccountInfo, signerSeeds ...[][]byte) error {
	if rt.depth+1 > MaxInvokeDepth {
		return aerrors.Newf(ErrCodeProgramFailure, "max invoke depth %d exceeded", MaxInvokeDepth)
	}

	data, err := ix.Data()
	if err != nil {
		return aerrors.Absorb(err, exitcode.ErrSerialization, "encoding instruction data")
	}
	programID := ix.ProgramID()
	if aerr := rt.vm.checkProgram(rt.ctx, programID); aerr != nil {
		return aerr
	}

	pdaSigners := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, err := solana.CreateProgramAddress(seeds, rt.programID)
		if err != nil {
			return aerrors.Absorb(err, ErrCodePrivilegeEscalation, "invalid signer seeds")
		}
		pdaSigners[pda] = true
	}

	byKey := make(map[solana.PublicKey]*types.AccountInfo, len(infos))
	for _, ai := range infos {
		if ai.Lease() != rt.lease {
			return aerrors.Newf(ErrCodeMissingAccount, "account %s was not borrowed by this transaction", ai.Key)
		}
		if prev, ok := byKey[ai.Key]; ok {
			byKey[ai.Key] = prev.WithPrivileges(prev.IsSigner || ai.IsSigner, prev.IsWritable || ai.IsWritable)
			continue
		}
		byKey[ai.Key] = ai
	}

	metas := ix.Accounts()
	callee := make([]*types.AccountInfo, 0, len(metas))
	for _, m := range metas {
		ai, ok := byKey[m.PublicKey]
		if !ok {
			return aerrors.Newf(ErrCodeMissingAccount, "account %s required by instruction is missing", m.PublicKey)
		}
		if m.IsWritable && !ai.IsWritable {
			return aerrors.Newf(ErrCodePrivilegeEscalation, "%s: writable privilege escalated", m.PublicKey)
		}
		if m.IsSigner && !ai.IsSigner && !pdaSigners[m.PublicKey] {
			return aerrors.Newf(ErrCodePrivilegeEscalation, "%s: signer privilege escalated", m.PublicKey)
		}
		callee = append(callee, ai.WithPrivileges(m.IsSigner, m.IsWritable))
	}

	if aerr := rt.verifyChanges(); aerr != nil {
		return aerr
	}

	sub, aerr := rt.vm.invoke(rt.ctx, rt.lease, programID, metas, callee, data, rt.depth+1, rt.clock)
	rt.trace.Subcalls = append(rt.trace.Subcalls, sub)
	rt.baseline = rt.lease.Snapshot()
	if aerr != nil {
		log.Warnw("nested invoke failed", "from", rt.programID, "to", programID, "depth", rt.depth+1, "error", aerr)
		return aerr
	}
	return nil
}

// verifyChanges enforces account ownership for the changes made since the baseline: only the
// owning program may change an account, and only through a writable meta.
func (rt *Runtime) verifyChanges() aerrors.ActorError {
	for key, after := range rt.lease.Snapshot() {
		before, ok := rt.baseline[key]
		if !ok || before.Equals(after) {
			continue
		}
		if before.Executable != after.Executable {
			return aerrors.Newf(ErrCodeExternalAccountModified, "program %s changed executable flag of %s", rt.programID, key)
		}
		if before.Owner != rt.programID {
			return aerrors.Newf(ErrCodeExternalAccountModified, "program %s modified account %s owned by %s", rt.programID, key, before.Owner)
		}
		if !rt.writable[key] {
			return aerrors.Newf(ErrCodeExternalAccountModified, "program %s modified read-only account %s", rt.programID, key)
		}
	}
	return nil
}
