package vm

import (
	"fmt"
	"sync"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/chain/actors/aerrors"
	"github.com/govrealm/govchain/chain/types"
)

// Invokee is native program code. Returned errors that are not actor errors are treated as
// ErrIllegalState failures of the program.
type Invokee interface {
	Invoke(rt *Runtime, accounts []*types.AccountInfo, data []byte) error
}

type InvokeFunc func(rt *Runtime, accounts []*types.AccountInfo, data []byte) error

func (f InvokeFunc) Invoke(rt *Runtime, accounts []*types.AccountInfo, data []byte) error {
	return f(rt, accounts, data)
}

type Invoker struct {
	lk       sync.RWMutex
	programs map[solana.PublicKey]Invokee
}

func NewInvoker() *Invoker {
	return &Invoker{
		programs: make(map[solana.PublicKey]Invokee),
	}
}

func (inv *Invoker) Register(programID solana.PublicKey, code Invokee) {
	inv.lk.Lock()
	defer inv.lk.Unlock()
	inv.programs[programID] = code
}

func (inv *Invoker) Lookup(programID solana.PublicKey) (Invokee, bool) {
	inv.lk.RLock()
	defer inv.lk.RUnlock()
	code, ok := inv.programs[programID]
	return code, ok
}

func (inv *Invoker) Invoke(programID solana.PublicKey, rt *Runtime, accounts []*types.AccountInfo, data []byte) (aerr aerrors.ActorError) {
	code, ok := inv.Lookup(programID)
	if !ok {
		log.Errorf("no code for program %s", programID)
		return aerrors.Newf(ErrCodeInvalidProgram, "no code for program %s", programID)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("program %s failure: %s", programID, r)
			aerr = aerrors.Newf(ErrCodeProgramFailure, "program failure: %s", r)
		}
	}()

	err := code.Invoke(rt, accounts, data)
	if err == nil {
		return nil
	}

	var ae aerrors.ActorError
	if xerrors.As(err, &ae) {
		return ae
	}
	return aerrors.Absorb(err, exitcode.ErrIllegalState, fmt.Sprintf("program %s failed", programID))
}
