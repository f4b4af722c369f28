package types

import (
	"time"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/gagliardetto/solana-go"
)

type InvocationTrace struct {
	ProgramID solana.PublicKey
	Depth     int
	Accounts  []solana.AccountMeta
	Data      []byte
	ExitCode  exitcode.ExitCode
	Error     string             `json:",omitempty"`
	Subcalls  []*InvocationTrace `json:",omitempty"`
}

// Walk visits the trace and its subcalls depth first.
func (it *InvocationTrace) Walk(cb func(*InvocationTrace)) {
	cb(it)
	for _, sc := range it.Subcalls {
		sc.Walk(cb)
	}
}

type Receipt struct {
	ExitCode exitcode.ExitCode
	Traces   []*InvocationTrace
	Duration time.Duration
}
