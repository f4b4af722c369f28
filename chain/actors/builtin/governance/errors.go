package governance

import (
	"github.com/filecoin-project/go-state-types/exitcode"
)

// Exit codes of the governance program.
const (
	ErrOwnerSignatureMissing = exitcode.FirstActorSpecificExitCode + iota
	ErrInvalidRealmOrMint
	ErrWithdrawalNotPermittedByPolicy
	ErrWithdrawalBlockedByActiveLockOrVote
	ErrInvalidDelegateActor
	ErrMalformedAccountList
	ErrInvalidAccountData
)

var errorNames = map[exitcode.ExitCode]string{
	ErrOwnerSignatureMissing:               "OwnerSignatureMissing",
	ErrInvalidRealmOrMint:                  "InvalidRealmOrMint",
	ErrWithdrawalNotPermittedByPolicy:      "WithdrawalNotPermittedByPolicy",
	ErrWithdrawalBlockedByActiveLockOrVote: "WithdrawalBlockedByActiveLockOrVote",
	ErrInvalidDelegateActor:                "InvalidDelegateActor",
	ErrMalformedAccountList:                "MalformedAccountList",
	ErrInvalidAccountData:                  "InvalidAccountData",
}

// ErrorName returns the symbolic name of a governance exit code, or "" for other codes.
func ErrorName(code exitcode.ExitCode) string {
	return errorNames[code]
}
