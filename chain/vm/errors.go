package vm

import "github.com/filecoin-project/go-state-types/exitcode"

// Exit codes produced by the runtime itself, as opposed to programs.
const (
	ErrCodeSignatureMissing        = exitcode.SysErrSenderInvalid
	ErrCodeInvalidProgram          = exitcode.SysErrInvalidReceiver
	ErrCodeMissingAccount          = exitcode.SysErrorIllegalArgument
	ErrCodePrivilegeEscalation     = exitcode.SysErrForbidden
	ErrCodeExternalAccountModified = exitcode.SysErrorIllegalActor
	ErrCodeProgramFailure          = exitcode.SysErrIllegalInstruction
)
