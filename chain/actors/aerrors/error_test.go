package aerrors_test

import (
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	. "github.com/govrealm/govchain/chain/actors/aerrors"
)

func TestFatalError(t *testing.T) {
	e1 := xerrors.New("out of disk space")
	e2 := xerrors.Errorf("could not put node: %w", e1)
	e3 := xerrors.Errorf("could not save head: %w", e2)
	aw1 := Escalate(e3, "failed to save the head")
	aw2 := Wrap(aw1, "saving head of new miner actor")
	aw3 := Wrap(aw2, "creating miner in storage market")
	t.Logf("Verbose error: %+v", aw3)
	t.Logf("Normal error: %v", aw3)
	assert.True(t, IsFatal(aw3), "should be fatal")
}

func TestAbsorbeError(t *testing.T) {
	e1 := xerrors.New("EOF")
	e2 := xerrors.Errorf("could not decode: %w", e1)
	ae := Absorb(e2, 35, "failed to decode CBOR")
	aw1 := Wrap(ae, "saving head of new miner actor")
	aw2 := Wrap(aw1, "invoking InitActor")
	aw3 := Wrap(aw2, "creating miner in storage market")
	t.Logf("Verbose error: %+v", aw3)
	t.Logf("Normal error: %v", aw3)
	assert.Equal(t, exitcode.ExitCode(35), RetCode(aw3))
}

func TestHandleExternalErrorKeepsCode(t *testing.T) {
	inner := Newf(40, "lock still active")
	wrapped := xerrors.Errorf("loading record: %w", inner)

	aerr := HandleExternalError(wrapped, exitcode.ErrIllegalState, "checking record")
	require.Error(t, aerr)
	require.Equal(t, exitcode.ExitCode(40), aerr.RetCode())

	plain := HandleExternalError(xerrors.New("boom"), exitcode.ErrIllegalState, "checking record")
	require.Equal(t, exitcode.ErrIllegalState, plain.RetCode())
	require.False(t, plain.IsFatal())
}

func TestZeroRetCodeIsFatal(t *testing.T) {
	require.True(t, IsFatal(New(0, "nope")))
	require.Equal(t, exitcode.ExitCode(0), RetCode(nil))
}
