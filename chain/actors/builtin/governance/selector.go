package governance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/xerrors"
)

// SelectorLen is the length of the method selector prefixed to remote calls.
const SelectorLen = 8

type Selector [SelectorLen]byte

func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}

// RemoteMethod enumerates the operations this program calls on reward-accrual programs.
type RemoteMethod int

const (
	AccrueRewards RemoteMethod = iota + 1
)

var remoteMethodNames = map[RemoteMethod]string{
	AccrueRewards: "accrue_rewards",
}

var selectors map[RemoteMethod]Selector

func init() {
	var err error
	selectors, err = buildSelectorTable(remoteMethodNames)
	if err != nil {
		panic(err)
	}
}

func buildSelectorTable(names map[RemoteMethod]string) (map[RemoteMethod]Selector, error) {
	out := make(map[RemoteMethod]Selector, len(names))
	seen := make(map[Selector]RemoteMethod, len(names))
	for m, name := range names {
		sel := Discriminator(name)
		if other, ok := seen[sel]; ok {
			return nil, xerrors.Errorf("selector collision between %q and %q", name, names[other])
		}
		seen[sel] = m
		out[m] = sel
	}
	return out, nil
}

// Discriminator is sha256("global:" + name) truncated to SelectorLen bytes.
func Discriminator(name string) Selector {
	h := sha256.Sum256([]byte("global:" + name))
	var out Selector
	copy(out[:], h[:SelectorLen])
	return out
}

func (m RemoteMethod) String() string {
	if n, ok := remoteMethodNames[m]; ok {
		return n
	}
	return fmt.Sprintf("RemoteMethod(%d)", int(m))
}

// Selector panics for methods missing from the table.
func (m RemoteMethod) Selector() Selector {
	sel, ok := selectors[m]
	if !ok {
		panic(fmt.Sprintf("no selector for %s", m))
	}
	return sel
}

// ParseSelector resolves the remote method addressed by the first SelectorLen bytes of data.
func ParseSelector(data []byte) (RemoteMethod, bool) {
	if len(data) < SelectorLen {
		return 0, false
	}
	var sel Selector
	copy(sel[:], data)
	for m, s := range selectors {
		if s == sel {
			return m, true
		}
	}
	return 0, false
}

// RemoteMethods lists the known remote methods in declaration order.
func RemoteMethods() []RemoteMethod {
	return []RemoteMethod{AccrueRewards}
}
