package types

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/xerrors"
)

var (
	ErrLeaseExpired    = xerrors.New("account lease expired")
	ErrAccountReadOnly = xerrors.New("account is not writable")
)

// Lease scopes the account handles given to programs to a single transaction. Every
// AccountInfo borrowed under a lease shares one working copy per key, so changes made by a
// nested call are visible to its caller. Once the lease expires, the handles stop working.
type Lease struct {
	lk       sync.Mutex
	expired  bool
	accounts map[solana.PublicKey]*Account
	order    []solana.PublicKey
}

func NewLease() *Lease {
	return &Lease{accounts: make(map[solana.PublicKey]*Account)}
}

// Borrow returns a handle to the working copy of key, loading it from acct on first use.
func (l *Lease) Borrow(key solana.PublicKey, acct *Account, signer, writable bool) *AccountInfo {
	l.lk.Lock()
	defer l.lk.Unlock()

	if _, ok := l.accounts[key]; !ok {
		l.accounts[key] = acct.Copy()
		l.order = append(l.order, key)
	}
	return &AccountInfo{
		Key:        key,
		IsSigner:   signer,
		IsWritable: writable,
		lease:      l,
	}
}

func (l *Lease) Expire() {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.expired = true
}

// Snapshot copies the working state of every borrowed account.
func (l *Lease) Snapshot() map[solana.PublicKey]*Account {
	l.lk.Lock()
	defer l.lk.Unlock()

	out := make(map[solana.PublicKey]*Account, len(l.accounts))
	for k, a := range l.accounts {
		out[k] = a.Copy()
	}
	return out
}

// ForEach visits borrowed accounts in borrow order.
func (l *Lease) ForEach(cb func(key solana.PublicKey, acct *Account) error) error {
	l.lk.Lock()
	defer l.lk.Unlock()

	for _, k := range l.order {
		if err := cb(k, l.accounts[k].Copy()); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lease) get(key solana.PublicKey) (*Account, error) {
	if l.expired {
		return nil, ErrLeaseExpired
	}
	a, ok := l.accounts[key]
	if !ok {
		return nil, xerrors.Errorf("account %s not borrowed under this lease", key)
	}
	return a, nil
}

// AccountInfo is a program's handle on one account for the duration of a transaction.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool

	lease *Lease
}

// NewAccountInfo borrows acct under a fresh single-account lease. Useful in tests.
func NewAccountInfo(key solana.PublicKey, acct *Account, signer, writable bool) *AccountInfo {
	return NewLease().Borrow(key, acct, signer, writable)
}

// WithPrivileges returns a handle on the same working copy with different flags.
func (ai *AccountInfo) WithPrivileges(signer, writable bool) *AccountInfo {
	return &AccountInfo{
		Key:        ai.Key,
		IsSigner:   signer,
		IsWritable: writable,
		lease:      ai.lease,
	}
}

func (ai *AccountInfo) Lease() *Lease {
	return ai.lease
}

func (ai *AccountInfo) Owner() (solana.PublicKey, error) {
	ai.lease.lk.Lock()
	defer ai.lease.lk.Unlock()

	a, err := ai.lease.get(ai.Key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return a.Owner, nil
}

func (ai *AccountInfo) Executable() (bool, error) {
	ai.lease.lk.Lock()
	defer ai.lease.lk.Unlock()

	a, err := ai.lease.get(ai.Key)
	if err != nil {
		return false, err
	}
	return a.Executable, nil
}

// Data returns a copy of the account data.
func (ai *AccountInfo) Data() ([]byte, error) {
	ai.lease.lk.Lock()
	defer ai.lease.lk.Unlock()

	a, err := ai.lease.get(ai.Key)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), a.Data...), nil
}

func (ai *AccountInfo) SetData(data []byte) error {
	ai.lease.lk.Lock()
	defer ai.lease.lk.Unlock()

	a, err := ai.lease.get(ai.Key)
	if err != nil {
		return err
	}
	if !ai.IsWritable {
		return xerrors.Errorf("set data on %s: %w", ai.Key, ErrAccountReadOnly)
	}
	a.Data = append(a.Data[:0:0], data...)
	return nil
}

// Assign changes the account owner. The runtime only accepts this from the current owner.
func (ai *AccountInfo) Assign(owner solana.PublicKey) error {
	ai.lease.lk.Lock()
	defer ai.lease.lk.Unlock()

	a, err := ai.lease.get(ai.Key)
	if err != nil {
		return err
	}
	if !ai.IsWritable {
		return xerrors.Errorf("assign %s: %w", ai.Key, ErrAccountReadOnly)
	}
	a.Owner = owner
	return nil
}
