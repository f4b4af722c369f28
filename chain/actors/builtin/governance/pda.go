package governance

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/xerrors"
)

const (
	seedGovernance  = "governance"
	seedRealmConfig = "realm-config"
)

// MaxSeedLen is the longest single seed accepted by address derivation.
const MaxSeedLen = 32

func RealmSeeds(name string) [][]byte {
	return [][]byte{[]byte(seedGovernance), []byte(name)}
}

func HoldingSeeds(realm, mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(seedGovernance), realm[:], mint[:]}
}

func RealmConfigSeeds(realm solana.PublicKey) [][]byte {
	return [][]byte{[]byte(seedRealmConfig), realm[:]}
}

func TokenOwnerRecordSeeds(realm, mint, owner solana.PublicKey) [][]byte {
	return [][]byte{[]byte(seedGovernance), realm[:], mint[:], owner[:]}
}

type derived struct {
	addr solana.PublicKey
	bump uint8
}

// AddressCache memoizes program address derivation, which searches bump seeds until it finds
// an address off the curve.
type AddressCache struct {
	cache *lru.Cache[string, derived]
}

const defaultAddressCacheSize = 4096

var defaultAddresses = NewAddressCache(defaultAddressCacheSize)

func NewAddressCache(size int) *AddressCache {
	c, err := lru.New[string, derived](size)
	if err != nil {
		panic(err)
	}
	return &AddressCache{cache: c}
}

func cacheKey(seeds [][]byte, programID solana.PublicKey) string {
	var sb strings.Builder
	sb.Write(programID[:])
	for _, s := range seeds {
		sb.WriteByte(byte(len(s)))
		sb.Write(s)
	}
	return sb.String()
}

// Find returns the program address for seeds and the bump seed that produced it.
func (c *AddressCache) Find(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return solana.PublicKey{}, 0, xerrors.Errorf("seed too long: %d > %d", len(s), MaxSeedLen)
		}
	}
	k := cacheKey(seeds, programID)
	if d, ok := c.cache.Get(k); ok {
		return d.addr, d.bump, nil
	}
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	c.cache.Add(k, derived{addr: addr, bump: bump})
	return addr, bump, nil
}

func (c *AddressCache) Len() int {
	return c.cache.Len()
}

// FindAddress derives through the package-wide cache.
func FindAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return defaultAddresses.Find(seeds, programID)
}

// SignerSeeds appends the bump seed, producing the seeds accepted by CreateProgramAddress.
func SignerSeeds(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}

func RealmAddress(programID solana.PublicKey, name string) (solana.PublicKey, error) {
	addr, _, err := FindAddress(RealmSeeds(name), programID)
	return addr, err
}

func HoldingAddress(programID, realm, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindAddress(HoldingSeeds(realm, mint), programID)
	return addr, err
}

func RealmConfigAddress(programID, realm solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindAddress(RealmConfigSeeds(realm), programID)
	return addr, err
}

func TokenOwnerRecordAddress(programID, realm, mint, owner solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindAddress(TokenOwnerRecordSeeds(realm, mint, owner), programID)
	return addr, err
}
