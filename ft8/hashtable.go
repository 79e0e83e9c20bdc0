package ft8

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

/*
 * Callsign Hash Table for FT8/FT4
 * Stores callsigns for hash resolution (22-bit, 12-bit, 10-bit hashes)
 */

// HashType represents the type of hash (22, 12, or 10 bits)
type HashType int

const (
	Hash22Bits HashType = iota
	Hash12Bits
	Hash10Bits
)

// CallsignHasher resolves hashed callsigns while packing and unpacking
// messages. Implementations must be safe for concurrent use.
type CallsignHasher interface {
	LookupHash(hashType HashType, hash uint32) (callsign string, found bool)
	SaveHash(callsign string, n22 uint32)
}

// CallsignHash computes the 22-bit hash of a callsign (up to 11 characters
// of space, digits, letters and '/')
func CallsignHash(callsign string) (n22 uint32, ok bool) {
	callsign = strings.Trim(callsign, "<>")
	if callsign == "" || len(callsign) > 11 {
		return 0, false
	}

	n58 := uint64(0)
	i := 0
	for ; i < len(callsign); i++ {
		j := Nchar(callsign[i], CharTableAlphanumSpaceSlash)
		if j < 0 {
			return 0, false
		}
		n58 = 38*n58 + uint64(j)
	}
	// Pad with trailing spaces
	for ; i < 11; i++ {
		n58 = 38 * n58
	}

	n22 = uint32((47055833459 * n58) >> (64 - 22) & 0x3FFFFF)
	return n22, true
}

// hashEntry stores a callsign with its timestamp
type hashEntry struct {
	callsign  string
	timestamp time.Time
}

// CallsignHashTable is a bounded, age-limited CallsignHasher keyed by the
// 22-bit hash
type CallsignHashTable struct {
	cache  *lru.Cache
	maxAge time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// DefaultHashTableSize is the number of callsigns kept by NewCallsignHashTable
const DefaultHashTableSize = 4096

// NewCallsignHashTable creates a new callsign hash table
func NewCallsignHashTable(size int, maxAge time.Duration) *CallsignHashTable {
	if size <= 0 {
		size = DefaultHashTableSize
	}
	if maxAge == 0 {
		maxAge = 1 * time.Hour
	}
	cache, _ := lru.New(size) // only fails for size <= 0
	return &CallsignHashTable{
		cache:  cache,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// SaveHash stores a callsign under its 22-bit hash
func (ht *CallsignHashTable) SaveHash(callsign string, n22 uint32) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	ht.cache.Add(n22&0x3FFFFF, hashEntry{callsign: callsign, timestamp: ht.now()})
}

// SaveCallsign computes the hash of a callsign and stores it
func (ht *CallsignHashTable) SaveCallsign(callsign string) (n22 uint32, ok bool) {
	n22, ok = CallsignHash(callsign)
	if ok {
		ht.SaveHash(callsign, n22)
	}
	return n22, ok
}

// LookupHash looks up a callsign by its hash value
func (ht *CallsignHashTable) LookupHash(hashType HashType, hash uint32) (string, bool) {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	if hashType == Hash22Bits {
		v, ok := ht.cache.Get(hash)
		if !ok {
			return "", false
		}
		e := v.(hashEntry)
		if ht.expired(e) {
			ht.cache.Remove(hash)
			return "", false
		}
		return e.callsign, true
	}

	shift := uint(10)
	if hashType == Hash10Bits {
		shift = 12
	}
	// Keys are oldest first; prefer the most recent match
	keys := ht.cache.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		n22 := keys[i].(uint32)
		if n22>>shift != hash {
			continue
		}
		v, ok := ht.cache.Peek(n22)
		if !ok {
			continue
		}
		if e := v.(hashEntry); !ht.expired(e) {
			ht.cache.Get(n22)
			return e.callsign, true
		}
	}
	return "", false
}

func (ht *CallsignHashTable) expired(e hashEntry) bool {
	return ht.now().Sub(e.timestamp) > ht.maxAge
}

// Cleanup removes entries older than maxAge
func (ht *CallsignHashTable) Cleanup() int {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	removed := 0
	for _, k := range ht.cache.Keys() {
		v, ok := ht.cache.Peek(k)
		if ok && ht.expired(v.(hashEntry)) {
			ht.cache.Remove(k)
			removed++
		}
	}
	return removed
}

// Size returns the number of entries in the hash table
func (ht *CallsignHashTable) Size() int {
	return ht.cache.Len()
}
