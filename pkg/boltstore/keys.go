package boltstore

import (
	"encoding/binary"
	"strings"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta     = []byte("meta")
	bucketAccounts = []byte("accounts")
	bucketMatches  = []byte("matches")
)

// Meta key constants.
var (
	keyVersion = []byte("version")
)

// schemaVersion is bumped whenever the encoded layout changes.
const schemaVersion = 1

// accountKey is the case-folded account name.
func accountKey(name string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(name)))
}

// intToKey converts an int to an 8-byte big-endian key.
func intToKey(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// keyToInt converts an 8-byte big-endian key back to an int.
func keyToInt(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
