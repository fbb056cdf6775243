package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeInstanceHash computes the hash an auction instance address is
// derived from. The nonce makes two instances with the same creator and
// label distinct.
//
// Formula: SHA256(creator + "|" + label + "|" + nonce)
func ComputeInstanceHash(creator Addr, label, nonce string) []byte {
	data := fmt.Sprintf("%s|%s|%s", creator, label, nonce)
	hash := sha256.Sum256([]byte(data))
	return hash[:]
}

// ComputeAccountHash computes the 20-byte account hash for an arbitrary
// seed, used to mint deterministic account addresses.
//
// Formula: SHA256(seed)[:20]
func ComputeAccountHash(seed string) []byte {
	hash := sha256.Sum256([]byte(seed))
	return hash[:20]
}
