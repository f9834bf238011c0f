// Package crypto provides the hashing, hanko (entity-quorum signature),
// and onion-layer key derivation primitives shared across the account,
// htlc, settlement, dispute and jbatch packages. Grounded on the
// teacher's own HTLC hash convention (SHA256 then RIPEMD160, as in
// Bitcoin/Lightning HASH160) and on lightning-onion's per-hop key
// derivation, reimplemented against the entity/account domain instead
// of a channel graph.
package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // matches the teacher's HTLC hash convention
)

// Hash32 is a generic 32-byte digest, used for proofBodyHash, frame
// stateHash, settlement/dispute/jBatch hashes.
type Hash32 [32]byte

// H hashes the concatenation of its arguments with SHA-256. Every
// "bit-exact" hash named in spec §6 (settlement hash, dispute proof
// hash, jBatch hanko hash) is built by concatenating its ABI-style
// fields with Encode helpers and calling H once over the result; the
// ABI encoding itself lives next to each hash's call site so the fields
// being bound are visible there, not hidden in a generic encoder.
func H(parts ...[]byte) Hash32 {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash32
	copy(out[:], h.Sum(nil))
	return out
}

// Hashlock derives an HTLC hashlock from a secret the way the teacher's
// Lightning-family HTLCs do: RIPEMD160(SHA256(secret)).
func Hashlock(secret [32]byte) [20]byte {
	sha := sha256.Sum256(secret[:])
	r := ripemd160.New()
	r.Write(sha[:])
	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

// VerifyHashlock reports whether secret opens hashlock.
func VerifyHashlock(secret [32]byte, hashlock [20]byte) bool {
	return Hashlock(secret) == hashlock
}
