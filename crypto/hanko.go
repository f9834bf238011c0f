package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ValidatorID identifies one signer within an entity's configured
// validator set.
type ValidatorID string

// Hanko is an entity-quorum signature artifact over a particular hash:
// one ECDSA signature per participating validator, plus the hash it was
// taken over. The contract-side verification this stands in for
// ("entity signs a hash with its configured validator set") is out of
// scope per spec §1; this type only needs to support local construction
// and local threshold verification so account/settlement/dispute code
// can reason about "do we have a valid hanko yet".
type Hanko struct {
	Hash    Hash32
	Sigs    map[ValidatorID][]byte // DER-encoded ECDSA signatures
}

// IsEmpty reports whether no validator has signed yet.
func (h Hanko) IsEmpty() bool { return len(h.Sigs) == 0 }

// ValidatorSet is an entity's configured quorum: a set of public keys
// and the number of signatures required to produce a valid Hanko.
type ValidatorSet struct {
	Keys      map[ValidatorID]*btcec.PublicKey
	Threshold int
}

// Verify reports whether hanko carries at least Threshold valid
// signatures over hash from distinct configured validators.
func (vs ValidatorSet) Verify(hash Hash32, hanko Hanko) bool {
	if hanko.Hash != hash {
		return false
	}
	valid := 0
	for id, sigBytes := range hanko.Sigs {
		pub, ok := vs.Keys[id]
		if !ok {
			continue
		}
		sig, err := ecdsa.ParseDERSignature(sigBytes)
		if err != nil {
			continue
		}
		if sig.Verify(hash[:], pub) {
			valid++
		}
	}
	return valid >= vs.Threshold
}

// Signer produces a single validator's signature share over a hash. A
// real deployment backs this with an HSM or remote signer; tests and
// the reference entity use a local private key.
type Signer interface {
	ValidatorID() ValidatorID
	Sign(hash Hash32) ([]byte, error)
}

// LocalSigner signs with an in-memory private key — the "single-signer
// shortcut" path of spec §4.5 when one validator alone meets threshold.
type LocalSigner struct {
	ID  ValidatorID
	Key *btcec.PrivateKey
}

func (s LocalSigner) ValidatorID() ValidatorID { return s.ID }

func (s LocalSigner) Sign(hash Hash32) ([]byte, error) {
	sig := ecdsa.Sign(s.Key, hash[:])
	return sig.Serialize(), nil
}

// CollectHanko folds one or more Signers' shares into a Hanko over hash.
// The orchestrator's quorum-collection path (spec §4.5) calls this once
// per arriving share; here it is exposed as a single batch helper since
// this module does not model the async collection transport itself.
func CollectHanko(hash Hash32, signers ...Signer) (Hanko, error) {
	h := Hanko{Hash: hash, Sigs: make(map[ValidatorID][]byte, len(signers))}
	for _, s := range signers {
		sig, err := s.Sign(hash)
		if err != nil {
			return Hanko{}, err
		}
		h.Sigs[s.ValidatorID()] = sig
	}
	return h, nil
}
