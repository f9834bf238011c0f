package dispute

import (
	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// BuildStart constructs the DisputeStart record of spec §4.4 from the
// counterparty dispute proof hanko currently held for this account.
// counterpartyHanko and signedProofBodyHash must be the pair stored
// together at the cooperativeNonce they were taken over (account.Machine
// keeps these indexed by hash so the right cooperativeNonce is used).
func BuildStart(counterparty ledger.EntityID, cooperativeNonce, disputeNonce uint64, signedProofBodyHash crypto.Hash32, counterpartyHanko []byte, initialArguments []byte) (Start, R) {
	if len(counterpartyHanko) == 0 {
		return Start{}, ErrNoCounterpartyHanko.New("", nil)
	}
	return Start{
		Counterparty:     counterparty,
		CooperativeNonce: cooperativeNonce,
		DisputeNonce:     disputeNonce,
		ProofBodyHash:    signedProofBodyHash,
		Sig:              counterpartyHanko,
		InitialArguments: initialArguments,
	}, nil
}

// BuildFinalizeUnilateral builds the Finalize record for a dispute that
// times out without the counterparty contesting: finalCooperativeNonce
// equals the initial one, sig is empty, and the contract's on-chain
// timeout carries the enforcement.
func BuildFinalizeUnilateral(active ActiveDispute, finalBody FinalProofBody, finalArguments []byte) (Finalize, R) {
	if active.DisputeUntilBlock == 0 {
		return Finalize{}, ErrNoActiveDispute.New("", nil)
	}
	return Finalize{
		StartedByLeft:           active.StartedByLeft,
		InitialCooperativeNonce: active.InitialCooperativeNonce,
		FinalCooperativeNonce:   active.InitialCooperativeNonce,
		InitialDisputeNonce:     active.InitialDisputeNonce,
		FinalDisputeNonce:       active.InitialDisputeNonce,
		InitialProofbodyHash:    active.InitialProofbodyHash,
		FinalProofBody:          finalBody,
		InitialArguments:        active.InitialArguments,
		FinalArguments:          finalArguments,
		Sig:                     nil,
		DisputeUntilBlock:       active.DisputeUntilBlock,
		Cooperative:             false,
	}, nil
}

// BuildFinalizeCounterDispute builds the Finalize record for the
// contest path: the counterparty's cooperativeNonce advanced past the
// one the original dispute opened at, so their later, higher-nonce
// proof (and its hanko) supersedes the original and is submitted
// instead of waiting for the timeout.
func BuildFinalizeCounterDispute(active ActiveDispute, counterCooperativeNonce, counterDisputeNonce uint64, counterpartyHanko []byte, finalBody FinalProofBody, finalArguments []byte) (Finalize, R) {
	if active.DisputeUntilBlock == 0 {
		return Finalize{}, ErrNoActiveDispute.New("", nil)
	}
	if counterCooperativeNonce <= active.InitialCooperativeNonce {
		return Finalize{}, ErrStaleCounterNonce.New("", nil)
	}
	return Finalize{
		StartedByLeft:           active.StartedByLeft,
		InitialCooperativeNonce: active.InitialCooperativeNonce,
		FinalCooperativeNonce:   counterCooperativeNonce,
		InitialDisputeNonce:     active.InitialDisputeNonce,
		FinalDisputeNonce:       counterDisputeNonce,
		InitialProofbodyHash:    active.InitialProofbodyHash,
		FinalProofBody:          finalBody,
		InitialArguments:        active.InitialArguments,
		FinalArguments:          finalArguments,
		Sig:                     counterpartyHanko,
		DisputeUntilBlock:       active.DisputeUntilBlock,
		Cooperative:             false,
	}, nil
}

// BuildFinalizeCooperative builds the Finalize record for a mutually
// agreed close. Spec §9 leaves the exact cooperative signature
// construction unspecified; the caller supplies the mutual signature as
// raw bytes in mutualSig, stored in Sig with the same shape the other
// two paths use, rather than inventing a new sig scheme.
func BuildFinalizeCooperative(active ActiveDispute, mutualSig []byte, finalBody FinalProofBody, finalArguments []byte) Finalize {
	return Finalize{
		StartedByLeft:           active.StartedByLeft,
		InitialCooperativeNonce: active.InitialCooperativeNonce,
		FinalCooperativeNonce:   active.InitialCooperativeNonce,
		InitialDisputeNonce:     active.InitialDisputeNonce,
		FinalDisputeNonce:       active.InitialDisputeNonce,
		InitialProofbodyHash:    active.InitialProofbodyHash,
		FinalProofBody:          finalBody,
		InitialArguments:        active.InitialArguments,
		FinalArguments:          finalArguments,
		Sig:                     mutualSig,
		DisputeUntilBlock:       active.DisputeUntilBlock,
		Cooperative:             true,
	}
}

// ProofHash computes the on-chain dispute proof hash that a hanko signs
// over, delegating the canonical encoding to chain.DisputeProofHash so
// the formula used to build a Start matches what the jurisdiction
// adapter will later verify.
func ProofHash(cfg chain.Config, left, right ledger.EntityID, proofBodyHash crypto.Hash32, cooperativeNonce, disputeNonce uint64) crypto.Hash32 {
	return chain.DisputeProofHash(cfg, left, right, proofBodyHash, cooperativeNonce, disputeNonce)
}
