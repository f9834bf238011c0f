package chain

import (
	"encoding/binary"

	xcrypto "github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// The encoders below produce a canonical, deterministic byte encoding of
// each hashed tuple named in spec §6. A real deployment's contract
// expects true Solidity ABI encoding; that contract is out of scope
// (spec §1), so this module only needs an encoding that is canonical
// (both sides of an account compute byte-identical input) and stable
// across the fields the spec enumerates — length-prefixed concatenation
// achieves that without pulling in an ABI library the examples never
// exercise for this purpose.

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func putAmount(buf []byte, a ledger.Amount) []byte {
	return putBytes(buf, a.Big().Bytes())
}

// EncodeSettlement serializes the settlement tuple of spec §6:
// (leftEntity, rightEntity, diffs, forgiveTokenIds, entityProvider,
// hankoData, nonce).
func EncodeSettlement(left, right ledger.EntityID, diffs []TokenDiff, forgiveTokenIDs []ledger.TokenID,
	entityProvider [20]byte, hankoData []byte, nonce uint64) []byte {

	var buf []byte
	buf = putUint64(buf, uint64(left))
	buf = putUint64(buf, uint64(right))
	buf = putUint32(buf, uint32(len(diffs)))
	for _, d := range diffs {
		buf = putUint32(buf, uint32(d.TokenID))
		buf = putAmount(buf, d.LeftDiff)
		buf = putAmount(buf, d.RightDiff)
		buf = putAmount(buf, d.CollateralDiff)
	}
	buf = putUint32(buf, uint32(len(forgiveTokenIDs)))
	for _, t := range forgiveTokenIDs {
		buf = putUint32(buf, uint32(t))
	}
	buf = append(buf, entityProvider[:]...)
	buf = putBytes(buf, hankoData)
	buf = putUint64(buf, nonce)
	return buf
}

// SettlementHash is H(chainId, depositoryAddress, encode(...)).
func SettlementHash(cfg Config, left, right ledger.EntityID, diffs []TokenDiff, forgiveTokenIDs []ledger.TokenID,
	hankoData []byte, nonce uint64) xcrypto.Hash32 {

	var chainIDBytes []byte
	chainIDBytes = putUint64(chainIDBytes, cfg.ChainID)
	encoded := EncodeSettlement(left, right, diffs, forgiveTokenIDs, cfg.EntityProviderAddress, hankoData, nonce)
	return xcrypto.H(chainIDBytes, cfg.DepositoryAddress[:], encoded)
}

// AccountKey canonically identifies an account by its ordered pair.
func AccountKey(left, right ledger.EntityID) []byte {
	var buf []byte
	buf = putUint64(buf, uint64(left))
	buf = putUint64(buf, uint64(right))
	return buf
}

// DisputeProofHash is H(depositoryAddress, encode(accountKey,
// proofBodyHash, cooperativeNonce, disputeNonce)).
func DisputeProofHash(cfg Config, left, right ledger.EntityID, proofBodyHash xcrypto.Hash32,
	cooperativeNonce, disputeNonce uint64) xcrypto.Hash32 {

	var buf []byte
	buf = append(buf, AccountKey(left, right)...)
	buf = append(buf, proofBodyHash[:]...)
	buf = putUint64(buf, cooperativeNonce)
	buf = putUint64(buf, disputeNonce)
	return xcrypto.H(cfg.DepositoryAddress[:], buf)
}

// JBatchHankoHash is H(chainId, depositoryAddress, encodedBatch, nonce).
func JBatchHankoHash(cfg Config, encodedBatch []byte, nonce uint64) xcrypto.Hash32 {
	var chainIDBytes []byte
	chainIDBytes = putUint64(chainIDBytes, cfg.ChainID)
	var nonceBytes []byte
	nonceBytes = putUint64(nonceBytes, nonce)
	return xcrypto.H(chainIDBytes, cfg.DepositoryAddress[:], encodedBatch, nonceBytes)
}

// EncodeDeltaTransformerArgs ABI-equivalently encodes (uint32[]
// fillRatios, bytes32[] secrets), one side's contribution to a dispute's
// DeltaTransformer calldata (spec §6). Either slice may be empty when
// that side has nothing to reveal.
func EncodeDeltaTransformerArgs(fillRatios []uint32, secrets [][32]byte) []byte {
	var buf []byte
	buf = putUint32(buf, uint32(len(fillRatios)))
	for _, r := range fillRatios {
		buf = putUint32(buf, r)
	}
	buf = putUint32(buf, uint32(len(secrets)))
	for _, s := range secrets {
		buf = append(buf, s[:]...)
	}
	return buf
}
