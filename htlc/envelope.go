// Package htlc implements the onion-routed hashed-timelock contract of
// spec §4.2: lock construction at the sender, per-hop envelope
// decoding and forward validation at an intermediary, and resolution
// propagation back along the route. It is a pure, account-agnostic
// layer: entity wires its outcomes into mempoolOps on specific
// account.Machine instances.
//
// Grounded on lnd/htlcswitch's hop.Payload (onion payload decode) and
// lightning-onion's sphinx layering, simplified from a fixed-size
// Sphinx packet to the spec's JSON/encrypted envelope format since the
// wire format here is not a deployed Lightning-compatible one.
package htlc

import (
	"encoding/base64"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec/v2"
	xcrypto "github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// Envelope is one onion layer, per spec §7's "Onion envelope format".
// The outermost layer a sender builds carries NextHop/ForwardAmount/
// InnerEnvelope; the final hop's layer carries FinalRecipient and the
// cleartext Secret.
type Envelope struct {
	NextHop         *ledger.EntityID `json:"nextHop,omitempty"`
	ForwardAmount   *ledger.Amount   `json:"forwardAmount,omitempty"`
	InnerEnvelope   json.RawMessage  `json:"innerEnvelope,omitempty"` // opaque to all but the next hop
	FinalRecipient  bool             `json:"finalRecipient,omitempty"`
	Secret          *[32]byte        `json:"secret,omitempty"`
	Hashlock        [20]byte         `json:"hashlock"`
	Amount          ledger.Amount    `json:"amount"`
	TokenID         ledger.TokenID   `json:"tokenId"`
}

// EncodeCleartext marshals an envelope as JSON, per spec §7 ("cleartext
// is JSON beginning with {").
func EncodeCleartext(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeCleartext unmarshals a JSON envelope layer.
func DecodeCleartext(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}

// SealForHop encrypts an envelope layer to hopPub and base64-encodes
// the sealed bytes, per spec §7 ("When encrypted, the payload is
// base64"). The sender uses this for every layer except optionally the
// very next hop's own view of its own layer (which it decrypts with
// its private key, not base64 transport encoding — base64 is simply
// how the bytes travel inside the outer lock's Envelope field).
func SealForHop(hopPub *btcec.PublicKey, e Envelope) ([]byte, error) {
	plaintext, err := EncodeCleartext(e)
	if err != nil {
		return nil, err
	}
	sealed, err := xcrypto.SealLayer(hopPub, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// WrapSealed embeds an already-sealed (base64) child layer as the
// parent envelope's opaque InnerEnvelope field.
func WrapSealed(sealed []byte) (json.RawMessage, error) {
	return json.Marshal(string(sealed))
}

// UnwrapSealed extracts the base64 bytes a parent envelope carried for
// the next hop, the inverse of WrapSealed.
func UnwrapSealed(inner json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(inner, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// OpenAtHop reverses SealForHop using the recipient's private key.
func OpenAtHop(hopPriv *btcec.PrivateKey, b64 []byte) (Envelope, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(b64)))
	n, err := base64.StdEncoding.Decode(sealed, b64)
	if err != nil {
		return Envelope{}, err
	}
	plaintext, err := xcrypto.OpenLayer(hopPriv, sealed[:n])
	if err != nil {
		return Envelope{}, ErrDecryptFailed.New(err.Error(), err)
	}
	return DecodeCleartext(plaintext)
}
