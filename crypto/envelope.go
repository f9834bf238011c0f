package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/aead/chacha20"
	"github.com/btcsuite/btcd/btcec/v2"
)

// KeyProvider resolves a hop's known crypto public key, sourced from the
// hop's replica or gossip profile per spec §4.2. No package in this
// module uses it; htlc.BuildRoute takes htlc.HopKey instead.
type KeyProvider interface {
	HopPublicKey(hopID string) (*btcec.PublicKey, bool)
}

// SealLayer encrypts plaintext to recipientPub using an ephemeral-key ECDH
// handshake (adapted from lightning-onion's per-hop shared-secret
// derivation) followed by a ChaCha20 stream cipher, the way the teacher's
// onion obfuscation layers each hop's payload. The returned bytes are
// self-contained: ephemeral pubkey || nonce || ciphertext.
func SealLayer(recipientPub *btcec.PublicKey, plaintext []byte) ([]byte, error) {
	ephPriv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	ephPub := ephPriv.PubKey()

	shared := ecdh(ephPriv, recipientPub)
	key := sha256.Sum256(shared)

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, uint64(len(plaintext)))

	out := make([]byte, len(plaintext))
	c, err := chacha20.NewCipher(nonce, key[:])
	if err != nil {
		return nil, err
	}
	c.XORKeyStream(out, plaintext)

	sealed := make([]byte, 0, 33+8+len(out))
	sealed = append(sealed, ephPub.SerializeCompressed()...)
	sealed = append(sealed, nonce...)
	sealed = append(sealed, out...)
	return sealed, nil
}

// OpenLayer reverses SealLayer using the recipient's private key.
func OpenLayer(recipientPriv *btcec.PrivateKey, sealed []byte) ([]byte, error) {
	if len(sealed) < 33+8 {
		return nil, errShortEnvelope
	}
	ephPub, err := btcec.ParsePubKey(sealed[:33])
	if err != nil {
		return nil, err
	}
	nonce := sealed[33:41]
	ct := sealed[41:]

	shared := ecdh(recipientPriv, ephPub)
	key := sha256.Sum256(shared)

	out := make([]byte, len(ct))
	c, err := chacha20.NewCipher(nonce, key[:])
	if err != nil {
		return nil, err
	}
	c.XORKeyStream(out, ct)
	return out, nil
}

func ecdh(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	var pubJac btcec.JacobianPoint
	pub.AsJacobian(&pubJac)

	var result btcec.JacobianPoint
	btcec.ScalarMultNonConst(&priv.Key, &pubJac, &result)
	result.ToAffine()

	x := result.X.Bytes()
	sum := sha256.Sum256(x[:])
	return sum[:]
}

type envelopeError string

func (e envelopeError) Error() string { return string(e) }

const errShortEnvelope envelopeError = "sealed envelope shorter than header"
